package model

import (
	"fmt"
	"strings"
)

// Sign is a zodiac sign index, 0 = Aries through 11 = Pisces.
type Sign int

const (
	Aries Sign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

var signNames = [12]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

func (s Sign) String() string {
	if s < 0 || s > 11 {
		return "Unknown"
	}
	return signNames[s]
}

// ParseSign resolves a sign name case-insensitively.
func ParseSign(name string) (Sign, bool) {
	for i, n := range signNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Sign(i), true
		}
	}
	return 0, false
}

// MarshalText encodes the sign by name.
func (s Sign) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a sign name.
func (s *Sign) UnmarshalText(b []byte) error {
	v, ok := ParseSign(string(b))
	if !ok {
		return fmt.Errorf("unknown sign %q", b)
	}
	*s = v
	return nil
}

// Element is the classical triplicity of a sign.
type Element string

const (
	Fire  Element = "Fire"
	Earth Element = "Earth"
	Air   Element = "Air"
	Water Element = "Water"
)

// Element cycles fire, earth, air, water from Aries.
func (s Sign) Element() Element {
	switch ((int(s) % 12) + 12) % 4 {
	case 0:
		return Fire
	case 1:
		return Earth
	case 2:
		return Air
	default:
		return Water
	}
}
