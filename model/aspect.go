package model

import (
	"fmt"
	"strings"
)

// AspectType enumerates the five major aspects. The declaration order is
// significant: classification ties go to the lowest value.
type AspectType int

const (
	Conjunction AspectType = iota
	Sextile
	Square
	Trine
	Opposition
)

// AspectTypes lists every recognised type in enumeration order.
var AspectTypes = []AspectType{Conjunction, Sextile, Square, Trine, Opposition}

var aspectAngles = [...]float64{0, 60, 90, 120, 180}
var aspectNames = [...]string{"conjunction", "sextile", "square", "trine", "opposition"}

// ExactAngle returns the canonical separation for the type in degrees.
func (t AspectType) ExactAngle() float64 {
	if t < Conjunction || t > Opposition {
		return 0
	}
	return aspectAngles[t]
}

func (t AspectType) String() string {
	if t < Conjunction || t > Opposition {
		return fmt.Sprintf("aspect(%d)", int(t))
	}
	return aspectNames[t]
}

// Harmonious reports whether the aspect is traditionally easy (trine, sextile).
func (t AspectType) Harmonious() bool { return t == Trine || t == Sextile }

// Tense reports whether the aspect is traditionally hard (square, opposition).
func (t AspectType) Tense() bool { return t == Square || t == Opposition }

// ParseAspectType resolves a lower/upper-case aspect name.
func ParseAspectType(s string) (AspectType, error) {
	for i, n := range aspectNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return AspectType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown aspect type %q", s)
}

// MarshalText encodes the type by name.
func (t AspectType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText decodes a type name.
func (t *AspectType) UnmarshalText(b []byte) error {
	v, err := ParseAspectType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Aspect is a detected angular relationship between two positions. It
// references the positions by key only.
type Aspect struct {
	BodyA BodyKey    `json:"body_a"`
	BodyB BodyKey    `json:"body_b"`
	Type  AspectType `json:"type"`

	ExactAngle float64 `json:"exact_angle"`
	Separation float64 `json:"separation"`
	Orb        float64 `json:"orb"`

	Applying bool `json:"applying"`
	// MotionKnown is false when Applying came from the configured default
	// because a daily speed was missing.
	MotionKnown bool `json:"motion_known"`
}

// Involves reports whether the aspect touches the given key.
func (a Aspect) Involves(k BodyKey) bool { return a.BodyA == k || a.BodyB == k }

// PairKey returns the two keys in a canonical order so (A,B) and (B,A)
// compare equal.
func (a Aspect) PairKey() [2]BodyKey {
	if a.BodyB.Less(a.BodyA) {
		return [2]BodyKey{a.BodyB, a.BodyA}
	}
	return [2]BodyKey{a.BodyA, a.BodyB}
}

func (a Aspect) String() string {
	motion := "separating"
	if a.Applying {
		motion = "applying"
	}
	return fmt.Sprintf("%s %s %s (orb %.2f°, %s)", a.BodyA, a.Type, a.BodyB, a.Orb, motion)
}
