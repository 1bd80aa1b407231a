package model

import (
	"fmt"
	"math"
	"strings"
)

// BodyName identifies a tracked celestial body or point. Names are opaque
// keys: the constants below are the bodies the analytic ephemeris produces,
// but any other name (nodes, asteroids) is accepted everywhere.
type BodyName string

const (
	Sun     BodyName = "Sun"
	Moon    BodyName = "Moon"
	Mercury BodyName = "Mercury"
	Venus   BodyName = "Venus"
	Mars    BodyName = "Mars"
	Jupiter BodyName = "Jupiter"
	Saturn  BodyName = "Saturn"
	Uranus  BodyName = "Uranus"
	Neptune BodyName = "Neptune"
	Pluto   BodyName = "Pluto"
)

// ClassicalBodies lists the ten bodies in traditional chart order.
var ClassicalBodies = []BodyName{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}

// ChartOrigin tags which body-set a position belongs to.
type ChartOrigin string

const (
	OriginNatal   ChartOrigin = "natal"
	OriginTransit ChartOrigin = "transit"
	OriginPartner ChartOrigin = "partner"
)

// BodyKey is the identity of a position: the same body in two different
// charts are two different keys.
type BodyKey struct {
	Body   BodyName
	Origin ChartOrigin
}

func (k BodyKey) String() string {
	if k.Origin == "" {
		return string(k.Body)
	}
	return string(k.Origin) + ":" + string(k.Body)
}

// Less orders keys by origin, then body name.
func (k BodyKey) Less(other BodyKey) bool {
	if k.Origin != other.Origin {
		return k.Origin < other.Origin
	}
	return k.Body < other.Body
}

// CelestialBodyPosition is one body's placement at a moment in time.
// Positions are produced by a resolver and treated as read-only afterwards.
type CelestialBodyPosition struct {
	Body   BodyName    `json:"body"`
	Origin ChartOrigin `json:"origin,omitempty"`

	SignIndex      int     `json:"sign_index"`
	DegreeInSign   float64 `json:"degree_in_sign"`
	AbsoluteDegree float64 `json:"absolute_degree"`

	House        int  `json:"house,omitempty"`
	IsRetrograde bool `json:"retrograde"`

	// DailySpeed is the signed ecliptic-longitude speed in degrees/day.
	// nil means the resolver did not supply it.
	DailySpeed *float64 `json:"daily_speed,omitempty"`
}

// Key returns the identity of the position.
func (p CelestialBodyPosition) Key() BodyKey {
	return BodyKey{Body: p.Body, Origin: p.Origin}
}

// Sign returns the zodiac sign containing the position.
func (p CelestialBodyPosition) Sign() Sign {
	return Sign(((p.SignIndex % 12) + 12) % 12)
}

// Speed returns the daily speed and whether it is known.
func (p CelestialBodyPosition) Speed() (float64, bool) {
	if p.DailySpeed == nil {
		return 0, false
	}
	return *p.DailySpeed, true
}

func (p CelestialBodyPosition) String() string {
	return fmt.Sprintf("%s %.2f° %s", p.Key(), p.DegreeInSign, p.Sign())
}

// NewPosition builds a position from an ecliptic longitude, deriving the
// sign and in-sign degree so the sign/degree invariant always holds.
// A nil speed leaves DailySpeed unset; a negative speed marks the body
// retrograde.
func NewPosition(body BodyName, origin ChartOrigin, longitude float64, house int, speed *float64) CelestialBodyPosition {
	abs := math.Mod(longitude, 360)
	if abs < 0 {
		abs += 360
	}
	if abs >= 360 {
		abs = 0
	}
	sign := int(abs / 30)
	if sign > 11 {
		sign = 11
	}
	pos := CelestialBodyPosition{
		Body:           body,
		Origin:         origin,
		SignIndex:      sign,
		DegreeInSign:   abs - float64(sign)*30,
		AbsoluteDegree: abs,
		House:          house,
	}
	if speed != nil {
		s := *speed
		pos.DailySpeed = &s
		pos.IsRetrograde = s < 0
	}
	return pos
}

// WithOrigin returns copies of positions re-tagged with origin.
func WithOrigin(positions []CelestialBodyPosition, origin ChartOrigin) []CelestialBodyPosition {
	out := make([]CelestialBodyPosition, len(positions))
	for i, p := range positions {
		p.Origin = origin
		out[i] = p
	}
	return out
}

// ParseBodyName maps case-insensitive names onto the known constants and
// passes anything else through unchanged.
func ParseBodyName(s string) BodyName {
	s = strings.TrimSpace(s)
	for _, b := range ClassicalBodies {
		if strings.EqualFold(string(b), s) {
			return b
		}
	}
	return BodyName(s)
}
