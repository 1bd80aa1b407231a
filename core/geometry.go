package core

import (
	"math"

	"github.com/signalsfoundry/astro-aspects/model"
)

// FullCircle is the length of the ecliptic in degrees.
const FullCircle = 360.0

// NormalizeDegrees reduces any finite angle to [0, 360).
//
// NaN and ±Inf are a caller contract violation; they propagate as NaN.
func NormalizeDegrees(x float64) float64 {
	r := math.Mod(x, FullCircle)
	if r < 0 {
		r += FullCircle
	}
	// math.Mod of a tiny negative plus 360 can round up to exactly 360.
	if r >= FullCircle {
		r = 0
	}
	return r
}

// MinimalSeparation returns the shorter arc between two longitudes, in
// [0, 180]. It is commutative.
func MinimalSeparation(a, b float64) float64 {
	d := math.Abs(NormalizeDegrees(a) - NormalizeDegrees(b))
	if d > FullCircle/2 {
		d = FullCircle - d
	}
	return d
}

// OrbFrom scores how far a separation is from an exact aspect angle.
func OrbFrom(angle, exactAngle float64) float64 {
	return math.Abs(angle - exactAngle)
}

// SignedDelta returns a − b folded into (-180, 180]. Positive means a is
// ahead of b in zodiacal order along the shorter arc.
func SignedDelta(a, b float64) float64 {
	d := NormalizeDegrees(a - b)
	if d > FullCircle/2 {
		d -= FullCircle
	}
	return d
}

// SignOf returns the zodiac sign containing a longitude, ignoring whatever
// sign index a resolver may have attached.
func SignOf(longitude float64) model.Sign {
	s := int(NormalizeDegrees(longitude) / 30)
	if s > 11 {
		s = 11
	}
	return model.Sign(s)
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
