package ephem

import (
	"github.com/signalsfoundry/astro-aspects/core"
	"github.com/signalsfoundry/astro-aspects/model"
)

// Cusps returns the twelve house cusps (house 1 first) for hs. The system
// must already be validated; unknown values fall back to porphyry.
func Cusps(hs model.HouseSystem, asc, mc float64) [12]float64 {
	var c [12]float64
	switch hs {
	case model.HouseSystemWholeSign:
		start := float64(int(core.NormalizeDegrees(asc)/30)) * 30
		for i := range c {
			c[i] = core.NormalizeDegrees(start + float64(i)*30)
		}
	case model.HouseSystemEqual:
		for i := range c {
			c[i] = core.NormalizeDegrees(asc + float64(i)*30)
		}
	default:
		ic := core.NormalizeDegrees(mc + 180)
		desc := core.NormalizeDegrees(asc + 180)
		q1 := core.NormalizeDegrees(ic - asc)
		q2 := core.NormalizeDegrees(desc - ic)
		c[0] = core.NormalizeDegrees(asc)
		c[1] = core.NormalizeDegrees(asc + q1/3)
		c[2] = core.NormalizeDegrees(asc + 2*q1/3)
		c[3] = ic
		c[4] = core.NormalizeDegrees(ic + q2/3)
		c[5] = core.NormalizeDegrees(ic + 2*q2/3)
		for i := 6; i < 12; i++ {
			c[i] = core.NormalizeDegrees(c[i-6] + 180)
		}
	}
	return c
}

// HouseOf returns the 1-based house containing lon.
func HouseOf(cusps [12]float64, lon float64) int {
	lon = core.NormalizeDegrees(lon)
	for i := 0; i < 12; i++ {
		start, end := cusps[i], cusps[(i+1)%12]
		width := core.NormalizeDegrees(end - start)
		if core.NormalizeDegrees(lon-start) < width {
			return i + 1
		}
	}
	return 1
}
