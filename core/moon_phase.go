package core

import "github.com/signalsfoundry/astro-aspects/model"

// MoonPhase is the lunation phase derived from the Sun–Moon elongation.
type MoonPhase struct {
	Name       string     `json:"name"`
	Elongation float64    `json:"elongation"` // Moon minus Sun, [0, 360)
	MoonSign   model.Sign `json:"moon_sign"`
	Waxing     bool       `json:"waxing"`
}

var phaseNames = [8]string{
	"New Moon",
	"Waxing Crescent",
	"First Quarter",
	"Waxing Gibbous",
	"Full Moon",
	"Waning Gibbous",
	"Last Quarter",
	"Waning Crescent",
}

// MoonPhaseFrom buckets the elongation into eight 45° phases, starting
// with New Moon at 0°.
func MoonPhaseFrom(sun, moon model.CelestialBodyPosition) MoonPhase {
	elong := NormalizeDegrees(moon.AbsoluteDegree - sun.AbsoluteDegree)
	idx := int(elong / 45)
	if idx > 7 {
		idx = 7
	}
	return MoonPhase{
		Name:       phaseNames[idx],
		Elongation: elong,
		MoonSign:   SignOf(moon.AbsoluteDegree),
		Waxing:     elong < 180,
	}
}
