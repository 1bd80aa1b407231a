package ephem

import (
	"context"
	"time"

	"github.com/signalsfoundry/astro-aspects/core"
	"github.com/signalsfoundry/astro-aspects/model"
)

// FixtureBody is one body of a Static chart at the fixture epoch.
type FixtureBody struct {
	Body      model.BodyName
	Longitude float64
	// Speed in degrees/day; nil leaves the body's motion unknown and keeps
	// it fixed in time.
	Speed *float64
}

// Static serves fixture positions. Bodies with a speed drift linearly away
// from their epoch longitude, so transits over a Static chart still move.
type Static struct {
	Epoch     time.Time
	Ascendant float64
	Bodies    []FixtureBody
}

func speed(v float64) *float64 { return &v }

// DemoChart is the fixture behind the CLI's -demo flag and the tests.
func DemoChart() *Static {
	return &Static{
		Epoch:     time.Date(1990, time.June, 15, 14, 30, 0, 0, time.UTC),
		Ascendant: 184.2,
		Bodies: []FixtureBody{
			{model.Sun, 84.1, speed(0.955)},
			{model.Moon, 204.6, speed(13.2)},
			{model.Mercury, 73.8, speed(-0.31)},
			{model.Venus, 44.2, speed(1.19)},
			{model.Mars, 8.5, speed(0.72)},
			{model.Jupiter, 99.7, speed(0.23)},
			{model.Saturn, 293.9, speed(-0.04)},
			{model.Uranus, 278.4, speed(-0.03)},
			{model.Neptune, 283.9, speed(-0.02)},
			{model.Pluto, 225.8, speed(-0.01)},
		},
	}
}

// Resolve implements Resolver.
func (s *Static) Resolve(ctx context.Context, req Request) (*model.Chart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hs, err := ParseHouseSystem(string(req.HouseSystem))
	if err != nil {
		return nil, err
	}

	moment := req.Moment
	if moment.IsZero() {
		moment = s.Epoch
	}
	days := moment.Sub(s.Epoch).Hours() / 24

	asc := core.NormalizeDegrees(s.Ascendant)
	mc := core.NormalizeDegrees(asc - 90)
	cusps := Cusps(hs, asc, mc)

	chart := &model.Chart{
		Origin:      req.Origin,
		Moment:      moment.UTC(),
		Location:    req.Location,
		HouseSystem: hs,
		Ascendant:   asc,
		Midheaven:   mc,
		Cusps:       cusps,
		Bodies:      make([]model.CelestialBodyPosition, 0, len(s.Bodies)),
	}
	for _, b := range s.Bodies {
		lon := b.Longitude
		if b.Speed != nil {
			lon += *b.Speed * days
		}
		lon = core.NormalizeDegrees(lon)
		chart.Bodies = append(chart.Bodies, model.NewPosition(b.Body, req.Origin, lon, HouseOf(cusps, lon), b.Speed))
	}
	return chart, nil
}
