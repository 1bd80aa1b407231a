package chartsvc

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/astro-aspects/core"
	"github.com/signalsfoundry/astro-aspects/ephem"
	"github.com/signalsfoundry/astro-aspects/internal/logging"
	"github.com/signalsfoundry/astro-aspects/internal/observability"
	"github.com/signalsfoundry/astro-aspects/model"
)

const (
	solarReturnMaxIter   = 20
	solarReturnTolerance = 1e-5 // degrees, about one second of time
	// fallback when the resolver gives no speed
	meanSolarMotion = 0.9856
)

// SolarReturn finds the moment in year when the transiting Sun returns to
// the subject's natal Sun longitude and casts a chart for it at the birth
// location.
func (s *Service) SolarReturn(ctx context.Context, id string, year int, orb float64) (*SolarReturnReport, error) {
	ctx, span := observability.StartSpan(ctx, "chartsvc.SolarReturn", id)
	defer span.End()

	if year < 1 || year > 9999 {
		return nil, fmt.Errorf("%w: year %d out of range", ErrInvalidRequest, year)
	}
	if err := CheckOrb(orb); err != nil {
		return nil, err
	}
	subj, err := s.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	natal, err := s.natalChart(ctx, subj)
	if err != nil {
		return nil, err
	}
	natalSun, ok := natal.Body(model.Sun)
	if !ok {
		return nil, fmt.Errorf("%w: natal chart has no Sun", ErrInvalidRequest)
	}

	// The anniversary of the birth instant lands within a day of the return.
	guess := natal.Moment.UTC().AddDate(year-natal.Moment.UTC().Year(), 0, 0)

	moment, iterations, err := s.findSunLongitude(ctx, natalSun.AbsoluteDegree, guess)
	s.metrics.ObserveSolarReturn(iterations)
	if err != nil {
		return nil, err
	}

	chart, err := s.resolve(ctx, ephem.Request{
		Moment:   moment,
		Location: subj.Birth.Location,
		Origin:   model.OriginTransit,
	})
	if err != nil {
		return nil, err
	}
	aspects := s.engine(orb).CrossAspects(chart.Bodies, model.WithOrigin(natal.Bodies, model.OriginNatal))
	core.SortByOrb(aspects)

	s.logger(ctx).Info(ctx, "solar return",
		logging.String("subject_id", subj.ID),
		logging.Int("year", year),
		logging.Int("iterations", iterations),
	)
	return &SolarReturnReport{
		SubjectID:  subj.ID,
		Year:       year,
		Moment:     moment,
		Chart:      chart,
		Iterations: iterations,
		Aspects:    aspects,
	}, nil
}

// findSunLongitude runs Newton's method on the signed distance between the
// transiting Sun and target.
func (s *Service) findSunLongitude(ctx context.Context, target float64, t time.Time) (time.Time, int, error) {
	for i := 1; i <= solarReturnMaxIter; i++ {
		if err := ctx.Err(); err != nil {
			return time.Time{}, i, err
		}
		chart, err := s.resolve(ctx, ephem.Request{Moment: t, Origin: model.OriginTransit})
		if err != nil {
			return time.Time{}, i, err
		}
		sun, ok := chart.Body(model.Sun)
		if !ok {
			return time.Time{}, i, fmt.Errorf("%w: resolver returned no Sun", ErrNoConvergence)
		}
		diff := core.SignedDelta(sun.AbsoluteDegree, target)
		if math.Abs(diff) < solarReturnTolerance {
			return t.Round(time.Second), i, nil
		}
		speed, ok := sun.Speed()
		if !ok || speed <= 0 {
			speed = meanSolarMotion
		}
		days := diff / speed
		t = t.Add(-time.Duration(days * float64(24*time.Hour)))
	}
	return time.Time{}, solarReturnMaxIter, fmt.Errorf("%w: solar return after %d iterations", ErrNoConvergence, solarReturnMaxIter)
}
