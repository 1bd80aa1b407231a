//go:build perf || perf_large

package perf

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/signalsfoundry/astro-aspects/core"
	"github.com/signalsfoundry/astro-aspects/ephem"
	"github.com/signalsfoundry/astro-aspects/internal/chartsvc"
	"github.com/signalsfoundry/astro-aspects/internal/logging"
	"github.com/signalsfoundry/astro-aspects/kb"
	"github.com/signalsfoundry/astro-aspects/model"
)

type perfConfig struct {
	Bodies   int
	Subjects int
	Orb      float64
}

// syntheticBodies scatters n bodies around the zodiac with a fixed seed so
// runs stay comparable.
func syntheticBodies(n int, origin model.ChartOrigin) []model.CelestialBodyPosition {
	rng := rand.New(rand.NewSource(int64(n)))
	out := make([]model.CelestialBodyPosition, n)
	for i := range out {
		speed := rng.Float64()*2 - 0.5
		out[i] = model.NewPosition(model.BodyName(fmt.Sprintf("body-%d", i)), origin, rng.Float64()*360, 0, &speed)
	}
	return out
}

func benchmarkNatalAspects(b *testing.B, cfg perfConfig) {
	positions := syntheticBodies(cfg.Bodies, model.OriginNatal)
	engine := core.NewAspectEngine(core.WithOrbTolerance(cfg.Orb))
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = engine.NatalAspects(positions)
	}
}

func benchmarkCrossAspects(b *testing.B, cfg perfConfig) {
	moving := syntheticBodies(cfg.Bodies, model.OriginTransit)
	fixed := syntheticBodies(cfg.Bodies+1, model.OriginNatal)
	engine := core.NewAspectEngine(core.WithOrbTolerance(cfg.Orb))
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = engine.CrossAspects(moving, fixed)
	}
}

func benchmarkPatterns(b *testing.B, cfg perfConfig) {
	positions := syntheticBodies(cfg.Bodies, model.OriginNatal)
	detector := core.NewPatternDetector(cfg.Orb)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = detector.Detect(positions)
		_ = core.DetectStelliums(positions, core.DefaultStelliumSize)
	}
}

func benchmarkNatalReports(b *testing.B, cfg perfConfig) {
	ctx := context.Background()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		svc := chartsvc.New(kb.NewChartStore(), ephem.NewAnalytic(), chartsvc.WithLogger(logging.Noop()))
		birth := time.Date(1950, time.January, 1, 12, 0, 0, 0, time.UTC)

		b.ResetTimer()
		for j := 0; j < cfg.Subjects; j++ {
			at := birth.AddDate(0, 0, j*7)
			subj, err := svc.CreateSubject(ctx, fmt.Sprintf("subject-%d-%d", i, j), model.BirthData{
				Date:     at.Format("2006-01-02"),
				Time:     at.Format("15:04"),
				Location: model.Location{Latitude: 40, Longitude: -74},
			})
			if err != nil {
				b.Fatalf("CreateSubject(%d): %v", j, err)
			}
			if _, err := svc.NatalReport(ctx, subj.ID, cfg.Orb); err != nil {
				b.Fatalf("NatalReport(%s): %v", subj.ID, err)
			}
		}
		b.StopTimer()
	}
}
