package core

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/signalsfoundry/astro-aspects/model"
)

func natal(name string, deg float64) model.CelestialBodyPosition {
	return model.NewPosition(model.BodyName(name), model.OriginNatal, deg, 0, nil)
}

func moving(name string, origin model.ChartOrigin, deg, speed float64) model.CelestialBodyPosition {
	return model.NewPosition(model.BodyName(name), origin, deg, 0, &speed)
}

func randomChart(rng *rand.Rand, origin model.ChartOrigin) []model.CelestialBodyPosition {
	out := make([]model.CelestialBodyPosition, 0, len(model.ClassicalBodies))
	for _, b := range model.ClassicalBodies {
		speed := rng.Float64()*2 - 0.5
		out = append(out, model.NewPosition(b, origin, rng.Float64()*360, 1+rng.Intn(12), &speed))
	}
	return out
}

var sortAspects = cmpopts.SortSlices(func(a, b model.Aspect) bool {
	pa, pb := a.PairKey(), b.PairKey()
	if pa[0] != pb[0] {
		return pa[0].Less(pb[0])
	}
	return pa[1].Less(pb[1])
})

func TestComputeExactAspectsHaveZeroOrb(t *testing.T) {
	e := NewAspectEngine()
	for _, at := range model.AspectTypes {
		a := natal("A", 10)
		b := natal("B", 10+at.ExactAngle())

		got := e.NatalAspects([]model.CelestialBodyPosition{a, b})
		if len(got) != 1 {
			t.Fatalf("%s: got %d aspects, want 1", at, len(got))
		}
		if got[0].Type != at {
			t.Fatalf("%s: type = %s", at, got[0].Type)
		}
		if got[0].Orb != 0 {
			t.Fatalf("%s: orb = %v, want 0", at, got[0].Orb)
		}
		if got[0].ExactAngle != at.ExactAngle() {
			t.Fatalf("%s: exact angle = %v", at, got[0].ExactAngle)
		}
	}
}

func TestComputeOrbBoundaryIsInclusive(t *testing.T) {
	e := NewAspectEngine(WithOrbTolerance(8))

	edge := e.NatalAspects([]model.CelestialBodyPosition{natal("A", 10), natal("B", 138)})
	if len(edge) != 1 || edge[0].Type != model.Trine || edge[0].Orb != 8 {
		t.Fatalf("separation 128 at orb 8: got %+v, want one trine with orb 8", edge)
	}

	wrapped := e.NatalAspects([]model.CelestialBodyPosition{natal("A", 350), natal("B", 118)})
	if len(wrapped) != 1 || wrapped[0].Orb != 8 {
		t.Fatalf("wrapped separation 128: got %+v, want one aspect with orb 8", wrapped)
	}

	past := e.NatalAspects([]model.CelestialBodyPosition{natal("A", 10), natal("B", 138.0001)})
	if len(past) != 0 {
		t.Fatalf("separation just past the orb produced %+v", past)
	}
}

func TestClassifyTiesGoToLowestType(t *testing.T) {
	typ, orb, ok := Classify(75, 15)
	if !ok || typ != model.Sextile || orb != 15 {
		t.Fatalf("Classify(75, 15) = %s, %v, %v; want sextile, 15, true", typ, orb, ok)
	}
	typ, _, ok = Classify(105, 15)
	if !ok || typ != model.Square {
		t.Fatalf("Classify(105, 15) = %s, %v; want square", typ, ok)
	}
	if _, _, ok := Classify(45, 8); ok {
		t.Fatalf("Classify(45, 8) matched, want no aspect")
	}
}

func TestNatalAspectsNeverPairBodyWithItself(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	e := NewAspectEngine(WithOrbTolerance(10))
	for i := 0; i < 200; i++ {
		chart := randomChart(rng, model.OriginNatal)
		seen := make(map[[2]model.BodyKey]bool)
		for _, a := range e.NatalAspects(chart) {
			if a.BodyA == a.BodyB {
				t.Fatalf("self aspect emitted: %v", a)
			}
			if seen[a.PairKey()] {
				t.Fatalf("pair emitted twice: %v", a)
			}
			seen[a.PairKey()] = true
		}
	}
}

func TestCrossAspectsPairSameBodyAcrossCharts(t *testing.T) {
	e := NewAspectEngine()
	transit := []model.CelestialBodyPosition{moving("Sun", model.OriginTransit, 100, 1)}
	natalChart := []model.CelestialBodyPosition{moving("Sun", model.OriginNatal, 102, 1)}

	got := e.CrossAspects(transit, natalChart)
	if len(got) != 1 || got[0].Type != model.Conjunction {
		t.Fatalf("transit Sun to natal Sun: got %+v, want a conjunction", got)
	}
	if got[0].BodyA.Origin != model.OriginTransit || got[0].BodyB.Origin != model.OriginNatal {
		t.Fatalf("unexpected body keys: %v / %v", got[0].BodyA, got[0].BodyB)
	}
}

func TestComputeDegenerateInputs(t *testing.T) {
	e := NewAspectEngine()
	if got := e.NatalAspects(nil); got != nil {
		t.Fatalf("nil input produced %v", got)
	}
	if got := e.NatalAspects([]model.CelestialBodyPosition{natal("Sun", 1)}); len(got) != 0 {
		t.Fatalf("single body produced %v", got)
	}
	if got := e.CrossAspects([]model.CelestialBodyPosition{natal("Sun", 1)}, nil); got != nil {
		t.Fatalf("empty fixed chart produced %v", got)
	}
}

func TestComputeNormalisesOutOfRangeLongitudes(t *testing.T) {
	e := NewAspectEngine()
	a := model.CelestialBodyPosition{Body: "A", AbsoluteDegree: 370}
	b := model.CelestialBodyPosition{Body: "B", AbsoluteDegree: -50}

	got := e.NatalAspects([]model.CelestialBodyPosition{a, b})
	if len(got) != 1 || got[0].Type != model.Sextile || got[0].Orb != 0 {
		t.Fatalf("370 vs -50: got %+v, want exact sextile", got)
	}
}

func TestApplyingFromDailySpeeds(t *testing.T) {
	tests := []struct {
		name     string
		a, b     model.CelestialBodyPosition
		wantType model.AspectType
		applying bool
	}{
		{
			name:     "faster body behind closes conjunction",
			a:        moving("Moon", model.OriginTransit, 10, 13),
			b:        moving("Sun", model.OriginNatal, 15, 0),
			wantType: model.Conjunction,
			applying: true,
		},
		{
			name:     "faster body ahead leaves conjunction",
			a:        moving("Moon", model.OriginTransit, 20, 13),
			b:        moving("Sun", model.OriginNatal, 15, 0),
			wantType: model.Conjunction,
			applying: false,
		},
		{
			name:     "conjunction across Aries point",
			a:        moving("Mars", model.OriginTransit, 359, 0.7),
			b:        moving("Venus", model.OriginNatal, 2, 0),
			wantType: model.Conjunction,
			applying: true,
		},
		{
			name:     "opposition widening toward 180",
			a:        moving("Mars", model.OriginTransit, 350, 0.7),
			b:        moving("Saturn", model.OriginNatal, 172, 0),
			wantType: model.Opposition,
			applying: true,
		},
		{
			name:     "retrograde body backing out of trine",
			a:        moving("Mercury", model.OriginTransit, 118, -0.5),
			b:        moving("Sun", model.OriginNatal, 3, 0),
			wantType: model.Trine,
			applying: false,
		},
		{
			name:     "square with both bodies moving",
			a:        moving("Venus", model.OriginTransit, 95, 1.2),
			b:        moving("Mars", model.OriginTransit, 10, 0.6),
			wantType: model.Square,
			applying: true,
		},
		{
			name:     "exact aspect is separating",
			a:        moving("Sun", model.OriginTransit, 40, 1),
			b:        moving("Moon", model.OriginNatal, 100, 0),
			wantType: model.Sextile,
			applying: false,
		},
	}

	e := NewAspectEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.CrossAspects([]model.CelestialBodyPosition{tt.a}, []model.CelestialBodyPosition{tt.b})
			if len(got) != 1 {
				t.Fatalf("got %d aspects, want 1: %+v", len(got), got)
			}
			if got[0].Type != tt.wantType {
				t.Fatalf("type = %s, want %s", got[0].Type, tt.wantType)
			}
			if !got[0].MotionKnown {
				t.Fatalf("MotionKnown = false with both speeds set")
			}
			if got[0].Applying != tt.applying {
				t.Fatalf("applying = %v, want %v", got[0].Applying, tt.applying)
			}
		})
	}
}

func TestApplyingDefaultWhenSpeedUnknown(t *testing.T) {
	pair := []model.CelestialBodyPosition{natal("A", 0), natal("B", 93)}

	got := NewAspectEngine().NatalAspects(pair)
	if len(got) != 1 || !got[0].Applying || got[0].MotionKnown {
		t.Fatalf("default engine: got %+v, want applying with unknown motion", got)
	}

	got = NewAspectEngine(WithUnknownMotion(AssumeSeparating)).NatalAspects(pair)
	if len(got) != 1 || got[0].Applying || got[0].MotionKnown {
		t.Fatalf("separating default: got %+v, want separating with unknown motion", got)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	e := NewAspectEngine()
	transit := randomChart(rng, model.OriginTransit)
	natalChart := randomChart(rng, model.OriginNatal)

	first := e.CrossAspects(transit, natalChart)
	second := e.CrossAspects(transit, natalChart)
	if diff := cmp.Diff(first, second, sortAspects); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
}

func TestWiderOrbOnlyAddsAspects(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		chart := randomChart(rng, model.OriginNatal)
		narrow := NewAspectEngine(WithOrbTolerance(2)).NatalAspects(chart)
		wide := NewAspectEngine(WithOrbTolerance(6)).NatalAspects(chart)

		byPair := make(map[[2]model.BodyKey]model.Aspect, len(wide))
		for _, a := range wide {
			byPair[a.PairKey()] = a
		}
		for _, a := range narrow {
			w, ok := byPair[a.PairKey()]
			if !ok {
				t.Fatalf("aspect %v lost when widening the orb", a)
			}
			if w.Type != a.Type {
				t.Fatalf("aspect %v reclassified as %s", a, w.Type)
			}
		}
	}
}

func TestZeroValueEngineUsesDefaults(t *testing.T) {
	var e AspectEngine
	got := e.NatalAspects([]model.CelestialBodyPosition{natal("A", 0), natal("B", 127)})
	if len(got) != 1 || got[0].Type != model.Trine {
		t.Fatalf("zero-value engine: got %+v, want trine within default orb", got)
	}
}

func TestParseMotionDefault(t *testing.T) {
	if m, err := ParseMotionDefault("Separating"); err != nil || m != AssumeSeparating {
		t.Fatalf("ParseMotionDefault(Separating) = %v, %v", m, err)
	}
	if m, err := ParseMotionDefault(""); err != nil || m != AssumeApplying {
		t.Fatalf("ParseMotionDefault(\"\") = %v, %v", m, err)
	}
	if _, err := ParseMotionDefault("sideways"); err == nil {
		t.Fatalf("expected error for unknown motion default")
	}
}
