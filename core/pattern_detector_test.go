package core

import (
	"math/rand"
	"testing"

	"github.com/signalsfoundry/astro-aspects/model"
)

func chartAt(degrees ...float64) []model.CelestialBodyPosition {
	out := make([]model.CelestialBodyPosition, len(degrees))
	for i, d := range degrees {
		out[i] = natal(string(model.ClassicalBodies[i]), d)
	}
	return out
}

func TestDetectGrandTrine(t *testing.T) {
	d := NewPatternDetector(8)
	got := d.Detect(chartAt(0, 120, 240))
	if len(got) != 1 {
		t.Fatalf("got %d patterns, want 1: %+v", len(got), got)
	}
	p := got[0]
	if p.Type != model.PatternGrandTrine {
		t.Fatalf("type = %s, want grand-trine", p.Type)
	}
	if len(p.Members) != 3 {
		t.Fatalf("members = %d, want 3", len(p.Members))
	}
	if p.Element != model.Fire {
		t.Fatalf("element = %q, want Fire", p.Element)
	}
}

func TestGrandTrineWithinOrbAcrossElements(t *testing.T) {
	// 28° Aries, 150° Virgo, 268° Sagittarius: a dissociate trine.
	got := NewPatternDetector(8).GrandTrines(chartAt(28, 150, 268))
	if len(got) != 1 {
		t.Fatalf("got %d grand trines, want 1", len(got))
	}
	if got[0].Element != "" {
		t.Fatalf("element = %q, want none for mixed elements", got[0].Element)
	}
}

func TestDetectTSquareApexInMiddle(t *testing.T) {
	bodies := chartAt(0, 180, 90)
	got := NewPatternDetector(8).Detect(bodies)
	if len(got) != 1 {
		t.Fatalf("got %d patterns, want 1: %+v", len(got), got)
	}
	p := got[0]
	if p.Type != model.PatternTSquare {
		t.Fatalf("type = %s, want t-square", p.Type)
	}
	apex, ok := p.Apex()
	if !ok || apex.Key() != bodies[2].Key() {
		t.Fatalf("apex = %v, want %v", apex.Key(), bodies[2].Key())
	}
	ends := map[model.BodyKey]bool{p.Members[0].Key(): true, p.Members[2].Key(): true}
	if !ends[bodies[0].Key()] || !ends[bodies[1].Key()] {
		t.Fatalf("opposition ends = %v, want %v and %v", p.MemberKeys(), bodies[0].Key(), bodies[1].Key())
	}
}

func TestTSquareOppositionWithTwoApexes(t *testing.T) {
	// Both 90° and 270° square the 0°/180° opposition.
	got := NewPatternDetector(8).TSquares(chartAt(0, 180, 90, 270))
	if len(got) != 4 {
		t.Fatalf("got %d t-squares, want 4: %+v", len(got), got)
	}
	seen := make(map[string]bool)
	for _, p := range got {
		if seen[p.SetKey()] {
			t.Fatalf("duplicate member set %s", p.SetKey())
		}
		seen[p.SetKey()] = true
	}
}

func TestTSquareApexMayNotOpposeAnEnd(t *testing.T) {
	// At 60° the body at 150° squares both ends of 0°/180° but also opposes 0°.
	if got := NewPatternDetector(60).TSquares(chartAt(0, 180, 150)); len(got) != 0 {
		t.Fatalf("got %+v, want no t-square", got)
	}
}

func oppositionPairs(members []model.CelestialBodyPosition, tol float64) int {
	n := 0
	for i := range members {
		for j := i + 1; j < len(members); j++ {
			if within(members[i], members[j], 180, tol) {
				n++
			}
		}
	}
	return n
}

func TestPatternOppositionCounts(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 300; i++ {
		tol := 1 + rng.Float64()*59
		d := NewPatternDetector(tol)
		chart := randomChart(rng, model.OriginNatal)
		for _, p := range d.TSquares(chart) {
			if n := oppositionPairs(p.Members, tol); n != 1 {
				t.Fatalf("orb %.1f: t-square %s has %d oppositions, want 1", tol, p.SetKey(), n)
			}
		}
		for _, p := range d.GrandCrosses(chart) {
			if n := oppositionPairs(p.Members, tol); n != 2 {
				t.Fatalf("orb %.1f: grand cross %s has %d oppositions, want 2", tol, p.SetKey(), n)
			}
		}
	}
}

func TestNoPatternsForUnrelatedBodies(t *testing.T) {
	if got := NewPatternDetector(8).Detect(chartAt(0, 10, 200)); len(got) != 0 {
		t.Fatalf("got %+v, want no patterns", got)
	}
}

func TestDetectGrandCross(t *testing.T) {
	d := NewPatternDetector(8)
	got := d.GrandCrosses(chartAt(1, 91, 179, 272))
	if len(got) != 1 {
		t.Fatalf("got %d grand crosses, want 1: %+v", len(got), got)
	}
	members := got[0].Members
	if len(members) != 4 {
		t.Fatalf("members = %d, want 4", len(members))
	}
	// Neighbours around the cross are squares, diagonals are oppositions.
	for i := range members {
		next := members[(i+1)%4]
		if orb := OrbFrom(MinimalSeparation(members[i].AbsoluteDegree, next.AbsoluteDegree), 90); orb > 8 {
			t.Fatalf("members %d and %d are not square: orb %v", i, (i+1)%4, orb)
		}
	}
	if orb := OrbFrom(MinimalSeparation(members[0].AbsoluteDegree, members[2].AbsoluteDegree), 180); orb > 8 {
		t.Fatalf("diagonal is not an opposition: orb %v", orb)
	}

	d.GrandCross = false
	for _, p := range d.Detect(chartAt(1, 91, 179, 272)) {
		if p.Type == model.PatternGrandCross {
			t.Fatalf("grand cross reported with detection disabled")
		}
	}
}

func TestPatternsNeedEnoughDistinctBodies(t *testing.T) {
	d := NewPatternDetector(8)
	if got := d.Detect(chartAt(0, 120)); got != nil {
		t.Fatalf("two bodies produced %+v", got)
	}
	if got := d.GrandCrosses(chartAt(0, 90, 180)); got != nil {
		t.Fatalf("three bodies produced grand cross %+v", got)
	}

	// Repeating the same key does not manufacture a third body.
	sun := natal("Sun", 0)
	if got := d.GrandTrines([]model.CelestialBodyPosition{sun, natal("Moon", 120), sun}); len(got) != 0 {
		t.Fatalf("duplicate key produced %+v", got)
	}
}

func TestWiderOrbOnlyAddsPatterns(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 300; i++ {
		chart := randomChart(rng, model.OriginNatal)
		narrow := NewPatternDetector(3).Detect(chart)
		wide := NewPatternDetector(9).Detect(chart)

		present := make(map[string]bool, len(wide))
		for _, p := range wide {
			present[p.SetKey()] = true
		}
		for _, p := range narrow {
			if !present[p.SetKey()] {
				t.Fatalf("pattern %s lost when widening the orb", p.SetKey())
			}
		}
	}
}

func TestDetectStelliums(t *testing.T) {
	chart := chartAt(1, 5, 20, 40, 200)
	got := DetectStelliums(chart, 0)
	if len(got) != 1 {
		t.Fatalf("got %d stelliums, want 1: %+v", len(got), got)
	}
	if got[0].Sign == nil || *got[0].Sign != model.Aries {
		t.Fatalf("stellium sign = %v, want Aries", got[0].Sign)
	}
	if len(got[0].Members) != 3 {
		t.Fatalf("members = %d, want 3", len(got[0].Members))
	}
	if got := DetectStelliums(chart, 4); len(got) != 0 {
		t.Fatalf("min 4 produced %+v", got)
	}
}
