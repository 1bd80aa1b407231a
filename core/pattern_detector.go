package core

import "github.com/signalsfoundry/astro-aspects/model"

// PatternDetector finds multi-body configurations within one chart.
//
// Detection works on raw longitudes rather than on an aspect list, so the
// tolerance here is independent of the one used for aspect listing.
type PatternDetector struct {
	// OrbTolerance is the inclusive orb applied to every leg of a pattern;
	// non-positive means DefaultOrbTolerance.
	OrbTolerance float64
	// GrandCross enables grand-cross detection in Detect.
	GrandCross bool
}

// NewPatternDetector returns a detector with the default orb and grand
// cross detection enabled.
func NewPatternDetector(orb float64) *PatternDetector {
	return &PatternDetector{OrbTolerance: orb, GrandCross: true}
}

func (d *PatternDetector) tolerance() float64 {
	if d == nil || d.OrbTolerance <= 0 {
		return DefaultOrbTolerance
	}
	return d.OrbTolerance
}

// Detect runs every enabled detector: grand trines, T-squares and, when
// enabled, grand crosses.
func (d *PatternDetector) Detect(positions []model.CelestialBodyPosition) []model.AspectPattern {
	var out []model.AspectPattern
	out = append(out, d.GrandTrines(positions)...)
	out = append(out, d.TSquares(positions)...)
	if d != nil && d.GrandCross {
		out = append(out, d.GrandCrosses(positions)...)
	}
	return out
}

// GrandTrines returns every triple whose three legs are trines.
func (d *PatternDetector) GrandTrines(positions []model.CelestialBodyPosition) []model.AspectPattern {
	bodies := distinct(positions)
	if len(bodies) < 3 {
		return nil
	}
	tol := d.tolerance()

	var out []model.AspectPattern
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			if !within(bodies[i], bodies[j], 120, tol) {
				continue
			}
			for k := j + 1; k < len(bodies); k++ {
				if within(bodies[i], bodies[k], 120, tol) && within(bodies[j], bodies[k], 120, tol) {
					members := []model.CelestialBodyPosition{bodies[i], bodies[j], bodies[k]}
					out = append(out, model.AspectPattern{
						Type:    model.PatternGrandTrine,
						Members: members,
						Element: sharedElement(members),
					})
				}
			}
		}
	}
	return out
}

// TSquares returns every opposition whose two ends are both squared by a
// third body. The apex is listed in the middle of Members. An apex that
// also opposes either end is rejected, so each T-square holds exactly one
// opposition.
func (d *PatternDetector) TSquares(positions []model.CelestialBodyPosition) []model.AspectPattern {
	bodies := distinct(positions)
	if len(bodies) < 3 {
		return nil
	}
	tol := d.tolerance()

	seen := make(map[string]struct{})
	var out []model.AspectPattern
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			if !within(bodies[i], bodies[j], 180, tol) {
				continue
			}
			for k := range bodies {
				if k == i || k == j {
					continue
				}
				if !within(bodies[k], bodies[i], 90, tol) || !within(bodies[k], bodies[j], 90, tol) {
					continue
				}
				// Only the base may be an opposition.
				if within(bodies[k], bodies[i], 180, tol) || within(bodies[k], bodies[j], 180, tol) {
					continue
				}
				p := model.AspectPattern{
					Type:    model.PatternTSquare,
					Members: []model.CelestialBodyPosition{bodies[i], bodies[k], bodies[j]},
				}
				if key := p.SetKey(); !markSeen(seen, key) {
					out = append(out, p)
				}
			}
		}
	}
	return out
}

// GrandCrosses returns pairs of oppositions whose four cross legs are all
// squares and none of them an opposition. Members are listed around the cross: p1, p3, p2, p4.
func (d *PatternDetector) GrandCrosses(positions []model.CelestialBodyPosition) []model.AspectPattern {
	bodies := distinct(positions)
	if len(bodies) < 4 {
		return nil
	}
	tol := d.tolerance()

	type pair struct{ a, b int }
	var oppositions []pair
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			if within(bodies[i], bodies[j], 180, tol) {
				oppositions = append(oppositions, pair{i, j})
			}
		}
	}

	seen := make(map[string]struct{})
	var out []model.AspectPattern
	for x := 0; x < len(oppositions); x++ {
		for y := x + 1; y < len(oppositions); y++ {
			o1, o2 := oppositions[x], oppositions[y]
			if o1.a == o2.a || o1.a == o2.b || o1.b == o2.a || o1.b == o2.b {
				continue
			}
			p1, p2, p3, p4 := bodies[o1.a], bodies[o1.b], bodies[o2.a], bodies[o2.b]
			if !within(p1, p3, 90, tol) || !within(p1, p4, 90, tol) ||
				!within(p2, p3, 90, tol) || !within(p2, p4, 90, tol) {
				continue
			}
			if within(p1, p3, 180, tol) || within(p1, p4, 180, tol) ||
				within(p2, p3, 180, tol) || within(p2, p4, 180, tol) {
				continue
			}
			p := model.AspectPattern{
				Type:    model.PatternGrandCross,
				Members: []model.CelestialBodyPosition{p1, p3, p2, p4},
			}
			if key := p.SetKey(); !markSeen(seen, key) {
				out = append(out, p)
			}
		}
	}
	return out
}

func within(a, b model.CelestialBodyPosition, exact, tol float64) bool {
	return OrbFrom(MinimalSeparation(a.AbsoluteDegree, b.AbsoluteDegree), exact) <= tol
}

// distinct drops repeated keys, keeping the first occurrence.
func distinct(positions []model.CelestialBodyPosition) []model.CelestialBodyPosition {
	seen := make(map[model.BodyKey]struct{}, len(positions))
	out := make([]model.CelestialBodyPosition, 0, len(positions))
	for _, p := range positions {
		if _, ok := seen[p.Key()]; ok {
			continue
		}
		seen[p.Key()] = struct{}{}
		out = append(out, p)
	}
	return out
}

// markSeen records key and reports whether it was already present.
func markSeen(seen map[string]struct{}, key string) bool {
	if _, ok := seen[key]; ok {
		return true
	}
	seen[key] = struct{}{}
	return false
}

func sharedElement(members []model.CelestialBodyPosition) model.Element {
	if len(members) == 0 {
		return ""
	}
	e := SignOf(members[0].AbsoluteDegree).Element()
	for _, m := range members[1:] {
		if SignOf(m.AbsoluteDegree).Element() != e {
			return ""
		}
	}
	return e
}
