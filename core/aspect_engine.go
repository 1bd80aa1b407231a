package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/signalsfoundry/astro-aspects/model"
)

// DefaultOrbTolerance is the orb used when a caller does not supply one.
const DefaultOrbTolerance = 8.0

// MaxOrbTolerance is the widest orb the service accepts. Below 45° an apex
// can never be within orb of both a square and an opposition, so pattern
// shapes stay unambiguous.
const MaxOrbTolerance = 30.0

// MotionDefault decides the applying flag when a daily speed is missing.
type MotionDefault int

const (
	// AssumeApplying marks speed-less aspects as applying.
	AssumeApplying MotionDefault = iota
	// AssumeSeparating marks speed-less aspects as separating.
	AssumeSeparating
)

func (m MotionDefault) String() string {
	if m == AssumeSeparating {
		return "separating"
	}
	return "applying"
}

// ParseMotionDefault accepts "applying" or "separating".
func ParseMotionDefault(s string) (MotionDefault, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "applying":
		return AssumeApplying, nil
	case "separating":
		return AssumeSeparating, nil
	default:
		return AssumeApplying, fmt.Errorf("unknown motion default %q", s)
	}
}

// AspectEngine finds major aspects between position sets. The zero value
// is usable and behaves like NewAspectEngine().
type AspectEngine struct {
	// OrbTolerance is the inclusive maximum orb; non-positive means
	// DefaultOrbTolerance.
	OrbTolerance float64
	// UnknownMotion is applied when either body lacks a daily speed.
	UnknownMotion MotionDefault
}

// EngineOption customises an AspectEngine.
type EngineOption func(*AspectEngine)

// WithOrbTolerance overrides the orb tolerance.
func WithOrbTolerance(orb float64) EngineOption {
	return func(e *AspectEngine) { e.OrbTolerance = orb }
}

// WithUnknownMotion overrides the applying default for speed-less bodies.
func WithUnknownMotion(m MotionDefault) EngineOption {
	return func(e *AspectEngine) { e.UnknownMotion = m }
}

// NewAspectEngine returns an engine with an 8° orb that assumes applying
// when speeds are missing.
func NewAspectEngine(opts ...EngineOption) *AspectEngine {
	e := &AspectEngine{
		OrbTolerance:  DefaultOrbTolerance,
		UnknownMotion: AssumeApplying,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *AspectEngine) tolerance() float64 {
	if e == nil || e.OrbTolerance <= 0 {
		return DefaultOrbTolerance
	}
	return e.OrbTolerance
}

// Compute returns every aspect between a body in a and a body in b.
//
// A position is never paired with itself (same body and origin). With
// excludeSelfPairs set, each unordered pair is considered once, which is
// what callers want when a and b are the same set. Emission order follows
// the input order but is not part of the contract.
func (e *AspectEngine) Compute(a, b []model.CelestialBodyPosition, excludeSelfPairs bool) []model.Aspect {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	tol := e.tolerance()

	var seen map[[2]model.BodyKey]struct{}
	if excludeSelfPairs {
		seen = make(map[[2]model.BodyKey]struct{})
	}

	var out []model.Aspect
	for _, p1 := range a {
		for _, p2 := range b {
			k1, k2 := p1.Key(), p2.Key()
			if k1 == k2 {
				continue
			}
			if seen != nil {
				pk := unorderedPair(k1, k2)
				if _, dup := seen[pk]; dup {
					continue
				}
				seen[pk] = struct{}{}
			}
			if asp, ok := e.between(p1, p2, tol); ok {
				out = append(out, asp)
			}
		}
	}
	return out
}

// NatalAspects computes aspects within a single chart.
func (e *AspectEngine) NatalAspects(positions []model.CelestialBodyPosition) []model.Aspect {
	return e.Compute(positions, positions, true)
}

// CrossAspects computes aspects from moving bodies (transits, a partner's
// chart) onto a fixed chart.
func (e *AspectEngine) CrossAspects(moving, fixed []model.CelestialBodyPosition) []model.Aspect {
	return e.Compute(moving, fixed, false)
}

func (e *AspectEngine) between(p1, p2 model.CelestialBodyPosition, tol float64) (model.Aspect, bool) {
	delta := SignedDelta(p1.AbsoluteDegree, p2.AbsoluteDegree)
	sep := MinimalSeparation(p1.AbsoluteDegree, p2.AbsoluteDegree)

	typ, orb, ok := Classify(sep, tol)
	if !ok {
		return model.Aspect{}, false
	}

	asp := model.Aspect{
		BodyA:      p1.Key(),
		BodyB:      p2.Key(),
		Type:       typ,
		ExactAngle: typ.ExactAngle(),
		Separation: sep,
		Orb:        orb,
	}

	s1, ok1 := p1.Speed()
	s2, ok2 := p2.Speed()
	if ok1 && ok2 {
		asp.Applying = isApplying(delta, sep, typ.ExactAngle(), s1-s2)
		asp.MotionKnown = true
	} else {
		asp.Applying = e.UnknownMotion == AssumeApplying
	}
	return asp, true
}

// Classify picks the aspect type whose exact angle is closest to sep.
// Ties go to the lowest type in enumeration order. ok is false when the
// best orb exceeds tolerance.
func Classify(sep, tolerance float64) (model.AspectType, float64, bool) {
	best := model.Conjunction
	bestOrb := OrbFrom(sep, best.ExactAngle())
	for _, t := range model.AspectTypes[1:] {
		if orb := OrbFrom(sep, t.ExactAngle()); orb < bestOrb {
			best, bestOrb = t, orb
		}
	}
	return best, bestOrb, bestOrb <= tolerance
}

// isApplying reports whether the separation is moving toward exact.
//
// delta is the signed difference p1 − p2 in (-180, 180] and relSpeed is
// d(p1 − p2)/dt. The minimal separation is |delta|, so its rate is
// relSpeed on the positive side and −relSpeed on the negative side. At the
// folds (0 and 180) any motion opens or closes the separation
// respectively.
func isApplying(delta, sep, exact, relSpeed float64) bool {
	var sepRate float64
	switch {
	case delta == 0:
		sepRate = math.Abs(relSpeed)
	case delta == FullCircle/2:
		sepRate = -math.Abs(relSpeed)
	case delta > 0:
		sepRate = relSpeed
	default:
		sepRate = -relSpeed
	}
	return sign(exact-sep) == sign(sepRate)
}

func unorderedPair(a, b model.BodyKey) [2]model.BodyKey {
	if b.Less(a) {
		return [2]model.BodyKey{b, a}
	}
	return [2]model.BodyKey{a, b}
}
