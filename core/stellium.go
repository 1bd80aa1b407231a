package core

import (
	"sort"

	"github.com/signalsfoundry/astro-aspects/model"
)

// DefaultStelliumSize is the smallest group that counts as a stellium.
const DefaultStelliumSize = 3

// DetectStelliums groups bodies by sign and reports every sign holding at
// least minBodies distinct bodies. Results are ordered by sign.
func DetectStelliums(positions []model.CelestialBodyPosition, minBodies int) []model.AspectPattern {
	if minBodies <= 0 {
		minBodies = DefaultStelliumSize
	}
	bySign := make(map[model.Sign][]model.CelestialBodyPosition)
	for _, p := range distinct(positions) {
		s := SignOf(p.AbsoluteDegree)
		bySign[s] = append(bySign[s], p)
	}

	signs := make([]model.Sign, 0, len(bySign))
	for s, members := range bySign {
		if len(members) >= minBodies {
			signs = append(signs, s)
		}
	}
	sort.Slice(signs, func(i, j int) bool { return signs[i] < signs[j] })

	out := make([]model.AspectPattern, 0, len(signs))
	for _, s := range signs {
		s := s
		out = append(out, model.AspectPattern{
			Type:    model.PatternStellium,
			Members: bySign[s],
			Sign:    &s,
		})
	}
	return out
}
