package core

import (
	"sort"

	"github.com/signalsfoundry/astro-aspects/model"
)

// NeutralCompatibility is the score of a pair with no aspects at all.
const NeutralCompatibility = 50.0

var compatibilityWeights = map[model.AspectType]float64{
	model.Trine:       3,
	model.Sextile:     2,
	model.Conjunction: 1,
	model.Opposition:  -2,
	model.Square:      -3,
}

// CompatibilityScore starts at 50 and adds a fixed weight per aspect:
// trine +3, sextile +2, conjunction +1, opposition −2, square −3. The
// result is clamped to [0, 100].
func CompatibilityScore(aspects []model.Aspect) float64 {
	score := NeutralCompatibility
	for _, a := range aspects {
		score += compatibilityWeights[a.Type]
	}
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

// SortByOrb orders aspects tightest first. Equal orbs fall back to the
// body keys so the order is stable across runs.
func SortByOrb(aspects []model.Aspect) {
	sort.SliceStable(aspects, func(i, j int) bool {
		if aspects[i].Orb != aspects[j].Orb {
			return aspects[i].Orb < aspects[j].Orb
		}
		pi, pj := aspects[i].PairKey(), aspects[j].PairKey()
		if pi[0] != pj[0] {
			return pi[0].Less(pj[0])
		}
		return pi[1].Less(pj[1])
	})
}

// SignificantAspects returns the n tightest aspects.
func SignificantAspects(aspects []model.Aspect, n int) []model.Aspect {
	return topN(aspects, n, func(model.Aspect) bool { return true })
}

// Strengths returns the n tightest trines and sextiles.
func Strengths(aspects []model.Aspect, n int) []model.Aspect {
	return topN(aspects, n, func(a model.Aspect) bool { return a.Type.Harmonious() })
}

// Challenges returns the n tightest squares and oppositions.
func Challenges(aspects []model.Aspect, n int) []model.Aspect {
	return topN(aspects, n, func(a model.Aspect) bool { return a.Type.Tense() })
}

func topN(aspects []model.Aspect, n int, keep func(model.Aspect) bool) []model.Aspect {
	var out []model.Aspect
	for _, a := range aspects {
		if keep(a) {
			out = append(out, a)
		}
	}
	SortByOrb(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
