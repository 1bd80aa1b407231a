package core

import (
	"testing"

	"github.com/signalsfoundry/astro-aspects/model"
)

func TestDignity(t *testing.T) {
	tests := []struct {
		body model.BodyName
		sign model.Sign
		want DignityKind
	}{
		{model.Sun, model.Leo, Domicile},
		{model.Sun, model.Aries, Exaltation},
		{model.Sun, model.Aquarius, Detriment},
		{model.Sun, model.Libra, Fall},
		{model.Sun, model.Gemini, Peregrine},
		{model.Mercury, model.Virgo, Domicile},
		{model.Mercury, model.Pisces, Detriment},
		{model.Mars, model.Cancer, Fall},
		{model.Uranus, model.Aquarius, Domicile},
		{model.Uranus, model.Leo, Peregrine},
		{"Chiron", model.Virgo, Peregrine},
	}
	for _, tt := range tests {
		if got := Dignity(tt.body, tt.sign); got != tt.want {
			t.Errorf("Dignity(%s, %s) = %s, want %s", tt.body, tt.sign, got, tt.want)
		}
	}
}

func TestDignitiesReport(t *testing.T) {
	chart := []model.CelestialBodyPosition{
		natal("Sun", 125),    // Leo
		natal("Moon", 220),   // Scorpio
		natal("Mercury", 70), // Gemini
		natal("Venus", 40),   // Taurus
		natal("Mars", 100),   // Cancer
	}
	r := Dignities(chart)
	if len(r.Strong) != 3 || len(r.Weak) != 2 || len(r.Neutral) != 0 {
		t.Fatalf("report = %+v, want 3 strong and 2 weak", r)
	}
	if r.Strong[0].Body != model.Sun || r.Weak[0].Body != model.Moon {
		t.Fatalf("report order = %+v, want input order", r)
	}
	if r.Weak[0].Dignity != Fall || r.Weak[1].Dignity != Fall {
		t.Fatalf("weak = %+v, want Moon and Mars in fall", r.Weak)
	}
}

func TestMoonPhaseFrom(t *testing.T) {
	sun := natal("Sun", 10)
	tests := []struct {
		moon   float64
		want   string
		waxing bool
	}{
		{10, "New Moon", true},
		{110, "First Quarter", true},
		{150, "Waxing Gibbous", true},
		{210, "Full Moon", false},
		{0, "Waning Crescent", false},
	}
	for _, tt := range tests {
		got := MoonPhaseFrom(sun, natal("Moon", tt.moon))
		if got.Name != tt.want || got.Waxing != tt.waxing {
			t.Errorf("moon at %v: got %s (waxing %v), want %s (waxing %v)", tt.moon, got.Name, got.Waxing, tt.want, tt.waxing)
		}
		if got.Elongation < 0 || got.Elongation >= 360 {
			t.Errorf("moon at %v: elongation %v out of range", tt.moon, got.Elongation)
		}
	}
	if got := MoonPhaseFrom(sun, natal("Moon", 95)); got.MoonSign != model.Cancer {
		t.Fatalf("moon sign = %s, want Cancer", got.MoonSign)
	}
}

func aspectOf(typ model.AspectType, a, b string, orb float64) model.Aspect {
	return model.Aspect{
		BodyA: model.BodyKey{Body: model.BodyName(a), Origin: model.OriginNatal},
		BodyB: model.BodyKey{Body: model.BodyName(b), Origin: model.OriginPartner},
		Type:  typ,
		Orb:   orb,
	}
}

func TestCompatibilityScore(t *testing.T) {
	if got := CompatibilityScore(nil); got != NeutralCompatibility {
		t.Fatalf("empty score = %v, want %v", got, NeutralCompatibility)
	}

	mixed := []model.Aspect{
		aspectOf(model.Trine, "Sun", "Moon", 1),
		aspectOf(model.Square, "Mars", "Venus", 2),
		aspectOf(model.Conjunction, "Venus", "Venus", 3),
	}
	if got := CompatibilityScore(mixed); got != 51 {
		t.Fatalf("mixed score = %v, want 51", got)
	}

	var many, hard []model.Aspect
	for i := 0; i < 30; i++ {
		many = append(many, aspectOf(model.Trine, "Sun", "Moon", 1))
		hard = append(hard, aspectOf(model.Square, "Sun", "Moon", 1))
	}
	if got := CompatibilityScore(many); got != 100 {
		t.Fatalf("score = %v, want clamp at 100", got)
	}
	if got := CompatibilityScore(hard); got != 0 {
		t.Fatalf("score = %v, want clamp at 0", got)
	}
}

func TestStrengthsAndChallengesOrderByOrb(t *testing.T) {
	aspects := []model.Aspect{
		aspectOf(model.Trine, "Sun", "Moon", 4),
		aspectOf(model.Square, "Mars", "Sun", 1),
		aspectOf(model.Sextile, "Venus", "Mars", 0.5),
		aspectOf(model.Opposition, "Moon", "Saturn", 3),
		aspectOf(model.Trine, "Jupiter", "Venus", 2),
		aspectOf(model.Conjunction, "Mercury", "Mercury", 0.1),
	}

	strengths := Strengths(aspects, 2)
	if len(strengths) != 2 || strengths[0].Orb != 0.5 || strengths[1].Orb != 2 {
		t.Fatalf("strengths = %+v, want sextile 0.5 then trine 2", strengths)
	}

	challenges := Challenges(aspects, 0)
	if len(challenges) != 2 || challenges[0].Type != model.Square || challenges[1].Type != model.Opposition {
		t.Fatalf("challenges = %+v, want square then opposition", challenges)
	}

	top := SignificantAspects(aspects, 3)
	if len(top) != 3 || top[0].Type != model.Conjunction {
		t.Fatalf("significant = %+v, want conjunction first", top)
	}
	if aspects[0].Orb != 4 {
		t.Fatalf("input slice was reordered")
	}
}
