package core

import "github.com/signalsfoundry/astro-aspects/model"

// DignityKind is the essential dignity of a body in a sign.
type DignityKind string

const (
	Domicile   DignityKind = "domicile"
	Exaltation DignityKind = "exaltation"
	Detriment  DignityKind = "detriment"
	Fall       DignityKind = "fall"
	Peregrine  DignityKind = "peregrine"
)

// Strong reports whether the dignity strengthens the body.
func (k DignityKind) Strong() bool { return k == Domicile || k == Exaltation }

// Weak reports whether the dignity debilitates the body.
func (k DignityKind) Weak() bool { return k == Detriment || k == Fall }

var rulerships = map[model.BodyName][]model.Sign{
	model.Sun:     {model.Leo},
	model.Moon:    {model.Cancer},
	model.Mercury: {model.Gemini, model.Virgo},
	model.Venus:   {model.Taurus, model.Libra},
	model.Mars:    {model.Aries, model.Scorpio},
	model.Jupiter: {model.Sagittarius, model.Pisces},
	model.Saturn:  {model.Capricorn, model.Aquarius},
	model.Uranus:  {model.Aquarius},
	model.Neptune: {model.Pisces},
	model.Pluto:   {model.Scorpio},
}

// Outer planets carry no traditional exaltation.
var exaltations = map[model.BodyName]model.Sign{
	model.Sun:     model.Aries,
	model.Moon:    model.Taurus,
	model.Mercury: model.Virgo,
	model.Venus:   model.Pisces,
	model.Mars:    model.Capricorn,
	model.Jupiter: model.Cancer,
	model.Saturn:  model.Libra,
}

// Dignity returns the essential dignity of body in sign. Detriment and
// fall are the signs opposite rulership and exaltation. Rulership is
// checked first, so Mercury in Virgo is domicile rather than exaltation.
// Unknown bodies are peregrine.
func Dignity(body model.BodyName, s model.Sign) DignityKind {
	for _, r := range rulerships[body] {
		if r == s {
			return Domicile
		}
	}
	if ex, ok := exaltations[body]; ok && ex == s {
		return Exaltation
	}
	if traditional(body) {
		for _, r := range rulerships[body] {
			if opposite(r) == s {
				return Detriment
			}
		}
		if ex, ok := exaltations[body]; ok && opposite(ex) == s {
			return Fall
		}
	}
	return Peregrine
}

// traditional limits detriment and fall to the seven visible planets, as
// the classical tables do.
func traditional(body model.BodyName) bool {
	_, ok := exaltations[body]
	return ok
}

func opposite(s model.Sign) model.Sign { return model.Sign((int(s) + 6) % 12) }

// BodyDignity is one row of a DignityReport.
type BodyDignity struct {
	Body    model.BodyName `json:"body"`
	Sign    model.Sign     `json:"sign"`
	Dignity DignityKind    `json:"dignity"`
}

// DignityReport splits a chart's bodies into strong, weak and neutral
// placements, preserving input order within each group.
type DignityReport struct {
	Strong  []BodyDignity `json:"strong"`
	Weak    []BodyDignity `json:"weak"`
	Neutral []BodyDignity `json:"neutral"`
}

// Dignities classifies every position.
func Dignities(positions []model.CelestialBodyPosition) DignityReport {
	var r DignityReport
	for _, p := range distinct(positions) {
		s := SignOf(p.AbsoluteDegree)
		row := BodyDignity{Body: p.Body, Sign: s, Dignity: Dignity(p.Body, s)}
		switch {
		case row.Dignity.Strong():
			r.Strong = append(r.Strong, row)
		case row.Dignity.Weak():
			r.Weak = append(r.Weak, row)
		default:
			r.Neutral = append(r.Neutral, row)
		}
	}
	return r
}
