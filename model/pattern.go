package model

import (
	"sort"
	"strings"
)

// PatternType names a multi-body configuration.
type PatternType string

const (
	PatternGrandTrine PatternType = "grand-trine"
	PatternTSquare    PatternType = "t-square"
	PatternGrandCross PatternType = "grand-cross"
	PatternStellium   PatternType = "stellium"
)

// AspectPattern is a detected geometric configuration. Member order is
// meaningful for T-squares (apex in the middle) and grand crosses (members
// listed around the cross).
type AspectPattern struct {
	Type    PatternType             `json:"type"`
	Members []CelestialBodyPosition `json:"members"`

	// Element is set on grand trines whose members share an element.
	Element Element `json:"element,omitempty"`
	// Sign is set on stelliums.
	Sign *Sign `json:"sign,omitempty"`
}

// Apex returns the focal body of a T-square.
func (p AspectPattern) Apex() (CelestialBodyPosition, bool) {
	if p.Type != PatternTSquare || len(p.Members) != 3 {
		return CelestialBodyPosition{}, false
	}
	return p.Members[1], true
}

// MemberKeys returns the member identities in pattern order.
func (p AspectPattern) MemberKeys() []BodyKey {
	keys := make([]BodyKey, len(p.Members))
	for i, m := range p.Members {
		keys[i] = m.Key()
	}
	return keys
}

// SetKey returns an order-independent identity of the pattern, used to
// de-duplicate patterns with the same members.
func (p AspectPattern) SetKey() string {
	keys := p.MemberKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, string(p.Type))
	for _, k := range keys {
		parts = append(parts, k.String())
	}
	return strings.Join(parts, "|")
}
