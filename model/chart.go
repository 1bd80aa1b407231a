package model

import "time"

// Location is a geographic position in degrees (east and north positive).
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Name      string  `json:"name,omitempty" yaml:"name,omitempty"`
}

// BirthData is what a user supplies for a natal chart. Time may be empty,
// in which case the chart is cast for local noon.
type BirthData struct {
	Date     string   `json:"date"`           // YYYY-MM-DD
	Time     string   `json:"time,omitempty"` // HH:MM or HH:MM:SS
	TimeZone string   `json:"time_zone,omitempty"`
	Location Location `json:"location"`
}

// HouseSystem selects how house cusps are divided.
type HouseSystem string

const (
	HouseSystemWholeSign HouseSystem = "whole_sign"
	HouseSystemEqual     HouseSystem = "equal"
	HouseSystemPorphyry  HouseSystem = "porphyry"
)

// Chart is the full output of a position resolver for one moment.
type Chart struct {
	Origin      ChartOrigin `json:"origin"`
	Moment      time.Time   `json:"moment"`
	Location    Location    `json:"location"`
	HouseSystem HouseSystem `json:"house_system"`

	Ascendant float64     `json:"ascendant"`
	Midheaven float64     `json:"midheaven"`
	Cusps     [12]float64 `json:"cusps"`

	Bodies []CelestialBodyPosition `json:"bodies"`
}

// Body finds a body in the chart.
func (c *Chart) Body(name BodyName) (CelestialBodyPosition, bool) {
	if c == nil {
		return CelestialBodyPosition{}, false
	}
	for _, b := range c.Bodies {
		if b.Body == name {
			return b, true
		}
	}
	return CelestialBodyPosition{}, false
}

// Subject is a person (or event) whose natal chart is kept in a store.
type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Birth     BirthData `json:"birth"`
	Natal     *Chart    `json:"natal,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
