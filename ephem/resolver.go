// Package ephem turns moments and places into charts of body positions.
package ephem

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/signalsfoundry/astro-aspects/model"
)

var (
	// ErrInvalidBirthData is returned when a date, time, zone or location
	// cannot be interpreted.
	ErrInvalidBirthData = errors.New("invalid birth data")
	// ErrUnsupportedHouseSystem is returned for house systems the resolver
	// does not implement.
	ErrUnsupportedHouseSystem = errors.New("unsupported house system")
)

// DefaultHouseSystem is used when a request leaves HouseSystem empty.
const DefaultHouseSystem = model.HouseSystemPorphyry

// Request describes the chart to resolve.
type Request struct {
	Moment      time.Time
	Location    model.Location
	HouseSystem model.HouseSystem
	Origin      model.ChartOrigin
}

// Resolver produces a chart for a request. Implementations must be safe for
// concurrent use.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (*model.Chart, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, req Request) (*model.Chart, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, req Request) (*model.Chart, error) {
	return f(ctx, req)
}

var timeLayouts = []string{"15:04:05", "15:04"}

// MomentFromBirth converts user supplied birth data into an instant. A
// missing time means local noon and a missing zone means UTC.
func MomentFromBirth(b model.BirthData) (time.Time, error) {
	loc := time.UTC
	if tz := strings.TrimSpace(b.TimeZone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: time zone %q: %v", ErrInvalidBirthData, tz, err)
		}
		loc = l
	}

	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(b.Date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidBirthData, b.Date)
	}

	clock := strings.TrimSpace(b.Time)
	if clock == "" {
		clock = "12:00"
	}
	var tod time.Time
	for _, layout := range timeLayouts {
		if tod, err = time.Parse(layout, clock); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidBirthData, b.Time)
	}

	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, loc), nil
}

// ValidateLocation checks latitude and longitude ranges.
func ValidateLocation(l model.Location) error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidBirthData, l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidBirthData, l.Longitude)
	}
	return nil
}

// ParseHouseSystem resolves a house system name. Empty selects the default.
func ParseHouseSystem(s string) (model.HouseSystem, error) {
	switch hs := model.HouseSystem(strings.ToLower(strings.TrimSpace(s))); hs {
	case "":
		return DefaultHouseSystem, nil
	case model.HouseSystemWholeSign, model.HouseSystemEqual, model.HouseSystemPorphyry:
		return hs, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedHouseSystem, s)
	}
}

// NatalRequest builds the request for a subject's natal chart.
func NatalRequest(b model.BirthData, hs model.HouseSystem) (Request, error) {
	moment, err := MomentFromBirth(b)
	if err != nil {
		return Request{}, err
	}
	if err := ValidateLocation(b.Location); err != nil {
		return Request{}, err
	}
	return Request{Moment: moment, Location: b.Location, HouseSystem: hs, Origin: model.OriginNatal}, nil
}
