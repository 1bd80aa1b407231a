package chartsvc

import (
	"time"

	"github.com/signalsfoundry/astro-aspects/core"
	"github.com/signalsfoundry/astro-aspects/model"
)

// DefaultTopAspects bounds the strengths, challenges and significant
// transit lists.
const DefaultTopAspects = 5

// NatalReport is the full analysis of one natal chart.
type NatalReport struct {
	SubjectID string                `json:"subject_id,omitempty"`
	Name      string                `json:"name"`
	Chart     *model.Chart          `json:"chart"`
	Aspects   []model.Aspect        `json:"aspects"`
	Patterns  []model.AspectPattern `json:"patterns"`
	Stelliums []model.AspectPattern `json:"stelliums"`
	Dignities core.DignityReport    `json:"dignities"`
	MoonPhase *core.MoonPhase       `json:"moon_phase,omitempty"`
}

// TransitReport compares the sky at Moment with a natal chart.
type TransitReport struct {
	SubjectID   string                        `json:"subject_id"`
	Moment      time.Time                     `json:"moment"`
	Positions   []model.CelestialBodyPosition `json:"positions"`
	Aspects     []model.Aspect                `json:"aspects"`
	Applying    []model.Aspect                `json:"applying"`
	Significant []model.Aspect                `json:"significant"`
	Retrogrades []model.CelestialBodyPosition `json:"retrogrades"`
}

// SynastryReport compares two natal charts.
type SynastryReport struct {
	SubjectA      string         `json:"subject_a"`
	SubjectB      string         `json:"subject_b"`
	Aspects       []model.Aspect `json:"aspects"`
	Compatibility float64        `json:"compatibility"`
	Strengths     []model.Aspect `json:"strengths"`
	Challenges    []model.Aspect `json:"challenges"`
}

// MoonPhaseReport is the lunation at one moment.
type MoonPhaseReport struct {
	Moment time.Time      `json:"moment"`
	Phase  core.MoonPhase `json:"phase"`
}

// RetrogradeReport lists bodies with negative daily motion.
type RetrogradeReport struct {
	Moment time.Time                     `json:"moment"`
	Bodies []model.CelestialBodyPosition `json:"bodies"`
}

// SolarReturnReport is the chart cast for the Sun's return to its natal
// longitude.
type SolarReturnReport struct {
	SubjectID  string       `json:"subject_id"`
	Year       int          `json:"year"`
	Moment     time.Time    `json:"moment"`
	Chart      *model.Chart `json:"chart"`
	Iterations int          `json:"iterations"`
	// Aspects are return-to-natal contacts.
	Aspects []model.Aspect `json:"aspects"`
}
