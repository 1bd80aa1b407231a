package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/astro-aspects/model"
)

// EngineCollector exposes metrics for position resolution and aspect
// computation.
type EngineCollector struct {
	gatherer prometheus.Gatherer

	ResolveDuration       *prometheus.HistogramVec
	AspectsTotal          *prometheus.CounterVec
	PatternsTotal         *prometheus.CounterVec
	CacheLookups          *prometheus.CounterVec
	SolarReturnIterations prometheus.Histogram
}

// NewEngineCollector registers engine metrics against the provided registerer.
func NewEngineCollector(reg prometheus.Registerer) (*EngineCollector, error) {
	reg, gatherer := registryOrDefault(reg)

	resolve, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astro_resolve_duration_seconds",
		Help:    "Duration of chart position resolution, labeled by chart origin.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"origin"}), "astro_resolve_duration_seconds")
	if err != nil {
		return nil, err
	}

	aspects, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astro_aspects_total",
		Help: "Aspects detected, labeled by aspect type.",
	}, []string{"type"}), "astro_aspects_total")
	if err != nil {
		return nil, err
	}

	patterns, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astro_patterns_total",
		Help: "Aspect patterns detected, labeled by pattern type.",
	}, []string{"type"}), "astro_patterns_total")
	if err != nil {
		return nil, err
	}

	lookups, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astro_position_cache_lookups_total",
		Help: "Position cache lookups, labeled by result (hit or miss).",
	}, []string{"result"}), "astro_position_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	iterations, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "astro_solar_return_iterations",
		Help:    "Newton iterations needed to locate a solar return.",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10, 15, 20},
	}), "astro_solar_return_iterations")
	if err != nil {
		return nil, err
	}

	return &EngineCollector{
		gatherer:              gatherer,
		ResolveDuration:       resolve,
		AspectsTotal:          aspects,
		PatternsTotal:         patterns,
		CacheLookups:          lookups,
		SolarReturnIterations: iterations,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *EngineCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveResolve records how long a chart resolution took.
func (c *EngineCollector) ObserveResolve(origin model.ChartOrigin, d time.Duration) {
	if c == nil || c.ResolveDuration == nil {
		return
	}
	c.ResolveDuration.WithLabelValues(string(origin)).Observe(d.Seconds())
}

// CountAspects adds every aspect to the per-type counter.
func (c *EngineCollector) CountAspects(aspects []model.Aspect) {
	if c == nil || c.AspectsTotal == nil {
		return
	}
	for _, a := range aspects {
		c.AspectsTotal.WithLabelValues(a.Type.String()).Inc()
	}
}

// CountPatterns adds every pattern to the per-type counter.
func (c *EngineCollector) CountPatterns(patterns []model.AspectPattern) {
	if c == nil || c.PatternsTotal == nil {
		return
	}
	for _, p := range patterns {
		c.PatternsTotal.WithLabelValues(string(p.Type)).Inc()
	}
}

// CacheLookup records a position cache hit or miss.
func (c *EngineCollector) CacheLookup(hit bool) {
	if c == nil || c.CacheLookups == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveSolarReturn records the iteration count of a solar return search.
func (c *EngineCollector) ObserveSolarReturn(iterations int) {
	if c == nil || c.SolarReturnIterations == nil {
		return
	}
	c.SolarReturnIterations.Observe(float64(iterations))
}
