// Package observability holds the Prometheus collectors and tracing setup.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// ChartCollector bundles Prometheus metrics for the chart API surface and
// provides helpers to wire them into gRPC servers and HTTP handlers.
type ChartCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	Subjects          prometheus.Gauge
	StreamSubscribers prometheus.Gauge
}

// NewChartCollector registers API metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewChartCollector(reg prometheus.Registerer) (*ChartCollector, error) {
	reg, gatherer := registryOrDefault(reg)

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astro_requests_total",
		Help: "Total number of handled chart RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "astro_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astro_request_duration_seconds",
		Help:    "Chart RPC latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"service", "method"}), "astro_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	subjects, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "astro_subjects",
		Help: "Current number of stored subjects.",
	}), "astro_subjects")
	if err != nil {
		return nil, err
	}
	streams, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "astro_stream_subscribers",
		Help: "Open transit stream connections.",
	}), "astro_stream_subscribers")
	if err != nil {
		return nil, err
	}

	return &ChartCollector{
		gatherer:          gatherer,
		RPCRequests:       requests,
		RPCDurations:      durations,
		Subjects:          subjects,
		StreamSubscribers: streams,
	}, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *ChartCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, status.Code(err).String()).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}
		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ChartCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetSubjects updates the stored-subject gauge.
func (c *ChartCollector) SetSubjects(n int) {
	if c == nil || c.Subjects == nil {
		return
	}
	c.Subjects.Set(float64(n))
}

// StreamOpened and StreamClosed track live websocket subscribers.
func (c *ChartCollector) StreamOpened() {
	if c == nil || c.StreamSubscribers == nil {
		return
	}
	c.StreamSubscribers.Inc()
}

func (c *ChartCollector) StreamClosed() {
	if c == nil || c.StreamSubscribers == nil {
		return
	}
	c.StreamSubscribers.Dec()
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	parts := strings.Split(strings.TrimPrefix(fullMethod, "/"), "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registryOrDefault(reg prometheus.Registerer) (prometheus.Registerer, prometheus.Gatherer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	return reg, gatherer
}

// register adds c to reg, reusing an already registered collector of the
// same type so constructors can run more than once per process.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		var zero T
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return zero, err
	}
	return c, nil
}
