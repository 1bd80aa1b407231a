package api

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/astro-aspects/internal/chartsvc"
	"github.com/signalsfoundry/astro-aspects/internal/logging"
	"github.com/signalsfoundry/astro-aspects/internal/observability"
)

// NewServer builds a gRPC server with the chart and health services
// registered and the request id, tracing and metrics interceptors chained
// in that order. collector may be nil.
func NewServer(svc *chartsvc.Service, log logging.Logger, collector *observability.ChartCollector, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	interceptors := []grpc.UnaryServerInterceptor{
		RequestIDUnaryServerInterceptor(log),
		TracingUnaryServerInterceptor(),
	}
	if collector != nil {
		interceptors = append(interceptors, collector.UnaryServerInterceptor())
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(interceptors...))

	server := grpc.NewServer(opts...)
	RegisterChartServiceServer(server, NewChartService(svc, log))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(server, healthSrv)
	healthSrv.SetServingStatus(ChartServiceName, healthpb.HealthCheckResponse_SERVING)
	return server, healthSrv
}
