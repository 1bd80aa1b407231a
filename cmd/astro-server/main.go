package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/signalsfoundry/astro-aspects/ephem"
	"github.com/signalsfoundry/astro-aspects/internal/api"
	"github.com/signalsfoundry/astro-aspects/internal/cache"
	"github.com/signalsfoundry/astro-aspects/internal/chartsvc"
	"github.com/signalsfoundry/astro-aspects/internal/config"
	"github.com/signalsfoundry/astro-aspects/internal/logging"
	"github.com/signalsfoundry/astro-aspects/internal/observability"
	"github.com/signalsfoundry/astro-aspects/internal/store"
	"github.com/signalsfoundry/astro-aspects/internal/stream"
	"github.com/signalsfoundry/astro-aspects/kb"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before environment overrides")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "astro-server"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves gRPC on lis and HTTP on cfg.HTTPAddr until ctx is done.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chartMetrics, err := observability.NewChartCollector(reg)
	if err != nil {
		return fmt.Errorf("chart metrics: %w", err)
	}
	engineMetrics, err := observability.NewEngineCollector(reg)
	if err != nil {
		return fmt.Errorf("engine metrics: %w", err)
	}

	var positionCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		positionCache, err = cache.NewRedisCache(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer positionCache.Close()
		log.Info(ctx, "position cache enabled", logging.String("addr", cfg.Redis.Addr), logging.Duration("ttl", cfg.Redis.TTL))
	}

	subjects, closeStore, err := openStore(ctx, cfg, log, chartMetrics, positionCache)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := chartsvc.New(subjects, buildResolver(cfg, log, engineMetrics, positionCache),
		chartsvc.WithSettings(chartsvc.Settings{
			OrbTolerance:  cfg.Engine.OrbTolerance,
			UnknownMotion: cfg.MotionDefault(),
			HouseSystem:   cfg.Engine.HouseSystem,
			GrandCross:    cfg.Engine.GrandCross,
			StelliumSize:  cfg.Engine.StelliumSize,
		}),
		chartsvc.WithLogger(log),
		chartsvc.WithMetrics(engineMetrics),
	)

	grpcServer, healthSrv := api.NewServer(svc, log, chartMetrics, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	reflection.Register(grpcServer)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", chartMetrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	stream.NewHandler(svc, stream.Limits{
		DefaultStep:     cfg.Stream.DefaultStep,
		DefaultInterval: cfg.Stream.DefaultInterval,
		MinInterval:     cfg.Stream.MinInterval,
	}, log, chartMetrics).Register(mux)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting gRPC server", logging.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})
	if cfg.HTTPAddr != "" {
		g.Go(func() error {
			log.Info(gctx, "starting HTTP server", logging.String("addr", cfg.HTTPAddr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down")
		healthSrv.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "HTTP shutdown", logging.Err(err))
		}
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
		return nil
	})
	return g.Wait()
}

// openStore picks Postgres when a database URL is configured and the
// in-memory store otherwise.
func openStore(ctx context.Context, cfg config.Config, log logging.Logger, metrics *observability.ChartCollector, events *cache.RedisCache) (chartsvc.SubjectStore, func(), error) {
	if cfg.DB.URL != "" {
		repo, err := store.Open(cfg.DB.URL)
		if err != nil {
			return nil, nil, err
		}
		if existing, err := repo.List(ctx); err == nil {
			metrics.SetSubjects(len(existing))
		}
		log.Info(ctx, "using postgres subject store")
		return repo, func() { _ = repo.Close() }, nil
	}

	mem := kb.NewChartStore()
	unsubscribe := mem.Subscribe(func(e kb.Event) {
		metrics.SetSubjects(mem.Len())
		if events == nil {
			return
		}
		if err := events.PublishSubjectEvent(context.Background(), e.Type.String(), e.Subject.ID); err != nil {
			log.Warn(context.Background(), "publish subject event", logging.Err(err))
		}
	})
	log.Info(ctx, "using in-memory subject store")
	return mem, unsubscribe, nil
}

func buildResolver(cfg config.Config, log logging.Logger, metrics *observability.EngineCollector, positionCache *cache.RedisCache) ephem.Resolver {
	var resolver ephem.Resolver = ephem.NewAnalytic()
	if cfg.Engine.Demo {
		resolver = ephem.DemoChart()
	}
	if positionCache == nil {
		return resolver
	}
	return &ephem.Cached{
		Next:     resolver,
		Cache:    positionCache,
		TTL:      cfg.Redis.TTL,
		OnLookup: metrics.CacheLookup,
		OnError: func(err error) {
			log.Warn(context.Background(), "position cache", logging.Err(err))
		},
	}
}
