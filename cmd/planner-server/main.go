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

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/transit-planner/internal/api"
	"github.com/signalsfoundry/transit-planner/internal/config"
	"github.com/signalsfoundry/transit-planner/internal/fares"
	"github.com/signalsfoundry/transit-planner/internal/logging"
	"github.com/signalsfoundry/transit-planner/internal/observability"
	"github.com/signalsfoundry/transit-planner/internal/status"
	"github.com/signalsfoundry/transit-planner/kb"
	"github.com/signalsfoundry/transit-planner/planner"
	"github.com/signalsfoundry/transit-planner/timectrl"
)

const shutdownTimeout = 5 * time.Second

// newClock is replaced in tests to pin the planning time.
var newClock = func(loc *time.Location) timectrl.Clock {
	return timectrl.SystemClock{Location: loc}
}

func main() {
	envFile := flag.String("env", ".env", "Path to a .env file with PLANNER_* settings")
	grpcAddr := flag.String("grpc-addr", "", "TCP address the gRPC server listens on (overrides PLANNER_GRPC_ADDR)")
	httpAddr := flag.String("http-addr", "", "HTTP address for the REST API and /metrics (overrides PLANNER_HTTP_ADDR)")
	topology := flag.String("topology", "", "Path to the network topology JSON (overrides PLANNER_TOPOLOGY)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logging.NewFromEnv().Error(context.Background(), "invalid configuration", logging.Err(err))
		os.Exit(1)
	}
	if *grpcAddr != "" {
		cfg.GRPCAddr = *grpcAddr
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *topology != "" {
		cfg.TopologyPath = *topology
	}

	log := logging.New(cfg.Logging)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Tracing.Topology = cfg.TopologyPath
	cfg.Tracing.StatusFeed = cfg.StatusURL != ""
	cfg.Tracing.Fares = cfg.FaresEnabled
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		log.Warn(ctx, "tracing disabled", logging.Err(err))
	}
	defer observability.ShutdownTracing(shutdownTracing, shutdownTimeout, log)

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for HTTP", logging.String("addr", cfg.HTTPAddr), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, grpcLis, httpLis); err != nil {
		log.Error(ctx, "planner server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves gRPC on grpcLis and REST on httpLis until ctx is done.
func run(ctx context.Context, cfg config.Config, log logging.Logger, grpcLis, httpLis net.Listener) error {
	network, err := loadNetwork(cfg.TopologyPath)
	if err != nil {
		return err
	}
	log.Info(ctx, "loaded network",
		logging.String("path", cfg.TopologyPath),
		logging.Int("stations", network.Len()),
	)

	apiMetrics, err := observability.NewAPICollector(nil)
	if err != nil {
		return fmt.Errorf("api metrics: %w", err)
	}
	plannerMetrics, err := observability.NewPlannerCollector(nil)
	if err != nil {
		return fmt.Errorf("planner metrics: %w", err)
	}
	apiMetrics.SetNetworkCounts(network.Len(), 0)
	unsubscribe := network.Subscribe(func(ev kb.Event) {
		if ev.Type == kb.EventStatusApplied {
			apiMetrics.SetNetworkCounts(network.Len(), ev.Degraded)
		}
	})
	defer unsubscribe()

	clock := newClock(cfg.Location)
	plannerOpts := []planner.Option{
		planner.WithClock(clock),
		planner.WithLogger(log.With(logging.String("component", "planner"))),
		planner.WithMetrics(plannerMetrics),
	}
	serviceOpts := []api.ServiceOption{
		api.WithClock(clock),
		api.WithDefaultTravelcard(cfg.Travelcard),
		api.WithLogger(log),
	}

	// Background loops get their own context so every return path stops them.
	var statusDone <-chan struct{}
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer func() {
		stopBackground()
		if statusDone != nil {
			<-statusDone
		}
	}()
	if cfg.StatusURL != "" {
		client := status.NewClient(cfg.StatusURL, status.WithCredentials(cfg.AppID, cfg.AppKey))
		tracker := status.NewTracker(client,
			status.WithClock(clock),
			status.WithTTL(cfg.StatusTTL),
			status.WithLogger(log.With(logging.String("component", "status"))),
			status.WithMetrics(plannerMetrics),
		)
		plannerOpts = append(plannerOpts, planner.WithStatusSource(tracker))
		serviceOpts = append(serviceOpts, api.WithStatusReporter(tracker))
		if cfg.StatusRefresh > 0 {
			statusDone = tracker.Run(bgCtx, network, cfg.StatusRefresh)
		}
	}

	fareOpts := []fares.Option{
		fares.WithCache(cfg.FareCacheSize, cfg.FareCacheTTL),
		fares.WithClock(clock),
		fares.WithLogger(log.With(logging.String("component", "fares"))),
		fares.WithMetrics(plannerMetrics),
	}
	if !cfg.FaresEnabled {
		fareOpts = append(fareOpts, fares.Disabled())
	}
	estimator := fares.NewEstimator(fares.NewClient(cfg.FareURL, fares.WithCredentials(cfg.AppID, cfg.AppKey)), fareOpts...)
	plannerOpts = append(plannerOpts, planner.WithFareEstimator(estimator), planner.WithFarePrefetch())

	p, err := planner.NewPlanner(network, plannerOpts...)
	if err != nil {
		return err
	}
	svc, err := api.NewService(p, serviceOpts...)
	if err != nil {
		return err
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			api.RequestIDUnaryServerInterceptor(log),
			api.TracingUnaryServerInterceptor(),
			apiMetrics.UnaryServerInterceptor(),
		),
	)
	api.RegisterJourneyPlannerServer(grpcServer, api.NewGRPCServer(svc))

	httpServer := &http.Server{
		Handler:           api.NewRESTHandler(svc, apiMetrics, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info(ctx, "starting gRPC server", logging.String("addr", grpcLis.Addr().String()))
		if err := grpcServer.Serve(grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go func() {
		log.Info(ctx, "starting REST server", logging.String("addr", httpLis.Addr().String()))
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	log.Info(context.Background(), "shutting down planner server")
	grpcServer.GracefulStop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	return serveErr
}

func loadNetwork(path string) (*kb.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open topology: %w", err)
	}
	defer f.Close()
	network, err := kb.LoadTopology(f)
	if err != nil {
		return nil, fmt.Errorf("load topology %s: %w", path, err)
	}
	return network, nil
}
