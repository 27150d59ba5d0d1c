package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/medipulse/internal/api/router"
	"github.com/wolfman30/medipulse/internal/chat"
	appconfig "github.com/wolfman30/medipulse/internal/config"
	"github.com/wolfman30/medipulse/internal/http/handlers"
	"github.com/wolfman30/medipulse/internal/observability/metrics"
	"github.com/wolfman30/medipulse/internal/realtime"
	"github.com/wolfman30/medipulse/internal/store"
	"github.com/wolfman30/medipulse/pkg/logging"
)

// Server is the assembled HTTP surface and the resources behind it.
type Server struct {
	Handler http.Handler
	Store   *store.Store
	Hub     *realtime.Hub

	done    chan struct{}
	closers []func() error
}

// Close releases everything in reverse order of acquisition.
func (s *Server) Close() error {
	close(s.done)
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ServerOptions customizes BuildServer.
type ServerOptions struct {
	// Registerer receives the service metrics. Nil uses a fresh registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	// Realtime enables the websocket change feed.
	Realtime bool
}

// BuildServer opens the store on the configured backend and wires every
// handler into the router.
func BuildServer(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger, opts ServerOptions) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	reg, gatherer := opts.Registerer, opts.Gatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	}

	srv := &Server{done: make(chan struct{})}

	backend, err := OpenBackend(ctx, cfg, loadAWS, logger)
	if err != nil {
		return nil, err
	}

	storeOpts := store.Options{
		Metrics:     metrics.NewStoreMetrics(reg),
		SaveTimeout: cfg.StoreSaveTimeout,
	}
	var events http.Handler
	if opts.Realtime {
		srv.Hub = realtime.NewHub(logger)
		storeOpts.OnChange = func(c store.Collection) { srv.Hub.Notify(string(c)) }
		events = srv.Hub
		srv.closers = append(srv.closers, func() error { srv.Hub.Close(); return nil })
	}
	srv.Store = store.Open(ctx, backend, logger, storeOpts)
	srv.closers = append(srv.closers, srv.Store.Close)

	gen, closeGen, err := BuildChatGenerator(ctx, cfg, loadAWS, logger)
	if err != nil {
		_ = srv.Close()
		return nil, err
	}
	srv.closers = append(srv.closers, closeGen)

	var metricsHandler http.Handler
	if gatherer != nil {
		metricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}

	srv.Handler = router.New(&router.Config{
		Logger:              logger,
		AppointmentsHandler: handlers.NewAppointmentsHandler(srv.Store, logger),
		Store:               srv.Store,
		ChatHandler:         chat.NewHandler(gen, metrics.NewChatMetrics(reg), logger),
		EventsHandler:       events,
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		JWTSecret:           cfg.JWTSecret,
		ChatRateLimit:       cfg.ChatRateLimit,
		ChatRateBurst:       cfg.ChatRateBurst,
		Done:                srv.done,
	})
	logger.Info("server assembled", "backend", backend.Name(), "degraded", srv.Store.Degraded(), "realtime", opts.Realtime)
	return srv, nil
}
