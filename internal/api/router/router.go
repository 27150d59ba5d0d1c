package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/medipulse/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/medipulse/internal/http/middleware"
	"github.com/wolfman30/medipulse/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *handlers.AppointmentsHandler
	Store               handlers.DegradedReporter
	ChatHandler         http.Handler
	EventsHandler       http.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
	// JWTSecret verifies bearer tokens; empty treats every caller as a guest.
	JWTSecret string

	// ChatRateLimit is requests per second per IP on /api/chat; zero disables it.
	ChatRateLimit float64
	ChatRateBurst int
	// Done stops background middleware goroutines.
	Done <-chan struct{}
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(httpmiddleware.Identity(cfg.JWTSecret, cfg.Logger))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.Health(cfg.Store))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		// The websocket feed must not pass through the compressor.
		if cfg.EventsHandler != nil {
			api.Handle("/appointments/events", cfg.EventsHandler)
		}
		api.Group(func(g chi.Router) {
			g.Use(middleware.Compress(5))
			if cfg.AppointmentsHandler != nil {
				g.Handle("/appointments", cfg.AppointmentsHandler)
			}
			if cfg.ChatHandler != nil {
				chat := cfg.ChatHandler
				if cfg.ChatRateLimit > 0 {
					chat = httpmiddleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst, cfg.Done)(chat)
				}
				g.Handle("/chat", chat)
			}
		})
	})

	return r
}
