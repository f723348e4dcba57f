package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/dentalbook/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/dentalbook/internal/http/middleware"
	"github.com/wolfman30/dentalbook/internal/identity"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Dentists       *handlers.DentistsHandler
	Bookings       *handlers.BookingsHandler
	Appointments   *handlers.AppointmentsHandler
	Verifier       *identity.Verifier
	MetricsHandler http.Handler

	CORSAllowedOrigins []string
	// RateLimitRPS <= 0 disables per-IP rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/healthz", handlers.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/v1", func(v1 chi.Router) {
		if cfg.RateLimitRPS > 0 {
			v1.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}

		v1.Get("/services", handlers.ListServices)
		if cfg.Dentists != nil {
			v1.Route("/dentists", func(r chi.Router) {
				r.Get("/", cfg.Dentists.ListDentists)
				r.Get("/{dentistID}/calendar", cfg.Dentists.Calendar)
				r.Get("/{dentistID}/availability", cfg.Dentists.Availability)
			})
		}

		// Signed-in patient endpoints
		v1.Group(func(authed chi.Router) {
			authed.Use(httpmiddleware.RequireUser(cfg.Verifier))
			if cfg.Bookings != nil {
				authed.With(middleware.AllowContentType("application/json")).Post("/bookings", cfg.Bookings.Create)
			}
			if cfg.Appointments != nil {
				authed.Get("/me/appointments/upcoming", cfg.Appointments.Upcoming)
			}
		})
	})

	return r
}
