// Package bootstrap wires the gateway's components from configuration.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/dentalbook/internal/api/router"
	"github.com/wolfman30/dentalbook/internal/appointments"
	"github.com/wolfman30/dentalbook/internal/booking"
	"github.com/wolfman30/dentalbook/internal/capacity"
	"github.com/wolfman30/dentalbook/internal/clinicapi"
	appconfig "github.com/wolfman30/dentalbook/internal/config"
	"github.com/wolfman30/dentalbook/internal/http/handlers"
	"github.com/wolfman30/dentalbook/internal/identity"
	"github.com/wolfman30/dentalbook/internal/observability/metrics"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; dentist cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildMetrics registers the booking metrics and the Go runtime collectors on
// a fresh registry and returns the /metrics handler for it.
func BuildMetrics() (*metrics.BookingMetrics, http.Handler) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewBookingMetrics(reg)
	return m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Runtime is the fully wired gateway.
type Runtime struct {
	Router  http.Handler
	Metrics *metrics.BookingMetrics
	Client  *clinicapi.Client
	Cache   *clinicapi.DentistCache
	Redis   *redis.Client
}

// Close releases the Redis connection, if any.
func (rt *Runtime) Close() error {
	if rt == nil || rt.Redis == nil {
		return nil
	}
	return rt.Redis.Close()
}

// Build wires the clinic client, dentist cache, capacity gate, handlers and
// router. Redis is optional: without it dentist lookups go to the backend.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: clinic timezone %q: %w", cfg.ClinicTimezone, err)
	}
	if strings.TrimSpace(cfg.IdentityJWTSecret) == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("bootstrap: IDENTITY_JWT_SECRET is required in production")
		}
		logger.Warn("IDENTITY_JWT_SECRET not set; signed-in endpoints will reject every request")
	}

	bookingMetrics, metricsHandler := BuildMetrics()

	client := clinicapi.NewClient(clinicapi.ClientConfig{
		BaseURL:  cfg.ClinicAPIBaseURL,
		Timeout:  cfg.ClinicAPITimeout,
		Location: loc,
		Observer: bookingMetrics,
	}, logger.Component("clinicapi"))

	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	cache := clinicapi.NewDentistCache(redisClient, client, client.BaseURL(), cfg.DentistCacheTTL, logger.Component("dentist_cache"))
	gate := capacity.NewGate(client, cfg.DefaultDailyLimit, bookingMetrics, logger.Component("capacity"))

	dentists := handlers.NewDentistsHandler(handlers.DentistsConfig{
		Dentists:     cache,
		Appointments: client,
		Capacity:     gate,
		Observer:     bookingMetrics,
		Location:     loc,
		Logger:       logger,
	})
	bookings := handlers.NewBookingsHandler(booking.Deps{
		Patients:     client,
		Appointments: client,
		Dentists:     cache,
		Capacity:     gate,
		Observer:     bookingMetrics,
		Location:     loc,
		Logger:       logger.Component("booking"),
	}, logger)
	upcoming := handlers.NewAppointmentsHandler(appointments.NewService(client, loc, logger), loc, nil, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		Dentists:           dentists,
		Bookings:           bookings,
		Appointments:       upcoming,
		Verifier:           identity.NewVerifier(cfg.IdentityJWTSecret),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	logger.Info("gateway wired",
		"clinic_api", client.BaseURL(),
		"timezone", loc.String(),
		"dentist_cache", redisClient != nil,
		"default_daily_limit", cfg.DefaultDailyLimit,
	)
	return &Runtime{Router: r, Metrics: bookingMetrics, Client: client, Cache: cache, Redis: redisClient}, nil
}
