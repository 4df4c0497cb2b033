package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-pricing/internal/checkout"
	"github.com/noah-isme/checkout-pricing/internal/common"
	"github.com/noah-isme/checkout-pricing/internal/config"
	"github.com/noah-isme/checkout-pricing/internal/health"
	"github.com/noah-isme/checkout-pricing/internal/obs"
	"github.com/noah-isme/checkout-pricing/internal/pricing"
	"github.com/noah-isme/checkout-pricing/internal/ratelimit"
	"github.com/noah-isme/checkout-pricing/internal/security"
)

type dependencies struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Catalog  *pricing.Catalog
	Redis    *redis.Client
	Registry prometheus.Registerer
	Gatherer prometheus.Gatherer
}

// newRouter builds the HTTP handler and the session registry behind it; the
// caller owns the registry sweeper.
func newRouter(deps dependencies) (http.Handler, *checkout.Registry) {
	cfg := deps.Config
	logger := deps.Logger

	var (
		httpMetrics     *obs.HTTPMetrics
		checkoutMetrics *obs.CheckoutMetrics
	)
	if cfg.Obs.MetricsEnabled {
		buckets := obs.ParseBucketsCSV(cfg.Obs.HTTPBuckets)
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, buckets, deps.Registry)
		checkoutMetrics = obs.NewCheckoutMetrics(cfg.Obs.MetricsNamespace, deps.Registry)
	}

	registry := checkout.NewRegistry(deps.Catalog, newObserver(checkoutMetrics),
		checkout.WithSessionTTL(cfg.Checkout.SessionTTL),
		checkout.WithMaxSessions(cfg.Checkout.MaxSessions),
	)
	checkoutHandler := &checkout.Handler{Registry: registry, Logger: logger}

	probes := map[string]health.Probe{
		"catalog": func(context.Context) error {
			if deps.Catalog.Len() == 0 {
				return errors.New("catalog empty")
			}
			return nil
		},
	}
	if deps.Redis != nil {
		probes["redis"] = func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		}
	}
	healthHandler := health.Handler{Probes: probes}

	limit := ratelimit.Handler{
		Limiter: newLimiter(cfg, deps.Redis),
		Key:     common.ClientIP,
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Obs.TracingEnabled {
		r.Use(obs.TracingMiddleware("checkout-api"))
		r.Use(obs.SpanRouteMiddleware)
	}
	r.Use(obs.RoutePatternMiddleware)
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:                cfg.Security.HeadersEnabled,
		EnableHSTS:            cfg.Security.HSTSEnabled,
		HSTSMaxAge:            cfg.Security.HSTSMaxAge,
		HSTSIncludeSubdomains: cfg.Security.HSTSIncludeSubdomains,
	}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if cfg.Obs.MetricsEnabled {
		gatherer := deps.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limit.Middleware)
		v.Use(security.BodyLimit{Max: cfg.Security.BodyLimitBytes}.Middleware)
		checkoutHandler.Routes(v)
	})
	return r, registry
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
