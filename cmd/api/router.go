package main

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/agent"
	"github.com/noah-isme/backend-dairy/internal/auth"
	"github.com/noah-isme/backend-dairy/internal/config"
	"github.com/noah-isme/backend-dairy/internal/dashboard"
	"github.com/noah-isme/backend-dairy/internal/health"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/ratelimit"
	"github.com/noah-isme/backend-dairy/internal/security"
	"github.com/noah-isme/backend-dairy/internal/shipment"
)

// handlers groups everything the router mounts.
type handlers struct {
	Health    health.Handler
	Auth      *auth.Handler
	AuthMW    auth.Middleware
	Shipment  *shipment.Handler
	Dashboard *dashboard.Handler
	Agent     *agent.Handler

	LoginLimiter ratelimit.Limiter
	AgentLimiter ratelimit.Limiter
	HTTPMetrics  *obs.HTTPMetrics
}

func newRouter(cfg *config.Config, logger zerolog.Logger, h handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.Obs.EnableTracing {
		r.Use(obs.TracingMiddleware)
	}
	if h.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: h.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health/live", h.Health.Live)
	r.Get("/health/ready", h.Health.Ready)
	if cfg.Obs.EnablePrometheus {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.Obs.EnablePprof {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.Obs.PprofUser, cfg.Obs.PprofPassword))
	}

	onLimiterError := func(err error) {
		logger.Warn().Err(err).Msg("rate limiter unavailable")
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

		v.Route("/auth", func(a chi.Router) {
			a.With(ratelimit.Handler{
				Limiter: h.LoginLimiter,
				Scope:   "login",
				Key:     ratelimit.ByRemoteHost,
				OnError: onLimiterError,
			}.Middleware).Post("/login", h.Auth.Login)
			a.With(h.AuthMW.RequireAuth).Get("/me", h.Auth.Me)
		})

		v.Post("/analyze", h.Shipment.Analyze)

		v.Group(func(admin chi.Router) {
			admin.Use(h.AuthMW.RequireAuth)
			admin.Post("/shipments", h.Shipment.Submit)
			admin.Get("/vendors", h.Dashboard.Vendors)

			admin.Route("/dashboard", func(d chi.Router) {
				d.Get("/summary", h.Dashboard.Summary)
				d.Get("/vendors/{vendorID}", h.Dashboard.Vendor)
				d.Get("/ranking", h.Dashboard.Ranking)
				d.Get("/trend", h.Dashboard.Trend)
			})

			admin.With(ratelimit.Handler{
				Limiter: h.AgentLimiter,
				Scope:   "agent",
				Key:     ratelimit.ByAdmin,
				OnError: onLimiterError,
			}.Middleware).Post("/agent/ask", h.Agent.Ask)
		})
	})
	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handle("/"+name, pprof.Handler(name))
	}
	return http.StripPrefix("/debug/pprof", mux)
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
