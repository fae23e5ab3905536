package app

import (
	"context"
	"net/http"
	"time"

	authapi "warden/cmd/internal/auth/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(WithRequestID)
	r.Use(WithRequestLogging(a.log, a.metrics))
	r.Use(middleware.Recoverer)
	r.Use(WithSecurityHeaders)
	r.Use(func(next http.Handler) http.Handler { return WithCORS(next, a.cfg, a.log) })
	r.Use(WithTimeout(a.cfg.RequestTimeout))

	r.MethodNotAllowed(authapi.MethodNotAllowed)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/readyz", a.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.gatherer(), promhttp.HandlerOpts{}))

	a.auth.Register(r)
	return r
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.cfg.ReadinessRequireDB && !a.durable {
		http.Error(w, "db not configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.log.InfoContext(r.Context(), "readyz.store.not_ready", "err", err)
		http.Error(w, "store not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}

func (a *App) gatherer() prometheus.Gatherer {
	if a.registry != nil {
		return a.registry
	}
	return prometheus.DefaultGatherer
}
