package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	connectcors "connectrpc.com/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

// maxRequestBytes leaves room for the base64 encoding of the largest document.
func maxRequestBytes(maxDocument int64) int64 {
	return maxDocument*4/3 + 64<<10
}

// NewServer mounts the import procedures, health checks and, when enabled,
// metrics behind CORS and a global rate limit.
func NewServer(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(deps.ImportHandler.Routes())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := deps.Ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if deps.Config.Observability.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))
	}

	limiter := rate.NewLimiter(rate.Limit(deps.Config.Server.RateLimitPerSecond), deps.Config.Server.RateLimitBurst)

	var h http.Handler = mux
	h = limitBody(h, maxRequestBytes(deps.Config.Import.MaxDocumentBytes))
	h = rateLimit(h, limiter, deps.Logger)
	h = withCORS(h, deps.Config.Server.AllowedOrigins)
	return h
}

func withCORS(h http.Handler, origins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: connectcors.AllowedMethods(),
		AllowedHeaders: connectcors.AllowedHeaders(),
		ExposedHeaders: connectcors.ExposedHeaders(),
		MaxAge:         7200,
	}).Handler(h)
}

// rateLimit rejects requests beyond the limiter's budget. Health checks are
// never limited.
func rateLimit(h http.Handler, limiter *rate.Limiter, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz", "/readyz", "/metrics":
			h.ServeHTTP(w, r)
			return
		}
		if !limiter.Allow() {
			logger.Warn("rate limit exceeded", slog.String("path", r.URL.Path), slog.String("remote", r.RemoteAddr))
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"code":    "resource_exhausted",
				"message": "rate limit exceeded",
			})
			return
		}
		h.ServeHTTP(w, r)
	})
}

func limitBody(h http.Handler, n int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		h.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
