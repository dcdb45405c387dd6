package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// newMetricsRouter serves Prometheus metrics and a health report with the
// breaker state of every source.
func newMetricsRouter(env *pipelineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Method(http.MethodGet, "/metrics", env.Metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		breakers := map[string]string{}
		for _, name := range env.Pipeline.Adapters() {
			breakers[name] = env.Breakers.Get(name).State().String()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"sources":  env.Pipeline.Adapters(),
			"breakers": breakers,
		})
	})
	return r
}

// startMetricsServer listens on addr and serves h in the background.
func startMetricsServer(addr string, h http.Handler) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, eris.Wrapf(err, "listen on %s", addr)
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("metrics server failed", zap.Error(err))
		}
	}()
	zap.L().Info("metrics server listening", zap.String("addr", ln.Addr().String()))
	return srv, nil
}

func shutdownMetricsServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Warn("metrics server shutdown", zap.Error(err))
	}
}
