package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notice-dispatch/internal/handler/http/respond"
	"notice-dispatch/internal/usecase/notify"
)

// BackendHealthResponse lists every configured backend and its breaker state.
type BackendHealthResponse struct {
	Healthy  bool                   `json:"healthy"`
	Backends []notify.BackendStatus `json:"backends"`
}

// BackendHealther is satisfied by *notify.Registry.
type BackendHealther interface {
	Health() []notify.BackendStatus
}

func metricsMux(backends BackendHealther) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/backends", backendHealthHandler(backends))
	return mux
}

// serveMetrics serves /metrics and /health/backends until ctx is canceled.
// It returns http.ErrServerClosed after a graceful shutdown.
func serveMetrics(ctx context.Context, logger *slog.Logger, port int, backends BackendHealther) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      metricsMux(backends),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server starting", slog.Int("port", port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
			return err
		}
		logger.Info("metrics server stopped")
		return http.ErrServerClosed
	case err := <-errCh:
		return err
	}
}

// backendHealthHandler returns 503 when any backend's breaker is open.
func backendHealthHandler(backends BackendHealther) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := backends.Health()
		healthy := true
		for _, s := range statuses {
			if s.CircuitOpen {
				healthy = false
			}
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(w, code, BackendHealthResponse{Healthy: healthy, Backends: statuses})
	}
}
