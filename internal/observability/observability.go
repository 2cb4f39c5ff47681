// Package observability wires the logger, the Prometheus registry, and the
// standalone metrics listener shared by every module.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Observability bundles the logger and metrics registry handed to modules.
type Observability struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// NewLogger builds the process-wide JSON logger. Level strings follow slog
// conventions; anything unrecognized falls back to info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

// New creates the observability bundle with a fresh registry pre-seeded with
// the standard process and Go runtime collectors.
func New(logLevel string) *Observability {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Observability{
		Logger:   NewLogger(logLevel),
		Registry: registry,
	}
}

// ServeMetrics exposes the registry on its own listener and blocks until the
// context is cancelled. An empty address disables the endpoint.
func (o *Observability) ServeMetrics(ctx context.Context, addr string) error {
	if addr == "" {
		o.Logger.Info("Metrics endpoint disabled (no address configured)")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(o.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	o.Logger.Info("Metrics endpoint listening", slog.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
