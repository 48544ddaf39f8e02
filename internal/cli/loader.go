package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iamez/slomix-sub001/internal/config"
	"github.com/iamez/slomix-sub001/internal/engine"
	"github.com/iamez/slomix-sub001/internal/pgstore"
	"github.com/iamez/slomix-sub001/internal/store"
)

// openLoader opens the configured backend. The returned close func is
// always non-nil when err is nil.
func openLoader(ctx context.Context, cfg *config.Config) (engine.Loader, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		if cfg.Database != ":memory:" {
			if _, err := os.Stat(cfg.Database); err != nil {
				return nil, nil, fmt.Errorf("database not found: %s: %w", cfg.Database, err)
			}
		}
		st, err := store.Open(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}, nil
	}
}

// engineSession bundles an engine with the resources it holds open.
type engineSession struct {
	Engine   *engine.Engine
	Registry *prometheus.Registry
	close    []func()
}

// Close releases resources in reverse order of acquisition.
func (s *engineSession) Close() {
	for i := len(s.close) - 1; i >= 0; i-- {
		s.close[i]()
	}
}

// openEngine wires loader, artifact sink, metrics and logger from the
// resolved config. opts.EngineOptions are applied last.
func openEngine(ctx context.Context, opts *RootOptions) (*engineSession, error) {
	cfg := opts.Config
	loader, closeLoader, err := openLoader(ctx, cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	s := &engineSession{
		Registry: prometheus.NewRegistry(),
		close:    []func(){closeLoader},
	}

	engineOpts := []engine.Option{
		engine.WithLogger(opts.logger()),
		engine.WithMetrics(engine.NewMetrics(s.Registry)),
	}
	if cfg.WriteArtifacts && cfg.ArtifactDir != "" {
		engineOpts = append(engineOpts, engine.WithArtifactSink(engine.NewCSVArtifactWriter(cfg.ArtifactDir)))
	}
	engineOpts = append(engineOpts, opts.EngineOptions...)
	s.Engine = engine.New(loader, engineOpts...)

	if cfg.MetricsAddr != "" {
		stop, err := startMetricsServer(cfg.MetricsAddr, s.Registry, opts.logger())
		if err != nil {
			s.Close()
			return nil, WrapExitError(ExitCommandError, "failed to start metrics server", err)
		}
		s.close = append(s.close, stop)
	}

	return s, nil
}

// startMetricsServer serves reg on addr at /metrics until the returned
// stop func is called.
func startMetricsServer(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("metrics server listening", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("metrics server shutdown failed", "error", err)
		}
	}, nil
}

// logger returns the resolved logger, or slog.Default before resolution.
func (opts *RootOptions) logger() *slog.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return slog.Default()
}

// commandContext returns the command's context or Background.
func commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// errorCode maps an error to a CLI response code.
func errorCode(err error) string {
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		return string(engErr.Code)
	}
	return ErrCodeGeneric
}
