package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/catalog"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/config"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/dataset"
	apierrors "github.com/OptimLLab/Globalizer-Benchmarks/internal/errors"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/logging"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/metrics"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/server"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger depends on the configuration, so report to stderr.
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	serviceLogger := logger.WithFields(map[string]interface{}{
		"service": "globalizer-benchmarks",
		"env":     cfg.Environment,
	})

	if err := run(cfg, serviceLogger); err != nil {
		serviceLogger.Fatal("Server failed", map[string]interface{}{"error": err})
	}
	serviceLogger.Info("Server exited properly")
}

func loadDataset(cfg *config.Config, logger *logging.Logger) (*dataset.Dataset, error) {
	if cfg.Dataset.Path == "" {
		logger.Info("Using synthetic dataset", map[string]interface{}{"seed": cfg.Dataset.Seed})
		return catalog.SyntheticDataset(cfg.Dataset.Seed)
	}

	opts := []dataset.CSVOption{dataset.WithComma([]rune(cfg.Dataset.Comma)[0])}
	if cfg.Dataset.Header {
		opts = append(opts, dataset.WithHeader())
	}
	d, err := dataset.LoadCSVFile(cfg.Dataset.Path, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Dataset.Standardize {
		d = d.Standardize()
	}
	logger.Info("Loaded dataset", map[string]interface{}{
		"path":     cfg.Dataset.Path,
		"samples":  d.Len(),
		"features": d.NumFeatures(),
		"classes":  d.NumClasses(),
	})
	return d, nil
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := loadDataset(cfg, logger)
	if err != nil {
		return errors.Wrap(err, "load dataset")
	}

	st, err := store.NewStore(cfg.Store.Type, cfg.Store.DSN)
	if err != nil {
		return err
	}
	if err := st.Init(ctx); err != nil {
		return errors.Wrap(err, "init store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close store", map[string]interface{}{"error": err})
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg, logger,
		server.WithStore(st),
		server.WithMetrics(m),
		server.WithDataset(d),
	)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(apierrors.RecoveryMiddleware(logger))
	r.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", map[string]interface{}{
			"address": httpServer.Addr,
			"store":   cfg.Store.Type,
		})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "listen")
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{"error": err})
	}
	// Running studies are cancelled and record their final state before
	// the store closes.
	if err := srv.Close(); err != nil {
		logger.Error("Error closing server resources", map[string]interface{}{"error": err})
	}
	return nil
}
