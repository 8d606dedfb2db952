// Package main is the entry point for the anmeldesystem server.
// It wires all dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/access"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/config"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/directory"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/mail"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/observability"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/service"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/store"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/token"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/transport"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "anmeldesystem", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Storage.
	st, storeCloser, err := buildStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("store initialization failed", zap.Error(err))
		return 1
	}

	// User directory.
	dir := buildDirectory(cfg.Directory, logger)

	// Access control core.
	tokens := token.NewCodec(cfg.Security.TokenSalt())
	resolver := access.NewResolver(tokens)

	// Outbound mail. Delivery is handed to the frontend mail relay in
	// production; the log mailer records what would have been sent.
	var mailer mail.Mailer = mail.NewLogMailer(logger)
	if !cfg.Mail.Enabled {
		logger.Info("outbound mail disabled, edit links are logged only")
	}

	appointments := service.NewAppointmentService(st, dir, resolver)
	appointments.SetMetrics(metrics)
	enrollments := service.NewEnrollmentService(st, resolver, tokens, mailer, logger, cfg.Mail.FrontendBaseURL)
	enrollments.SetMetrics(metrics)

	jwks := transport.NewJWKSClient(cfg.Identity.JWKSURL, cfg.Identity.JWKSCacheTTL)

	readinessChecks := observability.ReadinessChecks{
		Store: st,
	}
	if hc, ok := dir.(observability.HealthChecker); ok {
		readinessChecks.Directory = hc
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:         cfg,
		Appointments:   appointments,
		Enrollments:    enrollments,
		Authenticate:   transport.OptionalJWTAuthenticator(cfg.Identity, jwks),
		Metrics:        metrics.MetricsMiddleware,
		MetricsHandler: observability.Handler(),
		HealthHandler:  observability.HandleHealth(),
		ReadyHandler:   observability.HandleReady(readinessChecks),
	})

	handler := observability.TracingMiddleware(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("store", cfg.Store.Driver),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections and drain in-flight requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if storeCloser != nil {
		storeCloser()
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// buildStore creates the appointment store based on config.
func buildStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.Driver {
	case "memory":
		logger.Info("using in-memory store")
		return store.NewMemoryStore(), nil, nil
	case "postgres", "":
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" {
			return nil, nil, fmt.Errorf("store: %s environment variable not set", cfg.DSNEnv)
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("store: parse DSN: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("store: connect: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("store: ping: %w", err)
		}

		return store.NewPgStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %q", cfg.Driver)
	}
}

// buildDirectory creates the user directory client. Without a configured
// base URL the static directory is used, which only knows accounts added at
// runtime; administrator management then rejects unknown usernames.
func buildDirectory(cfg config.DirectoryConfig, logger *zap.Logger) directory.Directory {
	if cfg.BaseURL == "" {
		logger.Warn("directory base URL not configured, using static directory")
		return directory.NewStaticDirectory()
	}
	return directory.NewHTTPDirectory(cfg.BaseURL, cfg.APIToken(), cfg.Timeout)
}
