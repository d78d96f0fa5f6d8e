package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/MrEthical07/contentauth"
	"github.com/MrEthical07/contentauth/internal/audit"
	"github.com/MrEthical07/contentauth/internal/config"
	"github.com/MrEthical07/contentauth/internal/httpapi"
	"github.com/MrEthical07/contentauth/internal/logging"
	"github.com/MrEthical07/contentauth/internal/telemetry"
	"github.com/MrEthical07/contentauth/internal/userstore/memory"
	"github.com/MrEthical07/contentauth/internal/userstore/postgres"
	otelexport "github.com/MrEthical07/contentauth/metrics/export/otel"
	promexport "github.com/MrEthical07/contentauth/metrics/export/prometheus"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve /api/user/{login,logout,update_pwd,me} plus health, readiness
and Prometheus metrics. Without DATABASE_URL an empty in-memory user store is
used, which is only useful for development.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, envFile)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	shutdownTelemetry, err := telemetry.Init(ctx, "contentauthd", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	engineCfg, err := cfg.Engine()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	rdb, err := openRedis(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	users, readyChecks, closeUsers, err := openUserStore(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer closeUsers()

	builder := contentauth.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserStore(users).
		WithLogger(log)

	if cfg.NATSURL != "" {
		conn, err := audit.Connect(cfg.NATSURL)
		if err != nil {
			return oops.Code("NATS_CONNECT_FAILED").With("url", cfg.NATSURL).Wrap(err)
		}
		defer conn.Close()
		builder = builder.WithAuditSink(contentauth.MultiSink{
			contentauth.NewNATSSink(conn.JetStream(), cfg.AuditSubject, 2*time.Second, log),
			contentauth.NewLogSink(log),
		})
	}

	engine, err := builder.Build()
	if err != nil {
		return oops.Code("ENGINE_BUILD_FAILED").Wrap(err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := engine.Shutdown(flushCtx); err != nil {
			log.Warn().Err(err).Msg("audit flush incomplete")
		}
	}()

	metricsHandler, err := promexport.Handler(engine)
	if err != nil {
		return oops.Code("METRICS_INIT_FAILED").Wrap(err)
	}
	// The global meter provider is only a real SDK once telemetry.Init saw an
	// endpoint.
	if cfg.OTLPEndpoint != "" {
		otelMetrics, err := otelexport.NewExporter(otel.Meter("contentauthd"), engine)
		if err != nil {
			return oops.Code("METRICS_INIT_FAILED").Wrap(err)
		}
		defer func() { _ = otelMetrics.Close() }()
	}

	api, err := httpapi.New(httpapi.Options{
		Service:      engine,
		Logger:       log,
		CookieSecure: cfg.CookieSecure,
		Metrics:      metricsHandler,
		ReadyChecks:  readyChecks,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           telemetry.Middleware("contentauthd")(api.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("version", version).Msg("starting contentauthd")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return oops.Code("HTTP_SERVER_FAILED").Wrap(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
	return nil
}

func openRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("setting", "REDIS_URL").Wrap(err)
	}
	return redis.NewClient(opts), nil
}

func openUserStore(ctx context.Context, databaseURL string, log zerolog.Logger) (contentauth.UserStore, []func(context.Context) error, func(), error) {
	if databaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set; using an empty in-memory user store")
		return memory.New(), nil, func() {}, nil
	}

	pool, err := postgres.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	store := postgres.New(pool)
	return store, []func(context.Context) error{store.Ping}, pool.Close, nil
}
