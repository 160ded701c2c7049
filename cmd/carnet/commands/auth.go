package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/carnet-digital/carnet"
	"github.com/carnet-digital/carnet/client"
	"github.com/carnet-digital/carnet/handler"
	"github.com/carnet-digital/carnet/internal/config"
	"github.com/carnet-digital/carnet/internal/logging"
	"github.com/carnet-digital/carnet/metrics/export/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewAuthCommand creates the command that runs the auth service.
func NewAuthCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Run the auth service (login, refresh, validate, logout)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, closeLog, err := logging.New(cfg.Logger)
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
			defer closeLog()

			return runAuth(cmd.Context(), cfg, logger)
		},
	}
}

func runAuth(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	engine, rdb, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()
	defer engine.Close()

	if _, err := engine.Ping(ctx); err != nil {
		logger.WithError(err).Warn("redis not reachable at startup")
	}

	opts := []handler.Option{handler.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		opts = append(opts, handler.WithMetrics(prometheus.NewExporter(engine).Handler()))
	}
	if cfg.Metrics.OTel {
		shutdown, err := startOTel(ctx, engine, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	srv := newServer(cfg.ListenAddr(cfg.Server.Port), handler.New(engine, opts...).Router())
	return serve(ctx, logger.WithField("service", "auth"), srv, cfg.Server.ShutdownTimeout)
}

// buildEngine wires the session store, the user and catalog clients and the
// bitácora sink into an engine.
func buildEngine(cfg *config.Config, logger *logrus.Logger) (*carnet.Engine, *redis.Client, error) {
	ec, err := cfg.EngineConfig()
	if err != nil {
		return nil, nil, err
	}
	ropts, err := cfg.RedisOptions()
	if err != nil {
		return nil, nil, err
	}

	clientOpts := []client.Option{
		client.WithTimeout(cfg.Services.Timeout),
		client.WithBreaker(cfg.Breaker),
		client.WithLogger(logger),
	}

	var sink carnet.AuditSink
	switch cfg.Audit.Sink {
	case "json":
		sink = carnet.NewJSONWriterSink(os.Stdout)
	case "http":
		sink = client.NewBitacoraSink(cfg.Services.UserURL, clientOpts...)
	}

	rdb := redis.NewClient(ropts)
	b := carnet.New().
		WithConfig(ec).
		WithRedis(rdb).
		WithUserProvider(client.NewUserClient(cfg.Services.UserURL, clientOpts...)).
		WithCatalogProvider(client.NewCatalogClient(cfg.Services.CatalogURL, clientOpts...)).
		WithLogger(logger).
		WithMetricsEnabled(cfg.Metrics.Enabled)
	if sink != nil {
		b = b.WithAuditSink(sink)
	}

	engine, err := b.Build()
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return engine, rdb, nil
}
