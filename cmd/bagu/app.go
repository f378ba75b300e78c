package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bagu-prep/questionbank/internal/cache"
	"github.com/bagu-prep/questionbank/internal/events"
	"github.com/bagu-prep/questionbank/internal/importer"
	"github.com/bagu-prep/questionbank/internal/ingestion/collector"
	"github.com/bagu-prep/questionbank/internal/ingestion/scanner"
	"github.com/bagu-prep/questionbank/internal/store"
	"github.com/bagu-prep/questionbank/pkg/config"
	"github.com/bagu-prep/questionbank/pkg/kafka"
	"github.com/bagu-prep/questionbank/pkg/logger"
	"github.com/bagu-prep/questionbank/pkg/metrics"
	"github.com/bagu-prep/questionbank/pkg/postgres"
	pkgredis "github.com/bagu-prep/questionbank/pkg/redis"
	"github.com/bagu-prep/questionbank/pkg/sqlite"
)

// app carries what every subcommand shares: configuration and the metrics
// of the current run.
type app struct {
	configPath string
	cfg        *config.Config
	metrics    *metrics.Metrics
	closers    []io.Closer
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "bagu",
		Short:         "Build and maintain the interview question bank",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			a.cfg = cfg
			a.metrics = metrics.New()
			logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file")

	cmd.AddCommand(
		newImportCommand(a),
		newRebuildCommand(a),
		newScanCommand(a),
		newCategoriesCommand(a),
		newDoctorCommand(a),
		newWatchCommand(a),
	)
	for _, sub := range cmd.Commands() {
		run := sub.RunE
		sub.RunE = func(cmd *cobra.Command, args []string) error {
			defer a.close()
			return run(cmd, args)
		}
	}
	return cmd
}

func (a *app) track(c io.Closer) {
	a.closers = append(a.closers, c)
}

// close releases clients in reverse order of creation.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			slog.Warn("closing client", "error", err)
		}
	}
	a.closers = nil
}

// openStore connects to the configured backend and makes sure the schema
// exists.
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	s, err := a.connectStore()
	if err != nil {
		return nil, err
	}
	if err := s.InitSchema(ctx); err != nil {
		return nil, err
	}
	slog.Debug("store opened", "driver", s.Dialect())
	return s, nil
}

func (a *app) connectStore() (*store.Store, error) {
	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		client, err := postgres.New(a.cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.track(client)
		return store.New(client.DB, client, store.Postgres), nil
	default:
		client, err := sqlite.Open(a.cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.track(client)
		slog.Debug("using sqlite store", "path", client.Path())
		return store.New(client.DB, client, store.SQLite), nil
	}
}

// openCache returns nil when redis is disabled or unreachable; the cache is
// never required for correctness.
func (a *app) openCache(ctx context.Context) *cache.QuestionCache {
	if !a.cfg.Redis.Enabled {
		return nil
	}
	client, err := pkgredis.NewClient(ctx, a.cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, continuing without cache", "addr", a.cfg.Redis.Addr, "error", err)
		return nil
	}
	a.track(client)
	return cache.New(client, a.cfg.Redis.CacheTTL)
}

func (a *app) invalidators(ctx context.Context) []importer.Invalidator {
	var out []importer.Invalidator
	if c := a.openCache(ctx); c != nil {
		out = append(out, c)
	}
	if a.cfg.Kafka.Enabled {
		producer := kafka.NewProducer(a.cfg.Kafka, a.cfg.Kafka.Topics.CacheInvalidate)
		a.track(producer)
		out = append(out, events.NewRebuildNotifier(producer))
	}
	return out
}

func (a *app) newImporter(s *store.Store, opts ...importer.Option) *importer.Importer {
	c := collector.New(scanner.New(), a.metrics)
	return importer.New(s, c, a.metrics, opts...)
}

// pushMetrics sends the run's metrics to the Pushgateway, if one is
// configured. A failed push is logged only.
func (a *app) pushMetrics(ctx context.Context) {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return
	}
	if err := a.metrics.Push(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		slog.Warn("metrics push failed", "error", err)
	}
}
