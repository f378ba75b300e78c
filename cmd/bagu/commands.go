package main

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bagu-prep/questionbank/internal/events"
	"github.com/bagu-prep/questionbank/internal/importer"
	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/internal/ingestion/normalizer"
	"github.com/bagu-prep/questionbank/internal/store"
	apperrors "github.com/bagu-prep/questionbank/pkg/errors"
	"github.com/bagu-prep/questionbank/pkg/health"
	"github.com/bagu-prep/questionbank/pkg/kafka"
	"github.com/bagu-prep/questionbank/pkg/logger"
	pkgredis "github.com/bagu-prep/questionbank/pkg/redis"
)

func newImportCommand(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import [dir]",
		Short: "Merge one markdown directory into the question bank",
		Long: `Parse every markdown file under dir, deduplicate the result and upsert it.

Files without a source link are accepted. A file that fails to parse or write
is reported and the rest continue. dir defaults to sources.defaultDir.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Sources.DefaultDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return apperrors.New(apperrors.ErrPrecondition, apperrors.ExitPrecondition,
					"no source directory given and sources.defaultDir is empty")
			}

			ctx := logger.WithRunID(cmd.Context(), uuid.NewString())
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			stats, err := a.newImporter(s).ImportFromDirectory(ctx, dir, dryRun)
			a.pushMetrics(ctx)
			if err != nil {
				return err
			}
			printImportStats(cmd.OutOrStdout(), stats, dryRun)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be imported without writing")
	return cmd
}

func newRebuildCommand(a *app) *cobra.Command {
	var opts importer.RebuildOptions
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Replace the question bank with the Feishu and Yuque corpora",
		Long: `Collect both corpora, require a business source link on every file and
keep one question per category and title, preferring Yuque.

Any parse or validation error aborts before the store is touched. Otherwise
all categories are deleted, the questions imported and every user's answer
statistics reset in a single transaction.`,
		Example: `  bagu rebuild --feishu-dir exports/feishu --yuque-dir exports/yuque --dry-run
  bagu rebuild --feishu-dir exports/feishu --yuque-dir exports/yuque`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.FeishuDir == "" {
				opts.FeishuDir = a.cfg.Sources.FeishuDir
			}
			if opts.YuqueDir == "" {
				opts.YuqueDir = a.cfg.Sources.YuqueDir
			}
			if opts.FeishuDir == "" || opts.YuqueDir == "" {
				return apperrors.New(apperrors.ErrPrecondition, apperrors.ExitPrecondition,
					"both --feishu-dir and --yuque-dir are required")
			}

			ctx := logger.WithRunID(cmd.Context(), uuid.NewString())
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			var imOpts []importer.Option
			if !opts.DryRun {
				imOpts = append(imOpts, importer.WithInvalidators(a.invalidators(ctx)...))
			}
			report, err := a.newImporter(s, imOpts...).Rebuild(ctx, opts)
			a.pushMetrics(ctx)
			printRebuildReport(cmd.OutOrStdout(), report, err)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.FeishuDir, "feishu-dir", "", "Feishu export root (default sources.feishuDir)")
	cmd.Flags().StringVar(&opts.YuqueDir, "yuque-dir", "", "Yuque export root (default sources.yuqueDir)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate and report without writing")
	return cmd
}

func newScanCommand(a *app) *cobra.Command {
	var feishuDir, yuqueDir string
	var lenient bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Collect and deduplicate the corpora without a store",
		Long: `Run the rebuild collection over whichever corpus roots are given and print
the summary. Exits with status 3 when any file fails to parse or validate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sources []ingestion.Source
			if feishuDir != "" {
				sources = append(sources, ingestion.Source{Name: normalizer.SourceFeishu, Dir: feishuDir})
			}
			if yuqueDir != "" {
				sources = append(sources, ingestion.Source{Name: normalizer.SourceYuque, Dir: yuqueDir})
			}
			if len(sources) == 0 {
				return apperrors.New(apperrors.ErrPrecondition, apperrors.ExitPrecondition,
					"at least one of --feishu-dir or --yuque-dir is required")
			}
			policy := importer.StrictPolicy
			if lenient {
				policy = ingestion.Policy{}
			}

			ctx := logger.WithRunID(cmd.Context(), uuid.NewString())
			_, summary, err := a.newImporter(nil).BuildMergedCandidates(ctx, sources, policy)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			if len(summary.Errors) > 0 {
				return apperrors.Newf(apperrors.ErrValidation, apperrors.ExitValidation,
					"%d files failed to collect", len(summary.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&feishuDir, "feishu-dir", "", "Feishu export root")
	cmd.Flags().StringVar(&yuqueDir, "yuque-dir", "", "Yuque export root")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "accept files without a business source link")
	return cmd
}

func newCategoriesCommand(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "categories [category]",
		Short: "List categories, or the questions of one category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			q := s.Queries()
			qc := a.openCache(ctx)
			w := cmd.OutOrStdout()

			if len(args) == 0 {
				var categories []store.Category
				if qc != nil {
					var hit bool
					categories, hit, err = qc.Categories(ctx, q.ListCategories)
					logger.FromContext(ctx).Debug("category listing", "cache_hit", hit)
				} else {
					categories, err = q.ListCategories(ctx)
				}
				if err != nil {
					return err
				}
				if format == "json" {
					return json.NewEncoder(w).Encode(categories)
				}
				return printCategories(w, categories)
			}

			name := args[0]
			var questions []store.Question
			if qc != nil {
				questions, _, err = qc.Questions(ctx, name, func(ctx context.Context) ([]store.Question, error) {
					return q.ListQuestions(ctx, name)
				})
			} else {
				questions, err = q.ListQuestions(ctx, name)
			}
			if err != nil {
				return err
			}
			if format == "json" {
				return json.NewEncoder(w).Encode(questions)
			}
			return printQuestions(w, questions)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format (table, json)")
	return cmd
}

func newDoctorCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the store, redis and kafka are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			checker := health.NewChecker()
			checker.Register("store", func(ctx context.Context) health.ComponentHealth {
				s, err := a.connectStore()
				if err != nil {
					return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
				}
				return health.PingCheck(s.Ping, false)(ctx)
			})
			if a.cfg.Redis.Enabled {
				checker.Register("redis", health.PingCheck(func(ctx context.Context) error {
					client, err := pkgredis.NewClient(ctx, a.cfg.Redis)
					if err != nil {
						return err
					}
					return client.Close()
				}, true))
			}
			if a.cfg.Kafka.Enabled {
				checker.Register("kafka", health.PingCheck(func(ctx context.Context) error {
					return kafka.Ping(ctx, a.cfg.Kafka)
				}, true))
			}

			report := checker.Run(ctx)
			printHealth(cmd.OutOrStdout(), report)
			if report.Status == health.StatusDown {
				return apperrors.New(apperrors.ErrPrecondition, apperrors.ExitPrecondition, "required dependency is down")
			}
			return nil
		},
	}
}

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Flush the local question cache whenever a rebuild is announced",
		Long: `Consume rebuild events from the cache-invalidate topic and flush the redis
question cache for each one. Runs until interrupted. When metrics.port is set,
/metrics is served on that port.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Kafka.Enabled {
				return apperrors.New(apperrors.ErrPrecondition, apperrors.ExitPrecondition, "kafka is not enabled")
			}
			ctx := cmd.Context()
			qc := a.openCache(ctx)
			if qc == nil {
				return apperrors.New(apperrors.ErrPrecondition, apperrors.ExitPrecondition, "redis cache is not available")
			}
			if a.cfg.Metrics.Port > 0 {
				shutdown := a.metrics.StartServer(a.cfg.Metrics.Port)
				defer shutdown(context.Background())
			}
			consumer := kafka.NewConsumer(a.cfg.Kafka, a.cfg.Kafka.Topics.CacheInvalidate,
				events.NewInvalidationHandler(qc, a.metrics))
			return consumer.Start(ctx)
		},
	}
}
