// Package importer writes deduplicated candidates to the question store.
// ImportCandidates is best effort: a failed candidate is reported and the
// rest continue. Rebuild replaces the whole bank in one transaction and
// aborts before touching the store when the corpus does not validate.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/internal/ingestion/collector"
	"github.com/bagu-prep/questionbank/internal/ingestion/dedupe"
	"github.com/bagu-prep/questionbank/internal/ingestion/normalizer"
	"github.com/bagu-prep/questionbank/internal/store"
	apperrors "github.com/bagu-prep/questionbank/pkg/errors"
	"github.com/bagu-prep/questionbank/pkg/logger"
	"github.com/bagu-prep/questionbank/pkg/metrics"
	"github.com/bagu-prep/questionbank/pkg/resilience"
)

// LocalSource names candidates collected by ImportFromDirectory.
const LocalSource = "local"

// Invalidator drops state derived from the question bank after a rebuild
// commits. Failures are logged and never fail the rebuild.
type Invalidator interface {
	Name() string
	Invalidate(ctx context.Context, event ingestion.RebuildEvent) error
}

// Importer runs collection, deduplication and writes against one store.
type Importer struct {
	store        *store.Store
	collector    *collector.Collector
	metrics      *metrics.Metrics
	invalidators []Invalidator
	retry        resilience.RetryConfig
	attemptLimit time.Duration
	logger       *slog.Logger
}

// defaultAttemptLimit bounds one invalidation attempt.
const defaultAttemptLimit = 5 * time.Second

// Option configures an Importer.
type Option func(*Importer)

// WithInvalidators registers post-commit invalidation steps, run in order.
func WithInvalidators(invalidators ...Invalidator) Option {
	return func(im *Importer) {
		im.invalidators = append(im.invalidators, invalidators...)
	}
}

// WithRetry overrides the backoff used for invalidation steps and the time
// limit of each attempt.
func WithRetry(cfg resilience.RetryConfig, attemptLimit time.Duration) Option {
	return func(im *Importer) {
		im.retry = cfg
		im.attemptLimit = attemptLimit
	}
}

// New returns an Importer writing through s.
func New(s *store.Store, c *collector.Collector, m *metrics.Metrics, opts ...Option) *Importer {
	im := &Importer{
		store:        s,
		collector:    c,
		metrics:      m,
		attemptLimit: defaultAttemptLimit,
		logger:       logger.WithComponent("importer"),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

func (im *Importer) log(ctx context.Context) *slog.Logger {
	if runID := logger.RunID(ctx); runID != "" {
		return im.logger.With("run_id", runID)
	}
	return im.logger
}

// BuildMergedCandidates collects every source under policy and keeps one
// candidate per (category, dedupe key). Per-file problems are returned in
// the summary; the error is non-nil only for an unusable source root.
func (im *Importer) BuildMergedCandidates(ctx context.Context, sources []ingestion.Source, policy ingestion.Policy) ([]ingestion.Candidate, ingestion.Summary, error) {
	var (
		all    []ingestion.Candidate
		errs   []string
		counts = make(map[string]int, len(sources))
	)
	for _, src := range sources {
		candidates, report, err := im.collector.Collect(ctx, src, policy)
		if err != nil {
			return nil, ingestion.Summary{}, err
		}
		counts[src.Name] = report.Scanned
		errs = append(errs, report.Errors...)
		all = append(all, candidates...)
	}

	selected, summary := dedupe.Select(all)
	summary.SourceFileCounts = counts
	summary.Errors = errs
	im.metrics.CandidatesSelected.Set(float64(summary.SelectedCandidates))
	im.metrics.DuplicatesRemoved.Set(float64(summary.DedupedCount))

	im.log(ctx).Info("candidates merged",
		"sources", len(sources),
		"parsed", summary.ParsedCandidates,
		"selected", summary.SelectedCandidates,
		"deduped", summary.DedupedCount,
		"errors", len(errs),
	)
	return selected, summary, nil
}

// ImportFromDirectory collects dir leniently, deduplicates it and imports
// the result. Collection errors are reported alongside write errors.
func (im *Importer) ImportFromDirectory(ctx context.Context, dir string, dryRun bool) (ingestion.ImportStats, error) {
	candidates, summary, err := im.BuildMergedCandidates(ctx,
		[]ingestion.Source{{Name: LocalSource, Dir: dir}}, ingestion.Policy{})
	if err != nil {
		return ingestion.ImportStats{}, err
	}
	stats, err := im.ImportCandidates(ctx, candidates, dryRun)
	stats.Errors = append(summary.Errors, stats.Errors...)
	return stats, err
}

// ImportCandidates upserts candidates. A dry run only reports how many
// questions would be written.
func (im *Importer) ImportCandidates(ctx context.Context, candidates []ingestion.Candidate, dryRun bool) (ingestion.ImportStats, error) {
	if dryRun {
		return ingestion.ImportStats{Created: len(candidates)}, nil
	}
	return im.write(ctx, im.store.Queries(), candidates)
}

type subCategoryKey struct {
	categoryID int64
	name       string
}

// write upserts candidates in (category, sub-category, title) order. Only a
// failure to refresh category counts is returned as an error.
func (im *Importer) write(ctx context.Context, q *store.Queries, candidates []ingestion.Candidate) (ingestion.ImportStats, error) {
	ordered := make([]ingestion.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.CategoryName != b.CategoryName {
			return a.CategoryName < b.CategoryName
		}
		if a.SubCategoryName != b.SubCategoryName {
			return a.SubCategoryName < b.SubCategoryName
		}
		return a.Title < b.Title
	})

	var stats ingestion.ImportStats
	categories := make(map[string]store.Category)
	subCategories := make(map[subCategoryKey]store.SubCategory)
	log := im.log(ctx)

	for _, c := range ordered {
		category, ok := categories[c.CategoryName]
		if !ok {
			var err error
			category, err = q.GetOrCreateCategory(ctx, c.CategoryName,
				normalizer.Icon(c.CategoryName), normalizer.SortOrder(c.CategoryName))
			if err != nil {
				im.recordFailure(&stats, c, err)
				continue
			}
			categories[c.CategoryName] = category
		}

		var subID int64
		if c.SubCategoryName != "" {
			key := subCategoryKey{categoryID: category.ID, name: c.SubCategoryName}
			sub, ok := subCategories[key]
			if !ok {
				var err error
				sub, err = q.GetOrCreateSubCategory(ctx, category.ID, c.SubCategoryName)
				if err != nil {
					im.recordFailure(&stats, c, err)
					continue
				}
				subCategories[key] = sub
			}
			subID = sub.ID
		}

		created, err := q.UpsertQuestion(ctx, store.Question{
			CategoryID:     category.ID,
			SubCategoryID:  subID,
			Title:          c.Title,
			BriefAnswer:    c.BriefAnswer,
			DetailedAnswer: c.DetailedAnswer,
			KeyPoints:      c.KeyPoints,
			SourceURL:      c.SourceURL,
			Tags:           c.Tags,
		})
		if err != nil {
			im.recordFailure(&stats, c, err)
			continue
		}
		if created {
			stats.Created++
			im.metrics.QuestionsWritten.WithLabelValues("created").Inc()
		} else {
			stats.Skipped++
			im.metrics.QuestionsWritten.WithLabelValues("overwritten").Inc()
		}
	}

	if err := q.RefreshCategoryCounts(ctx); err != nil {
		return stats, fmt.Errorf("%w: %v", apperrors.ErrWrite, err)
	}
	log.Info("candidates imported",
		"created", stats.Created,
		"overwritten", stats.Skipped,
		"errors", len(stats.Errors),
	)
	return stats, nil
}

func (im *Importer) recordFailure(stats *ingestion.ImportStats, c ingestion.Candidate, err error) {
	im.metrics.QuestionsWritten.WithLabelValues("error").Inc()
	stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", c.FilePath, err))
}
