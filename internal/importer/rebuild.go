package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/internal/ingestion/normalizer"
	"github.com/bagu-prep/questionbank/internal/store"
	apperrors "github.com/bagu-prep/questionbank/pkg/errors"
	"github.com/bagu-prep/questionbank/pkg/logger"
	"github.com/bagu-prep/questionbank/pkg/resilience"
)

// Abort stages.
const (
	StageValidation = "validation"
	StageWrite      = "write"
)

// AbortError reports a rebuild that left the store untouched, either because
// the corpus did not validate or because the transaction was rolled back.
type AbortError struct {
	Stage  string
	Err    error
	Errors []string
}

func (e *AbortError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("rebuild aborted at %s stage: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("rebuild aborted at %s stage: %v (%d errors, first: %s)",
		e.Stage, e.Err, len(e.Errors), e.Errors[0])
}

func (e *AbortError) Unwrap() []error {
	return []error{apperrors.ErrRebuildAborted, e.Err}
}

// RebuildOptions selects the two corpus roots.
type RebuildOptions struct {
	FeishuDir string
	YuqueDir  string
	DryRun    bool
}

// RebuildReport describes what a rebuild did or, for a dry run, would do.
type RebuildReport struct {
	RunID             string
	DryRun            bool
	Committed         bool
	Summary           ingestion.Summary
	Stats             ingestion.ImportStats
	DeletedCategories int64
	UsersReset        int64
	ProfilesReset     int64
}

// StrictPolicy is the validation applied by Rebuild: every file needs a link
// into one of the business domains.
var StrictPolicy = ingestion.Policy{RequireSourceURL: true, RequireBusinessSource: true}

// Rebuild recomputes the whole question bank from both corpus roots.
//
// Validation runs before any write. The delete, import and user statistics
// reset then run in one transaction, so readers see either the old bank or
// the new one. Invalidators run after commit.
func (im *Importer) Rebuild(ctx context.Context, opts RebuildOptions) (RebuildReport, error) {
	runID := logger.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logger.WithRunID(ctx, runID)
	}
	report := RebuildReport{RunID: runID, DryRun: opts.DryRun}
	log := im.log(ctx)

	start := time.Now()
	defer func() { im.metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	candidates, summary, err := im.BuildMergedCandidates(ctx, []ingestion.Source{
		{Name: normalizer.SourceFeishu, Dir: opts.FeishuDir},
		{Name: normalizer.SourceYuque, Dir: opts.YuqueDir},
	}, StrictPolicy)
	if err != nil {
		im.metrics.RebuildsTotal.WithLabelValues("failed").Inc()
		return report, err
	}
	report.Summary = summary

	if len(summary.Errors) > 0 {
		im.metrics.RebuildsTotal.WithLabelValues("validation_abort").Inc()
		log.Warn("rebuild aborted before writing", "errors", len(summary.Errors))
		return report, &AbortError{Stage: StageValidation, Err: apperrors.ErrValidation, Errors: summary.Errors}
	}
	if len(candidates) == 0 {
		im.metrics.RebuildsTotal.WithLabelValues("validation_abort").Inc()
		return report, &AbortError{Stage: StageValidation, Err: apperrors.ErrNoCandidates}
	}
	if opts.DryRun {
		report.Stats = ingestion.ImportStats{Created: len(candidates)}
		im.metrics.RebuildsTotal.WithLabelValues("dry_run").Inc()
		log.Info("rebuild dry run", "would_import", len(candidates))
		return report, nil
	}

	var stats ingestion.ImportStats
	err = im.store.InTx(ctx, func(q *store.Queries) error {
		deleted, err := q.DeleteAllCategories(ctx)
		if err != nil {
			return err
		}
		stats, err = im.write(ctx, q, candidates)
		if err != nil {
			return err
		}
		if len(stats.Errors) > 0 {
			return &AbortError{Stage: StageWrite, Err: apperrors.ErrWrite, Errors: stats.Errors}
		}
		users, profiles, err := q.ResetUserStats(ctx)
		if err != nil {
			return err
		}
		report.DeletedCategories = deleted
		report.UsersReset = users
		report.ProfilesReset = profiles
		return nil
	})
	report.Stats = stats
	if err != nil {
		im.metrics.RebuildsTotal.WithLabelValues("write_abort").Inc()
		log.Error("rebuild rolled back", "error", err)
		var abort *AbortError
		if errors.As(err, &abort) {
			return report, abort
		}
		return report, &AbortError{Stage: StageWrite, Err: apperrors.ErrWrite, Errors: []string{err.Error()}}
	}
	report.Committed = true
	im.metrics.RebuildsTotal.WithLabelValues("committed").Inc()
	log.Info("rebuild committed",
		"deleted_categories", report.DeletedCategories,
		"created", stats.Created,
		"overwritten", stats.Skipped,
		"users_reset", report.UsersReset,
		"profiles_reset", report.ProfilesReset,
	)

	im.invalidate(ctx, ingestion.RebuildEvent{
		RunID:       runID,
		Created:     stats.Created,
		Overwritten: stats.Skipped,
		Categories:  len(summary.CategoryCounts),
		RebuiltAt:   time.Now().UTC(),
	})
	return report, nil
}

func (im *Importer) invalidate(ctx context.Context, event ingestion.RebuildEvent) {
	log := im.log(ctx)
	for _, inv := range im.invalidators {
		name := "invalidate " + inv.Name()
		err := resilience.Retry(ctx, name, im.retry, func() error {
			return resilience.WithTimeout(ctx, im.attemptLimit, name, func(ctx context.Context) error {
				return inv.Invalidate(ctx, event)
			})
		})
		if err != nil {
			log.Warn("cache invalidation failed", "invalidator", inv.Name(), "error", err)
			continue
		}
		log.Debug("cache invalidated", "invalidator", inv.Name())
	}
}
