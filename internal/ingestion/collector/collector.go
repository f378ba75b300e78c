// Package collector turns one source directory into candidates: scan, parse,
// validate against the run's policy, normalise. A bad file is recorded in
// the report and never stops the pass.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/internal/ingestion/normalizer"
	"github.com/bagu-prep/questionbank/internal/ingestion/parser"
	"github.com/bagu-prep/questionbank/internal/ingestion/scanner"
	"github.com/bagu-prep/questionbank/internal/ingestion/validator"
	"github.com/bagu-prep/questionbank/pkg/logger"
	"github.com/bagu-prep/questionbank/pkg/metrics"
)

// Collector gathers candidates from source directories.
type Collector struct {
	scanner *scanner.Scanner
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Collector. m records scan counts and per-file failures.
func New(sc *scanner.Scanner, m *metrics.Metrics) *Collector {
	return &Collector{
		scanner: sc,
		metrics: m,
		logger:  logger.WithComponent("collector"),
	}
}

// Collect returns the accepted candidates of src in path order. The error is
// non-nil only when the source root is unusable.
func (c *Collector) Collect(ctx context.Context, src ingestion.Source, policy ingestion.Policy) ([]ingestion.Candidate, ingestion.Report, error) {
	report := ingestion.Report{Source: src.Name}
	entries, problems, err := c.scanner.Scan(src.Dir)
	if err != nil {
		return nil, report, fmt.Errorf("scanning %s source: %w", src.Name, err)
	}
	for _, problem := range problems {
		c.metrics.CollectErrors.WithLabelValues(src.Name, "scan").Inc()
		report.Errors = append(report.Errors, fmt.Sprintf("[%s] %s", src.Name, problem))
	}
	report.Scanned = len(entries)
	c.metrics.FilesScanned.WithLabelValues(src.Name).Add(float64(len(entries)))

	log := c.logger.With("source", src.Name)
	if runID := logger.RunID(ctx); runID != "" {
		log = log.With("run_id", runID)
	}

	candidates := make([]ingestion.Candidate, 0, len(entries))
	for _, entry := range entries {
		fields, err := parser.ParseFile(entry.Path)
		if err == nil {
			err = validator.ValidateCandidate(fields, policy)
		}
		if err != nil {
			kind := "parse"
			var verr *validator.ValidationError
			if errors.As(err, &verr) {
				kind = "validation"
			}
			c.metrics.CollectErrors.WithLabelValues(src.Name, kind).Inc()
			report.Errors = append(report.Errors, fmt.Sprintf("[%s] %s: %v", src.Name, entry.Path, err))
			log.Debug("file rejected", "path", entry.Path, "kind", kind, "error", err)
			continue
		}
		candidates = append(candidates, NewCandidate(src.Name, entry, fields))
	}
	report.Accepted = len(candidates)

	log.Info("source collected",
		"dir", src.Dir,
		"scanned", report.Scanned,
		"accepted", report.Accepted,
		"errors", len(report.Errors),
	)
	return candidates, report, nil
}

// NewCandidate combines a scanned entry with its parsed fields and the
// normalised category, sub-category and dedupe key.
func NewCandidate(source string, entry ingestion.Entry, fields ingestion.ParsedFields) ingestion.Candidate {
	category := normalizer.Category(entry.RawCategory)
	fields.Title = normalizer.CleanTitle(fields.Title)
	return ingestion.Candidate{
		SourceName:      source,
		FilePath:        entry.Path,
		RawCategory:     entry.RawCategory,
		RawSubCategory:  entry.RawSubCategory,
		CategoryName:    category,
		SubCategoryName: normalizer.SubCategory(entry.RawCategory, entry.RawSubCategory, category),
		Title:           fields.Title,
		DedupeKey:       normalizer.DedupeKey(fields.Title),
		ParsedFields:    fields,
	}
}
