package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/bagu-prep/questionbank/internal/importer"
	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/internal/store"
	"github.com/bagu-prep/questionbank/pkg/health"
)

// maxReportedErrors caps the error listing; the full list is in the logs.
const maxReportedErrors = 20

type categoryCount struct {
	name  string
	count int
}

// distribution orders category counts by count descending, then name.
func distribution(counts map[string]int) []categoryCount {
	out := make([]categoryCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, categoryCount{name: name, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

func printSummary(w io.Writer, s ingestion.Summary) {
	sources := make([]string, 0, len(s.SourceFileCounts))
	for name := range s.SourceFileCounts {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	fmt.Fprintln(w, "Source files:")
	for _, name := range sources {
		fmt.Fprintf(w, "  %s: %d\n", name, s.SourceFileCounts[name])
	}
	fmt.Fprintf(w, "Parsed candidates: %d\n", s.ParsedCandidates)
	fmt.Fprintf(w, "Selected candidates: %d\n", s.SelectedCandidates)
	fmt.Fprintf(w, "Duplicates removed: %d\n", s.DedupedCount)
	if len(s.CategoryCounts) > 0 {
		fmt.Fprintln(w, "Category distribution:")
		for _, c := range distribution(s.CategoryCounts) {
			fmt.Fprintf(w, "  %s: %d\n", c.name, c.count)
		}
	}
	printErrors(w, s.Errors)
}

func printErrors(w io.Writer, errs []string) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(w, "Errors (%d):\n", len(errs))
	for i, e := range errs {
		if i == maxReportedErrors {
			fmt.Fprintf(w, "  ... and %d more\n", len(errs)-maxReportedErrors)
			break
		}
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func printImportStats(w io.Writer, stats ingestion.ImportStats, dryRun bool) {
	if dryRun {
		fmt.Fprintf(w, "Dry run: %d questions would be imported\n", stats.Created)
	} else {
		fmt.Fprintf(w, "Created: %d\n", stats.Created)
		fmt.Fprintf(w, "Overwritten: %d\n", stats.Skipped)
	}
	printErrors(w, stats.Errors)
}

func printRebuildReport(w io.Writer, r importer.RebuildReport, err error) {
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	printSummary(w, r.Summary)

	var abort *importer.AbortError
	switch {
	case errors.As(err, &abort):
		fmt.Fprintf(w, "Rebuild aborted at %s stage, nothing was changed\n", abort.Stage)
		if abort.Stage == importer.StageWrite {
			printErrors(w, abort.Errors)
		}
	case err != nil:
		fmt.Fprintf(w, "Rebuild failed: %v\n", err)
	case r.DryRun:
		fmt.Fprintf(w, "Dry run: %d questions would be imported, nothing was changed\n", r.Stats.Created)
	default:
		fmt.Fprintf(w, "Deleted categories: %d\n", r.DeletedCategories)
		fmt.Fprintf(w, "Created: %d\n", r.Stats.Created)
		fmt.Fprintf(w, "Overwritten: %d\n", r.Stats.Skipped)
		fmt.Fprintf(w, "Users reset: %d\n", r.UsersReset)
		fmt.Fprintf(w, "Profiles reset: %d\n", r.ProfilesReset)
	}
}

func renderTable(w io.Writer, headers []any, rows [][]any) error {
	table := tablewriter.NewTable(w)
	table.Header(headers...)
	for _, row := range rows {
		if err := table.Append(row...); err != nil {
			return err
		}
	}
	return table.Render()
}

func printCategories(w io.Writer, categories []store.Category) error {
	rows := make([][]any, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, []any{c.Name, strconv.Itoa(c.QuestionCount), c.Icon})
	}
	return renderTable(w, []any{"Category", "Questions", "Icon"}, rows)
}

func printQuestions(w io.Writer, questions []store.Question) error {
	rows := make([][]any, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, []any{q.Title, q.SubCategoryName, q.SourceURL})
	}
	return renderTable(w, []any{"Title", "Sub-category", "Source"}, rows)
}

func printHealth(w io.Writer, r health.Report) {
	fmt.Fprintf(w, "Overall: %s\n", r.Status)
	for _, name := range r.Names() {
		c := r.Components[name]
		if c.Message != "" {
			fmt.Fprintf(w, "  %s: %s (%s) %s\n", name, c.Status, c.Latency, c.Message)
			continue
		}
		fmt.Fprintf(w, "  %s: %s (%s)\n", name, c.Status, c.Latency)
	}
}
