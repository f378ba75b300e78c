// Package ingestion defines the records that flow through the question-bank
// pipeline: scanner entries, parsed documents, candidates, and the summaries
// reported back to the CLI.
package ingestion

import "time"

// Entry is one Markdown file found by the scanner together with the raw
// directory names it was found under.
type Entry struct {
	Path           string
	RawCategory    string
	RawSubCategory string
}

// ParsedFields is the structured content recovered from one document.
// Title is never empty and SourceURL is either empty or starts with "http".
type ParsedFields struct {
	Title          string
	BriefAnswer    string
	DetailedAnswer string
	KeyPoints      []string
	SourceURL      string
	Tags           []string
}

// AnswerLength is the combined character count of the short and long
// answers, used as a completeness proxy when breaking ties.
func (p ParsedFields) AnswerLength() int {
	return len([]rune(p.BriefAnswer)) + len([]rune(p.DetailedAnswer))
}

// Candidate is a parsed, normalised question awaiting deduplication.
// Candidates are built once and passed by value.
type Candidate struct {
	SourceName      string
	FilePath        string
	RawCategory     string
	RawSubCategory  string
	CategoryName    string
	SubCategoryName string
	Title           string
	DedupeKey       string
	ParsedFields
}

// Source names a corpus root.
type Source struct {
	Name string
	Dir  string
}

// Policy controls which parsed documents the collector accepts.
type Policy struct {
	RequireSourceURL      bool
	RequireBusinessSource bool
}

// Report is the per-source result of a collection pass.
type Report struct {
	Source   string
	Scanned  int
	Accepted int
	Errors   []string
}

// Summary describes a merged multi-source collection for operators.
type Summary struct {
	SourceFileCounts   map[string]int
	ParsedCandidates   int
	SelectedCandidates int
	DedupedCount       int
	CategoryCounts     map[string]int
	Errors             []string
}

// ImportStats is the outcome of writing candidates to the store. Skipped
// counts existing rows that were overwritten.
type ImportStats struct {
	Created int
	Skipped int
	Errors  []string
}

// RebuildEvent is announced to cache holders after a rebuild commits.
type RebuildEvent struct {
	RunID       string    `json:"run_id"`
	Created     int       `json:"created"`
	Overwritten int       `json:"overwritten"`
	Categories  int       `json:"categories"`
	RebuiltAt   time.Time `json:"rebuilt_at"`
}
