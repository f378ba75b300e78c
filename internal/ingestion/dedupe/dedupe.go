// Package dedupe keeps one candidate per (category, dedupe key) across all
// sources.
package dedupe

import (
	"sort"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/internal/ingestion/normalizer"
)

// Select returns the winner of every duplicate group, ordered by category
// and dedupe key, together with the parsed/selected/removed counts and the
// per-category distribution of the winners.
//
// Within a group the higher source priority wins, then the longer combined
// answer, then the first candidate by file path.
func Select(candidates []ingestion.Candidate) ([]ingestion.Candidate, ingestion.Summary) {
	sorted := make([]ingestion.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.CategoryName != b.CategoryName {
			return a.CategoryName < b.CategoryName
		}
		if a.DedupeKey != b.DedupeKey {
			return a.DedupeKey < b.DedupeKey
		}
		return a.FilePath < b.FilePath
	})

	selected := make([]ingestion.Candidate, 0, len(sorted))
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sameGroup(sorted[start], sorted[end]) {
			end++
		}
		selected = append(selected, winner(sorted[start:end]))
		start = end
	}

	counts := make(map[string]int)
	for _, c := range selected {
		counts[c.CategoryName]++
	}
	return selected, ingestion.Summary{
		ParsedCandidates:   len(candidates),
		SelectedCandidates: len(selected),
		DedupedCount:       len(candidates) - len(selected),
		CategoryCounts:     counts,
	}
}

func sameGroup(a, b ingestion.Candidate) bool {
	return a.CategoryName == b.CategoryName && a.DedupeKey == b.DedupeKey
}

func winner(group []ingestion.Candidate) ingestion.Candidate {
	best := group[0]
	for _, c := range group[1:] {
		if outranks(c, best) {
			best = c
		}
	}
	return best
}

func outranks(c, best ingestion.Candidate) bool {
	cp, bp := normalizer.SourcePriority(c.SourceName), normalizer.SourcePriority(best.SourceName)
	if cp != bp {
		return cp > bp
	}
	return c.AnswerLength() > best.AnswerLength()
}
