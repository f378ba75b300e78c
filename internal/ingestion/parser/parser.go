// Package parser recovers structured question fields from one Markdown
// document. Three layouts are understood: conventional front matter, a
// fenced key: value block (optionally preceded by link lines), and plain
// heading plus body. Each field is resolved by an ordered list of
// extractors; the first non-empty result wins.
//
// Missing sections never fail a parse; only unreadable or undecodable
// files do.
package parser

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	apperrors "github.com/bagu-prep/questionbank/pkg/errors"
)

// ParseFile reads and parses the document at path.
func ParseFile(path string) (ingestion.ParsedFields, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingestion.ParsedFields{}, fmt.Errorf("%w: reading %s: %v", apperrors.ErrParse, path, err)
	}
	return Parse(path, data)
}

// Parse extracts fields from data. path is only used for the filename
// title fallback and error messages.
func Parse(path string, data []byte) (ingestion.ParsedFields, error) {
	if !utf8.Valid(data) {
		return ingestion.ParsedFields{}, fmt.Errorf("%w: %s is not valid UTF-8", apperrors.ErrParse, path)
	}
	text := strings.TrimPrefix(string(data), "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")

	meta, body := splitMetadata(lines)
	d := &document{
		path:    path,
		head:    lines[:min(len(lines), linkScanLines)],
		meta:    meta,
		content: stripLeadingLinks(body),
	}
	sections := splitSections(d.content)

	return ingestion.ParsedFields{
		Title:     resolveTitle(d),
		SourceURL: firstOf(d, businessLink, metaSourceLink, anyLink),
		BriefAnswer: firstOf(d,
			func(*document) string { return sections[sectionBrief] },
			func(d *document) string { return firstParagraph(d.content) },
		),
		DetailedAnswer: firstOf(d,
			func(*document) string { return sections[sectionDetail] },
			func(d *document) string { return cleanBody(d.content) },
		),
		KeyPoints: extractKeyPoints(sections[sectionKeyPoints]),
		Tags:      normalizeTags(meta["tags"]),
	}, nil
}

func stripLeadingLinks(lines []string) []string {
	for i, line := range lines {
		if strings.TrimSpace(line) != "" && !isLinkLine(line) {
			return lines[i:]
		}
	}
	return nil
}
