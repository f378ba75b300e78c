package parser

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bagu-prep/questionbank/internal/ingestion/normalizer"
)

const (
	linkScanLines = 40

	sectionBrief     = "回答话术"
	sectionDetail    = "问题详解"
	sectionKeyPoints = "关键要点"
)

var (
	urlPattern      = regexp.MustCompile("https?://[^\\s<>\"'`()（）\\[\\]【】{}]+")
	h1Pattern       = regexp.MustCompile(`^#\s+(.+?)(?:\s+#+)?\s*$`)
	h2Pattern       = regexp.MustCompile(`^##\s+(.+?)(?:\s+#+)?\s*$`)
	headingPattern  = regexp.MustCompile(`^#{1,6}\s`)
	rulePattern     = regexp.MustCompile(`^(?:-{3,}|\*{3,}|_{3,})$`)
	keyPointPattern = regexp.MustCompile(`^(?:[-*+]\s+|\d+[.、)）]\s*)(.+)$`)

	emphasisPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\*\*(.+?)\*\*`),
		regexp.MustCompile(`__(.+?)__`),
		regexp.MustCompile(`~~(.+?)~~`),
		regexp.MustCompile(`\*(.+?)\*`),
	}
)

const urlTrailingPunct = `.,;:!?。，；：！？、》」』"'”’`

// document is the working state of one parse.
type document struct {
	path    string
	head    []string
	meta    metadata
	content []string
}

type extractor func(*document) string

// firstOf runs extractors left to right and returns the first non-empty
// result.
func firstOf(d *document, extractors ...extractor) string {
	for _, extract := range extractors {
		if v := strings.TrimSpace(extract(d)); v != "" {
			return v
		}
	}
	return ""
}

func metaTitle(d *document) string { return d.meta.str("title") }

func headingTitle(d *document) string {
	mask := fenceMask(d.content)
	for i, line := range d.content {
		if mask[i] {
			continue
		}
		if m := h1Pattern.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

func stemTitle(d *document) string {
	base := filepath.Base(d.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// resolveTitle cleans each title candidate and skips those that clean to
// nothing.
func resolveTitle(d *document) string {
	clean := func(rule extractor) extractor {
		return func(d *document) string {
			if t := normalizer.CleanTitle(rule(d)); t != normalizer.PlaceholderTitle {
				return t
			}
			return ""
		}
	}
	if t := firstOf(d, clean(metaTitle), clean(headingTitle), clean(stemTitle)); t != "" {
		return t
	}
	return normalizer.PlaceholderTitle
}

func businessLink(d *document) string {
	for _, u := range headURLs(d) {
		if normalizer.IsBusinessURL(u) {
			return u
		}
	}
	return ""
}

func metaSourceLink(d *document) string {
	source := d.meta.str("source")
	if !strings.HasPrefix(source, "http") {
		return ""
	}
	return trimURL(source)
}

func anyLink(d *document) string {
	if urls := headURLs(d); len(urls) > 0 {
		return urls[0]
	}
	return ""
}

func headURLs(d *document) []string {
	found := urlPattern.FindAllString(strings.Join(d.head, "\n"), -1)
	urls := make([]string, 0, len(found))
	for _, u := range found {
		if u = trimURL(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func trimURL(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), urlTrailingPunct)
	if !strings.HasPrefix(u, "http") {
		return ""
	}
	return u
}

// fenceMask marks fence delimiters and the lines between them.
func fenceMask(lines []string) []bool {
	mask := make([]bool, len(lines))
	marker := ""
	for i, line := range lines {
		m := fencePattern.FindStringSubmatch(line)
		switch {
		case marker == "" && m != nil:
			marker = m[1]
			mask[i] = true
		case marker != "":
			mask[i] = true
			if m != nil && m[1] == marker {
				marker = ""
			}
		}
	}
	return mask
}

// splitSections maps each level-2 heading to the text under it. Repeated
// headings accumulate.
func splitSections(lines []string) map[string]string {
	sections := make(map[string]string)
	mask := fenceMask(lines)
	current := ""
	var buf []string
	flush := func() {
		if current == "" {
			return
		}
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		if prev, ok := sections[current]; ok && prev != "" {
			if text != "" {
				text = prev + "\n\n" + text
			} else {
				text = prev
			}
		}
		sections[current] = text
	}
	for i, line := range lines {
		if !mask[i] {
			if m := h2Pattern.FindStringSubmatch(line); m != nil {
				flush()
				current = strings.Trim(m[1], "*_ :：")
				buf = buf[:0]
				continue
			}
		}
		buf = append(buf, line)
	}
	flush()
	return sections
}

// firstParagraph returns the first block of prose, skipping headings, link
// lines and code.
func firstParagraph(lines []string) string {
	mask := fenceMask(lines)
	var block []string
	for i, line := range lines {
		text := strings.TrimSpace(line)
		if mask[i] || text == "" || rulePattern.MatchString(text) || headingPattern.MatchString(text) || isLinkLine(text) {
			if len(block) > 0 {
				break
			}
			continue
		}
		block = append(block, text)
	}
	return strings.Join(block, "\n")
}

// cleanBody drops level-1 headings outside code so the long answer does not
// repeat the title.
func cleanBody(lines []string) string {
	mask := fenceMask(lines)
	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		if !mask[i] && h1Pattern.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func extractKeyPoints(section string) []string {
	points := []string{}
	for _, line := range strings.Split(section, "\n") {
		m := keyPointPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		point := m[1]
		for _, p := range emphasisPatterns {
			point = p.ReplaceAllString(point, "$1")
		}
		if point = strings.TrimSpace(point); point != "" {
			points = append(points, point)
		}
	}
	return points
}

// normalizeTags accepts a list or a comma-separated string. Order and
// duplicates are preserved.
func normalizeTags(v any) []string {
	var raw []string
	switch t := v.(type) {
	case nil:
	case []any:
		for _, item := range t {
			raw = append(raw, fmt.Sprint(item))
		}
	case []string:
		raw = t
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		raw = strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '，' })
	default:
		raw = []string{fmt.Sprint(t)}
	}
	tags := make([]string, 0, len(raw))
	for _, tag := range raw {
		if tag = trimQuotes(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
