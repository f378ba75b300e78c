// Package normalizer maps raw directory names onto the canonical category
// taxonomy, cleans question titles, and derives the dedupe key two titles are
// compared by. All lookup data is static; every function here is pure.
package normalizer

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// PlaceholderTitle is used when no usable title can be recovered.
const PlaceholderTitle = "未命名题目"

var (
	checkmarkPrefix = regexp.MustCompile(`^(?:[✓✔✅☑✗✘❌]\x{FE0F}?|\[[ xX]\])\s*`)
	ordinalPrefix   = regexp.MustCompile(`^(?:\d+|[一二三四五六七八九十百零〇两]+)\s*([、)）:：.．])`)
	bulletPrefix    = regexp.MustCompile(`^[-*+•·]\s+`)
)

// Category returns the canonical name for a raw root folder name. Names
// that are not in the alias table are already canonical.
func Category(raw string) string {
	raw = strings.TrimSpace(raw)
	if canonical, ok := categoryAliases[raw]; ok {
		return canonical
	}
	return raw
}

// SubCategory picks the sub-category for a file. An explicit sub-directory
// wins. Files sitting directly under a root that was merged into a broader
// category get that root's default sub-category so they are not orphaned.
func SubCategory(rawCategory, rawSub, category string) string {
	if sub := strings.TrimSpace(rawSub); sub != "" {
		return sub
	}
	rawCategory = strings.TrimSpace(rawCategory)
	if rawCategory == "" || rawCategory == category {
		return ""
	}
	if sub, ok := defaultSubCategories[rawCategory]; ok {
		return sub
	}
	return rawCategory
}

// Icon returns the display icon for a canonical category.
func Icon(category string) string {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return defaultIcon
}

// SortOrder returns the display position for a canonical category.
func SortOrder(category string) int {
	if order, ok := categoryOrder[category]; ok {
		return order
	}
	return unorderedCategory
}

// IsSkipped reports whether a file stem names a manual or overview document.
func IsSkipped(stem string) bool {
	_, ok := skipStems[strings.TrimSpace(stem)]
	return ok
}

// SkipStems returns a copy of the default block-list.
func SkipStems() []string {
	stems := make([]string, 0, len(skipStems))
	for stem := range skipStems {
		stems = append(stems, stem)
	}
	return stems
}

// SourcePriority ranks a source name. Unknown sources rank lowest.
func SourcePriority(source string) int {
	return sourcePriority[source]
}

// SourceForURL returns the source whose business domain hosts rawURL.
func SourceForURL(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	for domain, source := range businessDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return source, true
		}
	}
	return "", false
}

// IsBusinessURL reports whether rawURL points at one of the authoritative
// authoring-tool domains.
func IsBusinessURL(rawURL string) bool {
	_, ok := SourceForURL(rawURL)
	return ok
}

// CleanTitle strips leading checkmarks, checkboxes, ordinals and bullets,
// then collapses whitespace. It never returns an empty string.
func CleanTitle(title string) string {
	cleaned := stripTitlePrefixes(title)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return PlaceholderTitle
	}
	return cleaned
}

func stripTitlePrefixes(s string) string {
	for {
		prev := s
		s = strings.TrimSpace(s)
		if loc := checkmarkPrefix.FindStringIndex(s); loc != nil {
			s = s[loc[1]:]
		}
		if m := ordinalPrefix.FindStringSubmatchIndex(s); m != nil {
			sep := s[m[2]:m[3]]
			rest := s[m[1]:]
			// "3.5 倍" is a number, not an ordinal.
			if !((sep == "." || sep == "．") && startsWithDigit(rest)) {
				s = rest
			}
		}
		if loc := bulletPrefix.FindStringIndex(s); loc != nil {
			s = s[loc[1]:]
		}
		if s == prev {
			return s
		}
	}
}

func startsWithDigit(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsDigit(r)
}

// DedupeKey folds a title into the form duplicates are matched on:
// cleaned, full-width punctuation narrowed, whitespace collapsed, case folded.
func DedupeKey(title string) string {
	key := width.Narrow.String(CleanTitle(title))
	key = strings.Join(strings.Fields(key), " ")
	return cases.Fold().String(key)
}
