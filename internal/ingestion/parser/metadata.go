package parser

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// metadata holds the key/value pairs of a front-matter or fenced block.
// Values are strings or []any as decoded.
type metadata map[string]any

var (
	metaLinePattern = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_-]*)\s*[:：]\s*(.*?)\s*$`)
	linkLinePattern = regexp.MustCompile(`^\s*(?:(?:链接|来源|原文链接)\s*[:：]\s*)?<?https?://\S+>?\s*$`)
	fencePattern    = regexp.MustCompile("^\\s*(```|~~~)")
)

// splitMetadata removes a leading metadata block from lines and returns the
// decoded pairs with the remaining body lines. Front matter is tried before
// a fenced block.
func splitMetadata(lines []string) (metadata, []string) {
	for _, extract := range []func([]string) (metadata, []string, bool){
		frontMatter,
		fencedMetadata,
	} {
		if meta, body, ok := extract(lines); ok {
			return meta, body
		}
	}
	return metadata{}, lines
}

// frontMatter recognises a block between two "---" lines at the top of the
// file. Like a fenced block, it needs at least one pair.
func frontMatter(lines []string) (metadata, []string, bool) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return nil, nil, false
	}
	for i := 1; i < len(lines); i++ {
		marker := strings.TrimSpace(lines[i])
		if marker != "---" && marker != "..." {
			continue
		}
		block := lines[1:i]
		decoded := map[string]any{}
		var meta metadata
		if err := yaml.Unmarshal([]byte(strings.Join(block, "\n")), &decoded); err != nil {
			meta = keyValuePairs(block)
		} else {
			meta = make(metadata, len(decoded))
			for key, value := range decoded {
				meta[strings.ToLower(key)] = value
			}
		}
		// A leading horizontal rule pair around prose is body text.
		if len(meta) == 0 {
			return nil, nil, false
		}
		return meta, lines[i+1:], true
	}
	return nil, nil, false
}

// fencedMetadata recognises a fenced block of key: value lines, optionally
// preceded by blank or link lines. A block with no pairs is body text.
func fencedMetadata(lines []string) (metadata, []string, bool) {
	start := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "" || isLinkLine(line) {
			continue
		}
		if fencePattern.MatchString(line) {
			start = i
		}
		break
	}
	if start < 0 {
		return nil, nil, false
	}
	marker := fencePattern.FindStringSubmatch(lines[start])[1]
	for end := start + 1; end < len(lines); end++ {
		if !strings.HasPrefix(strings.TrimSpace(lines[end]), marker) {
			continue
		}
		meta := keyValuePairs(lines[start+1 : end])
		if len(meta) == 0 {
			return nil, nil, false
		}
		body := make([]string, 0, len(lines)-(end-start+1))
		body = append(body, lines[:start]...)
		body = append(body, lines[end+1:]...)
		return meta, body, true
	}
	return nil, nil, false
}

func keyValuePairs(lines []string) metadata {
	meta := metadata{}
	for _, line := range lines {
		m := metaLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// "https://..." inside a code sample is not a pair.
		if strings.HasPrefix(m[2], "//") {
			continue
		}
		key := strings.ToLower(m[1])
		if _, seen := meta[key]; !seen {
			meta[key] = m[2]
		}
	}
	return meta
}

func isLinkLine(line string) bool {
	return linkLinePattern.MatchString(line)
}

// str returns the string form of a metadata value, taking the first element
// of a list.
func (m metadata) str(key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return trimQuotes(v)
	case []any:
		if len(v) == 0 {
			return ""
		}
		return trimQuotes(fmt.Sprint(v[0]))
	default:
		return trimQuotes(fmt.Sprint(v))
	}
}

func trimQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'“”‘’`)
}
