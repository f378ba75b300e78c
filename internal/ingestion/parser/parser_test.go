package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagu-prep/questionbank/internal/ingestion/normalizer"
	apperrors "github.com/bagu-prep/questionbank/pkg/errors"
)

func parse(t *testing.T, name, content string) (title, brief, detailed, link string, keyPoints, tags []string) {
	t.Helper()
	fields, err := Parse(name, []byte(content))
	require.NoError(t, err)
	return fields.Title, fields.BriefAnswer, fields.DetailedAnswer, fields.SourceURL, fields.KeyPoints, fields.Tags
}

func TestParse_FeishuPlainURL(t *testing.T) {
	fields, err := Parse("sample.md", []byte("https://nageoffer.feishu.cn/wiki/abc\n这是第一段回答。\n\n这是第二段。"))
	require.NoError(t, err)

	assert.Equal(t, "https://nageoffer.feishu.cn/wiki/abc", fields.SourceURL)
	assert.Equal(t, "这是第一段回答。", fields.BriefAnswer)
	assert.Contains(t, fields.DetailedAnswer, "这是第一段回答。")
	assert.Contains(t, fields.DetailedAnswer, "这是第二段。")
	assert.Equal(t, "sample", fields.Title)
	assert.Empty(t, fields.KeyPoints)
	assert.Empty(t, fields.Tags)
}

func TestParse_FeishuPrefixedURL(t *testing.T) {
	fields, err := Parse("sample.md", []byte("链接：https://nageoffer.feishu.cn/wiki/xyz\n正文第一段。"))
	require.NoError(t, err)

	assert.Equal(t, "https://nageoffer.feishu.cn/wiki/xyz", fields.SourceURL)
	assert.Equal(t, "正文第一段。", fields.BriefAnswer)
	assert.Equal(t, "正文第一段。", fields.DetailedAnswer)
}

func TestParse_FencedMetadataAndSections(t *testing.T) {
	content := "```\n" +
		"title: 什么是CAS？有哪些使用场景？\n" +
		"tags: 并发,CAS\n" +
		"```\n" +
		"https://www.yuque.com/magestack/open8gu/abc\n" +
		"## 回答话术\n" +
		"CAS 是比较并交换。\n" +
		"## 问题详解\n" +
		"这里是详细解析。\n" +
		"## 关键要点\n" +
		"- **原子性**\n" +
		"- 无锁化\n"

	title, brief, detailed, link, keyPoints, tags := parse(t, "sample.md", content)

	assert.Equal(t, "什么是CAS？有哪些使用场景？", title)
	assert.Equal(t, "https://www.yuque.com/magestack/open8gu/abc", link)
	assert.Equal(t, "CAS 是比较并交换。", brief)
	assert.Equal(t, "这里是详细解析。", detailed)
	assert.Equal(t, []string{"原子性", "无锁化"}, keyPoints)
	assert.Equal(t, []string{"并发", "CAS"}, tags)
}

func TestParse_FrontMatter(t *testing.T) {
	content := "---\n" +
		"title: Redis为什么这么快\n" +
		"source: https://open8gu.com/redis/fast/\n" +
		"tags:\n" +
		"  - Redis\n" +
		"  - 性能\n" +
		"---\n" +
		"## 回答话术\n" +
		"因为内存访问快。\n" +
		"## 问题详解\n" +
		"详细解释。\n"

	title, brief, detailed, link, _, tags := parse(t, "sample.md", content)

	assert.Equal(t, "Redis为什么这么快", title)
	assert.Equal(t, "https://open8gu.com/redis/fast/", link)
	assert.Equal(t, []string{"Redis", "性能"}, tags)
	assert.Equal(t, "因为内存访问快。", brief)
	assert.Equal(t, "详细解释。", detailed)
}

func TestParse_FrontMatterSourceList(t *testing.T) {
	content := "---\n" +
		"title: 'Kafka 如何保证顺序'\n" +
		"source:\n" +
		"  - \"https://example.com/kafka/order\"\n" +
		"  - https://example.com/other\n" +
		"tags: \"[Kafka, 顺序, Kafka]\"\n" +
		"---\n" +
		"正文。\n"

	title, _, _, link, _, tags := parse(t, "sample.md", content)

	assert.Equal(t, "Kafka 如何保证顺序", title)
	assert.Equal(t, "https://example.com/kafka/order", link)
	assert.Equal(t, []string{"Kafka", "顺序", "Kafka"}, tags)
}

func TestParse_FilenameFallback(t *testing.T) {
	content := "https://www.yuque.com/magestack/open8gu/thread-pool\n" +
		"线程池可以提升并发任务处理性能。\n\n" +
		"第二段补充内容。\n"

	title, brief, detailed, _, _, _ := parse(t, "1. 线程池有哪些应用场景？.md", content)

	assert.Equal(t, "线程池有哪些应用场景？", title)
	assert.Equal(t, "线程池可以提升并发任务处理性能。", brief)
	assert.Contains(t, detailed, "第二段补充内容。")
}

func TestParse_HeadingTitle(t *testing.T) {
	content := "# ✅ 3、 什么是  AQS\n\n" +
		"AQS 是抽象队列同步器。\n\n" +
		"## 问题详解\n" +
		"同步状态 + CLH 队列。\n"

	title, brief, detailed, link, _, _ := parse(t, "ignored.md", content)

	assert.Equal(t, "什么是 AQS", title)
	assert.Equal(t, "AQS 是抽象队列同步器。", brief)
	assert.Equal(t, "同步状态 + CLH 队列。", detailed)
	assert.Empty(t, link)
}

func TestParse_HeadingKeepsTrailingHash(t *testing.T) {
	title, brief, _, _, _, _ := parse(t, "csharp.md", "# C#\n正文")
	assert.Equal(t, "C#", title)
	assert.Equal(t, "正文", brief)

	title, _, _, _, _, _ = parse(t, "closed.md", "# 什么是 F# ##\n正文")
	assert.Equal(t, "什么是 F#", title)

	_, _, detailed, _, _, _ := parse(t, "sections.md", "# 标题\n## 问题详解 #\n详解内容。\n")
	assert.Equal(t, "详解内容。", detailed)
}

func TestParse_LeadingRuleWithoutPairsIsBody(t *testing.T) {
	title, brief, detailed, _, _, _ := parse(t, "hr.md", "---\n第一段正文。\n---\n第二段。")

	assert.Equal(t, "hr", title)
	assert.Equal(t, "第一段正文。", brief)
	assert.Contains(t, detailed, "第一段正文。")
	assert.Contains(t, detailed, "第二段。")
}

func TestParse_EmptyFrontMatterIsBody(t *testing.T) {
	_, brief, _, _, _, _ := parse(t, "empty.md", "---\n---\n正文。")
	assert.Equal(t, "正文。", brief)
}

func TestParse_LinkBeforeFencedMetadataIgnoresCodeComment(t *testing.T) {
	content := "https://www.yuque.com/magestack/open8gu/oegct3ayo729baqc\n" +
		"```\n" +
		"title: Redis宕机数据会丢失么？\n" +
		"tags: 持久化\n" +
		"```\n" +
		"## 问题详解\n" +
		"```conf\n" +
		"# Redis can create append-only base files in either RDB or AOF formats. Using\n" +
		"aof-use-rdb-preamble yes\n" +
		"```\n"

	title, _, detailed, link, _, tags := parse(t, "sample.md", content)

	assert.Equal(t, "Redis宕机数据会丢失么？", title)
	assert.Equal(t, "https://www.yuque.com/magestack/open8gu/oegct3ayo729baqc", link)
	assert.Equal(t, []string{"持久化"}, tags)
	assert.Contains(t, detailed, "aof-use-rdb-preamble yes")
}

func TestParse_CodeBlockWithoutPairsIsBody(t *testing.T) {
	content := "https://www.yuque.com/magestack/open8gu/aof\n" +
		"```conf\n" +
		"# Redis can create append-only base files in either RDB or AOF formats. Using\n" +
		"aof-use-rdb-preamble yes\n" +
		"```\n" +
		"混合持久化兼顾速度和完整性。\n"

	fields, err := Parse("混合持久化是什么？.md", []byte(content))
	require.NoError(t, err)

	assert.Equal(t, "混合持久化是什么？", fields.Title)
	assert.NotContains(t, fields.Title, "Redis can create")
	assert.Equal(t, "混合持久化兼顾速度和完整性。", fields.BriefAnswer)
	assert.Contains(t, fields.DetailedAnswer, "aof-use-rdb-preamble yes")
	assert.Empty(t, fields.Tags)
}

func TestParse_SourceLinkPrecedence(t *testing.T) {
	t.Run("business link beats metadata source", func(t *testing.T) {
		content := "---\nsource: https://open8gu.com/x\n---\n参考 https://blog.example.com/a\nhttps://www.yuque.com/a/b/c。\n"
		_, _, _, link, _, _ := parse(t, "a.md", content)
		assert.Equal(t, "https://www.yuque.com/a/b/c", link)
	})
	t.Run("metadata source beats loose link", func(t *testing.T) {
		content := "---\nsource: \"https://open8gu.com/x\"\n---\n参考 https://blog.example.com/a\n"
		_, _, _, link, _, _ := parse(t, "a.md", content)
		assert.Equal(t, "https://open8gu.com/x", link)
	})
	t.Run("non-http metadata source is ignored", func(t *testing.T) {
		content := "---\nsource: 语雀\n---\n见（https://blog.example.com/a），\n"
		_, _, _, link, _, _ := parse(t, "a.md", content)
		assert.Equal(t, "https://blog.example.com/a", link)
	})
	t.Run("links past the scan window are ignored", func(t *testing.T) {
		content := strings.Repeat("正文\n", linkScanLines) + "https://www.yuque.com/a/b/c\n"
		_, _, _, link, _, _ := parse(t, "a.md", content)
		assert.Empty(t, link)
	})
}

func TestParse_KeyPointsFormats(t *testing.T) {
	content := "## 关键要点\n" +
		"1. **可见性**：volatile 保证\n" +
		"2、 __有序性__\n" +
		"3) ~~原子性~~ 不保证\n" +
		"* *禁止重排*\n" +
		"- **  **\n" +
		"普通段落不算要点\n"

	_, _, _, _, keyPoints, _ := parse(t, "a.md", content)

	assert.Equal(t, []string{"可见性：volatile 保证", "有序性", "原子性 不保证", "禁止重排"}, keyPoints)
}

func TestParse_DuplicateSectionsAccumulate(t *testing.T) {
	content := "## 问题详解\n第一部分。\n## 回答话术\n简答。\n## 问题详解\n第二部分。\n"

	_, brief, detailed, _, _, _ := parse(t, "a.md", content)

	assert.Equal(t, "简答。", brief)
	assert.Equal(t, "第一部分。\n\n第二部分。", detailed)
}

func TestParse_EmptyDocumentFallsBackToPlaceholder(t *testing.T) {
	fields, err := Parse("/notes/Redis/✅ .md", []byte(""))
	require.NoError(t, err)

	assert.Equal(t, normalizer.PlaceholderTitle, fields.Title)
	assert.Empty(t, fields.BriefAnswer)
	assert.Empty(t, fields.DetailedAnswer)
	assert.NotNil(t, fields.KeyPoints)
	assert.NotNil(t, fields.Tags)
}

func TestParse_CRLFAndBOM(t *testing.T) {
	fields, err := Parse("a.md", []byte("\ufeff# 标题\r\n\r\n正文。\r\n"))
	require.NoError(t, err)

	assert.Equal(t, "标题", fields.Title)
	assert.Equal(t, "正文。", fields.BriefAnswer)
}

func TestParse_InvalidUTF8(t *testing.T) {
	_, err := Parse("bad.md", []byte{0xff, 0xfe, 0x00, 0x41})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrParse)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2. 什么是 MVCC？.md")
	require.NoError(t, os.WriteFile(path, []byte("https://www.yuque.com/a/mvcc\n多版本并发控制。\n"), 0o644))

	fields, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "什么是 MVCC？", fields.Title)
	assert.Equal(t, "https://www.yuque.com/a/mvcc", fields.SourceURL)

	_, err = ParseFile(filepath.Join(dir, "missing.md"))
	assert.ErrorIs(t, err, apperrors.ErrParse)
}
