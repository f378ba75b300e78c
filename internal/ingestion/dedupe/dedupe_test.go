package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/internal/ingestion/normalizer"
)

func candidate(source, path, category, title, answer string) ingestion.Candidate {
	return ingestion.Candidate{
		SourceName:   source,
		FilePath:     path,
		CategoryName: category,
		Title:        title,
		DedupeKey:    normalizer.DedupeKey(title),
		ParsedFields: ingestion.ParsedFields{Title: title, DetailedAnswer: answer},
	}
}

func TestSelect_HigherPriorityWinsRegardlessOfOrder(t *testing.T) {
	feishu := candidate("feishu", "/f/Java并发/1.md", "并发编程", "1. 线程池有哪些应用场景？", "飞书版本内容，比语雀更长更长更长。")
	yuque := candidate("yuque", "/y/并发编程/a.md", "并发编程", "线程池有哪些应用场景?", "语雀版本。")

	for _, input := range [][]ingestion.Candidate{{feishu, yuque}, {yuque, feishu}} {
		selected, summary := Select(input)
		require.Len(t, selected, 1)
		assert.Equal(t, "yuque", selected[0].SourceName)
		assert.Equal(t, 2, summary.ParsedCandidates)
		assert.Equal(t, 1, summary.SelectedCandidates)
		assert.Equal(t, 1, summary.DedupedCount)
		assert.Equal(t, map[string]int{"并发编程": 1}, summary.CategoryCounts)
	}
}

func TestSelect_UnrankedSourceLoses(t *testing.T) {
	local := candidate("local", "/a.md", "Redis", "Redis 为什么快", "很长很长很长很长的回答")
	feishu := candidate("feishu", "/b.md", "Redis", "Redis 为什么快", "短")

	selected, _ := Select([]ingestion.Candidate{local, feishu})
	require.Len(t, selected, 1)
	assert.Equal(t, "feishu", selected[0].SourceName)
}

func TestSelect_LongerAnswerBreaksPriorityTie(t *testing.T) {
	short := candidate("yuque", "/a.md", "Redis", "Redis 为什么快", "内存。")
	long := candidate("yuque", "/b.md", "Redis", "redis 为什么快？", "内存访问快，单线程无锁。")

	selected, _ := Select([]ingestion.Candidate{short, long})
	require.Len(t, selected, 1)
	assert.Equal(t, "/b.md", selected[0].FilePath)
}

func TestSelect_FullTieIsStable(t *testing.T) {
	a := candidate("yuque", "/a.md", "Redis", "Redis 为什么快", "相同")
	b := candidate("yuque", "/b.md", "Redis", "Redis 为什么快", "相同")

	for i := 0; i < 5; i++ {
		selected, _ := Select([]ingestion.Candidate{b, a})
		require.Len(t, selected, 1)
		assert.Equal(t, "/a.md", selected[0].FilePath)
	}
}

func TestSelect_DifferentCategoriesAreDistinct(t *testing.T) {
	selected, summary := Select([]ingestion.Candidate{
		candidate("yuque", "/a.md", "Redis", "什么是持久化", "x"),
		candidate("yuque", "/b.md", "MySQL", "什么是持久化", "x"),
		candidate("yuque", "/c.md", "MySQL", "什么是 MVCC", "x"),
	})

	require.Len(t, selected, 3)
	assert.Equal(t, []string{"MySQL", "MySQL", "Redis"},
		[]string{selected[0].CategoryName, selected[1].CategoryName, selected[2].CategoryName})
	assert.Equal(t, 0, summary.DedupedCount)
	assert.Equal(t, map[string]int{"MySQL": 2, "Redis": 1}, summary.CategoryCounts)
}

func TestSelect_Empty(t *testing.T) {
	selected, summary := Select(nil)
	assert.Empty(t, selected)
	assert.Equal(t, 0, summary.SelectedCandidates)
}
