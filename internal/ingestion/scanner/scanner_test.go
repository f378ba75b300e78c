package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	apperrors "github.com/bagu-prep/questionbank/pkg/errors"
)

func writeFile(t *testing.T, root string, parts ...string) {
	t.Helper()
	path := filepath.Join(append([]string{root}, parts...)...)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestScan_TwoLevelConvention(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Redis", "b.md")
	writeFile(t, root, "Redis", "持久化", "a.md")
	writeFile(t, root, "Java并发", "线程池.md")
	writeFile(t, root, "Java并发", "notes.txt")
	writeFile(t, root, "Java并发", "八股文 MOC.md")
	writeFile(t, root, "Java并发", "JUC", "八股准备手册.md")
	writeFile(t, root, "Java并发", "JUC", "deep", "ignored.md")
	writeFile(t, root, ".obsidian", "workspace.md")
	writeFile(t, root, "Redis", ".trash", "old.md")
	writeFile(t, root, "top-level.md")

	entries, _, err := New().Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []ingestion.Entry{
		{Path: filepath.Join(root, "Java并发", "线程池.md"), RawCategory: "Java并发"},
		{Path: filepath.Join(root, "Redis", "b.md"), RawCategory: "Redis"},
		{Path: filepath.Join(root, "Redis", "持久化", "a.md"), RawCategory: "Redis", RawSubCategory: "持久化"},
	}, entries)
}

func TestScan_CustomBlockList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Redis", "README.md")
	writeFile(t, root, "Redis", "八股文 MOC.md")

	entries, _, err := NewWithBlockList([]string{"README"}).Scan(root)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Join(root, "Redis", "八股文 MOC.md"), entries[0].Path)
}

func TestScan_EmptyRoot(t *testing.T) {
	entries, _, err := New().Scan(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestScan_Preconditions(t *testing.T) {
	root := t.TempDir()

	_, _, err := New().Scan(filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)
	assert.Equal(t, apperrors.ExitPrecondition, apperrors.ExitCode(err))

	writeFile(t, root, "file.md")
	_, _, err = New().Scan(filepath.Join(root, "file.md"))
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)
}

func TestScan_UnreadableSubDirIsReported(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	writeFile(t, root, "Redis", "b.md")
	writeFile(t, root, "Redis", "持久化", "a.md")
	writeFile(t, root, "Java并发", "线程池.md")
	locked := filepath.Join(root, "Redis", "持久化")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	entries, problems, err := New().Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []ingestion.Entry{
		{Path: filepath.Join(root, "Java并发", "线程池.md"), RawCategory: "Java并发"},
		{Path: filepath.Join(root, "Redis", "b.md"), RawCategory: "Redis"},
	}, entries)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], locked)
}

func TestScan_UnreadableCategoryIsReported(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	writeFile(t, root, "Redis", "b.md")
	writeFile(t, root, "Java并发", "线程池.md")
	locked := filepath.Join(root, "Redis")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	entries, problems, err := New().Scan(root)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "Java并发", entries[0].RawCategory)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], locked)
}
