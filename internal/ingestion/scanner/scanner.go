// Package scanner walks a source root laid out as category/[sub-category/]file.md
// and yields one entry per question file.
package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/internal/ingestion/normalizer"
	apperrors "github.com/bagu-prep/questionbank/pkg/errors"
)

// Scanner enumerates Markdown files under a source root.
type Scanner struct {
	skip func(stem string) bool
}

// New returns a Scanner that skips the built-in manual/overview documents.
func New() *Scanner {
	return &Scanner{skip: normalizer.IsSkipped}
}

// NewWithBlockList returns a Scanner that skips the given file stems instead
// of the built-in list.
func NewWithBlockList(stems []string) *Scanner {
	blocked := make(map[string]struct{}, len(stems))
	for _, stem := range stems {
		blocked[strings.TrimSpace(stem)] = struct{}{}
	}
	return &Scanner{skip: func(stem string) bool {
		_, ok := blocked[strings.TrimSpace(stem)]
		return ok
	}}
}

// Scan returns entries sorted by path. A category or sub-category that
// cannot be read is reported in problems and the walk continues. It fails
// only when root is missing, is not a directory or cannot be listed.
func (s *Scanner) Scan(root string) (entries []ingestion.Entry, problems []string, err error) {
	info, err := os.Stat(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, apperrors.Newf(apperrors.ErrPrecondition, apperrors.ExitPrecondition, "source root %s does not exist", root)
	}
	if err != nil {
		return nil, nil, apperrors.Newf(apperrors.ErrPrecondition, apperrors.ExitPrecondition, "stat %s: %v", root, err)
	}
	if !info.IsDir() {
		return nil, nil, apperrors.Newf(apperrors.ErrPrecondition, apperrors.ExitPrecondition, "source root %s is not a directory", root)
	}

	categories, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", root, err)
	}
	for _, category := range categories {
		if !category.IsDir() || hidden(category.Name()) {
			continue
		}
		categoryDir := filepath.Join(root, category.Name())
		children, err := os.ReadDir(categoryDir)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", categoryDir, err))
			continue
		}
		for _, child := range children {
			if hidden(child.Name()) {
				continue
			}
			if !child.IsDir() {
				if s.wanted(child.Name()) {
					entries = append(entries, ingestion.Entry{
						Path:        filepath.Join(categoryDir, child.Name()),
						RawCategory: category.Name(),
					})
				}
				continue
			}
			subDir := filepath.Join(categoryDir, child.Name())
			files, err := os.ReadDir(subDir)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", subDir, err))
				continue
			}
			for _, file := range files {
				if file.IsDir() || hidden(file.Name()) || !s.wanted(file.Name()) {
					continue
				}
				entries = append(entries, ingestion.Entry{
					Path:           filepath.Join(subDir, file.Name()),
					RawCategory:    category.Name(),
					RawSubCategory: child.Name(),
				})
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, problems, nil
}

func (s *Scanner) wanted(name string) bool {
	ext := filepath.Ext(name)
	if !strings.EqualFold(ext, ".md") {
		return false
	}
	return !s.skip(strings.TrimSuffix(name, ext))
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
