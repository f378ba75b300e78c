// Package validator enforces the source-link policy a collection pass runs
// under and returns per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/internal/ingestion/normalizer"
	apperrors "github.com/bagu-prep/questionbank/pkg/errors"
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrValidation
}

// ValidateCandidate checks parsed fields against policy and returns a
// ValidationError when a required link is missing or off-domain.
func ValidateCandidate(fields ingestion.ParsedFields, policy ingestion.Policy) error {
	errs := make(map[string]string)

	link := strings.TrimSpace(fields.SourceURL)
	switch {
	case link == "" && (policy.RequireSourceURL || policy.RequireBusinessSource):
		errs["source_url"] = "missing source_url"
	case link != "" && policy.RequireBusinessSource && !normalizer.IsBusinessURL(link):
		errs["source_url"] = fmt.Sprintf("%s is not a recognised business source", link)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
