package events

import (
	"context"
	"log/slog"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/pkg/kafka"
	"github.com/bagu-prep/questionbank/pkg/metrics"
)

// Target drops derived state for one rebuild. *cache.QuestionCache
// satisfies it.
type Target interface {
	Invalidate(ctx context.Context, event ingestion.RebuildEvent) error
}

// NewInvalidationHandler applies every consumed rebuild event to target.
// Malformed messages are counted and committed so they are not redelivered.
func NewInvalidationHandler(target Target, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "invalidation-handler")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.RebuildEvent](value)
		if err != nil {
			m.InvalidationEvents.WithLabelValues("malformed").Inc()
			logger.Warn("dropping malformed rebuild event", "key", string(key), "error", err)
			return nil
		}
		if err := target.Invalidate(ctx, event); err != nil {
			m.InvalidationEvents.WithLabelValues("failed").Inc()
			return err
		}
		m.InvalidationEvents.WithLabelValues("applied").Inc()
		logger.Info("rebuild event applied", "run_id", event.RunID, "rebuilt_at", event.RebuiltAt)
		return nil
	}
}
