// Package events carries committed rebuilds over the cache-invalidate topic.
// RebuildNotifier announces them; NewInvalidationHandler applies them to a
// cache in another process.
package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/pkg/kafka"
)

// EventKey partitions every rebuild announcement onto the same partition.
const EventKey = "questionbank"

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// RebuildNotifier publishes a RebuildEvent after each committed rebuild.
type RebuildNotifier struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewRebuildNotifier returns a notifier that publishes rebuild events through p.
func NewRebuildNotifier(p Publisher) *RebuildNotifier {
	return &RebuildNotifier{
		publisher: p,
		logger:    slog.Default().With("component", "rebuild-notifier"),
	}
}

// Name identifies the notifier in invalidation logs.
func (n *RebuildNotifier) Name() string { return "kafka" }

// Invalidate publishes event.
func (n *RebuildNotifier) Invalidate(ctx context.Context, event ingestion.RebuildEvent) error {
	if err := n.publisher.Publish(ctx, kafka.Event{Key: EventKey, Value: event}); err != nil {
		return fmt.Errorf("publishing rebuild event: %w", err)
	}
	n.logger.Info("rebuild event published", "run_id", event.RunID, "created", event.Created)
	return nil
}
