package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/pkg/kafka"
)

type recordingPublisher struct {
	events []kafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event kafka.Event) error {
	p.events = append(p.events, event)
	return p.err
}

func TestRebuildNotifier_Publishes(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewRebuildNotifier(pub)
	rebuiltAt := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	err := n.Invalidate(context.Background(), ingestion.RebuildEvent{
		RunID: "run-1", Created: 120, Overwritten: 0, Categories: 6, RebuiltAt: rebuiltAt,
	})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, EventKey, pub.events[0].Key)

	payload, err := json.Marshal(pub.events[0].Value)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"run_id":"run-1","created":120,"overwritten":0,"categories":6,"rebuilt_at":"2026-10-19T08:00:00Z"}`,
		string(payload))
}

func TestRebuildNotifier_WrapsPublishError(t *testing.T) {
	boom := errors.New("leader not available")
	n := NewRebuildNotifier(&recordingPublisher{err: boom})

	err := n.Invalidate(context.Background(), ingestion.RebuildEvent{RunID: "run-2"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "kafka", n.Name())
}
