package events

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagu-prep/questionbank/internal/ingestion"
	"github.com/bagu-prep/questionbank/pkg/metrics"
)

type recordingTarget struct {
	events []ingestion.RebuildEvent
	err    error
}

func (r *recordingTarget) Invalidate(_ context.Context, event ingestion.RebuildEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func TestInvalidationHandler_Applies(t *testing.T) {
	target := &recordingTarget{}
	m := metrics.New()
	handle := NewInvalidationHandler(target, m)

	err := handle(context.Background(), []byte(EventKey), []byte(`{"run_id":"run-7","created":3,"categories":2}`))
	require.NoError(t, err)
	require.Len(t, target.events, 1)
	assert.Equal(t, "run-7", target.events[0].RunID)
	assert.Equal(t, 3, target.events[0].Created)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvalidationEvents.WithLabelValues("applied")))
}

func TestInvalidationHandler_MalformedIsDropped(t *testing.T) {
	target := &recordingTarget{}
	m := metrics.New()

	err := NewInvalidationHandler(target, m)(context.Background(), nil, []byte("not json"))
	require.NoError(t, err)
	assert.Empty(t, target.events)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvalidationEvents.WithLabelValues("malformed")))
}

func TestInvalidationHandler_TargetFailure(t *testing.T) {
	boom := errors.New("redis down")
	m := metrics.New()

	err := NewInvalidationHandler(&recordingTarget{err: boom}, m)(context.Background(), nil, []byte(`{"run_id":"x"}`))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvalidationEvents.WithLabelValues("failed")))
}
