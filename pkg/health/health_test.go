package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func up(context.Context) error { return nil }

func down(context.Context) error { return errors.New("connection refused") }

func TestChecker_AllUp(t *testing.T) {
	c := NewChecker()
	c.Register("store", PingCheck(up, false))
	c.Register("redis", PingCheck(up, true))

	report := c.Run(context.Background())

	assert.Equal(t, StatusUp, report.Status)
	assert.Equal(t, []string{"redis", "store"}, report.Names())
	assert.NotEmpty(t, report.Components["store"].Latency)
}

func TestChecker_OptionalFailureDegrades(t *testing.T) {
	c := NewChecker()
	c.Register("store", PingCheck(up, false))
	c.Register("kafka", PingCheck(down, true))

	report := c.Run(context.Background())

	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "connection refused", report.Components["kafka"].Message)
}

func TestChecker_RequiredFailureIsDown(t *testing.T) {
	c := NewChecker()
	c.Register("store", PingCheck(down, false))
	c.Register("redis", PingCheck(down, true))

	report := c.Run(context.Background())

	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, StatusDegraded, report.Components["redis"].Status)
}
