package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudget(t *testing.T) {
	l := New(0, 2)
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "a.example"))
	require.NoError(t, l.Wait(ctx, "a.example"))
	assert.Error(t, l.Wait(ctx, "b.example"))

	stats := l.GetStats()
	assert.Equal(t, 2, stats["total_requests"])
	assert.Equal(t, map[string]int{"a.example": 2}, stats["per_host"])
}

func TestWaitCancelled(t *testing.T) {
	l := New(0.001, 0)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Wait(ctx, "h"))
	cancel()
	assert.Error(t, l.Wait(ctx, "h"))
}
