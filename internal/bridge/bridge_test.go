package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/heterosync/dbsync/internal/model"
	"github.com/heterosync/dbsync/internal/synclog"
)

func TestBridge_EnqueueAndConsume(t *testing.T) {
	var mu sync.Mutex
	var seen []model.ChangeEvent

	handler := func(ctx context.Context, event model.ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, event)
		return nil
	}

	b := New(handler, synclog.New(zapcore.InfoLevel))
	ctx := context.Background()
	b.Start(ctx)

	raw := []byte(`{"payload":{"op":"c","after":{"id":1},"source":{"table":"t"}}}`)
	require.NoError(t, b.Enqueue(ctx, raw))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, 5*time.Millisecond)

	b.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "t", seen[0].TableName)
}

func TestBridge_EnqueueBlocksWhenContextDone(t *testing.T) {
	handler := func(ctx context.Context, event model.ChangeEvent) error { return nil }
	b := New(handler, synclog.New(zapcore.InfoLevel))

	// Fill the queue without starting a consumer so Enqueue would block.
	for i := 0; i < QueueCapacity; i++ {
		require.NoError(t, b.Enqueue(context.Background(), []byte("{}")))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Enqueue(ctx, []byte("{}"))
	assert.ErrorIs(t, err, context.Canceled)
}
