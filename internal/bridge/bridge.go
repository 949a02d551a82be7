// Package bridge implements the change-stream bridge (C9): a bounded
// FIFO of raw JSON envelopes handed off by an opaque upstream CDC
// producer, decoded and forwarded to a registered handler by a single
// consumer goroutine.
package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heterosync/dbsync/internal/model"
	"github.com/heterosync/dbsync/internal/synclog"
)

// QueueCapacity is the bounded FIFO's capacity, chosen per spec §4.7
// to absorb short bursts without unbounded memory growth.
const QueueCapacity = 10000

// dequeueTimeout bounds how long the consumer blocks between polls of
// the running flag, per spec §5's 1s timeout requirement.
const dequeueTimeout = time.Second

// Handler processes one decoded change event. Errors are logged by
// the bridge but never stop the consumer loop — a single bad or
// unprocessable event must not wedge the pipeline.
type Handler func(ctx context.Context, event model.ChangeEvent) error

// Bridge owns the bounded queue and the single consumer goroutine.
type Bridge struct {
	queue   chan []byte
	handler Handler
	log     *synclog.Logger

	running int32
	wg      sync.WaitGroup
}

// New constructs a Bridge with the given handler. Start must be
// called to begin consuming.
func New(handler Handler, log *synclog.Logger) *Bridge {
	return &Bridge{
		queue:   make(chan []byte, QueueCapacity),
		handler: handler,
		log:     log.Named("bridge"),
	}
}

// Enqueue is the upstream producer's callback. It accepts a raw JSON
// string (never a structured object, to decouple producer and
// consumer threading models) and blocks if the queue is full,
// providing the bounded-enqueue backpressure spec §4.7 requires.
func (b *Bridge) Enqueue(ctx context.Context, raw []byte) error {
	select {
	case b.queue <- raw:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the consumer goroutine.
func (b *Bridge) Start(ctx context.Context) {
	atomic.StoreInt32(&b.running, 1)
	b.wg.Add(1)
	go b.consume(ctx)
}

func (b *Bridge) consume(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case raw := <-b.queue:
			b.dispatch(ctx, raw)
		case <-time.After(dequeueTimeout):
			if atomic.LoadInt32(&b.running) == 0 && len(b.queue) == 0 {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bridge) dispatch(ctx context.Context, raw []byte) {
	event, err := decodeEnvelope(raw)
	if err != nil {
		b.log.Errorf("failed to decode envelope: %v", err)
		return
	}
	if err := b.handler(ctx, event); err != nil {
		b.log.Errorf("handler error for table %s: %v", event.TableName, err)
	}
}

// Stop signals the consumer to drain the remaining queue and exit,
// then blocks until it has. It does not discard queued envelopes;
// it lets the consumer finish draining what's already enqueued before
// returning.
func (b *Bridge) Stop() {
	atomic.StoreInt32(&b.running, 0)
	b.wg.Wait()
}
