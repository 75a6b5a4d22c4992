package gateway

import (
	"context"
	"sync"

	"assistbot/pkg/bus"
)

// senderQueues runs events for one session key strictly in arrival order while
// different senders proceed concurrently. A sender's worker exits once its
// queue drains.
type senderQueues struct {
	handle func(context.Context, bus.InboundEvent)

	mu     sync.Mutex
	queues map[string][]bus.InboundEvent
	wg     sync.WaitGroup
}

func newSenderQueues(handle func(context.Context, bus.InboundEvent)) *senderQueues {
	return &senderQueues{
		handle: handle,
		queues: make(map[string][]bus.InboundEvent),
	}
}

// Enqueue appends event to its sender's queue, starting a worker when none runs.
func (q *senderQueues) Enqueue(ctx context.Context, event bus.InboundEvent) {
	key := event.SessionKey()

	q.mu.Lock()
	pending, running := q.queues[key]
	q.queues[key] = append(pending, event)
	if !running {
		q.wg.Add(1)
	}
	q.mu.Unlock()

	if !running {
		go q.drain(ctx, key)
	}
}

func (q *senderQueues) drain(ctx context.Context, key string) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		pending := q.queues[key]
		if len(pending) == 0 {
			delete(q.queues, key)
			q.mu.Unlock()
			return
		}
		event := pending[0]
		q.queues[key] = pending[1:]
		q.mu.Unlock()

		q.handle(ctx, event)
	}
}

// Active returns the number of senders with queued or in-flight events.
func (q *senderQueues) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues)
}

// Wait blocks until every worker has drained.
func (q *senderQueues) Wait() {
	q.wg.Wait()
}
