package queue

import (
	"context"
	"time"

	"lending/core"
)

type memoryQueue struct {
	events chan *core.DepositEvent
	poll   time.Duration
}

// NewMemory buffered in-process deposit queue
func NewMemory(size int, poll time.Duration) core.DepositQueue {
	if size <= 0 {
		size = 1024
	}

	if poll <= 0 {
		poll = time.Second
	}

	return &memoryQueue{
		events: make(chan *core.DepositEvent, size),
		poll:   poll,
	}
}

func (q *memoryQueue) Push(ctx context.Context, event *core.DepositEvent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.events <- event:
		return nil
	}
}

func (q *memoryQueue) Pop(ctx context.Context) (*core.DepositEvent, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case event := <-q.events:
		return event, nil
	case <-time.After(q.poll):
		return nil, core.ErrQueueEmpty
	}
}
