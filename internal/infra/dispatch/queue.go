package dispatch

import (
	"context"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
)

// Handler delivers one queued alert.
type Handler func(ctx context.Context, delivery evaluation.Delivery)

// Queue accepts deliveries and hands them to a handler off the caller's path.
type Queue interface {
	evaluation.Dispatcher
	SetHandler(handler Handler)
	Close()
}

// ImmediateQueue runs the handler on its own goroutine per delivery.
type ImmediateQueue struct {
	handler Handler
}

// NewImmediateQueue constructs the queue.
func NewImmediateQueue(handler Handler) *ImmediateQueue {
	return &ImmediateQueue{handler: handler}
}

// SetHandler replaces the handler used for queued deliveries.
func (q *ImmediateQueue) SetHandler(handler Handler) {
	q.handler = handler
}

// Dispatch invokes the handler asynchronously, detached from ctx cancellation.
func (q *ImmediateQueue) Dispatch(ctx context.Context, delivery evaluation.Delivery) error {
	if q.handler == nil {
		return nil
	}
	go q.handler(context.WithoutCancel(ctx), delivery)
	return nil
}

func (q *ImmediateQueue) Close() {}

var _ Queue = (*ImmediateQueue)(nil)
