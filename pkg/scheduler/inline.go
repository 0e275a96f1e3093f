package scheduler

import "context"

// InlineScheduler runs every task synchronously in the caller's
// goroutine. It is the fallback when no queue is configured, and doubles
// as the test implementation.
type InlineScheduler struct {
	handler Handler
}

var _ Scheduler = &InlineScheduler{}

func NewInlineScheduler() *InlineScheduler {
	return &InlineScheduler{}
}

// Bind attaches the task handler. Called once at bootstrap, after the
// services that handle tasks exist.
func (s *InlineScheduler) Bind(handler Handler) {
	s.handler = handler
}

func (s *InlineScheduler) Enqueue(ctx context.Context, task Task) error {
	if s.handler == nil {
		return ErrNoHandler
	}
	return s.handler(ctx, task)
}
