// Package scheduler abstracts the background task queue used for slow
// ingestion work. Two implementations exist: a watermill-backed queue and
// an inline runner that executes tasks synchronously. Delivery is
// best-effort at-least-once; callers fall back to inline processing when
// enqueueing fails.
package scheduler

import (
	"context"
	"errors"
)

// Task identifies one unit of background work by kind and subject id.
type Task struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Task kinds.
const (
	TaskProcessIngestion = "ingestion.process"
)

// Handler processes one task.
type Handler func(ctx context.Context, task Task) error

// Scheduler enqueues tasks for background execution.
type Scheduler interface {
	Enqueue(ctx context.Context, task Task) error
}

var ErrNoHandler = errors.New("scheduler has no bound handler")
