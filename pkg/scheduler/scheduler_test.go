package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineSchedulerRunsSynchronously(t *testing.T) {
	s := NewInlineScheduler()

	var got Task
	s.Bind(func(ctx context.Context, task Task) error {
		got = task
		return nil
	})

	err := s.Enqueue(context.Background(), Task{Kind: TaskProcessIngestion, ID: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.ID)
}

func TestInlineSchedulerWithoutHandler(t *testing.T) {
	s := NewInlineScheduler()
	err := s.Enqueue(context.Background(), Task{ID: "job-1"})
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestQueueSchedulerDeliversTask(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	s := NewQueueScheduler(pubSub, "test.tasks")

	var mu sync.Mutex
	var received []Task
	s.Bind(func(ctx context.Context, task Task) error {
		mu.Lock()
		received = append(received, task)
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	require.NoError(t, s.Enqueue(ctx, Task{Kind: TaskProcessIngestion, ID: "job-42"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1 && received[0].ID == "job-42"
	}, 2*time.Second, 10*time.Millisecond)
}
