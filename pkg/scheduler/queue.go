package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// QueueScheduler publishes tasks onto a watermill topic consumed by a
// single worker loop. The gochannel pub/sub keeps delivery in-process;
// the Scheduler interface keeps callers unaware of that.
type QueueScheduler struct {
	pubSub  *gochannel.GoChannel
	topic   string
	handler Handler
}

var _ Scheduler = &QueueScheduler{}

func NewQueueScheduler(pubSub *gochannel.GoChannel, topic string) *QueueScheduler {
	return &QueueScheduler{
		pubSub: pubSub,
		topic:  topic,
	}
}

// Bind attaches the task handler. Must be called before Start.
func (s *QueueScheduler) Bind(handler Handler) {
	s.handler = handler
}

func (s *QueueScheduler) Enqueue(ctx context.Context, task Task) error {
	if s.handler == nil {
		return ErrNoHandler
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return s.pubSub.Publish(s.topic, message.NewMessage(watermill.NewUUID(), payload))
}

// Start subscribes the worker loop. Invalid payloads are acked to avoid
// infinite redelivery; handler failures are acked too, because job-level
// failure is terminal and recorded on the job itself, not retried here.
func (s *QueueScheduler) Start(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *QueueScheduler) processMessage(ctx context.Context, msg *message.Message) {
	var task Task
	if err := json.Unmarshal(msg.Payload, &task); err != nil {
		log.Printf("[ERROR] Scheduler: failed to unmarshal task: %v", err)
		msg.Ack()
		return
	}

	if err := s.handler(ctx, task); err != nil {
		log.Printf("[ERROR] Scheduler: task %s/%s failed: %v", task.Kind, task.ID, err)
	}
	msg.Ack()
}
