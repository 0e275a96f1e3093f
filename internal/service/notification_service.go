package service

import (
	"context"

	"ai-mindmap-be/internal/pkg/logger"
	"ai-mindmap-be/internal/websocket"
	"ai-mindmap-be/pkg/events"
	pktNats "ai-mindmap-be/pkg/nats"

	"github.com/google/uuid"
)

// PushDelivery is how job lifecycle updates reach connected clients.
// Implemented by the websocket hub.
type PushDelivery interface {
	Send(userID uuid.UUID, msg websocket.PushMessage)
}

// NotificationService bridges the event bus to the websocket hub: every
// ingestion or generation event addressed to a user becomes a push.
type NotificationService struct {
	subscriber *pktNats.Subscriber
	delivery   PushDelivery
	logger     logger.ILogger
}

func NewNotificationService(sub *pktNats.Subscriber, delivery PushDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus with a durable consumer.
func (s *NotificationService) Start() {
	if s.subscriber == nil {
		s.logger.Warn("notification", "no event subscriber configured, pushes disabled", nil)
		return
	}
	if err := s.subscriber.Subscribe("events.>", "push-worker", s.handleEvent); err != nil {
		s.logger.Error("notification", "failed to start event subscriber", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info("notification", "push bridge started", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	userIDStr, _ := payload["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		// Event without a user target, nothing to push.
		return nil
	}

	switch event.EventType() {
	case events.TypeIngestionCompleted, events.TypeIngestionFailed,
		events.TypeMapGenerated, events.TypeGenerationFailed:
		s.delivery.Send(userID, websocket.PushMessage{
			Type:      event.EventType(),
			Data:      payload,
			Timestamp: event.Timestamp(),
		})
	default:
		s.logger.Debug("notification", "ignoring event type", map[string]interface{}{"type": event.EventType()})
	}
	return nil
}
