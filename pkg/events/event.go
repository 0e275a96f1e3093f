package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "INGESTION_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the common implementation used by the typed constructors
// below.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeIngestionCompleted = "INGESTION_COMPLETED"
	TypeIngestionFailed    = "INGESTION_FAILED"
	TypeMapGenerated       = "MAP_GENERATED"
	TypeGenerationFailed   = "GENERATION_FAILED"
)

// NewIngestionCompleted is emitted once an ingestion job reaches the
// completed state and its chunks are persisted.
func NewIngestionCompleted(userID, jobID, sourceType string, chunkCount int) Event {
	return BaseEvent{
		Type: TypeIngestionCompleted,
		Data: map[string]interface{}{
			"user_id":     userID,
			"job_id":      jobID,
			"source_type": sourceType,
			"chunk_count": chunkCount,
		},
		OccurredAt: time.Now(),
	}
}

// NewIngestionFailed is emitted when an ingestion job lands in its
// terminal failed state.
func NewIngestionFailed(userID, jobID, sourceType, reason string) Event {
	return BaseEvent{
		Type: TypeIngestionFailed,
		Data: map[string]interface{}{
			"user_id":     userID,
			"job_id":      jobID,
			"source_type": sourceType,
			"reason":      reason,
		},
		OccurredAt: time.Now(),
	}
}

// NewMapGenerated is emitted when a generation job completes and a mind
// map version is persisted.
func NewMapGenerated(userID, jobID, mindmapID string, nodeCount int) Event {
	return BaseEvent{
		Type: TypeMapGenerated,
		Data: map[string]interface{}{
			"user_id":    userID,
			"job_id":     jobID,
			"mindmap_id": mindmapID,
			"node_count": nodeCount,
		},
		OccurredAt: time.Now(),
	}
}

// NewGenerationFailed is emitted when a generation job fails.
func NewGenerationFailed(userID, jobID, operation, reason string) Event {
	return BaseEvent{
		Type: TypeGenerationFailed,
		Data: map[string]interface{}{
			"user_id":   userID,
			"job_id":    jobID,
			"operation": operation,
			"reason":    reason,
		},
		OccurredAt: time.Now(),
	}
}
