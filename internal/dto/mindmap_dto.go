package dto

import (
	"time"

	"github.com/google/uuid"

	"ai-mindmap-be/pkg/outline"
)

// GenerateMapRequest drives a full-map generation. At least one of
// Prompt, SourceURL or JobIds must be present: a prompt alone generates
// from the model's knowledge, a source URL is ingested first, job ids
// reference prior ingestions.
type GenerateMapRequest struct {
	Prompt     string      `json:"prompt,omitempty" validate:"omitempty,max=4000"`
	SourceURL  string      `json:"source_url,omitempty" validate:"omitempty,url"`
	SourceType string      `json:"source_type,omitempty" validate:"omitempty,oneof=youtube pdf web"`
	JobIds     []uuid.UUID `json:"job_ids,omitempty"`
	Provider   string      `json:"provider" validate:"required"`
	Model      string      `json:"model,omitempty"`
	Complexity string      `json:"complexity,omitempty" validate:"omitempty,oneof=simple moderate complex"`
}

type ExpandNodeRequest struct {
	Provider string `json:"provider" validate:"required"`
	Model    string `json:"model,omitempty"`
}

type RegenerateNodeRequest struct {
	Provider string `json:"provider" validate:"required"`
	Model    string `json:"model,omitempty"`
}

type SummarizeMapRequest struct {
	Provider string `json:"provider" validate:"required"`
	Model    string `json:"model,omitempty"`
}

type GenerationJobResponse struct {
	JobId        uuid.UUID  `json:"job_id"`
	MindmapId    *uuid.UUID `json:"mindmap_id,omitempty"`
	Operation    string     `json:"operation"`
	Provider     string     `json:"provider"`
	Status       string     `json:"status"`
	Summary      string     `json:"summary,omitempty"`
	ErrorType    string     `json:"error_type,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	TokensUsed   int        `json:"tokens_used"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

type MindMapResponse struct {
	Id        uuid.UUID        `json:"id"`
	Title     string           `json:"title"`
	Version   int              `json:"version"`
	Nodes     []*outline.Node  `json:"nodes"`
	Metadata  outline.Metadata `json:"metadata"`
	CreatedAt time.Time        `json:"created_at"`
}

// StreamEvent is one SSE/WS frame of the generation stream. Node events
// carry a 1-based running index in depth-first order.
type StreamEvent struct {
	Type     string                 `json:"type"`
	JobId    uuid.UUID              `json:"job_id"`
	Status   string                 `json:"status,omitempty"`
	Index    int                    `json:"index,omitempty"`
	Node     *outline.Node          `json:"node,omitempty"`
	Map      *MindMapResponse       `json:"map,omitempty"`
	Complete *StreamCompletePayload `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
	ErrType  string                 `json:"error_type,omitempty"`
}

// StreamCompletePayload is attached to the complete event.
type StreamCompletePayload struct {
	MindmapId  *uuid.UUID `json:"mindmap_id,omitempty"`
	Title      string     `json:"title,omitempty"`
	NodeCount  int        `json:"node_count"`
	TokensUsed int        `json:"tokens_used"`
}

// Stream event types, emitted in order: start, processing (repeated),
// streaming, node (repeated), map, complete. A failed stream emits a
// single error event instead and ends.
const (
	StreamEventStart      = "start"
	StreamEventProcessing = "processing"
	StreamEventStreaming  = "streaming"
	StreamEventNode       = "node"
	StreamEventMap        = "map"
	StreamEventComplete   = "complete"
	StreamEventError      = "error"
)
