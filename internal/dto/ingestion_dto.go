package dto

import (
	"time"

	"ai-mindmap-be/pkg/outline"

	"github.com/google/uuid"
)

type CreateIngestionRequest struct {
	SourceType string `json:"source_type" validate:"required,oneof=text youtube pdf web websearch"`

	// Source-specific payload. Which fields are required depends on
	// source_type, the connector validates the combination.
	Text       string `json:"text,omitempty"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
	VideoID    string `json:"video_id,omitempty"`
	Filename   string `json:"filename,omitempty"`
	FileURL    string `json:"file_url,omitempty"`
	Query      string `json:"query,omitempty"`
	MaxResults int    `json:"max_results,omitempty" validate:"omitempty,min=1,max=10"`
}

type CreateIngestionResponse struct {
	JobId  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

type IngestionStatusResponse struct {
	JobId        uuid.UUID  `json:"job_id"`
	SourceType   string     `json:"source_type"`
	Status       string     `json:"status"`
	Title        string     `json:"title,omitempty"`
	ChunkCount   int        `json:"chunk_count"`
	WordCount    int        `json:"word_count"`
	ErrorType    string     `json:"error_type,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

type ChunkResponse struct {
	Id             uuid.UUID `json:"id"`
	ChunkIndex     int       `json:"chunk_index"`
	TotalChunks    int       `json:"total_chunks"`
	Text           string    `json:"text"`
	TokensEstimate int       `json:"tokens_estimate"`
	SourceType     string    `json:"source_type"`
	Title          string    `json:"title,omitempty"`
	URL            string    `json:"url,omitempty"`
	Author         string    `json:"author,omitempty"`
	Timestamp      string    `json:"timestamp,omitempty"`
}

type IngestionContentResponse struct {
	JobId     uuid.UUID          `json:"job_id"`
	Status    string             `json:"status"`
	Summary   string             `json:"summary,omitempty"`
	WordCount int                `json:"word_count"`
	Citations []outline.Citation `json:"citations"`
	Chunks    []ChunkResponse    `json:"chunks"`
}
