package entity

import (
	"time"

	"ai-mindmap-be/pkg/outline"

	"github.com/google/uuid"
)

// Ingestion job lifecycle. Completed and failed are terminal, a job is
// never retried once it lands in either.
const (
	IngestionStatusPending    = "pending"
	IngestionStatusProcessing = "processing"
	IngestionStatusCompleted  = "completed"
	IngestionStatusFailed     = "failed"
)

type IngestionJob struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId       uuid.UUID `gorm:"type:uuid;index"`
	SourceType   string
	Status       string
	ContentHash  string
	Title        string
	SourceURL    string
	Payload      []byte
	Summary      string
	Citations    []outline.Citation
	ErrorType    string
	ErrorMessage string
	ChunkCount   int
	WordCount    int
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
	IsDeleted    bool
}

func (j *IngestionJob) IsTerminal() bool {
	return j.Status == IngestionStatusCompleted || j.Status == IngestionStatusFailed
}

type ContentChunk struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobId          uuid.UUID `gorm:"type:uuid;index"`
	ChunkIndex     int
	TotalChunks    int
	Text           string
	TokensEstimate int
	SourceType     string
	Title          string
	URL            string
	Author         string
	Timestamp      string
	Embedding      []float32
	CreatedAt      time.Time
}
