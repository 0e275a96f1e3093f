package entity

import (
	"time"

	"github.com/google/uuid"
)

// Generation job operations.
const (
	OperationGenerate   = "generate"
	OperationExpand     = "expand"
	OperationRegenerate = "regenerate"
	OperationSummarize  = "summarize"
)

// Generation job lifecycle. Streaming means node persistence has begun
// and readers may observe partial output. Completed and failed are
// terminal.
const (
	GenerationStatusPending    = "pending"
	GenerationStatusProcessing = "processing"
	GenerationStatusStreaming  = "streaming"
	GenerationStatusCompleted  = "completed"
	GenerationStatusFailed     = "failed"
)

// Complexity tiers that select the prompt template.
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

type GenerationJob struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId       uuid.UUID `gorm:"type:uuid;index"`
	MindmapId    *uuid.UUID
	NodeKey      string
	Operation    string
	Provider     string
	Model        string
	Complexity   string
	Prompt       string
	Status       string
	Summary      string
	ErrorType    string
	ErrorMessage string
	TokensUsed   int
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

func (j *GenerationJob) IsTerminal() bool {
	return j.Status == GenerationStatusCompleted || j.Status == GenerationStatusFailed
}
