package contract

import (
	"context"

	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ContentChunkRepository interface {
	CreateBatch(ctx context.Context, chunks []*entity.ContentChunk) error
	DeleteByJobId(ctx context.Context, jobId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ContentChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
