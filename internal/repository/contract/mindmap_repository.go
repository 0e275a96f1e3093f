package contract

import (
	"context"

	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MindMapRepository interface {
	Create(ctx context.Context, mindmap *entity.MindMap) error
	Update(ctx context.Context, mindmap *entity.MindMap) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MindMap, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MindMap, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type MapNodeRepository interface {
	CreateBatch(ctx context.Context, nodes []*entity.MapNode) error
	Update(ctx context.Context, node *entity.MapNode) error
	DeleteByMindmapId(ctx context.Context, mindmapId uuid.UUID) error
	DeleteByNodeKeys(ctx context.Context, mindmapId uuid.UUID, nodeKeys []string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MapNode, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MapNode, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type NodeCitationRepository interface {
	CreateBatch(ctx context.Context, citations []*entity.NodeCitation) error
	DeleteByMapNodeIds(ctx context.Context, mapNodeIds []uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.NodeCitation, error)
}
