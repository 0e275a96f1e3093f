package unitofwork

import (
	"context"

	"ai-mindmap-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	IngestionJobRepository() contract.IngestionJobRepository
	ContentChunkRepository() contract.ContentChunkRepository
	MindMapRepository() contract.MindMapRepository
	MapNodeRepository() contract.MapNodeRepository
	NodeCitationRepository() contract.NodeCitationRepository
	GenerationJobRepository() contract.GenerationJobRepository
	ProviderKeyRepository() contract.ProviderKeyRepository
}
