package unitofwork

import (
	"context"
	"fmt"

	"ai-mindmap-be/internal/repository/contract"
	"ai-mindmap-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB // The active transaction, nil when outside a tx
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) IngestionJobRepository() contract.IngestionJobRepository {
	return implementation.NewIngestionJobRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ContentChunkRepository() contract.ContentChunkRepository {
	return implementation.NewContentChunkRepository(u.getDB())
}

func (u *UnitOfWorkImpl) MindMapRepository() contract.MindMapRepository {
	return implementation.NewMindMapRepository(u.getDB())
}

func (u *UnitOfWorkImpl) MapNodeRepository() contract.MapNodeRepository {
	return implementation.NewMapNodeRepository(u.getDB())
}

func (u *UnitOfWorkImpl) NodeCitationRepository() contract.NodeCitationRepository {
	return implementation.NewNodeCitationRepository(u.getDB())
}

func (u *UnitOfWorkImpl) GenerationJobRepository() contract.GenerationJobRepository {
	return implementation.NewGenerationJobRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ProviderKeyRepository() contract.ProviderKeyRepository {
	return implementation.NewProviderKeyRepository(u.getDB())
}
