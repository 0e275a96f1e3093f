package implementation

import (
	"context"

	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/mapper"
	"ai-mindmap-be/internal/model"
	"ai-mindmap-be/internal/repository/contract"
	"ai-mindmap-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NodeCitationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.NodeCitationMapper
}

func NewNodeCitationRepository(db *gorm.DB) contract.NodeCitationRepository {
	return &NodeCitationRepositoryImpl{
		db:     db,
		mapper: mapper.NewNodeCitationMapper(),
	}
}

func (r *NodeCitationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *NodeCitationRepositoryImpl) CreateBatch(ctx context.Context, citations []*entity.NodeCitation) error {
	if len(citations) == 0 {
		return nil
	}
	models := r.mapper.ToModels(citations)
	if err := r.db.WithContext(ctx).CreateInBatches(models, 100).Error; err != nil {
		return err
	}
	for i, m := range models {
		*citations[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *NodeCitationRepositoryImpl) DeleteByMapNodeIds(ctx context.Context, mapNodeIds []uuid.UUID) error {
	if len(mapNodeIds) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("map_node_id IN ?", mapNodeIds).Delete(&model.NodeCitation{}).Error
}

func (r *NodeCitationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.NodeCitation, error) {
	var models []*model.NodeCitation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
