package implementation

import (
	"context"
	"errors"

	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/mapper"
	"ai-mindmap-be/internal/model"
	"ai-mindmap-be/internal/repository/contract"
	"ai-mindmap-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MapNodeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MapNodeMapper
}

func NewMapNodeRepository(db *gorm.DB) contract.MapNodeRepository {
	return &MapNodeRepositoryImpl{
		db:     db,
		mapper: mapper.NewMapNodeMapper(),
	}
}

func (r *MapNodeRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *MapNodeRepositoryImpl) CreateBatch(ctx context.Context, nodes []*entity.MapNode) error {
	if len(nodes) == 0 {
		return nil
	}
	models := r.mapper.ToModels(nodes)
	if err := r.db.WithContext(ctx).CreateInBatches(models, 100).Error; err != nil {
		return err
	}
	for i, m := range models {
		*nodes[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *MapNodeRepositoryImpl) Update(ctx context.Context, node *entity.MapNode) error {
	m := r.mapper.ToModel(node)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*node = *r.mapper.ToEntity(m)
	return nil
}

func (r *MapNodeRepositoryImpl) DeleteByMindmapId(ctx context.Context, mindmapId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("mindmap_id = ?", mindmapId).Delete(&model.MapNode{}).Error
}

func (r *MapNodeRepositoryImpl) DeleteByNodeKeys(ctx context.Context, mindmapId uuid.UUID, nodeKeys []string) error {
	if len(nodeKeys) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("mindmap_id = ? AND node_key IN ?", mindmapId, nodeKeys).
		Delete(&model.MapNode{}).Error
}

func (r *MapNodeRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MapNode, error) {
	var m model.MapNode
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *MapNodeRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MapNode, error) {
	var models []*model.MapNode
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *MapNodeRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.MapNode{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
