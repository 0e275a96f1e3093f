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

type IngestionJobRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.IngestionJobMapper
}

func NewIngestionJobRepository(db *gorm.DB) contract.IngestionJobRepository {
	return &IngestionJobRepositoryImpl{
		db:     db,
		mapper: mapper.NewIngestionJobMapper(),
	}
}

func (r *IngestionJobRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *IngestionJobRepositoryImpl) Create(ctx context.Context, job *entity.IngestionJob) error {
	m := r.mapper.ToModel(job)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*job = *r.mapper.ToEntity(m)
	return nil
}

func (r *IngestionJobRepositoryImpl) Update(ctx context.Context, job *entity.IngestionJob) error {
	m := r.mapper.ToModel(job)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*job = *r.mapper.ToEntity(m)
	return nil
}

func (r *IngestionJobRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.IngestionJob{}, id).Error
}

func (r *IngestionJobRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.IngestionJob, error) {
	var m model.IngestionJob
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *IngestionJobRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IngestionJob, error) {
	var models []*model.IngestionJob
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *IngestionJobRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.IngestionJob{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
