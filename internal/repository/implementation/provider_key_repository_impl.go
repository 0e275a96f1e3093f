package implementation

import (
	"context"
	"errors"

	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/mapper"
	"ai-mindmap-be/internal/model"
	"ai-mindmap-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProviderKeyRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ProviderKeyMapper
}

func NewProviderKeyRepository(db *gorm.DB) contract.ProviderKeyRepository {
	return &ProviderKeyRepositoryImpl{
		db:     db,
		mapper: mapper.NewProviderKeyMapper(),
	}
}

func (r *ProviderKeyRepositoryImpl) Upsert(ctx context.Context, key *entity.ProviderKey) error {
	m := r.mapper.ToModel(key)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"ciphertext", "nonce", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*key = *r.mapper.ToEntity(m)
	return nil
}

func (r *ProviderKeyRepositoryImpl) FindByUserAndProvider(ctx context.Context, userId uuid.UUID, provider string) (*entity.ProviderKey, error) {
	var m model.ProviderKey
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userId, provider).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}
