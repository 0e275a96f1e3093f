package mapper

import (
	"time"

	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/model"
)

type ProviderKeyMapper struct{}

func NewProviderKeyMapper() *ProviderKeyMapper {
	return &ProviderKeyMapper{}
}

func (m *ProviderKeyMapper) ToEntity(k *model.ProviderKey) *entity.ProviderKey {
	if k == nil {
		return nil
	}

	var updatedAt *time.Time
	if !k.UpdatedAt.IsZero() {
		t := k.UpdatedAt
		updatedAt = &t
	}

	return &entity.ProviderKey{
		Id:         k.Id,
		UserId:     k.UserId,
		Provider:   k.Provider,
		Ciphertext: k.Ciphertext,
		Nonce:      k.Nonce,
		CreatedAt:  k.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *ProviderKeyMapper) ToModel(k *entity.ProviderKey) *model.ProviderKey {
	if k == nil {
		return nil
	}

	var updatedAt time.Time
	if k.UpdatedAt != nil {
		updatedAt = *k.UpdatedAt
	}

	return &model.ProviderKey{
		Id:         k.Id,
		UserId:     k.UserId,
		Provider:   k.Provider,
		Ciphertext: k.Ciphertext,
		Nonce:      k.Nonce,
		CreatedAt:  k.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}
