package contract

import (
	"context"

	"ai-mindmap-be/internal/entity"

	"github.com/google/uuid"
)

type ProviderKeyRepository interface {
	Upsert(ctx context.Context, key *entity.ProviderKey) error
	FindByUserAndProvider(ctx context.Context, userId uuid.UUID, provider string) (*entity.ProviderKey, error)
}
