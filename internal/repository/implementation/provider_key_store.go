package implementation

import (
	"context"
	"time"

	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/repository/contract"
	"ai-mindmap-be/pkg/secrets"

	"github.com/google/uuid"
)

// providerKeyStore adapts ProviderKeyRepository to the secrets.KeyStore
// boundary.
type providerKeyStore struct {
	repo contract.ProviderKeyRepository
}

var _ secrets.KeyStore = &providerKeyStore{}

func NewProviderKeyStore(repo contract.ProviderKeyRepository) secrets.KeyStore {
	return &providerKeyStore{repo: repo}
}

func (s *providerKeyStore) Find(ctx context.Context, userID uuid.UUID, provider string) (*secrets.KeyRecord, error) {
	key, err := s.repo.FindByUserAndProvider(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, nil
	}
	return &secrets.KeyRecord{
		UserID:     key.UserId,
		Provider:   key.Provider,
		Ciphertext: key.Ciphertext,
		Nonce:      key.Nonce,
	}, nil
}

func (s *providerKeyStore) Save(ctx context.Context, record *secrets.KeyRecord) error {
	return s.repo.Upsert(ctx, &entity.ProviderKey{
		Id:         uuid.New(),
		UserId:     record.UserID,
		Provider:   record.Provider,
		Ciphertext: record.Ciphertext,
		Nonce:      record.Nonce,
		CreatedAt:  time.Now(),
	})
}
