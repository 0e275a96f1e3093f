package secrets

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryKeyStore struct {
	records map[string]*KeyRecord
	finds   int
}

func newMemoryKeyStore() *memoryKeyStore {
	return &memoryKeyStore{records: map[string]*KeyRecord{}}
}

func (m *memoryKeyStore) Find(_ context.Context, userID uuid.UUID, provider string) (*KeyRecord, error) {
	m.finds++
	return m.records[userID.String()+":"+provider], nil
}

func (m *memoryKeyStore) Save(_ context.Context, record *KeyRecord) error {
	m.records[record.UserID.String()+":"+record.Provider] = record
	return nil
}

func TestSecretsRoundTrip(t *testing.T) {
	store := newMemoryKeyStore()
	svc, err := NewService(store, "unit-test-master-secret")
	require.NoError(t, err)

	userID := uuid.New()
	require.NoError(t, svc.StoreKey(context.Background(), userID, "openai", "sk-test-1234567890abcdef"))

	stored := store.records[userID.String()+":openai"]
	require.NotNil(t, stored)
	assert.NotContains(t, string(stored.Ciphertext), "sk-test")

	got, err := svc.GetKey(context.Background(), userID, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-1234567890abcdef", got)
}

func TestSecretsCacheSkipsStore(t *testing.T) {
	store := newMemoryKeyStore()
	svc, err := NewService(store, "unit-test-master-secret")
	require.NoError(t, err)

	userID := uuid.New()
	require.NoError(t, svc.StoreKey(context.Background(), userID, "gemini", "AIzaFakeKeyForTesting1234567890"))

	for i := 0; i < 3; i++ {
		_, err := svc.GetKey(context.Background(), userID, "gemini")
		require.NoError(t, err)
	}
	assert.Zero(t, store.finds, "plaintext should be served from cache after StoreKey")
}

func TestSecretsMissingKey(t *testing.T) {
	svc, err := NewService(newMemoryKeyStore(), "unit-test-master-secret")
	require.NoError(t, err)

	_, err = svc.GetKey(context.Background(), uuid.New(), "openai")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSecretsEmptyMasterKey(t *testing.T) {
	_, err := NewService(newMemoryKeyStore(), "")
	assert.Error(t, err)
}
