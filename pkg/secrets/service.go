// Package secrets resolves per-user LLM provider API keys. Keys are
// stored encrypted (XChaCha20-Poly1305 under a server master key) and
// decrypted plaintext is held in a short-lived in-memory cache.
package secrets

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/chacha20poly1305"
)

var ErrKeyNotFound = errors.New("no api key stored for user and provider")

// KeyRecord is one stored credential. Ciphertext is sealed with the
// nonce kept alongside it.
type KeyRecord struct {
	UserID     uuid.UUID
	Provider   string
	Ciphertext []byte
	Nonce      []byte
}

// KeyStore is the persistence boundary. The repository layer adapts its
// GORM implementation to this.
type KeyStore interface {
	Find(ctx context.Context, userID uuid.UUID, provider string) (*KeyRecord, error)
	Save(ctx context.Context, record *KeyRecord) error
}

type Service struct {
	store KeyStore
	aead  interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
	plaintextCache *cache.Cache
}

// NewService derives a 32-byte cipher key from the configured master
// secret. Decrypted keys are cached for 10 minutes.
func NewService(store KeyStore, masterSecret string) (*Service, error) {
	if masterSecret == "" {
		return nil, errors.New("secrets master key is empty")
	}
	derived := sha256.Sum256([]byte(masterSecret))
	aead, err := chacha20poly1305.NewX(derived[:])
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Service{
		store:          store,
		aead:           aead,
		plaintextCache: cache.New(10*time.Minute, 30*time.Minute),
	}, nil
}

// GetKey returns the decrypted API key for a user+provider pair, or
// ErrKeyNotFound.
func (s *Service) GetKey(ctx context.Context, userID uuid.UUID, provider string) (string, error) {
	cacheKey := userID.String() + ":" + provider
	if cached, found := s.plaintextCache.Get(cacheKey); found {
		return cached.(string), nil
	}

	record, err := s.store.Find(ctx, userID, provider)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", ErrKeyNotFound
	}

	plaintext, err := s.aead.Open(nil, record.Nonce, record.Ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt api key: %w", err)
	}

	key := string(plaintext)
	s.plaintextCache.Set(cacheKey, key, cache.DefaultExpiration)
	return key, nil
}

// StoreKey encrypts and persists an API key, replacing any previous one
// for the same pair.
func (s *Service) StoreKey(ctx context.Context, userID uuid.UUID, provider, apiKey string) error {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	record := &KeyRecord{
		UserID:     userID,
		Provider:   provider,
		Ciphertext: s.aead.Seal(nil, nonce, []byte(apiKey), nil),
		Nonce:      nonce,
	}
	if err := s.store.Save(ctx, record); err != nil {
		return err
	}

	s.plaintextCache.Set(userID.String()+":"+provider, apiKey, cache.DefaultExpiration)
	return nil
}
