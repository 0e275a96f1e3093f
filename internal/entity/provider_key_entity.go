package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProviderKey is an encrypted per-user API key for an LLM provider.
type ProviderKey struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId     uuid.UUID `gorm:"type:uuid;index"`
	Provider   string
	Ciphertext []byte
	Nonce      []byte
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
