package model

import (
	"time"

	"github.com/google/uuid"
)

type ProviderKey struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_provider_keys_user_provider"`
	Provider   string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_provider_keys_user_provider"`
	Ciphertext []byte    `gorm:"type:bytea;not null"`
	Nonce      []byte    `gorm:"type:bytea;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (ProviderKey) TableName() string {
	return "provider_keys"
}
