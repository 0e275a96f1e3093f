package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type ContentChunk struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	JobId          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ChunkIndex     int             `gorm:"not null;default:0"`
	TotalChunks    int             `gorm:"not null;default:0"`
	Text           string          `gorm:"type:text;not null"`
	TokensEstimate int             `gorm:"default:0"`
	SourceType     string          `gorm:"type:varchar(32)"`
	Title          string          `gorm:"type:varchar(512)"`
	URL            string          `gorm:"type:text"`
	Author         string          `gorm:"type:varchar(255)"`
	Timestamp      string          `gorm:"type:varchar(64)"`
	Embedding      pgvector.Vector `gorm:"type:vector(768)"` // text-embedding-004 and nomic-embed-text are both 768 dims
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (ContentChunk) TableName() string {
	return "content_chunks"
}
