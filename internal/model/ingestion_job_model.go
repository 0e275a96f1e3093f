package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type IngestionJob struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId       uuid.UUID      `gorm:"type:uuid;not null;index"`
	SourceType   string         `gorm:"type:varchar(32);not null"`
	Status       string         `gorm:"type:varchar(32);not null;index"`
	ContentHash  string         `gorm:"type:varchar(64);index"`
	Title        string         `gorm:"type:varchar(512)"`
	SourceURL    string         `gorm:"type:text"`
	Payload      datatypes.JSON `gorm:"type:jsonb"`
	Summary      string         `gorm:"type:text"`
	Citations    datatypes.JSON `gorm:"type:jsonb"`
	ErrorType    string         `gorm:"type:varchar(64)"`
	ErrorMessage string         `gorm:"type:text"`
	ChunkCount   int            `gorm:"default:0"`
	WordCount    int            `gorm:"default:0"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (IngestionJob) TableName() string {
	return "ingestion_jobs"
}
