package model

import (
	"time"

	"github.com/google/uuid"
)

type GenerationJob struct {
	Id           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId       uuid.UUID  `gorm:"type:uuid;not null;index"`
	MindmapId    *uuid.UUID `gorm:"type:uuid;index"`
	NodeKey      string     `gorm:"type:varchar(128)"`
	Operation    string     `gorm:"type:varchar(32);not null"`
	Provider     string     `gorm:"type:varchar(32);not null"`
	Model        string     `gorm:"type:varchar(128)"`
	Complexity   string     `gorm:"type:varchar(32)"`
	Prompt       string     `gorm:"type:text"`
	Status       string     `gorm:"type:varchar(32);not null;index"`
	Summary      string     `gorm:"type:text"`
	ErrorType    string     `gorm:"type:varchar(64)"`
	ErrorMessage string     `gorm:"type:text"`
	TokensUsed   int        `gorm:"default:0"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime"`
}

func (GenerationJob) TableName() string {
	return "generation_jobs"
}
