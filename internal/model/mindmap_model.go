package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MindMap struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId     uuid.UUID      `gorm:"type:uuid;not null;index"`
	JobId      *uuid.UUID     `gorm:"type:uuid;index"`
	Title      string         `gorm:"type:varchar(512);not null"`
	Version    int            `gorm:"not null;default:1"`
	TotalNodes int            `gorm:"default:0"`
	MaxDepth   int            `gorm:"default:0"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (MindMap) TableName() string {
	return "mind_maps"
}
