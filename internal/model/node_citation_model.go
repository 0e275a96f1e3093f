package model

import (
	"time"

	"github.com/google/uuid"
)

type NodeCitation struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MapNodeId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Title        string    `gorm:"type:varchar(512)"`
	URL          string    `gorm:"type:text"`
	Author       string    `gorm:"type:varchar(255)"`
	Excerpt      string    `gorm:"type:text"`
	TimestampISO string    `gorm:"type:varchar(64)"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (NodeCitation) TableName() string {
	return "node_citations"
}
