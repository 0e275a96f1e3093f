package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MapNode struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MindmapId uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_map_nodes_map_key"`
	NodeKey   string         `gorm:"type:varchar(128);not null;uniqueIndex:idx_map_nodes_map_key"`
	ParentKey *string        `gorm:"type:varchar(128);index"`
	Level     int            `gorm:"not null;default:0"`
	NodeOrder int            `gorm:"not null;default:0"`
	Title     string         `gorm:"type:varchar(512);not null"`
	Content   string         `gorm:"type:text"`
	Visual    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (MapNode) TableName() string {
	return "map_nodes"
}
