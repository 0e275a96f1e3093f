package entity

import (
	"time"

	"github.com/google/uuid"

	"ai-mindmap-be/pkg/outline"
)

type MindMap struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId     uuid.UUID `gorm:"type:uuid;index"`
	JobId      *uuid.UUID
	Title      string
	Version    int
	TotalNodes int
	MaxDepth   int
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}

// MapNode is one flattened outline node. NodeKey is the client-facing
// node id inside the map, ParentKey links to the parent's NodeKey.
type MapNode struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	MindmapId uuid.UUID `gorm:"type:uuid;index"`
	NodeKey   string
	ParentKey *string
	Level     int
	NodeOrder int
	Title     string
	Content   string
	Visual    *outline.Visual
	CreatedAt time.Time
	UpdatedAt *time.Time
}

type NodeCitation struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	MapNodeId    uuid.UUID `gorm:"type:uuid;index"`
	Title        string
	URL          string
	Author       string
	Excerpt      string
	TimestampISO string
	CreatedAt    time.Time
}
