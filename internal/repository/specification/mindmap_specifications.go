package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByMindmapID filters nodes by their mind map
type ByMindmapID struct {
	MindmapID uuid.UUID
}

func (s ByMindmapID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("mindmap_id = ?", s.MindmapID)
}

// ByNodeKey filters by the client-facing node id
type ByNodeKey struct {
	NodeKey string
}

func (s ByNodeKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("node_key = ?", s.NodeKey)
}

// ByParentKey filters nodes by their parent's node key
type ByParentKey struct {
	ParentKey string
}

func (s ByParentKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("parent_key = ?", s.ParentKey)
}

// ByMapNodeIDs filters citations by their owning nodes
type ByMapNodeIDs struct {
	MapNodeIDs []uuid.UUID
}

func (s ByMapNodeIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("map_node_id IN ?", s.MapNodeIDs)
}

// OrderByNodeOrder returns siblings in display order
type OrderByNodeOrder struct{}

func (s OrderByNodeOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("level ASC, node_order ASC")
}
