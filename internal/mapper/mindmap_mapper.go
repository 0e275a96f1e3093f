package mapper

import (
	"encoding/json"
	"time"

	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/model"
	"ai-mindmap-be/pkg/outline"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MindMapMapper struct{}

func NewMindMapMapper() *MindMapMapper {
	return &MindMapMapper{}
}

func (m *MindMapMapper) ToEntity(mm *model.MindMap) *entity.MindMap {
	if mm == nil {
		return nil
	}

	var deletedAt *time.Time
	if mm.DeletedAt.Valid {
		t := mm.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !mm.UpdatedAt.IsZero() {
		t := mm.UpdatedAt
		updatedAt = &t
	}

	return &entity.MindMap{
		Id:         mm.Id,
		UserId:     mm.UserId,
		JobId:      mm.JobId,
		Title:      mm.Title,
		Version:    mm.Version,
		TotalNodes: mm.TotalNodes,
		MaxDepth:   mm.MaxDepth,
		CreatedAt:  mm.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
		IsDeleted:  mm.DeletedAt.Valid,
	}
}

func (m *MindMapMapper) ToModel(mm *entity.MindMap) *model.MindMap {
	if mm == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if mm.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *mm.DeletedAt, Valid: true}
	} else if mm.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if mm.UpdatedAt != nil {
		updatedAt = *mm.UpdatedAt
	}

	return &model.MindMap{
		Id:         mm.Id,
		UserId:     mm.UserId,
		JobId:      mm.JobId,
		Title:      mm.Title,
		Version:    mm.Version,
		TotalNodes: mm.TotalNodes,
		MaxDepth:   mm.MaxDepth,
		CreatedAt:  mm.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
	}
}

func (m *MindMapMapper) ToEntities(maps []*model.MindMap) []*entity.MindMap {
	entities := make([]*entity.MindMap, len(maps))
	for i, mm := range maps {
		entities[i] = m.ToEntity(mm)
	}
	return entities
}

type MapNodeMapper struct{}

func NewMapNodeMapper() *MapNodeMapper {
	return &MapNodeMapper{}
}

func (m *MapNodeMapper) ToEntity(n *model.MapNode) *entity.MapNode {
	if n == nil {
		return nil
	}

	var visual *outline.Visual
	if len(n.Visual) > 0 {
		var v outline.Visual
		if err := json.Unmarshal(n.Visual, &v); err == nil {
			visual = &v
		}
	}

	var updatedAt *time.Time
	if !n.UpdatedAt.IsZero() {
		t := n.UpdatedAt
		updatedAt = &t
	}

	return &entity.MapNode{
		Id:        n.Id,
		MindmapId: n.MindmapId,
		NodeKey:   n.NodeKey,
		ParentKey: n.ParentKey,
		Level:     n.Level,
		NodeOrder: n.NodeOrder,
		Title:     n.Title,
		Content:   n.Content,
		Visual:    visual,
		CreatedAt: n.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *MapNodeMapper) ToModel(n *entity.MapNode) *model.MapNode {
	if n == nil {
		return nil
	}

	var visual datatypes.JSON
	if n.Visual != nil {
		if raw, err := json.Marshal(n.Visual); err == nil {
			visual = datatypes.JSON(raw)
		}
	}

	var updatedAt time.Time
	if n.UpdatedAt != nil {
		updatedAt = *n.UpdatedAt
	}

	return &model.MapNode{
		Id:        n.Id,
		MindmapId: n.MindmapId,
		NodeKey:   n.NodeKey,
		ParentKey: n.ParentKey,
		Level:     n.Level,
		NodeOrder: n.NodeOrder,
		Title:     n.Title,
		Content:   n.Content,
		Visual:    visual,
		CreatedAt: n.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *MapNodeMapper) ToEntities(nodes []*model.MapNode) []*entity.MapNode {
	entities := make([]*entity.MapNode, len(nodes))
	for i, n := range nodes {
		entities[i] = m.ToEntity(n)
	}
	return entities
}

func (m *MapNodeMapper) ToModels(nodes []*entity.MapNode) []*model.MapNode {
	models := make([]*model.MapNode, len(nodes))
	for i, n := range nodes {
		models[i] = m.ToModel(n)
	}
	return models
}

type NodeCitationMapper struct{}

func NewNodeCitationMapper() *NodeCitationMapper {
	return &NodeCitationMapper{}
}

func (m *NodeCitationMapper) ToEntity(c *model.NodeCitation) *entity.NodeCitation {
	if c == nil {
		return nil
	}
	return &entity.NodeCitation{
		Id:           c.Id,
		MapNodeId:    c.MapNodeId,
		Title:        c.Title,
		URL:          c.URL,
		Author:       c.Author,
		Excerpt:      c.Excerpt,
		TimestampISO: c.TimestampISO,
		CreatedAt:    c.CreatedAt,
	}
}

func (m *NodeCitationMapper) ToModel(c *entity.NodeCitation) *model.NodeCitation {
	if c == nil {
		return nil
	}
	return &model.NodeCitation{
		Id:           c.Id,
		MapNodeId:    c.MapNodeId,
		Title:        c.Title,
		URL:          c.URL,
		Author:       c.Author,
		Excerpt:      c.Excerpt,
		TimestampISO: c.TimestampISO,
		CreatedAt:    c.CreatedAt,
	}
}

func (m *NodeCitationMapper) ToEntities(citations []*model.NodeCitation) []*entity.NodeCitation {
	entities := make([]*entity.NodeCitation, len(citations))
	for i, c := range citations {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *NodeCitationMapper) ToModels(citations []*entity.NodeCitation) []*model.NodeCitation {
	models := make([]*model.NodeCitation, len(citations))
	for i, c := range citations {
		models[i] = m.ToModel(c)
	}
	return models
}
