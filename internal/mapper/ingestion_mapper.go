package mapper

import (
	"encoding/json"
	"time"

	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/model"
	"ai-mindmap-be/pkg/outline"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type IngestionJobMapper struct{}

func NewIngestionJobMapper() *IngestionJobMapper {
	return &IngestionJobMapper{}
}

func (m *IngestionJobMapper) ToEntity(j *model.IngestionJob) *entity.IngestionJob {
	if j == nil {
		return nil
	}

	var deletedAt *time.Time
	if j.DeletedAt.Valid {
		t := j.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !j.UpdatedAt.IsZero() {
		t := j.UpdatedAt
		updatedAt = &t
	}

	var citations []outline.Citation
	if len(j.Citations) > 0 {
		_ = json.Unmarshal(j.Citations, &citations)
	}

	return &entity.IngestionJob{
		Id:           j.Id,
		UserId:       j.UserId,
		SourceType:   j.SourceType,
		Status:       j.Status,
		ContentHash:  j.ContentHash,
		Title:        j.Title,
		SourceURL:    j.SourceURL,
		Payload:      []byte(j.Payload),
		Summary:      j.Summary,
		Citations:    citations,
		ErrorType:    j.ErrorType,
		ErrorMessage: j.ErrorMessage,
		ChunkCount:   j.ChunkCount,
		WordCount:    j.WordCount,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    updatedAt,
		DeletedAt:    deletedAt,
		IsDeleted:    j.DeletedAt.Valid,
	}
}

func (m *IngestionJobMapper) ToModel(j *entity.IngestionJob) *model.IngestionJob {
	if j == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if j.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *j.DeletedAt, Valid: true}
	} else if j.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if j.UpdatedAt != nil {
		updatedAt = *j.UpdatedAt
	}

	var citations datatypes.JSON
	if len(j.Citations) > 0 {
		if raw, err := json.Marshal(j.Citations); err == nil {
			citations = datatypes.JSON(raw)
		}
	}

	return &model.IngestionJob{
		Id:           j.Id,
		UserId:       j.UserId,
		SourceType:   j.SourceType,
		Status:       j.Status,
		ContentHash:  j.ContentHash,
		Title:        j.Title,
		SourceURL:    j.SourceURL,
		Payload:      datatypes.JSON(j.Payload),
		Summary:      j.Summary,
		Citations:    citations,
		ErrorType:    j.ErrorType,
		ErrorMessage: j.ErrorMessage,
		ChunkCount:   j.ChunkCount,
		WordCount:    j.WordCount,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    updatedAt,
		DeletedAt:    deletedAt,
	}
}

func (m *IngestionJobMapper) ToEntities(jobs []*model.IngestionJob) []*entity.IngestionJob {
	entities := make([]*entity.IngestionJob, len(jobs))
	for i, j := range jobs {
		entities[i] = m.ToEntity(j)
	}
	return entities
}

type ContentChunkMapper struct{}

func NewContentChunkMapper() *ContentChunkMapper {
	return &ContentChunkMapper{}
}

func (m *ContentChunkMapper) ToEntity(c *model.ContentChunk) *entity.ContentChunk {
	if c == nil {
		return nil
	}

	return &entity.ContentChunk{
		Id:             c.Id,
		JobId:          c.JobId,
		ChunkIndex:     c.ChunkIndex,
		TotalChunks:    c.TotalChunks,
		Text:           c.Text,
		TokensEstimate: c.TokensEstimate,
		SourceType:     c.SourceType,
		Title:          c.Title,
		URL:            c.URL,
		Author:         c.Author,
		Timestamp:      c.Timestamp,
		Embedding:      c.Embedding.Slice(),
		CreatedAt:      c.CreatedAt,
	}
}

func (m *ContentChunkMapper) ToModel(c *entity.ContentChunk) *model.ContentChunk {
	if c == nil {
		return nil
	}

	return &model.ContentChunk{
		Id:             c.Id,
		JobId:          c.JobId,
		ChunkIndex:     c.ChunkIndex,
		TotalChunks:    c.TotalChunks,
		Text:           c.Text,
		TokensEstimate: c.TokensEstimate,
		SourceType:     c.SourceType,
		Title:          c.Title,
		URL:            c.URL,
		Author:         c.Author,
		Timestamp:      c.Timestamp,
		Embedding:      pgvector.NewVector(c.Embedding),
		CreatedAt:      c.CreatedAt,
	}
}

func (m *ContentChunkMapper) ToEntities(chunks []*model.ContentChunk) []*entity.ContentChunk {
	entities := make([]*entity.ContentChunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *ContentChunkMapper) ToModels(chunks []*entity.ContentChunk) []*model.ContentChunk {
	models := make([]*model.ContentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
