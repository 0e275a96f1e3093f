package mapper

import (
	"time"

	"ai-mindmap-be/internal/entity"
	"ai-mindmap-be/internal/model"
)

type GenerationJobMapper struct{}

func NewGenerationJobMapper() *GenerationJobMapper {
	return &GenerationJobMapper{}
}

func (m *GenerationJobMapper) ToEntity(j *model.GenerationJob) *entity.GenerationJob {
	if j == nil {
		return nil
	}

	var updatedAt *time.Time
	if !j.UpdatedAt.IsZero() {
		t := j.UpdatedAt
		updatedAt = &t
	}

	return &entity.GenerationJob{
		Id:           j.Id,
		UserId:       j.UserId,
		MindmapId:    j.MindmapId,
		NodeKey:      j.NodeKey,
		Operation:    j.Operation,
		Provider:     j.Provider,
		Model:        j.Model,
		Complexity:   j.Complexity,
		Prompt:       j.Prompt,
		Status:       j.Status,
		Summary:      j.Summary,
		ErrorType:    j.ErrorType,
		ErrorMessage: j.ErrorMessage,
		TokensUsed:   j.TokensUsed,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *GenerationJobMapper) ToModel(j *entity.GenerationJob) *model.GenerationJob {
	if j == nil {
		return nil
	}

	var updatedAt time.Time
	if j.UpdatedAt != nil {
		updatedAt = *j.UpdatedAt
	}

	return &model.GenerationJob{
		Id:           j.Id,
		UserId:       j.UserId,
		MindmapId:    j.MindmapId,
		NodeKey:      j.NodeKey,
		Operation:    j.Operation,
		Provider:     j.Provider,
		Model:        j.Model,
		Complexity:   j.Complexity,
		Prompt:       j.Prompt,
		Status:       j.Status,
		Summary:      j.Summary,
		ErrorType:    j.ErrorType,
		ErrorMessage: j.ErrorMessage,
		TokensUsed:   j.TokensUsed,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *GenerationJobMapper) ToEntities(jobs []*model.GenerationJob) []*entity.GenerationJob {
	entities := make([]*entity.GenerationJob, len(jobs))
	for i, j := range jobs {
		entities[i] = m.ToEntity(j)
	}
	return entities
}
