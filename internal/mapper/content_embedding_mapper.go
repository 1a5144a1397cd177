package mapper

import (
	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type ContentEmbeddingMapper struct{}

func NewContentEmbeddingMapper() *ContentEmbeddingMapper {
	return &ContentEmbeddingMapper{}
}

func (m *ContentEmbeddingMapper) ToEntity(e *model.ContentEmbedding) *entity.ContentChunk {
	if e == nil {
		return nil
	}
	return &entity.ContentChunk{
		Id:             e.Id,
		TenantId:       e.TenantId,
		PageURL:        e.PageURL,
		SectionRef:     e.SectionRef,
		Document:       e.Document,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		ChunkIndex:     e.ChunkIndex,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *ContentEmbeddingMapper) ToModel(e *entity.ContentChunk) *model.ContentEmbedding {
	if e == nil {
		return nil
	}
	return &model.ContentEmbedding{
		Id:             e.Id,
		TenantId:       e.TenantId,
		PageURL:        e.PageURL,
		SectionRef:     e.SectionRef,
		Document:       e.Document,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		ChunkIndex:     e.ChunkIndex,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *ContentEmbeddingMapper) ToModels(chunks []*entity.ContentChunk) []*model.ContentEmbedding {
	models := make([]*model.ContentEmbedding, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
