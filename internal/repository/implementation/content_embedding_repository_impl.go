package implementation

import (
	"context"

	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/mapper"
	"leadqualify-be/internal/model"
	"leadqualify-be/internal/repository/contract"
	"leadqualify-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ContentEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ContentEmbeddingMapper
}

func NewContentEmbeddingRepository(db *gorm.DB) contract.ContentEmbeddingRepository {
	return &ContentEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewContentEmbeddingMapper(),
	}
}

func (r *ContentEmbeddingRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ContentEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.ContentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := r.mapper.ToModels(chunks)
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *ContentEmbeddingRepositoryImpl) DeleteByPage(ctx context.Context, tenantId uuid.UUID, pageURL string) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND page_url = ?", tenantId, pageURL).
		Delete(&model.ContentEmbedding{}).Error
}

func (r *ContentEmbeddingRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.ContentEmbedding{}).Count(&count).Error
	return count, err
}

// SearchSimilarWithScore ranks by pgvector cosine distance
// (embedding_value <=> vector). The tenant filter is mandatory so one
// tenant's content never grounds another's answers.
func (r *ContentEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, tenantId uuid.UUID, threshold float64) ([]*contract.ScoredContentChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.ContentEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("content_embeddings").
		Select("content_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("tenant_id = ?", tenantId).
		Where("deleted_at IS NULL").
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredContentChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredContentChunk{
			Chunk:      r.mapper.ToEntity(&res.ContentEmbedding),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
