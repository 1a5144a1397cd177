package contract

import (
	"context"

	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredContentChunk wraps ContentChunk with its similarity score
type ScoredContentChunk struct {
	Chunk      *entity.ContentChunk
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type ContentEmbeddingRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.ContentChunk) error
	DeleteByPage(ctx context.Context, tenantId uuid.UUID, pageURL string) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilarWithScore returns the closest chunks for a tenant by cosine
	// distance, dropping anything below the similarity threshold.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, tenantId uuid.UUID, threshold float64) ([]*ScoredContentChunk, error)
}
