package contract

import (
	"context"

	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SummaryRepository interface {
	Create(ctx context.Context, summary *entity.StructuredSummary) error
	Update(ctx context.Context, summary *entity.StructuredSummary) error
	// Upsert writes the summary keyed by (tenant, page URL), replacing an
	// existing row's content while keeping its identity.
	Upsert(ctx context.Context, summary *entity.StructuredSummary) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.StructuredSummary, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.StructuredSummary, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
