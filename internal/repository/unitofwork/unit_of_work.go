package unitofwork

import (
	"context"

	"leadqualify-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SummaryRepository() contract.SummaryRepository
	SessionRepository() contract.SessionRepository
	ContentEmbeddingRepository() contract.ContentEmbeddingRepository
}
