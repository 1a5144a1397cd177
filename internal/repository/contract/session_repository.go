package contract

import (
	"context"
	"errors"

	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ErrStaleSession is returned by UpdateVersioned when another writer advanced
// the session since it was read.
var ErrStaleSession = errors.New("session version is stale")

type SessionRepository interface {
	Create(ctx context.Context, session *entity.SessionState) error
	// UpdateVersioned persists the session only if the stored Version still
	// matches session.Version; on success the entity's Version is incremented.
	UpdateVersioned(ctx context.Context, session *entity.SessionState) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionState, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionState, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
