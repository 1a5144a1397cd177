package service

import (
	"context"
	"sync"

	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/repository/contract"
	"leadqualify-be/internal/repository/specification"
	"leadqualify-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// In-memory repositories backing the service tests. Specifications are
// interpreted by type switch; only the filters the services actually use
// are supported.

type memFactory struct {
	uow *memUow
}

func newMemFactory() *memFactory {
	return &memFactory{uow: &memUow{
		summaries:  &memSummaryRepo{},
		sessions:   &memSessionRepo{},
		embeddings: &memEmbeddingRepo{},
	}}
}

func (f *memFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}

type memUow struct {
	summaries  *memSummaryRepo
	sessions   *memSessionRepo
	embeddings *memEmbeddingRepo
}

func (u *memUow) Begin(ctx context.Context) error { return nil }
func (u *memUow) Commit() error                   { return nil }
func (u *memUow) Rollback() error                 { return nil }

func (u *memUow) SummaryRepository() contract.SummaryRepository { return u.summaries }
func (u *memUow) SessionRepository() contract.SessionRepository { return u.sessions }
func (u *memUow) ContentEmbeddingRepository() contract.ContentEmbeddingRepository {
	return u.embeddings
}

type memSummaryRepo struct {
	mu      sync.Mutex
	rows    []*entity.StructuredSummary
	updates int
	upserts int
}

func summaryMatches(s *entity.StructuredSummary, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch v := sp.(type) {
		case specification.ByTenantID:
			if s.TenantId != v.TenantID {
				return false
			}
		case specification.ByPageURL:
			if s.PageURL != v.PageURL {
				return false
			}
		}
	}
	return true
}

func (r *memSummaryRepo) Create(ctx context.Context, summary *entity.StructuredSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, summary)
	return nil
}

func (r *memSummaryRepo) Update(ctx context.Context, summary *entity.StructuredSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	for i, row := range r.rows {
		if row.Id == summary.Id {
			r.rows[i] = summary
			return nil
		}
	}
	r.rows = append(r.rows, summary)
	return nil
}

func (r *memSummaryRepo) Upsert(ctx context.Context, summary *entity.StructuredSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	for i, row := range r.rows {
		if row.TenantId == summary.TenantId && row.PageURL == summary.PageURL {
			summary.Id = row.Id
			r.rows[i] = summary
			return nil
		}
	}
	r.rows = append(r.rows, summary)
	return nil
}

func (r *memSummaryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, row := range r.rows {
		if row.Id == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memSummaryRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.StructuredSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if summaryMatches(row, specs) {
			return row, nil
		}
	}
	return nil, nil
}

func (r *memSummaryRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.StructuredSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.StructuredSummary
	for _, row := range r.rows {
		if summaryMatches(row, specs) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memSummaryRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	rows, _ := r.FindAll(ctx, specs...)
	return int64(len(rows)), nil
}

type memSessionRepo struct {
	mu   sync.Mutex
	rows []*entity.SessionState
}

func sessionMatches(s *entity.SessionState, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch v := sp.(type) {
		case specification.ByTenantID:
			if s.TenantId != v.TenantID {
				return false
			}
		case specification.BySessionKey:
			if s.SessionKey != v.SessionKey {
				return false
			}
		case specification.ByStep:
			if s.Step != v.Step {
				return false
			}
		case specification.UpdatedBefore:
			if s.UpdatedAt == nil || !s.UpdatedAt.Before(v.Cutoff) {
				return false
			}
		}
	}
	return true
}

func (r *memSessionRepo) Create(ctx context.Context, session *entity.SessionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, session)
	return nil
}

func (r *memSessionRepo) UpdateVersioned(ctx context.Context, session *entity.SessionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, row := range r.rows {
		if row.Id != session.Id {
			continue
		}
		if row.Version != session.Version {
			return contract.ErrStaleSession
		}
		session.Version++
		r.rows[i] = session
		return nil
	}
	return contract.ErrStaleSession
}

func (r *memSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, row := range r.rows {
		if row.Id == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if sessionMatches(row, specs) {
			return row, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.SessionState
	for _, row := range r.rows {
		if sessionMatches(row, specs) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	rows, _ := r.FindAll(ctx, specs...)
	return int64(len(rows)), nil
}

type memEmbeddingRepo struct {
	mu            sync.Mutex
	chunks        []*entity.ContentChunk
	scored        []*contract.ScoredContentChunk
	lastThreshold float64
	searches      int
}

func (r *memEmbeddingRepo) CreateBulk(ctx context.Context, chunks []*entity.ContentChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunks...)
	return nil
}

func (r *memEmbeddingRepo) DeleteByPage(ctx context.Context, tenantId uuid.UUID, pageURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*entity.ContentChunk
	for _, c := range r.chunks {
		if c.TenantId == tenantId && c.PageURL == pageURL {
			continue
		}
		kept = append(kept, c)
	}
	r.chunks = kept
	return nil
}

func (r *memEmbeddingRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.chunks)), nil
}

func (r *memEmbeddingRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, tenantId uuid.UUID, threshold float64) ([]*contract.ScoredContentChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches++
	r.lastThreshold = threshold
	var out []*contract.ScoredContentChunk
	for _, s := range r.scored {
		if s.Chunk.TenantId == tenantId && s.Similarity >= threshold {
			out = append(out, s)
		}
	}
	return out, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}
