package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByTenantID struct {
	TenantID uuid.UUID
}

func (s ByTenantID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("tenant_id = ?", s.TenantID)
}

type ByPageURL struct {
	PageURL string
}

func (s ByPageURL) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("page_url = ?", s.PageURL)
}

type BySessionKey struct {
	SessionKey string
}

func (s BySessionKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_key = ?", s.SessionKey)
}

type ByStep struct {
	Step string
}

func (s ByStep) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("step = ?", s.Step)
}

// UpdatedBefore selects rows whose last write predates the cutoff. Used by
// the idle-session sweep.
type UpdatedBefore struct {
	Cutoff time.Time
}

func (s UpdatedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("updated_at < ?", s.Cutoff)
}
