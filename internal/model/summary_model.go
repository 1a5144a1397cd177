package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StructuredSummary struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantId     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_summaries_tenant_page"`
	PageURL      string         `gorm:"type:text;not null;uniqueIndex:idx_summaries_tenant_page"`
	PageType     string         `gorm:"type:text"`
	BusinessName string         `gorm:"type:text"`
	Sections     datatypes.JSON `gorm:"type:jsonb;not null"`
	CrawledAt    time.Time
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (StructuredSummary) TableName() string {
	return "structured_summaries"
}
