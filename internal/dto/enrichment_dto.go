package dto

import (
	"time"

	"github.com/google/uuid"
)

type EnrichSummaryRequest struct {
	TenantId  uuid.UUID `json:"tenant_id" validate:"required"`
	PageURL   string    `json:"page_url" validate:"required,url"`
	Content   string    `json:"content" validate:"required"`
	CrawledAt time.Time `json:"crawled_at,omitempty"`
}

type EnrichSummaryResponse struct {
	SummaryId    uuid.UUID `json:"summary_id"`
	PageURL      string    `json:"page_url"`
	PageType     string    `json:"page_type"`
	BusinessName string    `json:"business_name,omitempty"`
	SectionCount int       `json:"section_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type GenerateDiagnosticsRequest struct {
	TenantId uuid.UUID `json:"tenant_id" validate:"required"`
	// PageURL narrows generation to one page; empty covers the whole tenant.
	PageURL string `json:"page_url,omitempty" validate:"omitempty,url"`
}

type GenerateDiagnosticsResponse struct {
	PagesUpdated   int `json:"pages_updated"`
	PairsProcessed int `json:"pairs_processed"`
	PairsCompleted int `json:"pairs_completed"`
}

type GetSummaryResponse struct {
	SummaryId    uuid.UUID    `json:"summary_id"`
	PageURL      string       `json:"page_url"`
	PageType     string       `json:"page_type"`
	BusinessName string       `json:"business_name,omitempty"`
	Sections     []SectionDTO `json:"sections"`
	CrawledAt    time.Time    `json:"crawled_at"`
}

type SectionDTO struct {
	SectionName    string `json:"section_name"`
	SectionSummary string `json:"section_summary"`
	SectionType    string `json:"section_type"`
	LeadQuestions  int    `json:"lead_questions"`
	SalesQuestions int    `json:"sales_questions"`
}

// PageCrawledEvent is the payload consumed from the crawler pipeline.
type PageCrawledEvent struct {
	TenantId  uuid.UUID `json:"tenant_id"`
	PageURL   string    `json:"page_url"`
	Content   string    `json:"content"`
	CrawledAt time.Time `json:"crawled_at"`
}
