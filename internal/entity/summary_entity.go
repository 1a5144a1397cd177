package entity

import (
	"time"

	"github.com/google/uuid"
)

// ActionDetail is the long-form mechanism narrative behind a follow-up action.
type ActionDetail struct {
	Label     string `json:"label"`
	Narrative string `json:"narrative"`
}

// Option is a single selectable answer for a question. Tags always hold
// exactly two entries from the closed taxonomy once an option is valid;
// WorkflowClass is a cached value re-derivable from the tags at any time.
type Option struct {
	Label                 string         `json:"label"`
	Tags                  []string       `json:"tags"`
	WorkflowClass         string         `json:"workflow_class"`
	DiagnosticAnswer      string         `json:"diagnostic_answer,omitempty"`
	DiagnosticActionList  []string       `json:"diagnostic_action_list,omitempty"`
	DiagnosticActionItems []ActionDetail `json:"diagnostic_action_items,omitempty"`
}

type Question struct {
	QuestionText string   `json:"question_text"`
	Options      []Option `json:"options"`
}

// Section is a titled content block of a crawled page plus its generated
// question/option model. Identity is positional within the summary.
type Section struct {
	SectionName    string     `json:"section_name"`
	SectionSummary string     `json:"section_summary"`
	SectionContent string     `json:"section_content"`
	SectionType    string     `json:"section_type"`
	LeadQuestions  []Question `json:"lead_questions"`
	SalesQuestions []Question `json:"sales_questions"`
}

// StructuredSummary is the enriched question bank for one crawled page.
// New crawls create new summaries; enrichment mutates sections in place so
// previously generated questions survive re-crawls.
type StructuredSummary struct {
	Id           uuid.UUID
	TenantId     uuid.UUID
	PageURL      string
	PageType     string
	BusinessName string
	Sections     []Section
	CrawledAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// ContentChunk is a tenant-scoped slice of page text stored alongside its
// embedding for similarity retrieval.
type ContentChunk struct {
	Id             uuid.UUID
	TenantId       uuid.UUID
	PageURL        string
	SectionRef     string
	Document       string
	EmbeddingValue []float32
	ChunkIndex     int
	CreatedAt      time.Time
}
