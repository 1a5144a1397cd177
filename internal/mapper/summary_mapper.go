package mapper

import (
	"encoding/json"
	"time"

	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/model"

	"gorm.io/datatypes"
)

type SummaryMapper struct{}

func NewSummaryMapper() *SummaryMapper {
	return &SummaryMapper{}
}

func (m *SummaryMapper) ToEntity(s *model.StructuredSummary) (*entity.StructuredSummary, error) {
	if s == nil {
		return nil, nil
	}

	var sections []entity.Section
	if len(s.Sections) > 0 {
		if err := json.Unmarshal(s.Sections, &sections); err != nil {
			return nil, err
		}
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.StructuredSummary{
		Id:           s.Id,
		TenantId:     s.TenantId,
		PageURL:      s.PageURL,
		PageType:     s.PageType,
		BusinessName: s.BusinessName,
		Sections:     sections,
		CrawledAt:    s.CrawledAt,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    updatedAt,
	}, nil
}

func (m *SummaryMapper) ToModel(e *entity.StructuredSummary) (*model.StructuredSummary, error) {
	if e == nil {
		return nil, nil
	}

	sections, err := json.Marshal(e.Sections)
	if err != nil {
		return nil, err
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.StructuredSummary{
		Id:           e.Id,
		TenantId:     e.TenantId,
		PageURL:      e.PageURL,
		PageType:     e.PageType,
		BusinessName: e.BusinessName,
		Sections:     datatypes.JSON(sections),
		CrawledAt:    e.CrawledAt,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    updatedAt,
	}, nil
}
