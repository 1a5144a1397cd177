package mapper

import (
	"encoding/json"
	"time"

	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/model"

	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToEntity(s *model.ConversationSession) (*entity.SessionState, error) {
	if s == nil {
		return nil, nil
	}

	var leadOption *entity.Option
	if len(s.SelectedLeadOption) > 0 {
		if err := json.Unmarshal(s.SelectedLeadOption, &leadOption); err != nil {
			return nil, err
		}
	}
	var salesOption *entity.Option
	if len(s.SelectedSalesOption) > 0 {
		if err := json.Unmarshal(s.SelectedSalesOption, &salesOption); err != nil {
			return nil, err
		}
	}
	var fields entity.CollectedFields
	if len(s.CollectedFields) > 0 {
		if err := json.Unmarshal(s.CollectedFields, &fields); err != nil {
			return nil, err
		}
	}
	var history []entity.HistoryEntry
	if len(s.History) > 0 {
		if err := json.Unmarshal(s.History, &history); err != nil {
			return nil, err
		}
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.SessionState{
		Id:                  s.Id,
		TenantId:            s.TenantId,
		SessionKey:          s.SessionKey,
		PageURL:             s.PageURL,
		CurrentSectionName:  s.CurrentSectionName,
		Step:                s.Step,
		FollowUpCount:       s.FollowUpCount,
		SelectedLeadOption:  leadOption,
		SelectedSalesOption: salesOption,
		IsHighRiskFlag:      s.IsHighRiskFlag,
		CollectedFields:     fields,
		History:             history,
		Version:             s.Version,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           updatedAt,
	}, nil
}

func (m *SessionMapper) ToModel(e *entity.SessionState) (*model.ConversationSession, error) {
	if e == nil {
		return nil, nil
	}

	marshal := func(v interface{}) (datatypes.JSON, error) {
		if v == nil {
			return nil, nil
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return datatypes.JSON(raw), nil
	}

	var leadOption, salesOption datatypes.JSON
	var err error
	if e.SelectedLeadOption != nil {
		if leadOption, err = marshal(e.SelectedLeadOption); err != nil {
			return nil, err
		}
	}
	if e.SelectedSalesOption != nil {
		if salesOption, err = marshal(e.SelectedSalesOption); err != nil {
			return nil, err
		}
	}
	fields, err := marshal(e.CollectedFields)
	if err != nil {
		return nil, err
	}
	history, err := marshal(e.History)
	if err != nil {
		return nil, err
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.ConversationSession{
		Id:                  e.Id,
		TenantId:            e.TenantId,
		SessionKey:          e.SessionKey,
		PageURL:             e.PageURL,
		CurrentSectionName:  e.CurrentSectionName,
		Step:                e.Step,
		FollowUpCount:       e.FollowUpCount,
		SelectedLeadOption:  leadOption,
		SelectedSalesOption: salesOption,
		IsHighRiskFlag:      e.IsHighRiskFlag,
		CollectedFields:     fields,
		History:             history,
		Version:             e.Version,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           updatedAt,
	}, nil
}
