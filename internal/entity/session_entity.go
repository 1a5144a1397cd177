package entity

import (
	"time"

	"github.com/google/uuid"
)

// CollectedFields holds the contact record gathered during the sales handoff.
type CollectedFields struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Details  string `json:"details,omitempty"`
	Timeline string `json:"timeline,omitempty"`
}

// HistoryEntry is one line of the append-only conversation audit trail.
type HistoryEntry struct {
	Timestamp         time.Time `json:"timestamp"`
	Step              string    `json:"step"`
	SectionName       string    `json:"section_name,omitempty"`
	QuestionText      string    `json:"question_text,omitempty"`
	OptionSelected    string    `json:"option_selected,omitempty"`
	TagsApplied       []string  `json:"tags_applied,omitempty"`
	WorkflowTriggered string    `json:"workflow_triggered,omitempty"`
	InputText         string    `json:"input_text,omitempty"`
}

// SessionState is the persisted conversation state for one visitor session.
// Version backs optimistic concurrency on update: two near-simultaneous turns
// for the same session cannot both win.
type SessionState struct {
	Id                  uuid.UUID
	TenantId            uuid.UUID
	SessionKey          string
	PageURL             string
	CurrentSectionName  string
	Step                string
	FollowUpCount       int
	SelectedLeadOption  *Option
	SelectedSalesOption *Option
	IsHighRiskFlag      bool
	CollectedFields     CollectedFields
	History             []HistoryEntry
	Version             int
	CreatedAt           time.Time
	UpdatedAt           *time.Time
}
