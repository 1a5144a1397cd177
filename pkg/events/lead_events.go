package events

import (
	"time"

	"github.com/google/uuid"
)

// SalesAlertEvent is raised the moment a visitor selects a high-risk option.
type SalesAlertEvent struct {
	TenantId      uuid.UUID
	SessionKey    string
	PageURL       string
	OptionLabel   string
	Tags          []string
	WorkflowClass string
	RaisedAt      time.Time
}

func (e SalesAlertEvent) EventType() string {
	return "sales_alert.raised"
}

func (e SalesAlertEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":      e.TenantId.String(),
		"session_key":    e.SessionKey,
		"page_url":       e.PageURL,
		"option_label":   e.OptionLabel,
		"tags":           e.Tags,
		"workflow_class": e.WorkflowClass,
	}
}

func (e SalesAlertEvent) Timestamp() time.Time {
	return e.RaisedAt
}

// HandoffCompletedEvent is raised when the contact collection flow finishes.
type HandoffCompletedEvent struct {
	TenantId      uuid.UUID
	SessionKey    string
	PageURL       string
	Name          string
	Email         string
	Details       string
	Timeline      string
	OptionLabel   string
	WorkflowClass string
	CompletedAt   time.Time
}

func (e HandoffCompletedEvent) EventType() string {
	return "sales_handoff.completed"
}

func (e HandoffCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":      e.TenantId.String(),
		"session_key":    e.SessionKey,
		"page_url":       e.PageURL,
		"name":           e.Name,
		"email":          e.Email,
		"details":        e.Details,
		"timeline":       e.Timeline,
		"option_label":   e.OptionLabel,
		"workflow_class": e.WorkflowClass,
	}
}

func (e HandoffCompletedEvent) Timestamp() time.Time {
	return e.CompletedAt
}
