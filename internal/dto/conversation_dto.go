package dto

import (
	"github.com/google/uuid"
)

type AdvanceConversationRequest struct {
	SessionKey string    `json:"session_key" validate:"required"`
	TenantId   uuid.UUID `json:"tenant_id,omitempty"` // resolved from the auth token when present
	PageURL    string    `json:"page_url" validate:"required,url"`
	Message    string    `json:"message"`
}

type AdvanceConversationResponse struct {
	Responded             bool     `json:"responded"`
	Message               string   `json:"message,omitempty"`
	Options               []string `json:"options,omitempty"`
	Step                  string   `json:"step"`
	ShowBookingAffordance bool     `json:"show_booking_affordance,omitempty"`
}

type ResetConversationRequest struct {
	SessionKey string `json:"session_key" validate:"required"`
}
