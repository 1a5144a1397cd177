package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ConversationSession struct {
	Id                  uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantId            uuid.UUID      `gorm:"type:uuid;not null;index"`
	SessionKey          string         `gorm:"type:text;not null;uniqueIndex"`
	PageURL             string         `gorm:"type:text"`
	CurrentSectionName  string         `gorm:"type:text"`
	Step                string         `gorm:"type:text;not null;default:'idle'"`
	FollowUpCount       int            `gorm:"default:0"`
	SelectedLeadOption  datatypes.JSON `gorm:"type:jsonb"`
	SelectedSalesOption datatypes.JSON `gorm:"type:jsonb"`
	IsHighRiskFlag      bool           `gorm:"default:false"`
	CollectedFields     datatypes.JSON `gorm:"type:jsonb"`
	History             datatypes.JSON `gorm:"type:jsonb"`
	Version             int            `gorm:"not null;default:0"` // optimistic lock
	CreatedAt           time.Time      `gorm:"autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime"`
	DeletedAt           gorm.DeletedAt `gorm:"index"`
}

func (ConversationSession) TableName() string {
	return "conversation_sessions"
}
