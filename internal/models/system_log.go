package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SystemLog stores ERROR+ log records so failed pipeline stages can be reconciled by hand.
type SystemLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp      time.Time      `gorm:"not null;index" json:"timestamp"`
	Level          string         `gorm:"size:10;not null;index" json:"level"`
	Message        string         `gorm:"type:text" json:"message"`
	RequestID      string         `gorm:"size:64;index" json:"request_id"`
	Stage          string         `gorm:"size:32;index" json:"stage"`
	ChatID         *string        `gorm:"size:36" json:"chat_id"`
	ReportedUserID *string        `gorm:"size:36;index" json:"reported_user_id"`
	ReportID       *string        `gorm:"size:36" json:"report_id"`
	Error          string         `gorm:"type:text" json:"error"`
	LatencyMs      int            `json:"latency_ms"`
	Extra          datatypes.JSON `json:"extra"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (SystemLog) TableName() string {
	return "system_logs"
}
