package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Verdict is the classifier's categorical judgment.
type Verdict string

const (
	VerdictSafe  Verdict = "safe"
	VerdictWarn  Verdict = "warn"
	VerdictBlock Verdict = "block"
)

// Valid reports whether v is one of the closed verdict values.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictSafe, VerdictWarn, VerdictBlock:
		return true
	}
	return false
}

// ReportStatus is set once, at insert time.
type ReportStatus string

const (
	ReportStatusPending     ReportStatus = "pending"
	ReportStatusAutoBlocked ReportStatus = "auto_blocked"
)

// Report is the audit record of one moderation request and its outcome.
type Report struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ReporterID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"reporter_id"`
	ReportedUserID uuid.UUID      `gorm:"type:uuid;not null;index" json:"reported_user_id"`
	ChatID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"chat_id"`
	MessageID      uuid.UUID      `gorm:"type:uuid;not null" json:"message_id"`
	Reason         string         `gorm:"type:text" json:"reason"`
	AIVerdict      Verdict        `gorm:"size:10" json:"ai_verdict"`
	AIConfidence   float64        `json:"ai_confidence"`
	AIReason       string         `gorm:"type:text" json:"ai_reason"`
	Evidence       datatypes.JSON `json:"evidence"`
	Status         ReportStatus   `gorm:"size:20;not null;default:'pending';index" json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
}

func (Report) TableName() string {
	return "reports"
}

func (r *Report) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
