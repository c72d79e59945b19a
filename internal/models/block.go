package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlockedUser records that a user has been sanctioned. At most one row per user.
type BlockedUser struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Reason    string     `gorm:"type:text" json:"reason"`
	ReportID  *uuid.UUID `gorm:"type:uuid;index" json:"report_id,omitempty"`
	BlockedAt time.Time  `gorm:"not null" json:"blocked_at"`
}

func (BlockedUser) TableName() string {
	return "blocked_users"
}

func (b *BlockedUser) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.BlockedAt.IsZero() {
		b.BlockedAt = time.Now().UTC()
	}
	return nil
}
