package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a chat message. Read-only here.
type Message struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_chat_sender" json:"chat_id"`
	SenderID  *uuid.UUID `gorm:"type:uuid;index:idx_messages_chat_sender" json:"sender_id"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	Type      string     `gorm:"size:20;default:'text'" json:"type"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}
