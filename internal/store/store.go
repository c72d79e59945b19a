// Package store is the narrow repository the moderation pipeline uses to reach the
// app's database: messages are read, reports are inserted, blocks are upserted and the
// profile flag is flipped. Nothing here caches block status.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("record not found")

type Store interface {
	// RecentMessages returns up to limit messages sent by senderID in chatID, newest first.
	RecentMessages(ctx context.Context, chatID, senderID uuid.UUID, limit int) ([]models.Message, error)
	// MessageByID returns ErrNotFound when the message is missing or belongs to another chat.
	MessageByID(ctx context.Context, chatID, messageID uuid.UUID) (*models.Message, error)
	FindBlock(ctx context.Context, userID uuid.UUID) (*models.BlockedUser, error)
	InsertReport(ctx context.Context, report *models.Report) error
	// BlockUser upserts the block row and sets profiles.is_blocked in one transaction.
	// With overwrite=false an existing row is left untouched and created is false.
	BlockUser(ctx context.Context, block *models.BlockedUser, overwrite bool) (created bool, err error)
	// UnreconciledBlocks lists unresolved auto_blocked reports created after since whose
	// target lacks a block row or still has is_blocked=false.
	UnreconciledBlocks(ctx context.Context, since time.Time, limit int) ([]models.Report, error)
	Ping(ctx context.Context) error
}
