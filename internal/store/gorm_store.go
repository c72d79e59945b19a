package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) RecentMessages(ctx context.Context, chatID, senderID uuid.UUID, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND sender_id = ?", chatID, senderID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return messages, nil
}

func (s *GormStore) MessageByID(ctx context.Context, chatID, messageID uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).
		Where("id = ? AND chat_id = ?", messageID, chatID).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("message by id: %w", err)
	}
	return &msg, nil
}

func (s *GormStore) FindBlock(ctx context.Context, userID uuid.UUID) (*models.BlockedUser, error) {
	var block models.BlockedUser
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find block: %w", err)
	}
	return &block, nil
}

func (s *GormStore) InsertReport(ctx context.Context, report *models.Report) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *GormStore) BlockUser(ctx context.Context, block *models.BlockedUser, overwrite bool) (bool, error) {
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}
	if overwrite {
		conflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason", "report_id", "blocked_at"}),
		}
	}

	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(conflict).Create(block)
		if result.Error != nil {
			return fmt.Errorf("upsert blocked user: %w", result.Error)
		}
		created = result.RowsAffected > 0

		// Written even when the row already existed so a previously failed flip heals.
		flag := tx.Model(&models.Profile{}).
			Where("id = ?", block.UserID).
			Update("is_blocked", true)
		if flag.Error != nil {
			return fmt.Errorf("set profile blocked: %w", flag.Error)
		}
		if flag.RowsAffected == 0 {
			slog.Warn("blocked user has no profile row, is_blocked not set",
				"stage", "enforce",
				"reported_user_id", block.UserID.String(),
			)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// UnreconciledBlocks skips resolved reports so a human unblock is never reverted.
func (s *GormStore) UnreconciledBlocks(ctx context.Context, since time.Time, limit int) ([]models.Report, error) {
	var reports []models.Report
	err := s.db.WithContext(ctx).
		Where("status = ?", models.ReportStatusAutoBlocked).
		Where("resolved_at IS NULL").
		Where("created_at >= ?", since).
		Where(
			s.db.Where("NOT EXISTS (SELECT 1 FROM blocked_users b WHERE b.user_id = reports.reported_user_id)").
				Or("EXISTS (SELECT 1 FROM profiles p WHERE p.id = reports.reported_user_id AND p.is_blocked = ?)", false),
		).
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("unreconciled blocks: %w", err)
	}
	return reports, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
