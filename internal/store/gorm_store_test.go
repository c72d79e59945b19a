package store

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) (*GormStore, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every new connection to :memory: is a fresh database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Message{},
		&models.Profile{},
		&models.Report{},
		&models.BlockedUser{},
	))
	return NewGormStore(db), db
}

func seedMessage(t *testing.T, db *gorm.DB, chatID, senderID uuid.UUID, content string, at time.Time) models.Message {
	t.Helper()
	msg := models.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		SenderID:  &senderID,
		Content:   content,
		CreatedAt: at,
	}
	require.NoError(t, db.Create(&msg).Error)
	return msg
}

func TestRecentMessages_NewestFirstAndLimited(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	chatID, sender, other := uuid.New(), uuid.New(), uuid.New()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		seedMessage(t, db, chatID, sender, "msg"+string(rune('0'+i)), base.Add(time.Duration(i)*time.Minute))
	}
	seedMessage(t, db, chatID, other, "not theirs", base.Add(time.Hour))
	seedMessage(t, db, uuid.New(), sender, "other chat", base.Add(time.Hour))

	msgs, err := s.RecentMessages(ctx, chatID, sender, 5)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	assert.Equal(t, "msg6", msgs[0].Content)
	assert.Equal(t, "msg2", msgs[4].Content)
}

func TestRecentMessages_Empty(t *testing.T) {
	s, _ := newTestStore(t)
	msgs, err := s.RecentMessages(context.Background(), uuid.New(), uuid.New(), 5)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMessageByID(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	chatID, sender := uuid.New(), uuid.New()
	msg := seedMessage(t, db, chatID, sender, "hello", time.Now())

	got, err := s.MessageByID(ctx, chatID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)

	_, err = s.MessageByID(ctx, uuid.New(), msg.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.MessageByID(ctx, chatID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertReport_AssignsID(t *testing.T) {
	s, db := newTestStore(t)
	report := &models.Report{
		ReporterID:     uuid.New(),
		ReportedUserID: uuid.New(),
		ChatID:         uuid.New(),
		MessageID:      uuid.New(),
		Reason:         "spam",
		AIVerdict:      models.VerdictSafe,
		AIConfidence:   0.9,
		Status:         models.ReportStatusPending,
	}
	require.NoError(t, s.InsertReport(context.Background(), report))
	assert.NotEqual(t, uuid.Nil, report.ID)

	var count int64
	require.NoError(t, db.Model(&models.Report{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestBlockUser_IdempotentWithoutOverwrite(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()
	require.NoError(t, db.Create(&models.Profile{ID: userID, Name: "target"}).Error)

	firstReport := uuid.New()
	created, err := s.BlockUser(ctx, &models.BlockedUser{UserID: userID, Reason: "first", ReportID: &firstReport}, false)
	require.NoError(t, err)
	assert.True(t, created)

	secondReport := uuid.New()
	created, err = s.BlockUser(ctx, &models.BlockedUser{UserID: userID, Reason: "second", ReportID: &secondReport}, false)
	require.NoError(t, err)
	assert.False(t, created)

	var blocks []models.BlockedUser
	require.NoError(t, db.Where("user_id = ?", userID).Find(&blocks).Error)
	require.Len(t, blocks, 1)
	assert.Equal(t, "first", blocks[0].Reason)

	var profile models.Profile
	require.NoError(t, db.First(&profile, "id = ?", userID).Error)
	assert.True(t, profile.IsBlocked)
}

func TestBlockUser_OverwriteLastReasonWins(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()
	require.NoError(t, db.Create(&models.Profile{ID: userID, Name: "target"}).Error)

	_, err := s.BlockUser(ctx, &models.BlockedUser{UserID: userID, Reason: "first"}, true)
	require.NoError(t, err)
	_, err = s.BlockUser(ctx, &models.BlockedUser{UserID: userID, Reason: "second"}, true)
	require.NoError(t, err)

	var blocks []models.BlockedUser
	require.NoError(t, db.Where("user_id = ?", userID).Find(&blocks).Error)
	require.Len(t, blocks, 1)
	assert.Equal(t, "second", blocks[0].Reason)
}

func TestFindBlock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := s.FindBlock(ctx, userID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.BlockUser(ctx, &models.BlockedUser{UserID: userID, Reason: "spam"}, false)
	require.NoError(t, err)

	block, err := s.FindBlock(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "spam", block.Reason)
	assert.False(t, block.BlockedAt.IsZero())
}

func TestUnreconciledBlocks(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	missingBlock := uuid.New()
	flagNotSet := uuid.New()
	consistent := uuid.New()
	resolved := uuid.New()
	stale := uuid.New()

	tests := []struct {
		user       uuid.UUID
		createdAt  time.Time
		resolvedAt *time.Time
	}{
		{missingBlock, now, nil},
		{flagNotSet, now, nil},
		{consistent, now, nil},
		{resolved, now, &now},
		{stale, now.Add(-30 * 24 * time.Hour), nil},
	}
	for _, tt := range tests {
		require.NoError(t, db.Create(&models.Profile{ID: tt.user, Name: "u"}).Error)
		require.NoError(t, s.InsertReport(ctx, &models.Report{
			ReporterID:     uuid.New(),
			ReportedUserID: tt.user,
			ChatID:         uuid.New(),
			MessageID:      uuid.New(),
			AIVerdict:      models.VerdictBlock,
			AIConfidence:   0.9,
			Status:         models.ReportStatusAutoBlocked,
			CreatedAt:      tt.createdAt,
			ResolvedAt:     tt.resolvedAt,
		}))
	}
	_, err := s.BlockUser(ctx, &models.BlockedUser{UserID: consistent}, false)
	require.NoError(t, err)
	_, err = s.BlockUser(ctx, &models.BlockedUser{UserID: flagNotSet}, false)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Profile{}).Where("id = ?", flagNotSet).Update("is_blocked", false).Error)

	reports, err := s.UnreconciledBlocks(ctx, now.Add(-7*24*time.Hour), 10)
	require.NoError(t, err)

	var targets []uuid.UUID
	for _, r := range reports {
		targets = append(targets, r.ReportedUserID)
	}
	// resolved: a moderator unblocked the user, stale: outside the window
	assert.ElementsMatch(t, []uuid.UUID{missingBlock, flagNotSet}, targets)
}

func TestBlockUser_WarnsWithoutProfile(t *testing.T) {
	s, _ := newTestStore(t)
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	user := uuid.New()
	created, err := s.BlockUser(context.Background(), &models.BlockedUser{UserID: user, Reason: "spam"}, false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, buf.String(), "blocked user has no profile row")
	assert.Contains(t, buf.String(), user.String())
}

func TestPing(t *testing.T) {
	s, _ := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
