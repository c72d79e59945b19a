package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/events"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/store"
	"github.com/google/uuid"
)

// fakeStore is an in-memory store.Store with the same upsert semantics as GormStore.
type fakeStore struct {
	mu        sync.Mutex
	messages  []models.Message
	reports   []models.Report
	blocks    map[uuid.UUID]models.BlockedUser
	profiles  map[uuid.UUID]bool
	blockErrs int // number of BlockUser calls that fail before succeeding
	blockCall int
	insertErr error
	findErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		blocks:   make(map[uuid.UUID]models.BlockedUser),
		profiles: make(map[uuid.UUID]bool),
	}
}

var _ store.Store = (*fakeStore)(nil)

func (f *fakeStore) addMessage(chatID, senderID uuid.UUID, content string, at time.Time) models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	sender := senderID
	msg := models.Message{ID: uuid.New(), ChatID: chatID, SenderID: &sender, Content: content, CreatedAt: at}
	f.messages = append(f.messages, msg)
	return msg
}

func (f *fakeStore) RecentMessages(_ context.Context, chatID, senderID uuid.UUID, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, m := range f.messages {
		if m.ChatID == chatID && m.SenderID != nil && *m.SenderID == senderID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) MessageByID(_ context.Context, chatID, messageID uuid.UUID) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == messageID && m.ChatID == chatID {
			msg := m
			return &msg, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) FindBlock(_ context.Context, userID uuid.UUID) (*models.BlockedUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	b, ok := f.blocks[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (f *fakeStore) InsertReport(_ context.Context, report *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.CreatedAt = time.Now()
	f.reports = append(f.reports, *report)
	return nil
}

func (f *fakeStore) BlockUser(_ context.Context, block *models.BlockedUser, overwrite bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockCall++
	if f.blockCall <= f.blockErrs {
		return false, errors.New("connection reset")
	}
	if block.BlockedAt.IsZero() {
		block.BlockedAt = time.Now()
	}
	_, exists := f.blocks[block.UserID]
	if !exists || overwrite {
		if block.ID == uuid.Nil {
			block.ID = uuid.New()
		}
		f.blocks[block.UserID] = *block
	}
	f.profiles[block.UserID] = true
	return !exists || overwrite, nil
}

func (f *fakeStore) UnreconciledBlocks(_ context.Context, since time.Time, limit int) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Report
	for _, r := range f.reports {
		if r.Status != models.ReportStatusAutoBlocked || r.ResolvedAt != nil || r.CreatedAt.Before(since) {
			continue
		}
		_, hasBlock := f.blocks[r.ReportedUserID]
		if !hasBlock || !f.profiles[r.ReportedUserID] {
			out = append(out, r)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) reportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

func (f *fakeStore) blockCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blocks)
}

func (f *fakeStore) isBlocked(userID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID]
}

// fakeClassifier returns a canned verdict and records what it was asked.
type fakeClassifier struct {
	mu       sync.Mutex
	verdict  Verdict
	err      error
	calls    int
	lastText string
}

func (c *fakeClassifier) Classify(_ context.Context, evidenceText, _ string) (Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.lastText = evidenceText
	return c.verdict, c.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.UserBlocked
}

func (p *recordingPublisher) PublishUserBlocked(_ context.Context, evt events.UserBlocked) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() {}
