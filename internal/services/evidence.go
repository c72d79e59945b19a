package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/store"
	"github.com/google/uuid"
)

const DefaultEvidenceLimit = 5

// EvidenceItem is one message being judged.
type EvidenceItem struct {
	MessageID uuid.UUID `json:"message_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Evidence is ordered newest first and never persisted as an entity.
type Evidence []EvidenceItem

// Anchor is the message the report points at: the newest evidence item.
func (e Evidence) Anchor() uuid.UUID {
	if len(e) == 0 {
		return uuid.Nil
	}
	return e[0].MessageID
}

// Text renders the evidence for the classifier: a single quoted message, or a numbered list.
func (e Evidence) Text() string {
	if len(e) == 1 {
		return fmt.Sprintf("Сообщение: \"%s\"", e[0].Content)
	}
	var b strings.Builder
	b.WriteString("Последние сообщения пользователя (от новых к старым):\n")
	for i, item := range e {
		fmt.Fprintf(&b, "%d. \"%s\"\n", i+1, item.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

type EvidenceGatherer struct {
	store store.Store
	limit int
}

func NewEvidenceGatherer(st store.Store, limit int) *EvidenceGatherer {
	if limit < 1 {
		limit = DefaultEvidenceLimit
	}
	return &EvidenceGatherer{store: st, limit: limit}
}

// Gather returns the explicitly reported message when messageID is set, otherwise the
// reported user's most recent messages in the chat. ErrNoEvidence when there is nothing to judge.
func (g *EvidenceGatherer) Gather(ctx context.Context, chatID, reportedUserID uuid.UUID, messageID *uuid.UUID) (Evidence, error) {
	if messageID != nil {
		msg, err := g.store.MessageByID(ctx, chatID, *messageID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoEvidence
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Content) == "" {
			return nil, ErrNoEvidence
		}
		return Evidence{{MessageID: msg.ID, Content: msg.Content, CreatedAt: msg.CreatedAt}}, nil
	}

	messages, err := g.store.RecentMessages(ctx, chatID, reportedUserID, g.limit)
	if err != nil {
		return nil, err
	}

	evidence := make(Evidence, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		evidence = append(evidence, EvidenceItem{MessageID: m.ID, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	if len(evidence) == 0 {
		return nil, ErrNoEvidence
	}
	return evidence, nil
}
