package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/events"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/store"
	"github.com/google/uuid"
)

type EnforceResult int

const (
	Blocked EnforceResult = iota + 1
	AlreadyBlocked
)

func (r EnforceResult) String() string {
	switch r {
	case Blocked:
		return "blocked"
	case AlreadyBlocked:
		return "already_blocked"
	}
	return "unknown"
}

const (
	enforceAttempts = 3
	enforceBackoff  = 100 * time.Millisecond
)

// BlockEnforcer is the only writer of blocked_users and profiles.is_blocked.
type BlockEnforcer struct {
	store     store.Store
	variant   Variant
	publisher events.Publisher
	attempts  int
	backoff   time.Duration
}

func NewBlockEnforcer(st store.Store, variant Variant, publisher events.Publisher) *BlockEnforcer {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &BlockEnforcer{
		store:     st,
		variant:   variant,
		publisher: publisher,
		attempts:  enforceAttempts,
		backoff:   enforceBackoff,
	}
}

// Enforce blocks userID on behalf of reportID. The richer variant returns AlreadyBlocked
// without writing when a block already exists; the simple variant overwrites it.
func (e *BlockEnforcer) Enforce(ctx context.Context, userID uuid.UUID, reason string, reportID uuid.UUID) (EnforceResult, error) {
	if e.variant == VariantRicher {
		_, err := e.store.FindBlock(ctx, userID)
		if err == nil {
			return AlreadyBlocked, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return 0, err
		}
	}

	var rid *uuid.UUID
	if reportID != uuid.Nil {
		rid = &reportID
	}
	return e.apply(ctx, &models.BlockedUser{UserID: userID, Reason: reason, ReportID: rid}, e.variant == VariantSimple)
}

// apply writes the block with bounded retries. A lost insert race is AlreadyBlocked, not an error.
func (e *BlockEnforcer) apply(ctx context.Context, block *models.BlockedUser, overwrite bool) (EnforceResult, error) {
	var (
		created bool
		err     error
	)
	for attempt := 1; attempt <= e.attempts; attempt++ {
		created, err = e.store.BlockUser(ctx, block, overwrite)
		if err == nil {
			break
		}
		slog.Warn("block write failed",
			"stage", "enforce",
			"reported_user_id", block.UserID.String(),
			"attempt", attempt,
			"error", err,
		)
		if attempt == e.attempts {
			return 0, err
		}
		select {
		case <-ctx.Done():
			return 0, errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(attempt) * e.backoff):
		}
	}

	if !created && !overwrite {
		return AlreadyBlocked, nil
	}

	evt := events.UserBlocked{
		UserID:    block.UserID,
		ReportID:  block.ReportID,
		Reason:    block.Reason,
		BlockedAt: block.BlockedAt,
	}
	if err := e.publisher.PublishUserBlocked(ctx, evt); err != nil {
		metrics.BlockEventsFailedTotal.Inc()
		slog.Warn("user_blocked event not published", "reported_user_id", block.UserID.String(), "error", err)
	}
	return Blocked, nil
}
