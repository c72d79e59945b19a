package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/models"
	"github.com/google/uuid"
)

const (
	reconcileBatch  = 100
	// Older auto_blocked reports are left to humans.
	reconcileWindow = 7 * 24 * time.Hour
)

// Reconcile re-applies blocks for recent, unresolved auto_blocked reports whose
// enforcement never landed. It returns how many users were repaired.
func (s *ModerationService) Reconcile(ctx context.Context) (int, error) {
	reports, err := s.store.UnreconciledBlocks(ctx, time.Now().Add(-reconcileWindow), reconcileBatch)
	if err != nil {
		return 0, err
	}

	seen := make(map[uuid.UUID]bool, len(reports))
	fixed := 0
	for _, r := range reports {
		if seen[r.ReportedUserID] {
			continue
		}
		seen[r.ReportedUserID] = true

		reportID := r.ID
		block := &models.BlockedUser{
			UserID:   r.ReportedUserID,
			Reason:   blockReason(Verdict{Verdict: r.AIVerdict, Reason: r.AIReason}),
			ReportID: &reportID,
		}
		if _, err := s.enforcer.apply(ctx, block, false); err != nil {
			slog.Error("reconcile block failed",
				"stage", "reconcile",
				"report_id", r.ID.String(),
				"reported_user_id", r.ReportedUserID.String(),
				"error", err,
			)
			continue
		}
		fixed++
	}

	if fixed > 0 {
		metrics.ReconciledBlocksTotal.Add(float64(fixed))
		slog.Info("reconciled blocks", "count", fixed)
	}
	return fixed, nil
}

// StartReconciler runs Reconcile every interval until done is closed.
func StartReconciler(svc *ModerationService, interval time.Duration, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				if _, err := svc.Reconcile(ctx); err != nil {
					slog.Error("reconcile failed", "stage", "reconcile", "error", err)
				}
				cancel()
			case <-done:
				return
			}
		}
	}()
}
