package services

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/store"
	"github.com/google/uuid"
)

// ReportLedger writes one insert-only Report per classified moderation request.
type ReportLedger struct {
	store store.Store
}

func NewReportLedger(st store.Store) *ReportLedger {
	return &ReportLedger{store: st}
}

func (l *ReportLedger) Record(ctx context.Context, report *models.Report) (uuid.UUID, error) {
	if err := l.store.InsertReport(ctx, report); err != nil {
		return uuid.Nil, err
	}
	return report.ID, nil
}
