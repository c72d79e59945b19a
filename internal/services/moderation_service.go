package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/events"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/store"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	ErrNoEvidence            = errors.New("no messages to moderate")
	ErrAlreadyBlocked        = errors.New("user already blocked")
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrPersistence           = errors.New("persistence error")
	ErrSelfReport            = errors.New("cannot report yourself")
)

type ModerateInput struct {
	RequestID      string
	ReporterID     uuid.UUID
	ReportedUserID uuid.UUID
	ChatID         uuid.UUID
	Reason         string
	MessageID      *uuid.UUID
}

type ModerateResult struct {
	ReportID uuid.UUID
	Verdict  Verdict
	Status   models.ReportStatus
	Blocked  bool
}

type ModerationOptions struct {
	Variant       Variant
	EvidenceLimit int
}

// ModerationService runs one report through evidence, classification, policy, ledger
// and enforcement, synchronously.
type ModerationService struct {
	store      store.Store
	gatherer   *EvidenceGatherer
	classifier Classifier
	ledger     *ReportLedger
	enforcer   *BlockEnforcer
	variant    Variant
}

func NewModerationService(st store.Store, classifier Classifier, publisher events.Publisher, opts ModerationOptions) *ModerationService {
	if opts.Variant == "" {
		opts.Variant = VariantRicher
	}
	return &ModerationService{
		store:      st,
		gatherer:   NewEvidenceGatherer(st, opts.EvidenceLimit),
		classifier: classifier,
		ledger:     NewReportLedger(st),
		enforcer:   NewBlockEnforcer(st, opts.Variant, publisher),
		variant:    opts.Variant,
	}
}

func (s *ModerationService) Moderate(ctx context.Context, in ModerateInput) (*ModerateResult, error) {
	log := slog.With(
		"request_id", in.RequestID,
		"reporter_id", in.ReporterID.String(),
		"reported_user_id", in.ReportedUserID.String(),
		"chat_id", in.ChatID.String(),
	)

	if in.ReporterID == in.ReportedUserID {
		return nil, ErrSelfReport
	}

	if s.variant == VariantRicher {
		_, err := s.store.FindBlock(ctx, in.ReportedUserID)
		if err == nil {
			log.Info("reported user already blocked, skipping analysis")
			metrics.ModerationRequestsTotal.WithLabelValues(metrics.OutcomeAlreadyBlocked).Inc()
			return nil, ErrAlreadyBlocked
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, s.fail(ctx, log, "precheck", fmt.Errorf("%w: %w", ErrPersistence, err))
		}
	}

	evidence, err := s.gatherer.Gather(ctx, in.ChatID, in.ReportedUserID, in.MessageID)
	if errors.Is(err, ErrNoEvidence) {
		log.Info("no evidence to moderate")
		metrics.ModerationRequestsTotal.WithLabelValues(metrics.OutcomeNoEvidence).Inc()
		return nil, ErrNoEvidence
	}
	if err != nil {
		return nil, s.fail(ctx, log, "evidence", fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	verdict, err := s.classifier.Classify(ctx, evidence.Text(), in.Reason)
	if err != nil {
		return nil, s.fail(ctx, log, "classify", err)
	}

	decision := Decide(verdict, s.variant)

	report := &models.Report{
		ReporterID:     in.ReporterID,
		ReportedUserID: in.ReportedUserID,
		ChatID:         in.ChatID,
		MessageID:      evidence.Anchor(),
		Reason:         in.Reason,
		AIVerdict:      verdict.Verdict,
		AIConfidence:   verdict.Confidence,
		AIReason:       verdict.Reason,
		Status:         decision.Status,
	}
	if snapshot, err := json.Marshal(evidence); err == nil {
		report.Evidence = datatypes.JSON(snapshot)
	}

	reportID, err := s.ledger.Record(ctx, report)
	if err != nil {
		return nil, s.fail(ctx, log, "record", fmt.Errorf("%w: %w", ErrPersistence, err))
	}
	log = log.With("report_id", reportID.String())

	result := &ModerateResult{
		ReportID: reportID,
		Verdict:  verdict,
		Status:   decision.Status,
	}

	if !decision.ShouldBlock {
		log.Info("report recorded", "verdict", verdict.Verdict, "confidence", verdict.Confidence)
		metrics.ModerationRequestsTotal.WithLabelValues(metrics.OutcomeNotBlocked).Inc()
		return result, nil
	}

	outcome, err := s.enforcer.Enforce(ctx, in.ReportedUserID, blockReason(verdict), reportID)
	if err != nil {
		// The report stays auto_blocked; the reconciler re-applies the block later.
		metrics.EnforcementFailuresTotal.Inc()
		s.capture(ctx, err)
		log.Error("block enforcement failed, left for reconciliation", "stage", "enforce", "error", err)
		metrics.ModerationRequestsTotal.WithLabelValues(metrics.OutcomeNotBlocked).Inc()
		return result, nil
	}

	result.Blocked = true
	log.Info("user blocked", "verdict", verdict.Verdict, "confidence", verdict.Confidence, "enforcement", outcome.String())
	metrics.ModerationRequestsTotal.WithLabelValues(metrics.OutcomeBlocked).Inc()
	return result, nil
}

// BlockStatus returns the user's block record, or nil when the user is not blocked.
func (s *ModerationService) BlockStatus(ctx context.Context, userID uuid.UUID) (*models.BlockedUser, error) {
	block, err := s.store.FindBlock(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return block, nil
}

// Ping checks the backing store.
func (s *ModerationService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *ModerationService) fail(ctx context.Context, log *slog.Logger, stage string, err error) error {
	outcome := metrics.OutcomePersistenceError
	switch {
	case errors.Is(err, ErrClassifierUnavailable):
		outcome = metrics.OutcomeClassifierUnavailable
	case errors.Is(err, config.ErrConfig):
		outcome = metrics.OutcomeConfigError
	}
	metrics.ModerationRequestsTotal.WithLabelValues(outcome).Inc()
	s.capture(ctx, err)
	log.Error("moderation aborted", "stage", stage, "error", err)
	return err
}

func (s *ModerationService) capture(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

func blockReason(v Verdict) string {
	if v.Reason != "" {
		return v.Reason
	}
	return "auto-moderation: " + string(v.Verdict)
}
