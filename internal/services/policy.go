package services

import "github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/models"

// Variant selects how strict the policy and block enforcement are.
type Variant string

const (
	// VariantSimple blocks only on explicit block verdicts and upserts blocks unconditionally.
	VariantSimple Variant = "simple"
	// VariantRicher also blocks on confident warn verdicts and never re-blocks a blocked user.
	VariantRicher Variant = "richer"
)

const (
	BlockConfidenceThreshold = 0.70
	WarnConfidenceThreshold  = 0.75
)

type Decision struct {
	ShouldBlock bool
	Status      models.ReportStatus
}

// Decide maps a verdict to an action. Unknown verdict values never block.
func Decide(v Verdict, variant Variant) Decision {
	block := false
	switch v.Verdict {
	case models.VerdictBlock:
		block = v.Confidence >= BlockConfidenceThreshold
	case models.VerdictWarn:
		block = variant == VariantRicher && v.Confidence >= WarnConfidenceThreshold
	}

	if block {
		return Decision{ShouldBlock: true, Status: models.ReportStatusAutoBlocked}
	}
	return Decision{ShouldBlock: false, Status: models.ReportStatusPending}
}
