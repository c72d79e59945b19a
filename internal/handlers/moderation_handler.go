package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/dto"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/services"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Moderator interface {
	Moderate(ctx context.Context, in services.ModerateInput) (*services.ModerateResult, error)
	BlockStatus(ctx context.Context, userID uuid.UUID) (*models.BlockedUser, error)
}

type ModerationHandler struct {
	moderator Moderator
}

func NewModerationHandler(moderator Moderator) *ModerationHandler {
	return &ModerationHandler{moderator: moderator}
}

func (h *ModerationHandler) Moderate(c *fiber.Ctx) error {
	var req dto.ModerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	in, err := parseModerateRequest(&req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	in.RequestID = requestID(c)

	if sub, err := middleware.TokenSubject(c); err == nil {
		if sub != in.ReporterID {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "reporterId does not match token"})
		}
	} else if !errors.Is(err, middleware.ErrNoToken) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid token claims"})
	}

	res, err := h.moderator.Moderate(userContext(c), in)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrAlreadyBlocked):
		return c.JSON(dto.FailureResponse{Error: err.Error(), AlreadyBlocked: true})
	case errors.Is(err, services.ErrNoEvidence):
		return c.JSON(dto.FailureResponse{Error: err.Error()})
	case errors.Is(err, services.ErrSelfReport):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	default:
		// details are already logged and captured by the service
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: publicError(err)})
	}

	return c.JSON(dto.ModerateResponse{
		Success:    true,
		Verdict:    string(res.Verdict.Verdict),
		Confidence: res.Verdict.Confidence,
		Reason:     res.Verdict.Reason,
		Blocked:    res.Blocked,
		ReportID:   res.ReportID.String(),
	})
}

// BlockStatus is what the blocked-user screen polls.
func (h *ModerationHandler) BlockStatus(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid user id"})
	}

	block, err := h.moderator.BlockStatus(userContext(c), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to fetch block status"})
	}
	if block == nil {
		return c.JSON(dto.BlockStatusResponse{Blocked: false})
	}

	blockedAt := block.BlockedAt
	return c.JSON(dto.BlockStatusResponse{
		Blocked:   true,
		Reason:    block.Reason,
		BlockedAt: &blockedAt,
	})
}

func parseModerateRequest(req *dto.ModerateRequest) (services.ModerateInput, error) {
	var in services.ModerateInput
	var err error

	if in.ReporterID, err = uuid.Parse(strings.TrimSpace(req.ReporterID)); err != nil {
		return in, errors.New("invalid reporterId")
	}
	if in.ReportedUserID, err = uuid.Parse(strings.TrimSpace(req.ReportedUserID)); err != nil {
		return in, errors.New("invalid reportedUserId")
	}
	if in.ChatID, err = uuid.Parse(strings.TrimSpace(req.ChatID)); err != nil {
		return in, errors.New("invalid chatId")
	}
	if in.ReporterID == in.ReportedUserID {
		return in, services.ErrSelfReport
	}
	if id := strings.TrimSpace(req.MessageID); id != "" {
		messageID, err := uuid.Parse(id)
		if err != nil {
			return in, errors.New("invalid messageId")
		}
		in.MessageID = &messageID
	}
	in.Reason = strings.TrimSpace(req.Reason)
	return in, nil
}

// publicError names the failed dependency without exposing driver or upstream text.
func publicError(err error) string {
	switch {
	case errors.Is(err, services.ErrClassifierUnavailable):
		return services.ErrClassifierUnavailable.Error()
	case errors.Is(err, config.ErrConfig):
		return "moderation is not configured"
	}
	return "internal server error"
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// userContext carries the request's Sentry hub down into the service layer.
func userContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		ctx = sentry.SetHubOnContext(ctx, hub)
	}
	return ctx
}
