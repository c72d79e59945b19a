package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/messenger-moderation/internal/models"
)

const moderationSystemPrompt = `Ты модератор контента. Проанализируй сообщения и определи, нарушают ли они правила.
Правила:
1. Запрещены оскорбления, угрозы, дискриминация
2. Запрещен спам и мошенничество
3. Запрещен контент для взрослых
4. Запрещена реклама без согласия

Ответь строго в формате JSON:
{
  "verdict": "block" или "warn" или "safe",
  "confidence": число от 0 до 1,
  "reason": "краткое объяснение"
}`

const fallbackReason = "could not analyze"

// Verdict is the classifier's judgment plus its confidence.
type Verdict struct {
	Verdict    models.Verdict `json:"verdict"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason"`
}

// FallbackVerdict is used whenever the model reply cannot be trusted. It never blocks.
func FallbackVerdict() Verdict {
	return Verdict{Verdict: models.VerdictSafe, Confidence: 0.5, Reason: fallbackReason}
}

type Classifier interface {
	Classify(ctx context.Context, evidenceText, reason string) (Verdict, error)
}

// --- OpenAI-compatible types ---

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenRouterClassifier calls an OpenAI-compatible chat/completions endpoint once per request.
type OpenRouterClassifier struct {
	apiKey  string
	apiURL  string
	model   string
	referer string
	client  *http.Client
}

func NewOpenRouterClassifier(cfg *config.Config) *OpenRouterClassifier {
	return &OpenRouterClassifier{
		apiKey:  cfg.OpenRouterAPIKey,
		apiURL:  cfg.OpenRouterAPIURL,
		model:   cfg.ModerationModel,
		referer: cfg.OpenRouterReferer,
		client:  &http.Client{Timeout: cfg.AITimeout},
	}
}

func (c *OpenRouterClassifier) Classify(ctx context.Context, evidenceText, reason string) (Verdict, error) {
	if c.apiKey == "" {
		return Verdict{}, fmt.Errorf("%w: OPENROUTER_API_KEY is not configured", config.ErrConfig)
	}

	if strings.TrimSpace(reason) == "" {
		reason = "не указана"
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: moderationSystemPrompt},
			{Role: "user", Content: evidenceText + "\n\nПричина жалобы от пользователя: " + reason},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return Verdict{}, fmt.Errorf("build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ClassifierDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: read body: %v", ErrClassifierUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("classifier returned non-success status",
			"stage", "classify",
			"status", resp.StatusCode,
			"body", truncate(string(body), 500),
		)
		return Verdict{}, fmt.Errorf("%w: status %d", ErrClassifierUnavailable, resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil || len(chatResp.Choices) == 0 {
		slog.Warn("classifier response has no usable choices", "stage", "classify", "error", err)
		metrics.ClassifierVerdictsTotal.WithLabelValues(string(models.VerdictSafe), "unparseable").Inc()
		return FallbackVerdict(), nil
	}

	return parseVerdict(chatResp.Choices[0].Message.Content), nil
}

type rawVerdict struct {
	Verdict    *string  `json:"verdict"`
	Confidence *float64 `json:"confidence"`
	Reason     string   `json:"reason"`
}

var errMissingFields = errors.New("verdict or confidence missing")

// parseVerdict decodes the model reply. Malformed replies and verdicts outside the closed
// set both resolve to FallbackVerdict but are logged separately.
func parseVerdict(content string) Verdict {
	content = stripFences(content)

	var raw rawVerdict
	err := json.Unmarshal([]byte(content), &raw)
	if err == nil && (raw.Verdict == nil || raw.Confidence == nil) {
		err = errMissingFields
	}
	if err == nil && (*raw.Confidence < 0 || *raw.Confidence > 1) {
		err = fmt.Errorf("confidence %v out of range", *raw.Confidence)
	}
	if err != nil {
		slog.Warn("classifier verdict unparseable, using fallback",
			"stage", "classify",
			"error", err,
			"content", truncate(content, 500),
		)
		metrics.ClassifierVerdictsTotal.WithLabelValues(string(models.VerdictSafe), "unparseable").Inc()
		return FallbackVerdict()
	}

	verdict := models.Verdict(strings.ToLower(strings.TrimSpace(*raw.Verdict)))
	if !verdict.Valid() {
		slog.Warn("classifier returned unknown verdict, using fallback",
			"stage", "classify",
			"verdict", *raw.Verdict,
		)
		metrics.ClassifierVerdictsTotal.WithLabelValues(string(models.VerdictSafe), "unknown").Inc()
		return FallbackVerdict()
	}

	metrics.ClassifierVerdictsTotal.WithLabelValues(string(verdict), "ok").Inc()
	return Verdict{Verdict: verdict, Confidence: *raw.Confidence, Reason: raw.Reason}
}

// stripFences removes a markdown code fence, on its own lines or inline.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```JSON")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
