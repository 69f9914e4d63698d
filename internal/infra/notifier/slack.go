package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"notice-dispatch/internal/resilience/retry"

	"github.com/google/uuid"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	// WebhookURL is the Slack Incoming Webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for one webhook call
	Timeout time.Duration

	// RequestsPerSecond and Burst size the shared rate limiter.
	// Zero values select the Slack webhook limit of 1 message per second.
	RequestsPerSecond float64
	Burst             int

	// Retry overrides retry.WebhookConfig when MaxAttempts is non-zero.
	Retry retry.Config
}

// SlackNotifier posts messages to Slack via Incoming Webhook.
type SlackNotifier struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retry       retry.Config

	// OnRateLimitWait, when set, observes every limiter wait with the
	// message Source.
	OnRateLimitWait func(source string, waited time.Duration)
}

// NewSlackNotifier creates a new SlackNotifier with the specified configuration.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	rps, burst := config.RequestsPerSecond, config.Burst
	if rps <= 0 {
		rps = 1.0
	}
	if burst <= 0 {
		burst = 1
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc := config.Retry
	if rc.MaxAttempts == 0 {
		rc = retry.WebhookConfig()
	}

	return &SlackNotifier{
		config:      config,
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: NewRateLimiter(rps, burst),
		retry:       rc,
	}
}

// SlackWebhookPayload represents the JSON payload sent to Slack webhook using Block Kit.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`   // Fallback text (required)
	Blocks []SlackBlock `json:"blocks"` // Rich formatting blocks
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`               // "section", "context"
	Text     *SlackTextObject  `json:"text,omitempty"`     // Text content (for section)
	Elements []SlackTextObject `json:"elements,omitempty"` // Elements (for context)
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"`
}

const (
	// Slack Block Kit limits
	maxSectionTextLength = 3000
	maxContextTextLength = 2000
	maxFallbackLength    = 150

	slackTruncationSuffix = "..."
)

// buildBlockKitPayload renders msg as a section block, plus a context block
// when a footer is present. The mention is prepended to both the fallback
// and the section so the recipient gets pinged.
func buildBlockKitPayload(msg Message) SlackWebhookPayload {
	mention := ""
	if msg.Mention != "" {
		mention = fmt.Sprintf("<@%s> ", msg.Mention)
	}

	fallbackText := truncate(mention+msg.Title, maxFallbackLength, slackTruncationSuffix)

	sectionText := msg.Body
	if sectionText == "" {
		sectionText = msg.Title
	}
	sectionText = truncate(mention+sectionText, maxSectionTextLength, slackTruncationSuffix)

	blocks := []SlackBlock{{
		Type: "section",
		Text: &SlackTextObject{Type: "mrkdwn", Text: sectionText},
	}}
	if msg.Footer != "" {
		blocks = append(blocks, SlackBlock{
			Type: "context",
			Elements: []SlackTextObject{{
				Type: "mrkdwn",
				Text: truncate(msg.Footer, maxContextTextLength, slackTruncationSuffix),
			}},
		})
	}

	return SlackWebhookPayload{Text: fallbackText, Blocks: blocks}
}

// sendWebhookRequest performs one POST.
//
// Error types:
//   - 429: *RateLimitError carrying the Retry-After delay
//   - 4xx (non-429): *ClientError
//   - 5xx: *ServerError
//   - Network error: wrapped transport error
func (s *SlackNotifier) sendWebhookRequest(ctx context.Context, payload SlackWebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    "Slack rate limit exceeded",
			RetryAfter: extractRetryAfter(resp),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Slack API client error: %s", string(body)),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Slack API server error: %s", string(body)),
		}
	}

	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// attempt runs one request and marks the outcome for retry.WithBackoff.
// A 429 sleeps for the advertised delay before reporting itself retryable.
func (s *SlackNotifier) attempt(ctx context.Context, requestID string, payload SlackWebhookPayload) error {
	err := s.sendWebhookRequest(ctx, payload)
	if err == nil {
		return nil
	}

	var rateLimitErr *RateLimitError
	var clientErr *ClientError
	var serverErr *ServerError
	switch {
	case errors.As(err, &rateLimitErr):
		slog.Warn("Slack rate limit hit, backing off",
			slog.String("request_id", requestID),
			slog.Duration("retry_after", rateLimitErr.RetryAfter))
		select {
		case <-time.After(rateLimitErr.RetryAfter):
		case <-ctx.Done():
			return fmt.Errorf("context canceled during rate limit backoff: %w", ctx.Err())
		}
		return retry.Retryable(err)
	case errors.As(err, &clientErr):
		return err
	case errors.As(err, &serverErr):
		return retry.Retryable(err)
	case ctx.Err() != nil:
		return err
	default:
		// transport failures
		return retry.Retryable(err)
	}
}

// Notify posts msg to the webhook after waiting on the rate limiter.
func (s *SlackNotifier) Notify(ctx context.Context, msg Message) error {
	requestID := uuid.New().String()

	waited, err := s.rateLimiter.Wait(ctx)
	if s.OnRateLimitWait != nil {
		s.OnRateLimitWait(msg.Source, waited)
	}
	if err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	payload := buildBlockKitPayload(msg)
	err = retry.WithBackoff(ctx, s.retry, func() error {
		return s.attempt(ctx, requestID, payload)
	})
	if err != nil {
		slog.Error("Slack notification failed",
			slog.String("request_id", requestID),
			slog.String("mention", msg.Mention),
			slog.Any("error", err))
		return fmt.Errorf("slack notification: %w", err)
	}

	slog.Debug("Slack notification sent",
		slog.String("request_id", requestID),
		slog.String("mention", msg.Mention))
	return nil
}
