// Package notify delivers terminal run summaries to a Slack-style webhook.
// Delivery is best-effort: failures are logged and never retried, and a
// collection run never blocks on or fails from notification problems.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/instalytics/collector/pkg/collector"
)

// Defaults
const (
	// DefaultTimeout bounds one webhook delivery attempt
	DefaultTimeout = 10 * time.Second
	// MaxExampleFailures caps the failure examples included in a summary
	MaxExampleFailures = 5
)

// Config holds the notifier settings.
// Environment variables:
//   - SLACK_WEBHOOK_URL: webhook endpoint; empty disables delivery
type Config struct {
	WebhookURL string
	Timeout    time.Duration
	Logger     *logrus.Logger
}

// NewConfig builds a Config from the environment.
func NewConfig(logger *logrus.Logger) Config {
	return Config{
		WebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		Timeout:    DefaultTimeout,
		Logger:     logger,
	}
}

// Notifier posts run summaries to the configured webhook.
type Notifier struct {
	config Config
	client *http.Client
	logger *logrus.Logger
}

// New creates a Notifier. With an empty webhook URL every send is a no-op.
func New(config Config) *Notifier {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	return &Notifier{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: config.Logger,
	}
}

// runSummary is the flat payload delivered to the sink.
type runSummary struct {
	Text            string                  `json:"text"`
	AccountID       string                  `json:"account_id"`
	CollectionKind  string                  `json:"collection_kind"`
	TotalItems      int                     `json:"total_items"`
	SuccessItems    int                     `json:"success_items"`
	FailedItems     int                     `json:"failed_items"`
	DurationSeconds float64                 `json:"duration_seconds"`
	ErrorMessage    string                  `json:"error_message,omitempty"`
	Failures        []collector.ItemFailure `json:"failures,omitempty"`
}

// SendRunSummary delivers the summary for one run. Errors are logged at
// warn and swallowed.
func (n *Notifier) SendRunSummary(ctx context.Context, result *collector.Result) {
	if n.config.WebhookURL == "" {
		return
	}

	failures := result.Failures
	if len(failures) > MaxExampleFailures {
		failures = failures[:MaxExampleFailures]
	}

	status := "completed"
	if result.Degraded() {
		status = "degraded"
	}

	summary := runSummary{
		Text: fmt.Sprintf("%s collection %s for account %s: %d/%d succeeded, %d failed (%.1fs)",
			result.Kind, status, result.AccountID,
			result.SuccessItems, result.TotalItems, result.FailedItems,
			result.Duration().Seconds()),
		AccountID:       result.AccountID,
		CollectionKind:  string(result.Kind),
		TotalItems:      result.TotalItems,
		SuccessItems:    result.SuccessItems,
		FailedItems:     result.FailedItems,
		DurationSeconds: result.Duration().Seconds(),
		ErrorMessage:    result.ErrorMessage,
		Failures:        failures,
	}

	body, err := json.Marshal(summary)
	if err != nil {
		n.logger.WithError(err).Warn("Failed to marshal run summary")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.WithError(err).Warn("Failed to build notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.WithError(err).Warn("Failed to deliver run summary")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.WithField("status_code", resp.StatusCode).Warn("Notification sink rejected run summary")
		return
	}

	n.logger.WithFields(logrus.Fields{
		"account_id": result.AccountID,
		"kind":       result.Kind,
	}).Debug("Run summary delivered")
}
