package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ClientOption allows for customization of the client
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client, used by tests to
// point the client at a local server.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// Client issues individual calls against the Instagram Graph API. It
// attaches the access token, applies the per-call timeout, and surfaces
// typed failures. It never sleeps on failure and never retries; retry
// policy belongs to the caller.
type Client struct {
	config  *Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewClient creates a new Graph API client. The internal limiter spaces
// successive calls so that a full window's budget is spread over the hour
// rather than burned in a burst; it is pacing only, not quota accounting.
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	maxCalls := int(float64(config.CallsPerHour) * config.SafetyMargin)
	r := rate.Every(time.Hour / time.Duration(maxCalls))

	client := &Client{
		config:  config,
		http:    &http.Client{},
		limiter: rate.NewLimiter(r, 1), // burst size of 1 for conservative pacing
		logger:  config.Logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// makeRequest executes one GET against the Graph API and returns the raw
// body. Error envelopes and transport failures are mapped to the typed
// error taxonomy before returning.
func (c *Client) makeRequest(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransientNetworkError{Err: err}
	}

	fullURL := rawURL
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", rawURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "instalytics-collector/1.0")

	c.logger.WithFields(logrus.Fields{
		"url":    rawURL,
		"params": paramKeys(params),
	}).Debug("Making Graph API request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientNetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientNetworkError{Err: err}
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	if envelope.Error != nil {
		apiErr := errorFromEnvelope(envelope.Error.Code, resp.StatusCode, envelope.Error.Message)
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"error_code":  envelope.Error.Code,
			"error_type":  envelope.Error.Type,
			"message":     envelope.Error.Message,
		}).Error("Graph API error")
		return nil, apiErr
	}

	return body, nil
}

func paramKeys(params url.Values) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "access_token" {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}
