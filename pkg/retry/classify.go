// Package retry decides whether failed units of work are worth repeating
// and executes them under a bounded exponential-backoff policy.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/instalytics/collector/pkg/instagram"
)

// Decision is the classifier's verdict for a failure.
type Decision int

const (
	// Fatal means the unit of work can never succeed; abort immediately.
	Fatal Decision = iota
	// Retry means the failure looks temporary; back off and try again.
	Retry
)

// String returns the decision name for logging.
func (d Decision) String() string {
	if d == Retry {
		return "retry"
	}
	return "fatal"
}

// fatalPatterns are message substrings that mark a failure permanent.
// Checked before the retryable patterns so an auth failure wrapped in a
// generic network error is never retried forever.
var fatalPatterns = []string{
	"invalid token",
	"permission denied",
	"not found",
	"invalid parameter",
}

// retryablePatterns are message substrings that mark a failure temporary.
var retryablePatterns = []string{
	"timeout",
	"connection",
	"network",
	"rate limit",
	"temporarily unavailable",
}

// Classify decides whether an error is worth retrying. Rules are applied
// in order: fatal message patterns, then retryable message patterns, then
// the error's transport category.
func Classify(err error) Decision {
	if err == nil {
		return Fatal
	}

	msg := strings.ToLower(err.Error())

	for _, pattern := range fatalPatterns {
		if strings.Contains(msg, pattern) {
			return Fatal
		}
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return Retry
		}
	}

	var rateLimitErr *instagram.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return Retry
	}
	var transientErr *instagram.TransientNetworkError
	if errors.As(err, &transientErr) {
		return Retry
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Retry
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Retry
	}

	return Fatal
}
