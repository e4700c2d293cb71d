package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Backoff bounds
const (
	minBackoff = 100 * time.Millisecond
	maxBackoff = time.Hour
)

// Policy bounds the retry behavior of an Executor.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// BaseDelay is the backoff for the first retry; each further retry
	// doubles it.
	BaseDelay time.Duration
	// MaxDelay caps the backoff. Zero means the package ceiling applies.
	MaxDelay time.Duration
}

// DefaultPolicy mirrors the platform guidance: three retries starting at a
// minute apart.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Minute,
		MaxDelay:   time.Hour,
	}
}

// Backoff returns the sleep before retrying after the given zero-based
// attempt: BaseDelay * 2^attempt, clamped.
func (p Policy) Backoff(attempt int) time.Duration {
	backoff := p.BaseDelay * time.Duration(1<<attempt)

	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = maxBackoff
	}

	if backoff < minBackoff {
		return minBackoff
	}
	if backoff > maxDelay {
		return maxDelay
	}
	return backoff
}

// ExhaustedError reports that the retry budget was consumed. It carries
// the last underlying failure for diagnostics.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// QuotaGate is consulted before every attempt so that retries count against
// the same call budget as first attempts. DelayBeforeNextCall is pure;
// RecordCall is the caller-side increment after the call is made.
type QuotaGate interface {
	DelayBeforeNextCall() time.Duration
	RecordCall()
}

// Executor runs units of work under a retry policy, delegating the
// retry-or-abort decision to Classify and the pre-call wait to an optional
// quota gate.
type Executor struct {
	policy Policy
	quota  QuotaGate
	logger *logrus.Logger
}

// NewExecutor creates an Executor. quota may be nil when the unit of work
// makes no budgeted calls.
func NewExecutor(policy Policy, quota QuotaGate, logger *logrus.Logger) *Executor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Executor{
		policy: policy,
		quota:  quota,
		logger: logger,
	}
}

// Do executes op under the policy. A Fatal classification aborts
// immediately with the underlying error; a Retry classification backs off
// and re-runs until the budget is exhausted, at which point the failure is
// returned wrapped in *ExhaustedError. The backoff sleep is cooperative
// and honors ctx cancellation.
func (e *Executor) Do(ctx context.Context, name string, op func(context.Context) error) error {
	log := e.logger.WithField("unit", name)

	var lastErr error
	for attempt := 0; attempt <= e.policy.MaxRetries; attempt++ {
		if err := e.waitForQuota(ctx); err != nil {
			return err
		}

		err := op(ctx)
		if e.quota != nil {
			e.quota.RecordCall()
		}
		if err == nil {
			return nil
		}
		lastErr = err

		decision := Classify(err)
		log.WithFields(logrus.Fields{
			"attempt":  attempt + 1,
			"decision": decision.String(),
			"error":    err,
		}).Warn("Unit of work failed")

		if decision == Fatal {
			return err
		}
		if attempt == e.policy.MaxRetries {
			break
		}

		backoff := e.policy.Backoff(attempt)
		log.WithField("backoff", backoff.String()).Info("Backing off before retry")
		if err := sleepContext(ctx, backoff); err != nil {
			return err
		}
	}

	return &ExhaustedError{Attempts: e.policy.MaxRetries + 1, Err: lastErr}
}

// waitForQuota applies the quota tracker's required delay before a call.
func (e *Executor) waitForQuota(ctx context.Context) error {
	if e.quota == nil {
		return nil
	}
	delay := e.quota.DelayBeforeNextCall()
	if delay <= 0 {
		return nil
	}
	e.logger.WithField("delay", delay.String()).Warn("Quota budget low, waiting before next call")
	return sleepContext(ctx, delay)
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
