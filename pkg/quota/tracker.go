// Package quota tracks API calls made within a rolling window and computes
// the delay required before the next call to stay under a per-account
// hourly ceiling. The tracker never blocks by itself; callers apply the
// returned delay and record their own calls.
package quota

import (
	"sync"
	"time"
)

// Default policy values
const (
	// DefaultCallsPerHour is the platform's per-account hourly ceiling
	DefaultCallsPerHour = 200
	// DefaultSafetyMargin is the fraction of the ceiling the tracker allows
	DefaultSafetyMargin = 0.9
	// DefaultWindow is the rolling window the ceiling is measured against
	DefaultWindow = time.Hour
	// DefaultResetDelay is the wait returned once the budget is exhausted
	DefaultResetDelay = time.Hour
	// DefaultCooldown is the wait returned once 80% of the budget is used
	DefaultCooldown = 5 * time.Minute
)

// cooldownThreshold is the budget fraction above which the short cooldown
// applies.
const cooldownThreshold = 0.8

// Config holds the quota policy knobs.
type Config struct {
	CallsPerHour int
	SafetyMargin float64
	Window       time.Duration
	ResetDelay   time.Duration
	Cooldown     time.Duration
}

// DefaultConfig returns the platform-default quota policy.
func DefaultConfig() Config {
	return Config{
		CallsPerHour: DefaultCallsPerHour,
		SafetyMargin: DefaultSafetyMargin,
		Window:       DefaultWindow,
		ResetDelay:   DefaultResetDelay,
		Cooldown:     DefaultCooldown,
	}
}

// Tracker owns the call counter for one account's credential. The quota is
// per-account: one tracker per account, never shared across accounts or
// across concurrent runs for the same account. State is process-local; a
// restart starts a fresh window.
type Tracker struct {
	mu              sync.Mutex
	config          Config
	callsMade       int
	windowStartedAt time.Time
	now             func() time.Time
}

// NewTracker creates a Tracker with a fresh window.
func NewTracker(config Config) *Tracker {
	if config.CallsPerHour <= 0 {
		config.CallsPerHour = DefaultCallsPerHour
	}
	if config.SafetyMargin <= 0 || config.SafetyMargin > 1 {
		config.SafetyMargin = DefaultSafetyMargin
	}
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	if config.ResetDelay <= 0 {
		config.ResetDelay = DefaultResetDelay
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultCooldown
	}

	t := &Tracker{
		config: config,
		now:    time.Now,
	}
	t.windowStartedAt = t.now()
	return t
}

// MaxCalls returns the effective per-window budget: floor(ceiling * margin).
func (t *Tracker) MaxCalls() int {
	return int(float64(t.config.CallsPerHour) * t.config.SafetyMargin)
}

// DelayBeforeNextCall returns the wait required before the next call given
// the calls already made in the current window. Pure policy, no side
// effects: exhausted budget waits out the window, 80% usage takes a short
// cooldown, anything below passes immediately.
func (t *Tracker) DelayBeforeNextCall() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverLocked()

	maxCalls := t.MaxCalls()
	switch {
	case t.callsMade >= maxCalls:
		return t.config.ResetDelay
	case float64(t.callsMade) >= float64(maxCalls)*cooldownThreshold:
		return t.config.Cooldown
	default:
		return 0
	}
}

// RecordCall increments the counter, rolling the window over first when it
// has aged out.
func (t *Tracker) RecordCall() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverLocked()
	t.callsMade++
}

// CallsMade returns the calls recorded in the current window.
func (t *Tracker) CallsMade() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverLocked()
	return t.callsMade
}

func (t *Tracker) rolloverLocked() {
	now := t.now()
	if now.Sub(t.windowStartedAt) >= t.config.Window {
		t.callsMade = 0
		t.windowStartedAt = now
	}
}
