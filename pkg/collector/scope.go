package collector

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidScope reports an unusable scope, e.g. an inverted date range.
// Raised before any network call is made.
var ErrInvalidScope = errors.New("invalid collection scope")

// Scope selects which items a collection run targets: an explicit date
// range, everything, or only posts missing a metrics snapshot.
type Scope struct {
	Start          *time.Time
	End            *time.Time
	All            bool
	MissingMetrics bool
}

// ScopeRange targets posts published between start and end inclusive.
func ScopeRange(start, end time.Time) Scope {
	return Scope{Start: &start, End: &end}
}

// ScopeDaysBack targets posts from the last n days.
func ScopeDaysBack(n int) Scope {
	end := time.Now()
	start := end.AddDate(0, 0, -n)
	return Scope{Start: &start, End: &end}
}

// ScopeAll targets every post with no date bound.
func ScopeAll() Scope {
	return Scope{All: true}
}

// ScopeMissingMetrics targets posts from the last 30 days that have no
// metrics snapshot yet.
func ScopeMissingMetrics() Scope {
	return Scope{MissingMetrics: true}
}

// Validate rejects unusable scopes before any work is done.
func (s Scope) Validate() error {
	if s.Start != nil && s.End != nil && s.End.Before(*s.Start) {
		return fmt.Errorf("%w: end date %s before start date %s",
			ErrInvalidScope, s.End.Format("2006-01-02"), s.Start.Format("2006-01-02"))
	}
	return nil
}

// Kind returns the collection kind the scope produces.
func (s Scope) Kind() Kind {
	if s.MissingMetrics {
		return KindMissingMetrics
	}
	return KindHistorical
}

// Contains reports whether a post published at t falls inside the scope's
// date bounds. An unbounded side always matches.
func (s Scope) Contains(t time.Time) bool {
	if s.Start != nil && t.Before(*s.Start) {
		return false
	}
	if s.End != nil {
		// End is inclusive to the day.
		endOfDay := time.Date(s.End.Year(), s.End.Month(), s.End.Day(), 23, 59, 59, 0, s.End.Location())
		if t.After(endOfDay) {
			return false
		}
	}
	return true
}

// String renders the scope for plan output and logs.
func (s Scope) String() string {
	switch {
	case s.MissingMetrics:
		return "missing-metrics (last 30 days)"
	case s.All:
		return "all posts"
	case s.Start != nil && s.End != nil:
		return fmt.Sprintf("%s .. %s", s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"))
	case s.Start != nil:
		return fmt.Sprintf("since %s", s.Start.Format("2006-01-02"))
	case s.End != nil:
		return fmt.Sprintf("until %s", s.End.Format("2006-01-02"))
	default:
		return "all posts"
	}
}
