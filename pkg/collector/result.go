package collector

import "time"

// Kind identifies what a collection run was collecting.
type Kind string

const (
	// KindHistorical is a chunked backfill over a date range or all posts
	KindHistorical Kind = "historical"
	// KindMissingMetrics fills in snapshots for posts that have none
	KindMissingMetrics Kind = "missing-metrics"
	// KindIncremental is the "new posts since last run" check
	KindIncremental Kind = "incremental"
)

// maxRecordedFailures caps the per-item error examples kept on a result.
const maxRecordedFailures = 25

// ItemFailure records one item that could not be collected.
type ItemFailure struct {
	PostID string `json:"post_id"`
	Error  string `json:"error"`
}

// Result is the auditable outcome of one collection run. Counters are
// mutated as chunks complete and frozen once the run is finalized.
// Invariants: ProcessedItems <= TotalItems; once CompletedAt is set,
// SuccessItems + FailedItems == ProcessedItems.
type Result struct {
	ExecutionID string     `json:"execution_id"`
	AccountID   string     `json:"account_id"`
	Kind        Kind       `json:"collection_kind"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`

	TotalItems     int `json:"total_items"`
	ProcessedItems int `json:"processed_items"`
	SuccessItems   int `json:"success_items"`
	FailedItems    int `json:"failed_items"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// ErrorMessage is set only for run-level failures; per-item failures
	// show up in the counters and Failures, never here.
	ErrorMessage string        `json:"error_message,omitempty"`
	Failures     []ItemFailure `json:"failures,omitempty"`

	// APICallsMade counts calls attributed to this run, for audit.
	APICallsMade int `json:"api_calls_made"`
}

// newResult creates a Result with zeroed counters.
func newResult(executionID, accountID string, kind Kind, scope Scope) *Result {
	return &Result{
		ExecutionID: executionID,
		AccountID:   accountID,
		Kind:        kind,
		StartDate:   scope.Start,
		EndDate:     scope.End,
		StartedAt:   time.Now(),
	}
}

// recordSuccess accounts one successfully collected item.
func (r *Result) recordSuccess() {
	r.ProcessedItems++
	r.SuccessItems++
}

// recordFailure accounts one failed item and keeps a bounded example list.
func (r *Result) recordFailure(postID string, err error) {
	r.ProcessedItems++
	r.FailedItems++
	if len(r.Failures) < maxRecordedFailures {
		r.Failures = append(r.Failures, ItemFailure{PostID: postID, Error: err.Error()})
	}
}

// finalize freezes the result.
func (r *Result) finalize() *Result {
	r.CompletedAt = time.Now()
	return r
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Degraded reports whether the run should exit non-zero: any failed item
// or a run-level error.
func (r *Result) Degraded() bool {
	return r.FailedItems > 0 || r.ErrorMessage != ""
}
