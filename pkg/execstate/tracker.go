// Package execstate persists the timestamp of the last successful
// incremental run so "since last run" checks survive process restarts.
package execstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultStateDir is the directory used when none is configured.
const DefaultStateDir = "data/execution_state"

// state is the persisted record. Timestamps are RFC3339 with zone.
type state struct {
	LastExecutionTime string `json:"last_execution_time"`
	UpdatedAt         string `json:"updated_at"`
}

// Tracker owns one execution-state record, scoped to a job name. No other
// component reads or writes the backing file.
type Tracker struct {
	path   string
	logger *logrus.Logger
}

// NewTracker creates a tracker for the given job scope under stateDir.
// The directory is created if missing.
func NewTracker(stateDir, jobName string, logger *logrus.Logger) (*Tracker, error) {
	if stateDir == "" {
		stateDir = DefaultStateDir
	}
	if jobName == "" {
		return nil, fmt.Errorf("job name is required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}

	return &Tracker{
		path:   filepath.Join(stateDir, fmt.Sprintf("%s_last_execution.json", jobName)),
		logger: logger,
	}, nil
}

// LastRun returns the recorded timestamp of the last successful run.
// ok is false when no record exists yet; callers should fall back to a
// bounded lookback, never to "all time".
func (t *Tracker) LastRun() (lastRun time.Time, ok bool, err error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to read execution state: %w", err)
	}

	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		t.logger.WithError(err).Warn("Execution state file is corrupt, treating as first run")
		return time.Time{}, false, nil
	}
	if s.LastExecutionTime == "" {
		return time.Time{}, false, nil
	}

	parsed, err := time.Parse(time.RFC3339, s.LastExecutionTime)
	if err != nil {
		// Zone-less timestamps from older writers are treated as UTC.
		parsed, err = time.ParseInLocation("2006-01-02T15:04:05", s.LastExecutionTime, time.UTC)
		if err != nil {
			t.logger.WithError(err).Warn("Unparseable execution timestamp, treating as first run")
			return time.Time{}, false, nil
		}
	}

	return parsed, true, nil
}

// RecordRun overwrites the stored timestamp. Call it only after the run is
// judged successful: a failed run must not advance the resumption point.
// The write is atomic (temp file + rename) so a crash never leaves a
// half-written record.
func (t *Tracker) RecordRun(executionTime time.Time) error {
	if executionTime.Location() == nil {
		executionTime = executionTime.UTC()
	}

	s := state{
		LastExecutionTime: executionTime.Format(time.RFC3339),
		UpdatedAt:         time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution state: %w", err)
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write execution state: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("failed to replace execution state: %w", err)
	}

	t.logger.WithFields(logrus.Fields{
		"path":           t.path,
		"execution_time": s.LastExecutionTime,
	}).Info("Execution state updated")

	return nil
}
