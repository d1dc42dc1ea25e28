package store

import (
	"strconv"
	"time"

	"github.com/derickschaefer/undertow/internal/model"
)

// Meta keys, all fixed strings per the published key set.
const (
	keyLastUpdated        = "meta:last_updated"
	keyLastAttempt        = "meta:last_attempt"
	keyLastSuccess        = "meta:last_success"
	keyLastError          = "meta:last_error"
	keyConsecutiveFailure = "meta:consecutive_failures"
	keyLastDurationMs     = "meta:last_duration_ms"
	keyRunLog             = "meta:run_log"
)

// RunMeta is the run-observability metadata surfaced by /api/health.
type RunMeta struct {
	LastUpdated        string `json:"last_updated,omitempty"`
	LastAttempt        string `json:"last_attempt,omitempty"`
	LastSuccess        string `json:"last_success,omitempty"`
	LastError          string `json:"last_error,omitempty"`
	ConsecutiveFailure int    `json:"consecutive_failures"`
	LastDurationMs     int64  `json:"last_duration_ms,omitempty"`
}

// ReadRunMeta reads the current run metadata block from its individual
// keys; a partially-written metadata set still resolves field by field.
func (s *Store) ReadRunMeta() RunMeta {
	return RunMeta{
		LastUpdated:        s.getString(keyLastUpdated),
		LastAttempt:        s.getString(keyLastAttempt),
		LastSuccess:        s.getString(keyLastSuccess),
		LastError:          s.getString(keyLastError),
		ConsecutiveFailure: s.getInt(keyConsecutiveFailure),
		LastDurationMs:     s.getInt64(keyLastDurationMs),
	}
}

// MarkAttempt records meta:last_attempt before lock acquisition.
func (s *Store) MarkAttempt(at time.Time) error {
	return s.Put(keyLastAttempt, []byte(at.UTC().Format(time.RFC3339)))
}

// MarkSuccess records the metadata updates for a successful run.
func (s *Store) MarkSuccess(generatedAt string, durationMs int64) error {
	if err := s.Put(keyLastUpdated, []byte(generatedAt)); err != nil {
		return err
	}
	if err := s.Put(keyLastSuccess, []byte(generatedAt)); err != nil {
		return err
	}
	if err := s.Put(keyLastError, []byte("")); err != nil {
		return err
	}
	if err := s.putInt(keyConsecutiveFailure, 0); err != nil {
		return err
	}
	return s.putInt64(keyLastDurationMs, durationMs)
}

// MarkFailure records the metadata updates for a failed run, incrementing
// the consecutive-failure counter based on the existing stored value
// (missing or invalid counts as 0).
func (s *Store) MarkFailure(errMsg string, durationMs int64) error {
	failures := s.getInt(keyConsecutiveFailure) + 1
	if err := s.Put(keyLastError, []byte(errMsg)); err != nil {
		return err
	}
	if err := s.putInt(keyConsecutiveFailure, failures); err != nil {
		return err
	}
	return s.putInt64(keyLastDurationMs, durationMs)
}

// AppendRunLog prepends entry to the run log, truncating to
// model.MaxRunLogEntries.
func (s *Store) AppendRunLog(entry model.RunLogEntry) error {
	var log []model.RunLogEntry
	if _, err := s.GetJSON(keyRunLog, &log); err != nil {
		return err
	}
	log = append([]model.RunLogEntry{entry}, log...)
	if len(log) > model.MaxRunLogEntries {
		log = log[:model.MaxRunLogEntries]
	}
	return s.PutJSON(keyRunLog, log)
}

// ReadRunLog returns the run log, most-recent-first.
func (s *Store) ReadRunLog() ([]model.RunLogEntry, error) {
	var log []model.RunLogEntry
	if _, err := s.GetJSON(keyRunLog, &log); err != nil {
		return nil, err
	}
	return log, nil
}

func (s *Store) getString(key string) string {
	v, ok, _ := s.Get(key)
	if !ok {
		return ""
	}
	return string(v)
}

func (s *Store) getInt(key string) int {
	v := s.getString(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func (s *Store) getInt64(key string) int64 {
	v := s.getString(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (s *Store) putInt(key string, n int) error {
	return s.Put(key, []byte(strconv.Itoa(n)))
}

func (s *Store) putInt64(key string, n int64) error {
	return s.Put(key, []byte(strconv.FormatInt(n, 10)))
}
