// Package history keeps an operational log of detection-cycle outcomes. It
// records what happened each cycle, never page content — snapshots stay the
// only retained copy of a page.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Cycle outcomes.
const (
	OutcomeFetchFailed   = "fetch_failed"
	OutcomeBaseline      = "baseline"
	OutcomeUnchanged     = "unchanged"
	OutcomeIgnored       = "ignored"
	OutcomeDetected      = "detected" // significant, but notifications are disabled
	OutcomeNotified      = "notified"
	OutcomeNotifyFailed  = "notify_failed"
	OutcomeStorageFailed = "storage_failed"
)

// Record stores the outcome of a single detection cycle for one resource.
type Record struct {
	Resource    string    `json:"resource"`
	URL         string    `json:"url"`
	Outcome     string    `json:"outcome"`
	Significant bool      `json:"significant"`
	Error       string    `json:"error,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Stats summarizes the log for the dashboard.
type Stats struct {
	Total      int            `json:"total"`
	ByOutcome  map[string]int `json:"by_outcome"`
	LastCheck  time.Time      `json:"last_check"`
	FirstCheck time.Time      `json:"first_check"`
}

// Store persists cycle records to a JSON file. Detection cycles for different
// resources run concurrently, so all access is mutex-guarded.
type Store struct {
	mu      sync.Mutex
	path    string
	maxSize int
	records []Record
}

// New creates a Store at path. If path is empty, uses ~/.sitepulse/history.json.
func New(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".sitepulse", "history.json")
	}

	s := &Store{path: path, maxSize: 1000}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// Append records a cycle outcome and writes to disk. The log is capped; the
// oldest records are dropped first.
func (s *Store) Append(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.CheckedAt.IsZero() {
		record.CheckedAt = time.Now()
	}
	s.records = append(s.records, record)
	if len(s.records) > s.maxSize {
		s.records = s.records[len(s.records)-s.maxSize:]
	}
	return s.flush()
}

// Recent returns the last n records, newest last.
func (s *Store) Recent(n int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.records) - n
	if start < 0 {
		start = 0
	}
	out := make([]Record, len(s.records)-start)
	copy(out, s.records[start:])
	return out
}

// All returns a copy of every record.
func (s *Store) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Stats summarizes the log.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		Total:     len(s.records),
		ByOutcome: make(map[string]int),
	}
	for i, r := range s.records {
		stats.ByOutcome[r.Outcome]++
		if i == 0 || r.CheckedAt.Before(stats.FirstCheck) {
			stats.FirstCheck = r.CheckedAt
		}
		if r.CheckedAt.After(stats.LastCheck) {
			stats.LastCheck = r.CheckedAt
		}
	}
	return stats
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.records)
}

func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
