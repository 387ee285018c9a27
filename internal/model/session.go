package model

import (
	"fmt"
	"time"
)

// Session tracks the counters for one pipeline run. It exists only for the
// duration of the run and is surfaced as statistics; it is never written
// into the catalog itself.
type Session struct {
	StartedAt   time.Time
	CompletedAt time.Time
	ID          string
	Errors      []string
	Attempted   int
	Succeeded   int
	APICalls    int
	ScrapeCalls int
	Skipped     int
}

// NewSession creates a session with a timestamp-derived identifier.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        fmt.Sprintf("session_%s_%04d", now.Format("20060102_150405"), now.UnixMilli()%10000),
		StartedAt: now,
	}
}

// AddError records a timestamped error string on the session.
func (s *Session) AddError(msg string) {
	s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", time.Now().UTC().Format(time.RFC3339), msg))
}

// Complete stamps the session end time.
func (s *Session) Complete() {
	s.CompletedAt = time.Now().UTC()
}

// SuccessRate returns the percentage of attempted identifiers that resolved.
func (s *Session) SuccessRate() float64 {
	if s.Attempted == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Attempted) * 100
}
