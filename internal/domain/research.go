package domain

import "time"

type ResearchStatus string

const (
	ResearchStatusCreated   ResearchStatus = "created"
	ResearchStatusRunning   ResearchStatus = "running"
	ResearchStatusCompleted ResearchStatus = "completed"
	ResearchStatusFailed    ResearchStatus = "failed"
	ResearchStatusTimedOut  ResearchStatus = "timed_out"
)

// Terminal reports whether the status is absorbing: once a run reaches a
// terminal status it never transitions again.
func (s ResearchStatus) Terminal() bool {
	switch s {
	case ResearchStatusCompleted, ResearchStatusFailed, ResearchStatusTimedOut:
		return true
	}
	return false
}

type JSONB map[string]interface{}

// ResearchTask is the persisted unit of state for one relay run.
// Results grows by appending streamed report chunks in arrival order and
// never shrinks; Metadata collects every non-report structured event in
// arrival order.
type ResearchTask struct {
	ID       string         `json:"id"`
	UserID   string         `json:"user_id"`
	Topic    string         `json:"topic"`
	Results  string         `json:"results"`
	Metadata []JSONB        `json:"metadata"`
	Status   ResearchStatus `json:"status"`

	// Error holds the terminal error detail, if any.
	Error string `json:"error,omitempty"`
	// WriteErrors records progress-store writes that failed after
	// exhausting retries. The stream keeps going; the caller can tell
	// "finished" apart from "finished with lost progress writes".
	WriteErrors []string `json:"write_errors,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResearchRequest carries one submission. Parameters are passed through
// to the remote researcher opaquely, not validated here.
type ResearchRequest struct {
	Task         string            `json:"task"`
	ReportType   string            `json:"report_type"`
	ReportSource string            `json:"report_source"`
	Tone         string            `json:"tone"`
	UserID       string            `json:"user_id"`
	Topic        string            `json:"topic"`
	JWTToken     string            `json:"jwt_token"`
	Headers      map[string]string `json:"headers,omitempty"`
}
