package store

import (
	"time"

	"github.com/akoval/recipeflow/internal/recipe"
)

// Status represents the lifecycle of an extraction record. Valid transitions
// are pending→succeeded, pending→failed, failed→succeeded, failed→failed.
// There is no transition back to pending, and succeeded is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSucceeded, StatusFailed:
		return true
	}
	return false
}

// Record is one extraction unit: the raw source text plus the current
// outcome. Recipe is set iff the record succeeded; the error fields are set
// iff it failed. A re-extraction overwrites prior failure fields.
type Record struct {
	ID        int64
	UUID      string
	Query     string
	SourceURL string
	RawTitle  string
	RawText   []string

	Status Status
	Recipe *recipe.Recipe

	ErrorKind    string
	ErrorMessage string
	ErrorTrace   string
	RawResponse  string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExtractedAt *time.Time
}

// Diagnosis is one stored analysis of a failed record. Records accumulate
// diagnoses over repeated failures; they are listed newest first.
type Diagnosis struct {
	ID        int64
	RecordID  int64
	Report    map[string]any
	Summary   string
	Model     string
	Reextract *ReextractOutcome
	CreatedAt time.Time
}

// ReextractOutcome captures the result of a re-extraction attempt performed
// while applying a diagnosis. It is embedded in the diagnosis row, not
// persisted as a record of its own.
type ReextractOutcome struct {
	Status       Status         `json:"status"`
	Recipe       *recipe.Recipe `json:"recipe,omitempty"`
	ErrorKind    string         `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Status Status
	From   time.Time
	To     time.Time
	Limit  int
}

// Stats summarizes records, optionally restricted to a creation-time range.
type Stats struct {
	Total       int
	ByStatus    map[Status]int
	ByErrorKind map[string]int
}
