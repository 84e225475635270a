// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Execution statuses. These are the only three terminal outcomes of a run:
// the process finished cleanly, it failed (non-zero exit, runtime error, or
// safety rejection), or it was killed for exceeding its deadline.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// ExecutionRecord is the persisted history entry for a single execution attempt.
// One row is written per call to the execution service — including rejected and
// timed-out runs — and rows are never updated or deleted by this component.
//
// The `json:"..."` tags tell Go's encoding/json package how to serialize/deserialize
// this struct to/from JSON; the `db:"..."` tags document the column each field
// maps to in the executions table.
//
// WHY DurationMs int64 INSTEAD OF time.Duration?
// time.Duration serialises to nanoseconds in JSON and has no native SQLite
// representation. Milliseconds as a plain integer round-trip cleanly through
// both the database and the API, and match the precision anyone reading the
// history actually cares about.
type ExecutionRecord struct {
	ID         string    `json:"id"         db:"id"`
	UserID     string    `json:"userId"     db:"user_id"`
	Language   string    `json:"language"   db:"language"` // always "python" today
	Code       string    `json:"code"       db:"code"`
	Output     string    `json:"output"     db:"output"`
	Error      string    `json:"error"      db:"error"`  // empty string = no error
	Status     string    `json:"status"     db:"status"` // StatusSuccess/StatusError/StatusTimeout
	DurationMs int64     `json:"durationMs" db:"duration_ms"`
	Metadata   string    `json:"metadata"   db:"metadata"` // free-form JSON (fingerprint, backend, ...)
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
}
