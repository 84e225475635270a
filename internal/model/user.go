// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents an owner of execution history.
//
// This service does not do authentication — callers identify themselves by a
// free-form name and we create the matching row on first use. The internal
// string ID (xid) keeps the executions table's foreign key stable even if the
// display name handling ever changes.
//
// WHY Name string (not an external provider ID)?
// The execution API is consumed by an upstream application that already knows
// who its users are. All we need is a stable handle to group history by;
// anything stronger is the caller's problem.
type User struct {
	ID        string    `json:"id"        db:"id"`
	Name      string    `json:"name"      db:"name"` // unique caller-supplied handle
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// AnonymousUser is the fallback owner for executions submitted without a user.
const AnonymousUser = "anonymous"
