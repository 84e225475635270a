package repository

import (
	"context"

	"github.com/Avilink123/avilink-sandbox/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
	UserID string // empty = all users
}

// ExecutionRepository persists execution history. Records are write-once:
// there is no update or delete — history is an append-only audit trail.
type ExecutionRepository interface {
	Create(ctx context.Context, record *model.ExecutionRecord) error
	GetByID(ctx context.Context, id string) (*model.ExecutionRecord, error)
	List(ctx context.Context, opts ListOptions) ([]model.ExecutionRecord, error)
}

// UserRepository resolves owning users for execution records, creating them
// on first use.
type UserRepository interface {
	GetOrCreateByName(ctx context.Context, name string) (*model.User, error)
}
