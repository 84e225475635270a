package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/Avilink123/avilink-sandbox/internal/model"
	"github.com/Avilink123/avilink-sandbox/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// GetOrCreateByName returns the user with the given name, creating the row on
// first use. The execution logger calls this for every record it writes, so
// the common case (user exists) is a single indexed SELECT.
//
// RACE ON FIRST USE:
// Two concurrent executions for a brand-new user can both miss the SELECT and
// both INSERT. The UNIQUE constraint on name makes one of them fail; that
// loser re-reads and returns the winner's row. This read → insert → re-read
// dance is the standard upsert pattern when you want the existing row back.
func (db *DB) GetOrCreateByName(ctx context.Context, name string) (*model.User, error) {
	if name == "" {
		name = model.AnonymousUser
	}

	user, err := db.getUserByName(ctx, name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: looking up user %q: %w", name, err)
	}

	candidate := &model.User{
		ID:        xid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)`,
		candidate.ID, candidate.Name, candidate.CreatedAt,
	)
	if err == nil {
		return candidate, nil
	}

	// Likely lost the insert race — fetch whoever won.
	if user, retryErr := db.getUserByName(ctx, name); retryErr == nil {
		return user, nil
	}
	return nil, fmt.Errorf("sqlite: creating user %q: %w", name, err)
}

func (db *DB) getUserByName(ctx context.Context, name string) (*model.User, error) {
	var user model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM users WHERE name = ?`,
		name,
	).Scan(&user.ID, &user.Name, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
