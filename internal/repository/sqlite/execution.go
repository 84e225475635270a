package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/Avilink123/avilink-sandbox/internal/apperror"
	"github.com/Avilink123/avilink-sandbox/internal/model"
	"github.com/Avilink123/avilink-sandbox/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` verifies at compile time that *DB implements the
// repository interface. Without this, a missing method only surfaces when
// *DB is passed somewhere expecting the interface — much later.
var _ repository.ExecutionRepository = (*DB)(nil)

// Create inserts a new execution record.
//
// ID GENERATION WITH xid:
// xid generates 20-char, URL-safe IDs that sort by creation time (they start
// with a timestamp) — convenient for an append-only history table.
//
// The pointer receiver matters: after Create() the caller's record carries
// the generated ID and timestamp.
func (db *DB) Create(ctx context.Context, record *model.ExecutionRecord) error {
	record.ID = xid.New().String()
	record.CreatedAt = time.Now()

	if record.Language == "" {
		record.Language = "python"
	}
	if record.Metadata == "" {
		record.Metadata = "{}"
	}

	// Parameterized query — the driver escapes every value, so user code
	// containing quotes or SQL fragments is stored verbatim and safely.
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO executions (id, user_id, language, code, output, error, status, duration_ms, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		record.Language,
		record.Code,
		record.Output,
		record.Error,
		record.Status,
		record.DurationMs,
		record.Metadata,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating execution record: %w", err)
	}

	return nil
}

// GetByID retrieves a single execution record.
//
// sql.ErrNoRows is not really an error — it just means "no matching row".
// We translate it to the app's NotFound error so the handler can return 404.
func (db *DB) GetByID(ctx context.Context, id string) (*model.ExecutionRecord, error) {
	var record model.ExecutionRecord

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, language, code, output, error, status, duration_ms, metadata, created_at
		 FROM executions
		 WHERE id = ?`,
		id,
	).Scan(
		&record.ID,
		&record.UserID,
		&record.Language,
		&record.Code,
		&record.Output,
		&record.Error,
		&record.Status,
		&record.DurationMs,
		&record.Metadata,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("execution", id)
		}
		return nil, fmt.Errorf("sqlite: getting execution %s: %w", id, err)
	}

	return &record, nil
}

// List retrieves execution records, newest first, optionally filtered by user.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.ExecutionRecord, error) {
	query := `SELECT id, user_id, language, code, output, error, status, duration_ms, metadata, created_at
	          FROM executions`
	args := []any{}

	if opts.UserID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, opts.UserID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing executions: %w", err)
	}
	// rows MUST be closed, or the connection leaks back into the pool held open.
	defer rows.Close()

	// Initialise to an empty slice (not nil) so an empty history serialises
	// as [] rather than null in JSON.
	records := []model.ExecutionRecord{}
	for rows.Next() {
		var record model.ExecutionRecord
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Language,
			&record.Code,
			&record.Output,
			&record.Error,
			&record.Status,
			&record.DurationMs,
			&record.Metadata,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning execution row: %w", err)
		}
		records = append(records, record)
	}

	// rows.Err() reports errors that happened DURING iteration (e.g. the
	// connection dropped halfway). Easy to forget, important to check.
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating executions: %w", err)
	}

	return records, nil
}
