package sqlite

import (
	"context"
	"testing"

	"github.com/Avilink123/avilink-sandbox/internal/model"
)

func TestGetOrCreateByName_CreatesOnFirstUse(t *testing.T) {
	db := newTestDB(t)

	user, err := db.GetOrCreateByName(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	if user.ID == "" {
		t.Error("GetOrCreateByName() did not set ID")
	}
	if user.Name != "alice" {
		t.Errorf("Name = %q, want %q", user.Name, "alice")
	}
	if user.CreatedAt.IsZero() {
		t.Error("GetOrCreateByName() did not set CreatedAt")
	}
}

func TestGetOrCreateByName_IsIdempotent(t *testing.T) {
	db := newTestDB(t)

	first, err := db.GetOrCreateByName(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}

	second, err := db.GetOrCreateByName(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetOrCreateByName() second call error = %v", err)
	}

	// Same name must resolve to the same row, not a duplicate.
	if first.ID != second.ID {
		t.Errorf("GetOrCreateByName() returned different IDs: %q vs %q", first.ID, second.ID)
	}
}

func TestGetOrCreateByName_EmptyFallsBackToAnonymous(t *testing.T) {
	db := newTestDB(t)

	user, err := db.GetOrCreateByName(context.Background(), "")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	if user.Name != model.AnonymousUser {
		t.Errorf("Name = %q, want %q", user.Name, model.AnonymousUser)
	}
}
