package database_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/dkoksal/mira/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStore_UpsertOverwrites(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveUserMemory(ctx, "1", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.SaveUserMemory(ctx, "1", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("second save: %v", err)
	}

	payload, err := store.GetUserMemory(ctx, "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(payload, []byte(`{"v":2}`)) {
		t.Errorf("payload = %s, want the second write", payload)
	}

	count, err := store.CountUserMemories(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d after upsert, want 1", count)
	}
}

func TestStore_GetMissingUser(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	payload, err := store.GetUserMemory(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get missing user: %v", err)
	}
	if payload != nil {
		t.Errorf("payload = %s, want nil for missing user", payload)
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveUserMemory(ctx, "2", []byte(`{}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.DeleteUserMemory(ctx, "2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteUserMemory(ctx, "2"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestStore_RunSQLMaintenance(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.RunSQLMaintenance(context.Background()); err != nil {
		t.Fatalf("maintenance: %v", err)
	}
}
