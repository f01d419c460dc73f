package memory_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dkoksal/mira/internal/database"
	"github.com/dkoksal/mira/internal/memory"
)

func newTestStore(t *testing.T) *memory.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return memory.NewStore(database.NewStore(db, log), memory.Bounds{ShortTerm: 25, LongTerm: 100}, log)
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.Append(ctx, "42", memory.RoleUser, "hello there", ts); err != nil {
		t.Fatalf("append user record: %v", err)
	}
	if err := store.Append(ctx, "42", memory.RoleAssistant, "hi, good to see you", ts.Add(2*time.Second)); err != nil {
		t.Fatalf("append assistant record: %v", err)
	}

	mem, err := store.Load(ctx, "42")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	records := mem.LongTerm()
	if len(records) != 2 {
		t.Fatalf("expected 2 records after round-trip, got %d", len(records))
	}
	if records[0].Role != memory.RoleUser || records[0].Text != "hello there" {
		t.Errorf("first record mismatch: %+v", records[0])
	}
	if records[1].Role != memory.RoleAssistant || records[1].Text != "hi, good to see you" {
		t.Errorf("second record mismatch: %+v", records[1])
	}
	if !records[0].Timestamp.Equal(ts) {
		t.Errorf("timestamp not preserved: got %v, want %v", records[0].Timestamp, ts)
	}
	if !mem.LastMessageAt.Equal(ts) {
		t.Errorf("LastMessageAt = %v, want %v (assistant records must not move it)", mem.LastMessageAt, ts)
	}
}

func TestStore_LoadUnknownUser(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	mem, err := store.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("load for unknown user: %v", err)
	}
	if len(mem.LongTerm()) != 0 || mem.Language != "" {
		t.Errorf("expected empty memory for unknown user, got %+v", mem)
	}
}

func TestStore_SavePreservesLanguage(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	mem := memory.New()
	mem.Append(memory.RoleUser, "oi", time.Now().UTC(), store.Bounds())
	mem.ObserveLanguage("Portuguese")

	if err := store.Save(ctx, "7", mem); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx, "7")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Language != "Portuguese" {
		t.Errorf("language = %q after round-trip, want Portuguese", loaded.Language)
	}
}

func TestStore_Forget(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, "9", memory.RoleUser, "remember this", time.Now().UTC()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Forget(ctx, "9"); err != nil {
		t.Fatalf("forget: %v", err)
	}

	mem, err := store.Load(ctx, "9")
	if err != nil {
		t.Fatalf("load after forget: %v", err)
	}
	if len(mem.LongTerm()) != 0 {
		t.Errorf("expected empty memory after forget, got %d records", len(mem.LongTerm()))
	}
}

func TestStore_BeginTurnSnapshot(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(5 * time.Minute)

	if _, err := store.BeginTurn(ctx, "21", "Portuguese", "oi", first); err != nil {
		t.Fatalf("first turn: %v", err)
	}

	snapshot, err := store.BeginTurn(ctx, "21", "", "tudo bem?", second)
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}

	// The snapshot is the state before the incoming message: it carries the
	// previous message's timestamp and the observed language, but not the
	// record being appended.
	if got := len(snapshot.LongTerm()); got != 1 {
		t.Fatalf("snapshot has %d records, want 1", got)
	}
	if snapshot.LongTerm()[0].Text != "oi" {
		t.Errorf("snapshot record = %q, want the earlier message", snapshot.LongTerm()[0].Text)
	}
	if !snapshot.LastMessageAt.Equal(first) {
		t.Errorf("snapshot LastMessageAt = %v, want %v", snapshot.LastMessageAt, first)
	}
	if snapshot.Language != "Portuguese" {
		t.Errorf("snapshot language = %q, want Portuguese", snapshot.Language)
	}

	// The persisted state includes the new record and the new timestamp.
	mem, err := store.Load(ctx, "21")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := len(mem.LongTerm()); got != 2 {
		t.Fatalf("persisted memory has %d records, want 2", got)
	}
	if !mem.LastMessageAt.Equal(second) {
		t.Errorf("persisted LastMessageAt = %v, want %v", mem.LastMessageAt, second)
	}
}

func TestStore_BeginTurnInterleaved(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	const turnsPerWriter = 20
	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < turnsPerWriter; i++ {
				text := fmt.Sprintf("writer %d message %d", w, i)
				if _, err := store.BeginTurn(ctx, "5", "", text, base.Add(time.Duration(i)*time.Second)); err != nil {
					t.Errorf("turn %d/%d: %v", w, i, err)
				}
			}
		}(w)
	}
	wg.Wait()

	mem, err := store.Load(ctx, "5")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Interleaved turns from the same user must all survive; a turn that
	// overwrites another writer's record is a lost update.
	if got := len(mem.LongTerm()); got != 2*turnsPerWriter {
		t.Errorf("expected %d records after interleaved turns, got %d", 2*turnsPerWriter, got)
	}
}

func TestStore_CorruptPayload(t *testing.T) {
	t.Parallel()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dbStore := database.NewStore(db, log)
	store := memory.NewStore(dbStore, memory.Bounds{ShortTerm: 25, LongTerm: 100}, log)
	ctx := context.Background()

	if err := dbStore.SaveUserMemory(ctx, "13", []byte("{not json")); err != nil {
		t.Fatalf("seed corrupt payload: %v", err)
	}

	if _, err := store.Load(ctx, "13"); !errors.Is(err, memory.ErrStorageCorrupt) {
		t.Fatalf("Load on corrupt payload: got %v, want ErrStorageCorrupt", err)
	}

	// Append must recover by reinitializing rather than failing the turn.
	if err := store.Append(ctx, "13", memory.RoleUser, "fresh start", time.Now().UTC()); err != nil {
		t.Fatalf("append over corrupt payload: %v", err)
	}

	mem, err := store.Load(ctx, "13")
	if err != nil {
		t.Fatalf("load after recovery: %v", err)
	}
	if got := len(mem.LongTerm()); got != 1 {
		t.Errorf("expected 1 record after recovery, got %d", got)
	}
}
