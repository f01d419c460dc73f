package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dkoksal/mira/internal/database"
)

// Sentinel errors for the memory store. ErrStorageCorrupt means the
// persisted record could not be decoded; the recommended recovery is to
// discard it, reinitialize, and log the loss. ErrStorageWrite means
// persistence failed; the turn continues with in-memory-only state.
var (
	ErrStorageCorrupt = errors.New("persisted memory is corrupt")
	ErrStorageWrite   = errors.New("memory write failed")
)

// Store persists one UserMemory per user id and serializes concurrent
// operations on the same user. Cross-user operations are independent.
type Store struct {
	db     database.Store
	logger *slog.Logger
	bounds Bounds

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a memory store over the given database store.
func NewStore(db database.Store, bounds Bounds, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		db:     db,
		logger: logger.With("component", "memory_store"),
		bounds: bounds,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Bounds returns the configured projection bounds.
func (s *Store) Bounds() Bounds {
	return s.bounds
}

// lockFor returns the mutex guarding one user's memory, creating it lazily
// on first use. Locks are never discarded; the map grows with the user set.
func (s *Store) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Load reads the persisted memory for a user id. A missing record yields an
// empty memory. An unreadable record yields a wrapped ErrStorageCorrupt;
// the caller decides the recovery (discard and reinitialize, logging the
// loss).
func (s *Store) Load(ctx context.Context, userID string) (*UserMemory, error) {
	l := s.lockFor(userID)
	l.Lock()
	defer l.Unlock()

	return s.loadLocked(ctx, userID)
}

func (s *Store) loadLocked(ctx context.Context, userID string) (*UserMemory, error) {
	payload, err := s.db.GetUserMemory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory for user %s: %w", userID, err)
	}
	if payload == nil {
		s.logger.DebugContext(ctx, "No persisted memory, starting fresh", "user_id", userID)
		return New(), nil
	}

	mem := &UserMemory{}
	if err := json.Unmarshal(payload, mem); err != nil {
		s.logger.ErrorContext(ctx, "Persisted memory payload does not decode",
			"user_id", userID, "payload_bytes", len(payload), "error", err)
		return nil, fmt.Errorf("%w: user %s: %v", ErrStorageCorrupt, userID, err)
	}
	return mem, nil
}

// BeginTurn records one incoming user message in a single atomic
// load-modify-save under the per-user lock: it applies the language
// observation, appends the user record, and advances LastMessageAt. The
// returned memory is a clone of the state before the append (prior
// LastMessageAt, updated language), which is what prompt assembly needs.
//
// A corrupt or unreadable stored record is discarded and reinitialized; a
// turn never fails on load. A persistence failure returns the snapshot
// alongside a wrapped ErrStorageWrite so the caller can continue the turn
// with in-memory state.
func (s *Store) BeginTurn(ctx context.Context, userID string, detectedLanguage, text string, ts time.Time) (*UserMemory, error) {
	l := s.lockFor(userID)
	l.Lock()
	defer l.Unlock()

	mem, err := s.loadLocked(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStorageCorrupt) {
			s.logger.WarnContext(ctx, "Discarding corrupt memory record", "user_id", userID)
		} else {
			s.logger.ErrorContext(ctx, "Failed to load user memory, starting fresh", "user_id", userID, "error", err)
		}
		mem = New()
	}

	if mem.ObserveLanguage(detectedLanguage) {
		s.logger.InfoContext(ctx, "Conversation language changed", "user_id", userID, "language", detectedLanguage)
	}
	snapshot := mem.Clone()

	mem.Append(RoleUser, text, ts, s.bounds)
	mem.LastMessageAt = ts

	return snapshot, s.saveLocked(ctx, userID, mem)
}

// Append loads the user's memory, appends one record with the bounds
// enforced, and persists the result, all under the per-user lock.
func (s *Store) Append(ctx context.Context, userID string, role Role, text string, ts time.Time) error {
	l := s.lockFor(userID)
	l.Lock()
	defer l.Unlock()

	mem, err := s.loadLocked(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrStorageCorrupt) {
			return err
		}
		// Corrupt record: reinitialize and overwrite, logging the loss.
		s.logger.WarnContext(ctx, "Discarding corrupt memory record", "user_id", userID)
		mem = New()
	}

	mem.Append(role, text, ts, s.bounds)
	if role == RoleUser {
		mem.LastMessageAt = ts
	}

	return s.saveLocked(ctx, userID, mem)
}

// Save atomically persists the full memory for a user id. Failures are
// wrapped ErrStorageWrite; the caller may continue the turn with in-memory
// state.
func (s *Store) Save(ctx context.Context, userID string, mem *UserMemory) error {
	l := s.lockFor(userID)
	l.Lock()
	defer l.Unlock()

	return s.saveLocked(ctx, userID, mem)
}

func (s *Store) saveLocked(ctx context.Context, userID string, mem *UserMemory) error {
	payload, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("%w: failed to encode memory for user %s: %v", ErrStorageWrite, userID, err)
	}
	if err := s.db.SaveUserMemory(ctx, userID, payload); err != nil {
		return fmt.Errorf("%w: user %s: %v", ErrStorageWrite, userID, err)
	}
	return nil
}

// Forget removes the persisted memory for a user id.
func (s *Store) Forget(ctx context.Context, userID string) error {
	l := s.lockFor(userID)
	l.Lock()
	defer l.Unlock()

	return s.db.DeleteUserMemory(ctx, userID)
}
