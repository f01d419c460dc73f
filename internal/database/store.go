package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations. Methods accept a
// context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetUserMemory retrieves the serialized memory payload for a user id.
	// Returns nil, nil when no record exists.
	GetUserMemory(ctx context.Context, userID string) ([]byte, error)

	// SaveUserMemory atomically inserts or replaces the serialized memory
	// payload for a user id.
	SaveUserMemory(ctx context.Context, userID string, payload []byte) error

	// DeleteUserMemory removes a user's persisted memory. Deleting a
	// missing record is not an error.
	DeleteUserMemory(ctx context.Context, userID string) error

	// CountUserMemories returns how many users have persisted memories.
	CountUserMemories(ctx context.Context) (int64, error)

	// RunSQLMaintenance performs database maintenance (VACUUM).
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore implements Store using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by the given sqlx connection pool.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) GetUserMemory(ctx context.Context, userID string) ([]byte, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var record UserMemoryRecord
	query := `SELECT user_id, payload, created_at, updated_at FROM user_memories WHERE user_id = ?`

	err := s.db.GetContext(ctx, &record, query, userID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No memory record found", "user_id", userID)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching memory",
			"user_id", userID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user memory", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get memory for user %s: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Fetched user memory", "user_id", userID, "payload_bytes", len(record.Payload))
	return record.Payload, nil
}

// SaveUserMemory writes the full payload in one transaction so a concurrent
// reader never observes a partially-written record.
func (s *sqlxStore) SaveUserMemory(ctx context.Context, userID string, payload []byte) error {
	if userID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}
	if len(payload) == 0 {
		return fmt.Errorf("cannot save empty memory payload")
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving memory",
			"user_id", userID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	query := `
        INSERT INTO user_memories (user_id, payload, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at;
    `
	if _, err := tx.ExecContext(ctx, query, userID, payload, now, now); err != nil {
		s.logger.ErrorContext(ctx, "Error saving user memory", "user_id", userID, "error", err)
		return fmt.Errorf("failed to save memory for user %s: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "user_id", userID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "User memory saved", "user_id", userID, "payload_bytes", len(payload))
	return nil
}

func (s *sqlxStore) DeleteUserMemory(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM user_memories WHERE user_id = ?`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting user memory", "user_id", userID, "error", err)
		return fmt.Errorf("failed to delete memory for user %s: %w", userID, err)
	}

	count, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Deleted user memory", "user_id", userID, "rows", count)
	return nil
}

func (s *sqlxStore) CountUserMemories(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_memories`); err != nil {
		s.logger.ErrorContext(ctx, "Error counting user memories", "error", err)
		return 0, fmt.Errorf("failed to count user memories: %w", err)
	}
	return count, nil
}

// RunSQLMaintenance executes VACUUM, which SQLite requires to run outside a
// transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	return nil
}
