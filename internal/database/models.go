package database

import "time"

// UserMemoryRecord is one persisted per-user memory: the serialized memory
// payload keyed by the Telegram user id.
type UserMemoryRecord struct {
	UserID    string    `db:"user_id"`
	Payload   []byte    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
