// Package memory implements the per-user conversational memory: a bounded
// append-only log of message records with short-term and long-term
// projections, plus the durable store that persists one serialized memory
// per Telegram user id.
package memory

import (
	"time"
)

// Role identifies who produced a message record.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageRecord is one conversation turn entry.
type MessageRecord struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Bounds holds the two projection sizes over the record log. LongTerm is
// the only bound at which records are actually lost; ShortTerm is a view.
type Bounds struct {
	ShortTerm int
	LongTerm  int
}

// UserMemory is the full remembered state for one user. Records is an
// append-only log in chronological insertion order, bounded at the
// long-term cap with FIFO eviction. Short-term and long-term memory are
// projections of this single log, so a record visible in the short-term
// view is always also within the long-term bound.
type UserMemory struct {
	Records []MessageRecord `json:"records"`

	// LastMessageAt is when the user's previous message arrived; zero when
	// the user has never written before.
	LastMessageAt time.Time `json:"last_message_at"`

	// Language is the sticky detected language code. It is set on the
	// first confident detection and replaced only by a new confident,
	// differing detection.
	Language string `json:"language,omitempty"`
}

// New returns an empty memory.
func New() *UserMemory {
	return &UserMemory{}
}

// Append adds one record to the log and enforces the long-term bound,
// dropping the oldest records first. Evicted content is simply lost; there
// is no merging or summarization.
func (m *UserMemory) Append(role Role, text string, ts time.Time, bounds Bounds) {
	m.Records = append(m.Records, MessageRecord{Role: role, Text: text, Timestamp: ts})
	if bounds.LongTerm > 0 && len(m.Records) > bounds.LongTerm {
		evict := len(m.Records) - bounds.LongTerm
		m.Records = append([]MessageRecord(nil), m.Records[evict:]...)
	}
}

// ShortTerm returns the newest bounds.ShortTerm records in chronological
// order. The returned slice is a copy; mutating it does not affect the
// memory.
func (m *UserMemory) ShortTerm(bounds Bounds) []MessageRecord {
	start := 0
	if bounds.ShortTerm > 0 && len(m.Records) > bounds.ShortTerm {
		start = len(m.Records) - bounds.ShortTerm
	}
	return append([]MessageRecord(nil), m.Records[start:]...)
}

// LongTerm returns the full bounded log in chronological order, as a copy.
func (m *UserMemory) LongTerm() []MessageRecord {
	return append([]MessageRecord(nil), m.Records...)
}

// Clone returns a deep copy of the memory.
func (m *UserMemory) Clone() *UserMemory {
	return &UserMemory{
		Records:       append([]MessageRecord(nil), m.Records...),
		LastMessageAt: m.LastMessageAt,
		Language:      m.Language,
	}
}

// ObserveLanguage applies the sticky language rule: an empty detection
// (undetected) never changes the current language, a confident detection
// replaces it only when it differs. Returns true when the language changed.
func (m *UserMemory) ObserveLanguage(detected string) bool {
	if detected == "" || detected == m.Language {
		return false
	}
	m.Language = detected
	return true
}
