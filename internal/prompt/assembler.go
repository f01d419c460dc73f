// Package prompt implements the context assembler: it merges a user's
// memory, the incoming message, elapsed time, sticky language, and opaque
// persona/awareness/style snippets into one ordered prompt payload.
//
// Assembly is pure: given the same inputs it produces the same output, it
// never mutates the input memory, and it performs no I/O.
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkoksal/mira/internal/memory"
)

// ErrContextTooLarge means the rendered payload exceeds the configured
// ceiling; the caller must shrink the long-term window and retry.
var ErrContextTooLarge = errors.New("assembled context exceeds size ceiling")

// Config holds the assembler's structural parameters.
type Config struct {
	// ShortTermSize is the short-term projection bound.
	ShortTermSize int

	// LongTermWindow is how many long-term records older than the
	// short-term suffix are included by default.
	LongTermWindow int

	// MaxChars is the rendered payload size ceiling.
	MaxChars int
}

// Request carries one turn's assembly inputs. Persona, Awareness, and
// Style are opaque pre-rendered snippets supplied by collaborators; empty
// snippets are omitted from the payload.
type Request struct {
	Memory   *memory.UserMemory
	Incoming string
	Now      time.Time

	Persona   string
	Awareness string
	Style     string

	// LongTermWindow overrides Config.LongTermWindow when >= 0; the
	// caller's context-too-large retry loop shrinks it toward zero.
	LongTermWindow int
}

// Context is the assembled prompt payload, kept in sections so callers can
// map them onto a structured API (system instruction vs. chat history).
type Context struct {
	Persona   string
	Awareness string
	Language  string
	Style     string
	Elapsed   string

	History  []memory.MessageRecord
	Incoming string
}

// Assembler builds prompt contexts.
type Assembler struct {
	cfg Config
}

// NewAssembler creates an assembler with the given configuration.
func NewAssembler(cfg Config) *Assembler {
	return &Assembler{cfg: cfg}
}

// Assemble builds the prompt context for one turn.
//
// The history window is deterministic given the memory state: the full
// short-term projection, preceded by up to LongTermWindow long-term records
// immediately older than the short-term suffix.
func (a *Assembler) Assemble(req Request) (*Context, error) {
	mem := req.Memory
	if mem == nil {
		mem = memory.New()
	}

	window := a.cfg.LongTermWindow
	if req.LongTermWindow >= 0 {
		window = req.LongTermWindow
	}

	pc := &Context{
		Persona:   req.Persona,
		Awareness: req.Awareness,
		Style:     req.Style,
		Language:  mem.Language,
		Incoming:  req.Incoming,
		History:   historyWindow(mem, a.cfg.ShortTermSize, window),
	}

	if !mem.LastMessageAt.IsZero() && req.Now.After(mem.LastMessageAt) {
		pc.Elapsed = elapsedPhrase(req.Now.Sub(mem.LastMessageAt))
	}

	if rendered := pc.Render(); len(rendered) > a.cfg.MaxChars {
		return nil, fmt.Errorf("%w: %d chars, ceiling %d", ErrContextTooLarge, len(rendered), a.cfg.MaxChars)
	}

	return pc, nil
}

// historyWindow returns the short-term projection preceded by up to window
// records immediately older than it, all in chronological order.
func historyWindow(mem *memory.UserMemory, shortTermSize, window int) []memory.MessageRecord {
	records := mem.LongTerm()

	shortStart := 0
	if shortTermSize > 0 && len(records) > shortTermSize {
		shortStart = len(records) - shortTermSize
	}

	longStart := shortStart - window
	if longStart < 0 {
		longStart = 0
	}

	return records[longStart:]
}

// elapsedPhrase buckets a duration into a natural-language phrase. The
// boundaries are a presentation concern, not a structural one.
func elapsedPhrase(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

// roleLabel maps record roles to the labels used in the rendered payload.
func roleLabel(r memory.Role) string {
	if r == memory.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

// Render concatenates the sections into the single prompt payload. The
// order is stable and part of the component's contract:
//
//  1. persona instructions
//  2. self/environment-awareness snippet
//  3. language instruction (sticky detected language)
//  4. style instructions (length bucket and language level)
//  5. time-elapsed phrase
//  6. history window
//  7. the new message
//
// Empty sections are skipped without leaving blank slots.
func (c *Context) Render() string {
	var sb strings.Builder

	writeSection := func(s string) {
		if s == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(s)
	}

	writeSection(c.Persona)
	writeSection(c.Awareness)
	if c.Language != "" {
		writeSection(fmt.Sprintf("Current conversation language: %s. Respond only in this language unless the user switches.", c.Language))
	}
	writeSection(c.Style)
	if c.Elapsed != "" {
		writeSection(fmt.Sprintf("The user's previous message was %s.", c.Elapsed))
	}

	if len(c.History) > 0 {
		var hb strings.Builder
		hb.WriteString("Conversation so far:")
		for _, rec := range c.History {
			hb.WriteString(fmt.Sprintf("\n%s: %s", roleLabel(rec.Role), rec.Text))
		}
		writeSection(hb.String())
	}

	writeSection(fmt.Sprintf("New message:\nUser: %s", c.Incoming))

	return sb.String()
}
