// Package config manages application configuration from default values,
// config.yaml, and BOT_-prefixed environment variables.
package config

import (
	"errors"
	"time"
)

// ErrConfigValidation marks configuration that must block startup.
var ErrConfigValidation = errors.New("config validation error")

// Config defines the application configuration for all components of the bot.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Style     StyleConfig     `mapstructure:"style"`
	Awareness AwarenessConfig `mapstructure:"awareness"`
	Persona   PersonaConfig   `mapstructure:"persona"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// BotInfo holds the bot's own Telegram identity, retrieved at startup via
// GetMe and stored for runtime use (mention detection, reply attribution).
type BotInfo struct {
	ID        int64
	Username  string
	FirstName string
}

// TelegramConfig holds Telegram connection and authorization settings.
type TelegramConfig struct {
	Token       string `mapstructure:"token"         validate:"required"`
	AdminUserID int64  `mapstructure:"admin_user_id" validate:"required,gt=0"`

	// BotInfo is populated at runtime, not from configuration.
	BotInfo BotInfo `mapstructure:"-"`
}

// GeminiConfig holds Gemini API settings. DetectModel is the cheaper model
// used for language detection; Model handles replies and media analysis.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"             validate:"required"`
	Model             string  `mapstructure:"model"               validate:"required"`
	DetectModel       string  `mapstructure:"detect_model"        validate:"required"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=1,max=60"`
	EnableSearch      bool    `mapstructure:"enable_search"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// MemoryConfig bounds the per-user conversation memory. ShortTermSize and
// LongTermSize are the two projection bounds over the append-only record
// log; LongTermWindow is how many records older than the short-term suffix
// the context assembler includes; MaxContextChars is the assembled payload
// size ceiling.
type MemoryConfig struct {
	ShortTermSize   int `mapstructure:"short_term_size"   validate:"required,min=1"`
	LongTermSize    int `mapstructure:"long_term_size"    validate:"required,min=1,gtefield=ShortTermSize"`
	LongTermWindow  int `mapstructure:"long_term_window"  validate:"min=0"`
	MaxContextChars int `mapstructure:"max_context_chars" validate:"required,min=1000"`
}

// SelectionConfig is one weighted-categorical table with its randomness
// factor. Probabilities must cover exactly the expected category set and sum
// to 1.0 within Style.Tolerance.
type SelectionConfig struct {
	Probabilities map[string]float64 `mapstructure:"probabilities"`
	Randomness    float64            `mapstructure:"randomness" validate:"min=0,max=1"`
}

// StyleConfig configures the stochastic response length and language level
// selection.
type StyleConfig struct {
	Length    SelectionConfig `mapstructure:"length"`
	Level     SelectionConfig `mapstructure:"level"`
	Tolerance float64         `mapstructure:"tolerance" validate:"gt=0,max=0.1"`
}

// AwarenessConfig controls the self/environment awareness snippet.
type AwarenessConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" validate:"min=10s,max=1h"`
}

// PersonaConfig is the personality instruction block. It is configuration
// data, not code; the default ships a complete persona.
type PersonaConfig struct {
	Instruction string `mapstructure:"instruction" validate:"required"`
}

// TaskConfig configures one scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// MessagesConfig holds user-facing canned messages.
type MessagesConfig struct {
	Welcome            string `mapstructure:"welcome"              validate:"required"`
	Help               string `mapstructure:"help"                 validate:"required"`
	GeneralError       string `mapstructure:"general_error"        validate:"required"`
	NotAuthorized      string `mapstructure:"not_authorized"       validate:"required"`
	MemoryCleared      string `mapstructure:"memory_cleared"       validate:"required"`
	MemoryClearError   string `mapstructure:"memory_clear_error"   validate:"required"`
	EmptyReplyFallback string `mapstructure:"empty_reply_fallback" validate:"required"`
	MediaError         string `mapstructure:"media_error"          validate:"required"`
}
