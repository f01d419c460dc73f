package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const defaultPersonaInstruction = `You are Mira, a warm, curious, and slightly mischievous conversational companion on Telegram. You chat like a real person: you have opinions, moods, and a sense of humor. You remember what people told you earlier and bring it up naturally. You never describe yourself as an AI assistant, never offer numbered lists of capabilities, and never apologize for limitations you don't need to mention. Match the user's energy: playful when they joke, calm and supportive when they are serious. Use emojis sparingly and only where a person would.`

// LoadConfig reads configuration from the given YAML file path, layering it
// over defaults and under BOT_* environment variables, then validates it.
// A missing config file is not an error; defaults plus environment must then
// supply all required values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
		slog.Info("Config file not found, using defaults and environment", "path", path)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}
	if err := cfg.ValidateStyle(); err != nil {
		return nil, err
	}

	slog.Info("Configuration loaded",
		"log_level", cfg.Log.Level,
		"gemini_model", cfg.Gemini.Model,
		"db_path", cfg.Database.Path,
		"short_term_size", cfg.Memory.ShortTermSize,
		"long_term_size", cfg.Memory.LongTermSize)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	// Secrets default to empty so the keys exist for AutomaticEnv;
	// validation rejects them when still unset.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)
	v.SetDefault("gemini.api_key", "")

	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.detect_model", "gemini-2.0-flash-lite")
	v.SetDefault("gemini.temperature", 1.0)
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("gemini.retry_delay_seconds", 5)
	v.SetDefault("gemini.enable_search", true)

	v.SetDefault("database.path", "storage.db")

	v.SetDefault("memory.short_term_size", 25)
	v.SetDefault("memory.long_term_size", 100)
	v.SetDefault("memory.long_term_window", 10)
	v.SetDefault("memory.max_context_chars", 24000)

	v.SetDefault("style.tolerance", 0.01)
	v.SetDefault("style.length.randomness", 0.7)
	v.SetDefault("style.length.probabilities", map[string]float64{
		"extremely_short": 0.05,
		"slightly_short":  0.10,
		"medium":          0.25,
		"slightly_long":   0.35,
		"long":            0.25,
	})
	v.SetDefault("style.level.randomness", 1.0)
	v.SetDefault("style.level.probabilities", map[string]float64{
		"A1": 0.15,
		"A2": 0.15,
		"B1": 0.20,
		"B2": 0.20,
		"C1": 0.15,
		"C2": 0.15,
	})

	v.SetDefault("awareness.enabled", true)
	v.SetDefault("awareness.refresh_interval", "5m")

	v.SetDefault("persona.instruction", defaultPersonaInstruction)

	v.SetDefault("scheduler.tasks.db_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.db_maintenance.schedule", "0 0 4 * * *")

	v.SetDefault("messages.welcome", "Hey, I'm @botname 👋 Just talk to me like you would to a friend.")
	v.SetDefault("messages.help", "Talk to me in a private chat, or mention @botname in a group. /forget clears everything I remember about you.")
	v.SetDefault("messages.general_error", "Something went wrong on my side. Try again in a moment.")
	v.SetDefault("messages.not_authorized", "You are not allowed to use this command.")
	v.SetDefault("messages.memory_cleared", "Done. I've forgotten our conversation.")
	v.SetDefault("messages.memory_clear_error", "I couldn't clear your memory right now. Try again later.")
	v.SetDefault("messages.empty_reply_fallback", "I'm not sure what to say to that. Tell me more?")
	v.SetDefault("messages.media_error", "I couldn't make that out. Can you send it again?")
}
