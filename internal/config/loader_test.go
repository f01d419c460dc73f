package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dkoksal/mira/internal/config"
)

const minimalConfig = `telegram:
  token: "123456:test-token"
  admin_user_id: 99
gemini:
  api_key: "test-api-key"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Telegram.Token != "123456:test-token" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Memory.ShortTermSize != 25 || cfg.Memory.LongTermSize != 100 {
		t.Errorf("memory bounds = %d/%d, want 25/100", cfg.Memory.ShortTermSize, cfg.Memory.LongTermSize)
	}
	if cfg.Memory.LongTermWindow != 10 {
		t.Errorf("long-term window = %d, want 10", cfg.Memory.LongTermWindow)
	}
	if cfg.Style.Length.Randomness != 0.7 {
		t.Errorf("length randomness = %v, want 0.7", cfg.Style.Length.Randomness)
	}
	if cfg.Style.Level.Randomness != 1.0 {
		t.Errorf("level randomness = %v, want 1.0", cfg.Style.Level.Randomness)
	}
	if got := cfg.Style.Length.Probabilities["slightly_long"]; got != 0.35 {
		t.Errorf("slightly_long probability = %v, want 0.35", got)
	}
	if cfg.Persona.Instruction == "" {
		t.Error("default persona instruction is empty")
	}
	if !cfg.Awareness.Enabled {
		t.Error("awareness should default to enabled")
	}
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	_, err := config.LoadConfig(writeConfig(t, "log:\n  level: info\n"))
	if !errors.Is(err, config.ErrConfigValidation) {
		t.Fatalf("got %v, want ErrConfigValidation for missing credentials", err)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, minimalConfig+`memory:
  short_term_size: 10
  long_term_size: 40
style:
  length:
    randomness: 0.5
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Memory.ShortTermSize != 10 || cfg.Memory.LongTermSize != 40 {
		t.Errorf("memory bounds = %d/%d, want 10/40", cfg.Memory.ShortTermSize, cfg.Memory.LongTermSize)
	}
	if cfg.Style.Length.Randomness != 0.5 {
		t.Errorf("length randomness = %v, want 0.5", cfg.Style.Length.Randomness)
	}
	// Unoverridden table still comes from defaults.
	if got := cfg.Style.Length.Probabilities["medium"]; got != 0.25 {
		t.Errorf("medium probability = %v, want default 0.25", got)
	}
}

func TestLoadConfig_InvalidBounds(t *testing.T) {
	_, err := config.LoadConfig(writeConfig(t, minimalConfig+`memory:
  short_term_size: 50
  long_term_size: 20
`))
	if !errors.Is(err, config.ErrConfigValidation) {
		t.Fatalf("got %v, want ErrConfigValidation when long-term < short-term", err)
	}
}

func TestLoadConfig_BadStyleTable(t *testing.T) {
	_, err := config.LoadConfig(writeConfig(t, minimalConfig+`style:
  length:
    probabilities:
      extremely_short: 0.05
      slightly_short: 0.10
      medium: 0.20
      slightly_long: 0.35
      long: 0.25
`))
	if !errors.Is(err, config.ErrConfigValidation) {
		t.Fatalf("got %v, want ErrConfigValidation for sum 0.95", err)
	}
}
