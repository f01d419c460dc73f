package handlers

import (
	"log/slog"

	"github.com/dkoksal/mira/internal/awareness"
	"github.com/dkoksal/mira/internal/config"
	"github.com/dkoksal/mira/internal/database"
	"github.com/dkoksal/mira/internal/gemini"
	"github.com/dkoksal/mira/internal/memory"
	"github.com/dkoksal/mira/internal/prompt"
	"github.com/dkoksal/mira/internal/style"
)

// HandlerDeps provides dependencies for Telegram command and chat handlers.
type HandlerDeps struct {
	Logger       *slog.Logger
	Config       *config.Config
	Store        database.Store
	Memory       *memory.Store
	GeminiClient gemini.Client
	Awareness    *awareness.Provider
	Selector     *style.Selector
	Assembler    *prompt.Assembler
}
