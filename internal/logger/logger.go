// Package logger provides structured logging for the bot using log/slog,
// plus a Telegram middleware that logs update processing.
package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewLogger creates a slog Logger with the given level and output format.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// Middleware returns a Telegram bot middleware that logs each update with
// its chat/user identifiers and processing duration.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()

			logEntry := log.With("update_id", update.ID)
			if update.Message != nil {
				logEntry = logEntry.With(
					"message_id", update.Message.ID,
					"chat_id", update.Message.Chat.ID,
					"text_preview", truncate(update.Message.Text, 50),
				)
				if update.Message.From != nil {
					logEntry = logEntry.With("user_id", update.Message.From.ID)
				}
			}

			logEntry.DebugContext(ctx, "Processing update")
			next(ctx, b, update)
			logEntry.InfoContext(ctx, "Finished processing update", "duration", time.Since(start))
		}
	}
}

// truncate shortens s to at most maxLen runes, keeping the cut on a rune
// boundary so multibyte text stays valid UTF-8.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}
