package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStatsHandler returns a handler for the admin-only /stats command,
// reporting how many users have stored memories and the configured bounds.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Stats handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /stats command", "chat_id", chatID, "user_id", update.Message.From.ID)

	count, err := h.deps.Store.CountUserMemories(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to count user memories", "error", err)
		if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: h.deps.Config.Messages.GeneralError}); sendErr != nil {
			log.ErrorContext(ctx, "Failed to send stats error message", "error", sendErr, "chat_id", chatID)
		}
		return
	}

	bounds := h.deps.Memory.Bounds()
	text := fmt.Sprintf("Users with stored memories: %d\nShort-term bound: %d records\nLong-term bound: %d records", count, bounds.ShortTerm, bounds.LongTerm)
	if h.deps.Config.Awareness.Enabled {
		text += "\n\n" + h.deps.Awareness.Snapshot(ctx)
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send stats message", "error", err, "chat_id", chatID)
	}
}
