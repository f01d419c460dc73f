package handlers

import (
	"context"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewForgetHandler returns a handler for the /forget command, which erases
// the sender's conversation memory. Any user may forget their own history.
func NewForgetHandler(deps HandlerDeps) bot.HandlerFunc {
	return forgetHandler{deps}.Handle
}

type forgetHandler struct {
	deps HandlerDeps
}

func (h forgetHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "forget")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Forget handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	userKey := strconv.FormatInt(update.Message.From.ID, 10)
	log.InfoContext(ctx, "Handling /forget command", "chat_id", chatID, "user_id", update.Message.From.ID)

	reply := h.deps.Config.Messages.MemoryCleared
	if err := h.deps.Memory.Forget(ctx, userKey); err != nil {
		log.ErrorContext(ctx, "Failed to clear user memory", "error", err, "user_id", update.Message.From.ID)
		reply = h.deps.Config.Messages.MemoryClearError
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: reply}); err != nil {
		log.ErrorContext(ctx, "Failed to send forget confirmation", "error", err, "chat_id", chatID)
	}
}
