package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dkoksal/mira/internal/memory"
	"github.com/dkoksal/mira/internal/prompt"
)

const (
	mediaDownloadTimeout = 30 * time.Second
	aiProcessingTimeout  = 2 * time.Minute
	sendMessageTimeout   = 10 * time.Second
	memorySaveTimeout    = 5 * time.Second
)

type chatHandler struct {
	deps HandlerDeps
}

// NewChatHandler creates the default handler for non-command messages. It
// runs the full conversation turn: language detection, style selection,
// memory persistence, context assembly, generation, and reply.
func NewChatHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps}.Handle
}

func (h chatHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "chat")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.DebugContext(ctx, "Ignoring update with nil message or nil sender", "update_id", update.ID)
		return
	}

	media, hasMedia := SelectMedia(msg)
	if msg.Text == "" && msg.Caption == "" && !hasMedia {
		log.DebugContext(ctx, "Ignoring message with no text or media", "update_id", update.ID)
		return
	}

	if !h.shouldHandle(msg) {
		log.DebugContext(ctx, "Message not addressed to the bot, skipping", "chat_id", msg.Chat.ID)
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	chatID := msg.Chat.ID
	userKey := strconv.FormatInt(msg.From.ID, 10)
	msgTime := time.Unix(int64(msg.Date), 0).UTC()
	log.DebugContext(ctx, "Handling chat message", "chat_id", chatID, "user_id", msg.From.ID, "message_id", msg.ID)

	detected := ""
	if strings.TrimSpace(text) != "" {
		var err error
		detected, err = deps.GeminiClient.DetectLanguage(ctx, text)
		if err != nil {
			log.WarnContext(ctx, "Language detection failed, keeping current language", "error", err, "user_id", msg.From.ID)
			detected = ""
		}
	}

	// The user's turn is persisted before generation, atomically under the
	// per-user lock, so it survives a generation failure and interleaved
	// turns from the same user cannot lose each other's writes. The
	// returned snapshot precedes the new record and feeds assembly.
	saveCtx, saveCancel := context.WithTimeout(ctx, memorySaveTimeout)
	mem, err := deps.Memory.BeginTurn(saveCtx, userKey, detected, text, msgTime)
	saveCancel()
	if err != nil {
		log.WarnContext(ctx, "Failed to persist user turn, continuing with in-memory state", "error", err, "user_id", msg.From.ID)
	}

	selection := deps.Selector.Pick()
	log.DebugContext(ctx, "Selected reply style", "length", selection.Length, "level", selection.Level)

	awarenessSnippet := ""
	if deps.Config.Awareness.Enabled {
		awarenessSnippet = deps.Awareness.Snapshot(ctx)
	}

	pc, err := h.assemble(ctx, mem, text, awarenessSnippet, selection.Instruction())
	if err != nil {
		log.ErrorContext(ctx, "Context assembly failed", "error", err, "chat_id", chatID)
		h.sendText(ctx, b, chatID, deps.Config.Messages.GeneralError)
		return
	}

	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	aiCtx, cancel := context.WithTimeout(ctx, aiProcessingTimeout)
	defer cancel()

	var reply string
	if hasMedia {
		reply, err = h.generateForMedia(aiCtx, b, pc, media)
		if err != nil {
			log.ErrorContext(ctx, "Media reply generation failed", "error", err, "chat_id", chatID)
			h.sendText(ctx, b, chatID, deps.Config.Messages.MediaError)
			return
		}
	} else {
		reply, err = deps.GeminiClient.GenerateReply(aiCtx, pc)
		if err != nil {
			log.ErrorContext(ctx, "AI generation failed", "error", err, "chat_id", chatID)
			h.sendText(ctx, b, chatID, deps.Config.Messages.GeneralError)
			return
		}
	}
	if reply == "" {
		log.WarnContext(ctx, "Empty AI response received, using fallback", "chat_id", chatID)
		reply = deps.Config.Messages.EmptyReplyFallback
	}

	sendCtx, sendCancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer sendCancel()
	sent, err := b.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID:          chatID,
		Text:            reply,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send reply message", "error", err, "chat_id", chatID)
		return
	}
	log.InfoContext(ctx, "Sent reply", "chat_id", chatID, "message_id", sent.ID)

	replyCtx, replyCancel := context.WithTimeout(ctx, memorySaveTimeout)
	defer replyCancel()
	if err := deps.Memory.Append(replyCtx, userKey, memory.RoleAssistant, reply, time.Now().UTC()); err != nil {
		log.WarnContext(ctx, "Failed to persist assistant reply, continuing", "error", err, "user_id", msg.From.ID)
	}
}

// shouldHandle decides whether the bot owns this message: private chats
// always, group chats only when mentioned by entity or bare username, or
// when replying to one of the bot's messages.
func (h chatHandler) shouldHandle(msg *models.Message) bool {
	if msg.Chat.Type == models.ChatTypePrivate {
		return true
	}

	botID := h.deps.Config.Telegram.BotInfo.ID
	username := h.deps.Config.Telegram.BotInfo.Username
	if username == "" {
		return false
	}

	text := strings.ToLower(msg.Text + " " + msg.Caption)
	mention := "@" + strings.ToLower(username)

	for _, e := range append(msg.Entities, msg.CaptionEntities...) {
		if e.Type == models.MessageEntityTypeMention && e.Offset >= 0 && e.Length > 0 && e.Offset+e.Length <= len(text) {
			if text[e.Offset:e.Offset+e.Length] == mention {
				return true
			}
		}
	}

	for _, w := range strings.Fields(text) {
		if strings.TrimFunc(w, unicode.IsPunct) == strings.ToLower(username) {
			return true
		}
	}

	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.ID == botID {
		return true
	}

	return false
}

// assemble builds the prompt context, progressively degrading on
// ErrContextTooLarge: shrink the long-term window, drop the awareness
// snippet, and as a last resort assemble without history.
func (h chatHandler) assemble(ctx context.Context, mem *memory.UserMemory, text, awarenessSnippet, styleText string) (*prompt.Context, error) {
	deps := h.deps
	log := deps.Logger.With("handler", "chat")

	req := prompt.Request{
		Memory:         mem,
		Incoming:       text,
		Now:            time.Now().UTC(),
		Persona:        deps.Config.Persona.Instruction,
		Awareness:      awarenessSnippet,
		Style:          styleText,
		LongTermWindow: -1,
	}
	window := deps.Config.Memory.LongTermWindow

	for {
		pc, err := deps.Assembler.Assemble(req)
		if err == nil {
			return pc, nil
		}
		if !errors.Is(err, prompt.ErrContextTooLarge) {
			return nil, err
		}

		switch {
		case window > 0:
			window /= 2
			req.LongTermWindow = window
			log.DebugContext(ctx, "Context too large, shrinking long-term window", "window", window)
		case req.Awareness != "":
			req.Awareness = ""
			log.DebugContext(ctx, "Context too large, dropping awareness snippet")
		case len(req.Memory.Records) > 0:
			req.Memory = memory.New()
			log.WarnContext(ctx, "Context too large, assembling without history")
		default:
			return nil, err
		}
	}
}

func (h chatHandler) sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	log := h.deps.Logger.With("handler", "chat")

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// generateForMedia downloads the attached photo or video and runs media
// analysis over the assembled context. Telegram's MIME type hint wins over
// content sniffing when present.
func (h chatHandler) generateForMedia(ctx context.Context, b *bot.Bot, pc *prompt.Context, media MediaAttachment) (string, error) {
	log := h.deps.Logger.With("handler", "chat")
	log.DebugContext(ctx, "Downloading media attachment", "file_id", media.FileID, "mime_type", media.MimeType)

	data, detectedMime, err := DownloadFile(ctx, b, h.deps.Config.Telegram.Token, media.FileID)
	if err != nil {
		return "", err
	}

	mimeType := media.MimeType
	if mimeType == "" {
		mimeType = detectedMime
	}

	return h.deps.GeminiClient.GenerateMediaAnalysis(ctx, pc, mimeType, data)
}
