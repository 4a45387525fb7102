package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/middleware"
	"github.com/set-night/chatcreate/internal/state"
	tg "github.com/set-night/chatcreate/internal/telegram"
)

// HandleDefault routes updates no registered handler matched: plain text
// goes to the chat, unknown commands get a hint.
func (h *Handler) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if strings.HasPrefix(update.Message.Text, "/") {
		h.reply(ctx, b, update.Message.Chat.ID, "🤔 Unknown command. See /help.")
		return
	}
	h.HandleText(ctx, b, update)
}

// HandleText sends a user message to the chat model.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}
	chatID := update.Message.Chat.ID
	text := update.Message.Text

	go h.runChat(ctx, b, chatID, store, func(ctx context.Context) error {
		return h.chat.Send(ctx, store, text)
	})
}

func (h *Handler) handleRegenerate(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, messageID, ok := callbackMessage(update)
	if !ok {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}

	index, err := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, "regen_"))
	if err != nil {
		h.answer(ctx, b, update, "")
		return
	}
	if store.Snapshot().IsStreaming {
		h.answer(ctx, b, update, "⏳ Wait for the current reply to finish.")
		return
	}
	h.answer(ctx, b, update, "🔄 Regenerating...")

	// The old reply stays visible but loses its button.
	b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:    chatID,
		MessageID: messageID,
	})

	go h.runChat(ctx, b, chatID, store, func(ctx context.Context) error {
		return h.chat.Regenerate(ctx, store, index)
	})
}

func (h *Handler) handleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}
	if !h.chat.Cancel(store.Key()) {
		h.reply(ctx, b, update.Message.Chat.ID, "Nothing to cancel.")
	}
}

func (h *Handler) handleCancelButton(ctx context.Context, b *bot.Bot, update *models.Update) {
	store := middleware.GetSession(ctx)
	if store == nil || update.CallbackQuery == nil {
		return
	}
	if h.chat.Cancel(store.Key()) {
		h.answer(ctx, b, update, "⏹ Stopping...")
		return
	}
	h.answer(ctx, b, update, "Nothing to cancel.")
}

// runChat shows a placeholder, mirrors the streaming buffer into it at the
// configured edit interval and replaces it with the final reply.
func (h *Handler) runChat(ctx context.Context, b *bot.Bot, chatID int64, store *state.Store, run func(context.Context) error) {
	placeholder, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        "⏳ Thinking...",
		ReplyMarkup: tg.InlineKeyboard(tg.ButtonRow(tg.InlineButton("⏹ Stop", "cancel"))),
	})
	if err != nil {
		slog.Error("send placeholder", "chat_id", chatID, "error", err)
		return
	}

	stopTyping := tg.StartTyping(ctx, b, chatID, models.ChatActionTyping)
	defer stopTyping()

	view := newStreamView(h.cfg.StreamEditInterval, func(text string) {
		err := tg.EditLongMessage(ctx, b, chatID, placeholder.ID, text+" ▌",
			tg.InlineKeyboard(tg.ButtonRow(tg.InlineButton("⏹ Stop", "cancel"))))
		if err != nil {
			slog.Debug("edit streaming message", "chat_id", chatID, "error", err)
		}
	})
	unsubscribe := store.Subscribe(func(s state.State) {
		if s.IsStreaming && s.StreamingContent != "" {
			view.Offer(s.StreamingContent)
		}
	})

	err = run(ctx)
	unsubscribe()
	view.Stop()

	switch {
	case errors.Is(err, domain.ErrBusy):
		h.editPlain(ctx, b, chatID, placeholder.ID, "⏳ Wait for the current reply to finish, or /cancel it.")
		return
	case errors.Is(err, domain.ErrCancelled):
		h.editPlain(ctx, b, chatID, placeholder.ID, "⏹ Cancelled.")
		return
	case errors.Is(err, domain.ErrEmptyMessage):
		h.editPlain(ctx, b, chatID, placeholder.ID, "✏️ The message is empty.")
		return
	case errors.Is(err, domain.ErrNothingToRegenerate):
		h.editPlain(ctx, b, chatID, placeholder.ID, "🤷 There is nothing to regenerate.")
		return
	case err != nil:
		h.tgLogger.LogGeneration(domain.AssetText, store.Key(), store.Snapshot().ChatModel, err)
	}

	// Success and failure both end with an assistant message in the transcript.
	messages := store.Snapshot().Messages
	last := len(messages) - 1
	if last < 0 || messages[last].Role != domain.RoleAssistant {
		h.editPlain(ctx, b, chatID, placeholder.ID, domain.UserMessage(err))
		return
	}
	h.showReply(ctx, b, chatID, placeholder.ID, messages[last].Content, last)
}

func (h *Handler) showReply(ctx context.Context, b *bot.Bot, chatID int64, placeholderID int, content string, index int) {
	markup := tg.InlineKeyboard(tg.ButtonRow(tg.InlineButton("🔄 Regenerate", fmt.Sprintf("regen_%d", index))))

	if utf8.RuneCountInString(content) <= tg.MaxMessageLen {
		if err := tg.EditLongMessage(ctx, b, chatID, placeholderID, content, markup); err != nil {
			slog.Error("edit reply", "chat_id", chatID, "error", err)
		}
		return
	}

	b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: placeholderID})
	if _, err := tg.SendLongMessage(ctx, b, chatID, content, markup); err != nil {
		slog.Error("send reply", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) editPlain(ctx context.Context, b *bot.Bot, chatID int64, messageID int, text string) {
	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	})
	if err != nil {
		slog.Error("edit message", "chat_id", chatID, "error", err)
	}
}

// streamView coalesces buffer updates into at most one edit per interval.
type streamView struct {
	mu      sync.Mutex
	pending string
	shown   string

	edit func(string)
	stop chan struct{}
	done chan struct{}
}

func newStreamView(interval time.Duration, edit func(string)) *streamView {
	v := &streamView{
		edit: edit,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go v.loop(interval)
	return v
}

func (v *streamView) Offer(text string) {
	v.mu.Lock()
	v.pending = text
	v.mu.Unlock()
}

// Stop ends the loop and waits for an in-progress edit to return.
func (v *streamView) Stop() {
	close(v.stop)
	<-v.done
}

func (v *streamView) loop(interval time.Duration) {
	defer close(v.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-v.stop:
			return
		case <-ticker.C:
			v.mu.Lock()
			text := v.pending
			changed := text != v.shown
			v.shown = text
			v.mu.Unlock()

			if changed {
				v.edit(text)
			}
		}
	}
}
