package handler

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatcreate/internal/middleware"
	"github.com/set-night/chatcreate/internal/state"
)

// handleSystem shows or replaces the system prompt. The new prompt takes
// effect with the next message.
func (h *Handler) handleSystem(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}
	chatID := update.Message.Chat.ID

	prompt := commandArgs(update.Message.Text)
	if prompt == "" {
		current := store.Snapshot().SystemPrompt
		if current == "" {
			current = "(empty)"
		}
		h.reply(ctx, b, chatID, fmt.Sprintf("🧭 System prompt:\n\n%s\n\nUse /system <text> to change it.", current))
		return
	}

	store.Apply(ctx, func(s state.State) state.State {
		return s.WithSystemPrompt(prompt)
	})
	h.reply(ctx, b, chatID, "✅ System prompt updated.")
}
