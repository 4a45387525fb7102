package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatcreate/internal/middleware"
	"github.com/set-night/chatcreate/internal/state"
)

func (h *Handler) handleClear(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}

	h.chat.Cancel(store.Key())
	store.Apply(ctx, state.State.ClearChat)
	h.reply(ctx, b, update.Message.Chat.ID, "🗑 Conversation cleared.")
}

func (h *Handler) handleClearImages(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}

	store.Apply(ctx, state.State.ClearImages)
	h.reply(ctx, b, update.Message.Chat.ID, "🗑 Gallery cleared.")
}
