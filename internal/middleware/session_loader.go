package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatcreate/internal/state"
)

type ctxKey string

const SessionKey ctxKey = "session"

// GetSession extracts the chat's session store from context.
func GetSession(ctx context.Context) *state.Store {
	s, ok := ctx.Value(SessionKey).(*state.Store)
	if !ok {
		return nil
	}
	return s
}

// WithSession returns a context carrying store.
func WithSession(ctx context.Context, store *state.Store) context.Context {
	return context.WithValue(ctx, SessionKey, store)
}

// ChatID returns the chat an update belongs to, or 0.
func ChatID(update *models.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		return update.CallbackQuery.Message.Message.Chat.ID
	}
	return 0
}

// SessionLoader returns middleware that loads the chat's session store into context.
func SessionLoader(sessions *state.Registry) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if chatID := ChatID(update); chatID != 0 {
				ctx = WithSession(ctx, sessions.Get(ctx, state.ChatKey(chatID)))
			}
			next(ctx, b, update)
		}
	}
}
