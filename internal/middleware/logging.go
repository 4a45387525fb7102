package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatcreate/internal/state"
)

// Logging records which session an update touched, what kind of action it
// was and how long the handler ran. Generation itself runs in the background
// and logs on its own.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			next(ctx, b, update)

			slog.Debug("update handled",
				"key", state.ChatKey(ChatID(update)),
				"action", updateAction(update),
				"duration", time.Since(start),
			)
		}
	}
}

// updateAction names an update by command or callback prefix without
// logging the text a user typed.
func updateAction(update *models.Update) string {
	switch {
	case update.CallbackQuery != nil:
		data := update.CallbackQuery.Data
		if i := strings.IndexByte(data, '_'); i > 0 {
			return "callback:" + data[:i]
		}
		return "callback:" + data
	case update.Message != nil:
		text := update.Message.Text
		if strings.HasPrefix(text, "/") {
			cmd, _, _ := strings.Cut(text, " ")
			cmd, _, _ = strings.Cut(cmd, "@")
			return "command:" + cmd
		}
		return "text"
	}
	return "other"
}
