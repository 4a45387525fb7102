package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatcreate/internal/state"
	"github.com/set-night/chatcreate/internal/telegram"
)

// Recover returns middleware that recovers from panics and reports them to
// the log chat when one is configured.
func Recover(tgLogger *telegram.TelegramLogger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				if r := recover(); r != nil {
					key := state.ChatKey(ChatID(update))
					action := updateAction(update)
					slog.Error("panic recovered in handler",
						"panic", r,
						"key", key,
						"action", action,
						"stack", string(debug.Stack()),
					)
					tgLogger.LogError(fmt.Errorf("panic: %v", r), fmt.Sprintf("%s in %s", action, key))
				}
			}()
			next(ctx, b, update)
		}
	}
}
