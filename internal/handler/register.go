package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/clearimages", bot.MatchTypePrefix, h.handleClearImages)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/clear", bot.MatchTypeExact, h.handleClear)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypePrefix, h.handleCancel)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/system", bot.MatchTypePrefix, h.handleSystem)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/image", bot.MatchTypePrefix, h.handleImage)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/variation", bot.MatchTypePrefix, h.handleVariation)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/gallery", bot.MatchTypePrefix, h.handleGallery)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/models", bot.MatchTypePrefix, h.handleModels)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/settings", bot.MatchTypePrefix, h.handleSettings)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/seed", bot.MatchTypePrefix, h.handleSeed)

	// Chat callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "regen_", bot.MatchTypePrefix, h.handleRegenerate)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cancel", bot.MatchTypeExact, h.handleCancelButton)

	// Image callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "img_var", bot.MatchTypeExact, h.handleVariationButton)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "img_retry", bot.MatchTypeExact, h.handleRetryButton)

	// Gallery callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "gpg_", bot.MatchTypePrefix, h.handleGalleryPage)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "gshow_", bot.MatchTypePrefix, h.handleGalleryShow)

	// Models callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "mdl_", bot.MatchTypePrefix, h.handleModelSelect)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "mpg_", bot.MatchTypePrefix, h.handleModelPage)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cur", bot.MatchTypeExact, h.handleNoop)

	// Settings callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "set_", bot.MatchTypePrefix, h.handleSettingToggle)
}

// handleNoop is a no-op callback handler used for pagination indicators and other
// non-interactive inline buttons. It simply acknowledges the callback query.
func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
		})
	}
}
