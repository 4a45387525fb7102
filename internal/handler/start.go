package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const welcomeText = "👋 *Chat & Create*\n\n" +
	"Send any message to chat with an AI model, or generate images.\n\n" +
	"📋 *Commands:*\n" +
	"/image <prompt> — Generate an image\n" +
	"/variation — New seed for the last prompt\n" +
	"/gallery — Your generated images\n" +
	"/models text|image — Choose a model\n" +
	"/settings — Streaming, seed and image options\n" +
	"/seed <number|random> — Set the image seed\n" +
	"/system <prompt> — Set the system prompt\n" +
	"/cancel — Stop the current reply\n" +
	"/clear — Start a new conversation\n" +
	"/clearimages — Empty the gallery"

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      welcomeText,
		ParseMode: models.ParseModeMarkdownV1,
	})
}
