package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/middleware"
	"github.com/set-night/chatcreate/internal/state"
	tg "github.com/set-night/chatcreate/internal/telegram"
)

type imageRun func(ctx context.Context) (*domain.GeneratedImage, []byte, error)

func (h *Handler) handleImage(ctx context.Context, b *bot.Bot, update *models.Update) {
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
		h.reply(ctx, b, chatID, "🎨 Describe the image: /image "+config.DefaultImagePrompt)
		return
	}

	go h.runImage(ctx, b, chatID, store, func(ctx context.Context) (*domain.GeneratedImage, []byte, error) {
		return h.images.Generate(ctx, store, prompt)
	})
}

func (h *Handler) handleVariation(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}

	go h.runImage(ctx, b, update.Message.Chat.ID, store, func(ctx context.Context) (*domain.GeneratedImage, []byte, error) {
		return h.images.Variation(ctx, store, commandArgs(update.Message.Text))
	})
}

func (h *Handler) handleVariationButton(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := callbackMessage(update)
	if !ok {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}
	h.answer(ctx, b, update, "🎲 New variation...")

	go h.runImage(ctx, b, chatID, store, func(ctx context.Context) (*domain.GeneratedImage, []byte, error) {
		return h.images.Variation(ctx, store, "")
	})
}

// handleRetryButton repeats the last failed request with the same prompt.
func (h *Handler) handleRetryButton(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, messageID, ok := callbackMessage(update)
	if !ok {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}

	prompt := store.Snapshot().ImagePrompt
	if prompt == "" {
		h.answer(ctx, b, update, "Nothing to retry.")
		return
	}
	h.answer(ctx, b, update, "🔁 Retrying...")
	b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: messageID})

	go h.runImage(ctx, b, chatID, store, func(ctx context.Context) (*domain.GeneratedImage, []byte, error) {
		return h.images.Generate(ctx, store, prompt)
	})
}

func (h *Handler) runImage(ctx context.Context, b *bot.Bot, chatID int64, store *state.Store, run imageRun) {
	placeholder, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "🎨 Generating...",
	})
	if err != nil {
		slog.Error("send placeholder", "chat_id", chatID, "error", err)
		return
	}

	stopTyping := tg.StartTyping(ctx, b, chatID, models.ChatActionUploadPhoto)
	img, data, err := run(ctx)
	stopTyping()

	switch {
	case errors.Is(err, domain.ErrBusy):
		h.editPlain(ctx, b, chatID, placeholder.ID, "⏳ An image is already being generated.")
		return
	case errors.Is(err, domain.ErrInvalidImageOptions), errors.Is(err, domain.ErrUnknownAspectRatio):
		h.editPlain(ctx, b, chatID, placeholder.ID, "⚠️ "+err.Error())
		return
	case err != nil:
		h.tgLogger.LogGeneration(domain.AssetImage, store.Key(), store.Snapshot().ImageModel, err)
		_, editErr := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   placeholder.ID,
			Text:        "❌ Failed to generate image. Please try again.",
			ReplyMarkup: tg.InlineKeyboard(tg.ButtonRow(tg.InlineButton("🔁 Retry", "img_retry"))),
		})
		if editErr != nil {
			slog.Error("edit image failure", "chat_id", chatID, "error", editErr)
		}
		return
	}

	b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: placeholder.ID})

	markup := tg.InlineKeyboard(tg.ButtonRow(
		tg.InlineButton("🎲 Variation", "img_var"),
		tg.URLButton("🔗 Open", img.URL),
	))
	if _, err := tg.SendPhotoBytes(ctx, b, chatID, imageFilename(img), data, imageCaption(img), markup); err != nil {
		slog.Error("send image", "chat_id", chatID, "error", err)
		h.tgLogger.LogError(err, fmt.Sprintf("send image to chat %d", chatID))
	}
}

func imageCaption(img *domain.GeneratedImage) string {
	return fmt.Sprintf("%s\n\n🌱 %s · 🤖 %s · 📐 %dx%d",
		img.Prompt, img.Params.Seed, img.Params.Model, img.Params.Width, img.Params.Height)
}

func imageFilename(img *domain.GeneratedImage) string {
	return "image-" + img.ID + ".jpg"
}
