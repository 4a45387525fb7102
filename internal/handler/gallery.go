package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/middleware"
	tg "github.com/set-night/chatcreate/internal/telegram"
)

func (h *Handler) handleGallery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}

	text, markup := galleryPage(store.Snapshot().Images, 0)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        text,
		ReplyMarkup: markup,
	})
}

func (h *Handler) handleGalleryPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, messageID, ok := callbackMessage(update)
	if !ok {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}
	h.answer(ctx, b, update, "")

	page, _ := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, "gpg_"))
	text, markup := galleryPage(store.Snapshot().Images, page)
	b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: markup,
	})
}

// handleGalleryShow resends a gallery entry; Telegram fetches it by URL.
func (h *Handler) handleGalleryShow(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := callbackMessage(update)
	if !ok {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}

	id := strings.TrimPrefix(update.CallbackQuery.Data, "gshow_")
	var img *domain.GeneratedImage
	for _, candidate := range store.Snapshot().Images {
		if candidate.ID == id {
			img = &candidate
			break
		}
	}
	if img == nil {
		h.answer(ctx, b, update, "This image is no longer in the gallery.")
		return
	}
	h.answer(ctx, b, update, "")

	_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:      chatID,
		Photo:       &models.InputFileString{Data: img.URL},
		Caption:     tg.Truncate(imageCaption(img), config.MaxTelegramCaptionLen),
		ReplyMarkup: tg.InlineKeyboard(tg.ButtonRow(tg.URLButton("🔗 Open", img.URL))),
	})
	if err != nil {
		slog.Error("send gallery image", "chat_id", chatID, "error", err)
		h.reply(ctx, b, chatID, "❌ Failed to load image. Open it directly:\n"+img.URL)
	}
}

// galleryPage renders one page of the gallery, newest first.
func galleryPage(images []domain.GeneratedImage, page int) (string, models.ReplyMarkup) {
	if len(images) == 0 {
		return "🖼 The gallery is empty. Try /image <prompt>.", nil
	}

	page, start, end := tg.PageBounds(page, len(images), config.GalleryPerPage)
	totalPages := tg.PageCount(len(images), config.GalleryPerPage)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🖼 Gallery (%d)\n\n", len(images))

	var buttons []models.InlineKeyboardButton
	for i, img := range images[start:end] {
		n := start + i + 1
		fmt.Fprintf(&sb, "%d. %s\n   🌱 %s · 🤖 %s · %s\n",
			n, tg.Truncate(img.Prompt, 80), img.Params.Seed, img.Params.Model, img.CreatedAt.Format("2006-01-02 15:04"))
		buttons = append(buttons, tg.InlineButton(strconv.Itoa(n), "gshow_"+img.ID))
	}

	rows := [][]models.InlineKeyboardButton{buttons}
	if totalPages > 1 {
		rows = append(rows, tg.PaginationRow(page, totalPages, "gpg"))
	}
	return sb.String(), tg.InlineKeyboard(rows...)
}
