package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"
	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/middleware"
	"github.com/set-night/chatcreate/internal/state"
	tg "github.com/set-night/chatcreate/internal/telegram"
)

// classCode is the one-letter asset class used in callback data.
func classCode(class domain.AssetClass) string {
	if class == domain.AssetImage {
		return "i"
	}
	return "t"
}

func classFromCode(code string) domain.AssetClass {
	if code == "i" {
		return domain.AssetImage
	}
	return domain.AssetText
}

func (h *Handler) handleModels(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}

	class := domain.AssetText
	args := strings.Fields(commandArgs(update.Message.Text))
	if len(args) > 0 {
		if parsed, err := domain.ParseAssetClass(strings.ToLower(args[0])); err == nil {
			class = parsed
			args = args[1:]
		}
	}

	text, markup := h.modelsPage(ctx, store.Snapshot(), class, 0, strings.Join(args, " "))
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: markup,
	})
}

// modelsPage renders one page of the listing with the current choice marked.
// Buttons reference models by position in the unfiltered listing.
func (h *Handler) modelsPage(ctx context.Context, snap state.State, class domain.AssetClass, page int, search string) (string, models.ReplyMarkup) {
	all := h.pollinations.ListModels(ctx, class)

	type entry struct {
		index int
		name  string
	}
	entries := lo.FilterMap(all, func(name string, i int) (entry, bool) {
		match := search == "" || strings.Contains(strings.ToLower(name), strings.ToLower(search))
		return entry{index: i, name: name}, match
	})

	current := snap.ChatModel
	title := "💬 *Text models*"
	if class == domain.AssetImage {
		current = snap.ImageModel
		title = "🎨 *Image models*"
	}

	if len(entries) == 0 {
		return fmt.Sprintf("%s\n\nNo models match %q.", title, search), nil
	}

	page, start, end := tg.PageBounds(page, len(entries), config.ModelsPerPage)
	totalPages := tg.PageCount(len(entries), config.ModelsPerPage)
	code := classCode(class)

	var rows [][]models.InlineKeyboardButton
	for _, e := range entries[start:end] {
		label := tg.Truncate(e.name, 30)
		if e.name == current {
			label = "✅ " + label
		}
		rows = append(rows, tg.ButtonRow(
			tg.InlineButton(label, fmt.Sprintf("mdl_%s_%d_%d", code, e.index, page)),
		))
	}
	if totalPages > 1 {
		rows = append(rows, tg.PaginationRow(page, totalPages, "mpg_"+code))
	}

	return fmt.Sprintf("%s\n\nCurrent: `%s`", title, current), tg.InlineKeyboard(rows...)
}

func (h *Handler) handleModelSelect(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, messageID, ok := callbackMessage(update)
	if !ok {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}

	// Format: mdl_CLASS_INDEX_PAGE
	parts := strings.Split(strings.TrimPrefix(update.CallbackQuery.Data, "mdl_"), "_")
	if len(parts) != 3 {
		h.answer(ctx, b, update, "")
		return
	}
	class := classFromCode(parts[0])
	index, err := strconv.Atoi(parts[1])
	page, _ := strconv.Atoi(parts[2])

	all := h.pollinations.ListModels(ctx, class)
	if err != nil || index < 0 || index >= len(all) {
		h.answer(ctx, b, update, "The model list changed, please reopen /models.")
		return
	}
	model := all[index]

	_, err = store.Update(ctx, func(s state.State) (state.State, error) {
		if class == domain.AssetImage {
			return s.WithImageModel(model)
		}
		return s.WithChatModel(model)
	})
	if err != nil {
		h.answer(ctx, b, update, err.Error())
		return
	}
	h.answer(ctx, b, update, "✅ "+model)

	text, markup := h.modelsPage(ctx, store.Snapshot(), class, page, "")
	b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: markup,
	})
}

func (h *Handler) handleModelPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, messageID, ok := callbackMessage(update)
	if !ok {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}
	h.answer(ctx, b, update, "")

	// Format: mpg_CLASS_PAGE
	code, pageStr, _ := strings.Cut(strings.TrimPrefix(update.CallbackQuery.Data, "mpg_"), "_")
	page, _ := strconv.Atoi(pageStr)

	text, markup := h.modelsPage(ctx, store.Snapshot(), classFromCode(code), page, "")
	b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: markup,
	})
}
