package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/middleware"
	"github.com/set-night/chatcreate/internal/state"
	tg "github.com/set-night/chatcreate/internal/telegram"
)

var flagLabels = map[domain.ImageFlag]string{
	domain.FlagNoLogo:  "No logo",
	domain.FlagEnhance: "Enhance",
	domain.FlagSafe:    "Safe",
	domain.FlagPrivate: "Private",
}

func (h *Handler) handleSettings(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}

	text, markup := settingsView(store.Snapshot())
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: markup,
	})
}

func settingsView(s state.State) (string, *models.InlineKeyboardMarkup) {
	seed := s.Seed
	if s.LockSeed {
		seed += " 🔒"
	}

	text := fmt.Sprintf(
		"⚙️ *Settings*\n\n"+
			"💬 Chat model: `%s`\n"+
			"🎨 Image model: `%s`\n"+
			"📐 Aspect ratio: *%s*\n"+
			"🌱 Seed: *%s*\n"+
			"🌓 Theme: *%s*\n",
		s.ChatModel, s.ImageModel, s.AspectRatio, seed, s.Theme,
	)

	var rows [][]models.InlineKeyboardButton
	rows = append(rows, tg.ButtonRow(
		tg.CheckButton("Streaming", s.StreamMode, "set_stream"),
		tg.CheckButton("Lock seed", s.LockSeed, "set_lock"),
	))

	var flags []models.InlineKeyboardButton
	for _, f := range domain.ImageFlags {
		flags = append(flags, tg.CheckButton(flagLabels[f], s.Flag(f), "set_flag_"+string(f)))
	}
	rows = append(rows, flags[:2], flags[2:])

	rows = append(rows, tg.ButtonRow(
		tg.InlineButton(fmt.Sprintf("📐 %s → %s", s.AspectRatio, s.AspectRatio.Next()), "set_ratio"),
		tg.InlineButton(fmt.Sprintf("🌓 %s → %s", s.Theme, s.Theme.Next()), "set_theme"),
	))
	return text, tg.InlineKeyboard(rows...)
}

// applySetting maps a settings callback onto a state change.
func applySetting(s state.State, data string) (state.State, error) {
	switch setting := strings.TrimPrefix(data, "set_"); {
	case setting == "stream":
		return s.WithStreamMode(!s.StreamMode), nil
	case setting == "lock":
		return s.WithLockSeed(!s.LockSeed), nil
	case setting == "ratio":
		return s.WithAspectRatio(s.AspectRatio.Next())
	case setting == "theme":
		return s.WithTheme(s.Theme.Next())
	case strings.HasPrefix(setting, "flag_"):
		flag, ok := domain.ParseImageFlag(strings.TrimPrefix(setting, "flag_"))
		if !ok {
			return s, fmt.Errorf("unknown image option %q", setting)
		}
		return s.WithFlag(flag, !s.Flag(flag)), nil
	default:
		return s, fmt.Errorf("unknown setting %q", setting)
	}
}

func (h *Handler) handleSettingToggle(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, messageID, ok := callbackMessage(update)
	if !ok {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}

	next, err := store.Update(ctx, func(s state.State) (state.State, error) {
		return applySetting(s, update.CallbackQuery.Data)
	})
	if err != nil {
		h.answer(ctx, b, update, err.Error())
		return
	}
	h.answer(ctx, b, update, "")

	text, markup := settingsView(next)
	b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: markup,
	})
}

// handleSeed sets the image seed; a number also locks it.
func (h *Handler) handleSeed(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	store := middleware.GetSession(ctx)
	if store == nil {
		return
	}
	chatID := update.Message.Chat.ID

	arg := commandArgs(update.Message.Text)
	if arg == "" {
		s := store.Snapshot()
		h.reply(ctx, b, chatID, fmt.Sprintf("🌱 Seed: %s (locked: %v)\nUse /seed <number> or /seed random.", s.Seed, s.LockSeed))
		return
	}

	next, err := store.Update(ctx, func(s state.State) (state.State, error) {
		s, err := s.WithSeed(arg)
		if err != nil {
			return s, err
		}
		return s.WithLockSeed(arg != domain.RandomSeed), nil
	})
	if err != nil {
		h.reply(ctx, b, chatID, "⚠️ The seed must be a non-negative number or \"random\".")
		return
	}
	h.reply(ctx, b, chatID, fmt.Sprintf("🌱 Seed set to %s (locked: %v).", next.Seed, next.LockSeed))
}
