package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/domain"
)

// TelegramLogger mirrors operational events into a forum topic of a log chat.
type TelegramLogger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewTelegramLogger(b *bot.Bot, cfg *config.Config) *TelegramLogger {
	return &TelegramLogger{bot: b, cfg: cfg}
}

// Attach sets the bot used for sending. Middleware is built before the
// bot exists, so the logger is created first and attached afterwards.
func (l *TelegramLogger) Attach(b *bot.Bot) {
	l.bot = b
}

type LogType string

const (
	LogTypeError      LogType = "error"
	LogTypeGeneration LogType = "generation"
	LogTypeStartup    LogType = "startup"
)

func (l *TelegramLogger) Log(logType LogType, message string) {
	if l == nil || l.bot == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            Truncate(message, MaxMessageLen),
		MessageThreadID: l.topicID(logType),
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *TelegramLogger) LogError(err error, where string) {
	l.Log(LogTypeError, fmt.Sprintf("❌ Error\n\nWhere: %s\nError: %s\nTime: %s",
		where, err.Error(), timestamp()))
}

// LogGeneration reports a failed text or image generation. Service errors
// carry the upstream status so outages are visible at a glance.
func (l *TelegramLogger) LogGeneration(kind domain.AssetClass, key, model string, err error) {
	status := "-"
	if svcErr, ok := domain.AsServiceError(err); ok {
		status = fmt.Sprintf("%d", svcErr.Status)
	}
	l.Log(LogTypeGeneration, fmt.Sprintf("⚠️ %s generation failed\n\nSession: %s\nModel: %s\nStatus: %s\nError: %s\nTime: %s",
		kind, key, model, status, err.Error(), timestamp()))
}

func (l *TelegramLogger) LogStartup(username string) {
	l.Log(LogTypeStartup, fmt.Sprintf("🚀 @%s started at %s", username, timestamp()))
}

// topicID returns 0 (the general topic) for types without a dedicated one.
func (l *TelegramLogger) topicID(logType LogType) int {
	switch logType {
	case LogTypeError, LogTypeGeneration:
		return l.cfg.LogTopicError
	default:
		return 0
	}
}

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}
