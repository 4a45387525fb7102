package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	chatcreate "github.com/set-night/chatcreate"
	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/handler"
	"github.com/set-night/chatcreate/internal/middleware"
	"github.com/set-night/chatcreate/internal/repository"
	"github.com/set-night/chatcreate/internal/service"
	"github.com/set-night/chatcreate/internal/state"
	"github.com/set-night/chatcreate/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if cfg.BotToken == "" {
		slog.Error("BOT_TOKEN is required")
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session persistence
	migrationsFS, err := fs.Sub(chatcreate.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	blobs, closeBlobs, err := repository.OpenBlobStore(ctx, cfg.DatabaseURL, cfg.StateFile, migrationsFS)
	if err != nil {
		slog.Error("failed to open state store", "error", err)
		os.Exit(1)
	}
	defer closeBlobs()

	// Initialize services
	pollinations := service.NewPollinationsService(cfg)
	chatService := service.NewChatService(pollinations)
	imageService := service.NewImageService(pollinations, cfg)
	sessions := state.NewRegistry(blobs)

	// Handler pointer for use in default handler closure
	var h *handler.Handler
	tgLogger := telegram.NewTelegramLogger(nil, cfg)

	// Create bot
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(tgLogger),
			middleware.Logging(),
			middleware.RateLimit(middleware.NewLimiter(cfg.RateLimitPerMinute)),
			middleware.SessionLoader(sessions),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.HandleDefault(ctx, b, update)
		}),
	}
	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}
	tgLogger.Attach(b)

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}

	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	// Initialize handler
	h = handler.New(handler.Deps{
		Bot:          b,
		Cfg:          cfg,
		Pollinations: pollinations,
		Chat:         chatService,
		Images:       imageService,
		Sessions:     sessions,
		TgLogger:     tgLogger,
	})

	// Register all handlers
	h.Register()

	// Start bot
	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	tgLogger.LogStartup(me.Username)
	b.Start(ctx)

	// Graceful shutdown
	slog.Info("bot stopped gracefully")
}
