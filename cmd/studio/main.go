package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	chatcreate "github.com/set-night/chatcreate"
	"github.com/set-night/chatcreate/internal/cli"
	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/repository"
	"github.com/set-night/chatcreate/internal/service"
	"github.com/set-night/chatcreate/internal/state"
	"github.com/set-night/chatcreate/internal/tui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := os.OpenFile(logPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	migrationsFS, err := fs.Sub(chatcreate.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	blobs, closeBlobs, err := repository.OpenBlobStore(ctx, cfg.DatabaseURL, cfg.StateFile, migrationsFS)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer closeBlobs()

	pollinations := service.NewPollinationsService(cfg)
	chat := service.NewChatService(pollinations)
	images := service.NewImageService(pollinations, cfg)
	store := state.Open(ctx, config.StorageKey, blobs)

	program := cli.New(os.Stdout, os.Stderr, cli.Deps{
		Cfg:    cfg,
		Models: pollinations,
		Store:  store,
		Interactive: func(ctx context.Context) error {
			slog.Info("studio started", "state_file", cfg.StateFile)
			return tui.Run(ctx, tui.Deps{
				Chat:   chat,
				Images: images,
				Models: pollinations,
				Store:  store,
			})
		},
	})
	return program.Run(ctx, args)
}

func logPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".chatcreate.log"
	}
	return filepath.Join(dir, ".chatcreate.log")
}
