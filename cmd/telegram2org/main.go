package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"telegram2org/internal/config"
	"telegram2org/internal/preview"
	"telegram2org/internal/runner"
	"telegram2org/internal/source"
	"telegram2org/internal/storage"
	"telegram2org/internal/watermark"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("telegram2org failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := &cli.App{
		Name:    "telegram2org",
		Usage:   "Append new Telegram messages to an org-mode file as TODO entries",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "test", Usage: "Append tasks without advancing the watermark"},
		},
		Action: func(c *cli.Context) error {
			return run(c.Context, c.Bool("test"))
		},
	}
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func run(ctx context.Context, dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	var resolver source.TitleResolver
	if cfg.LinkPreviews {
		resolver = preview.New(http.DefaultClient)
	}

	src, err := source.New(cfg.TelegramBotToken, cfg.FetchLimit, resolver, log)
	if err != nil {
		if errors.Is(err, source.ErrTemporarilyUnavailable) {
			log.Error("telegram has internal issues", "error", err)
			return nil
		}
		return err
	}
	src.SetChatID(cfg.ChatID)

	r := runner.New(src, watermark.NewStore(cfg.StatePath), journalOpener(cfg.DatabasePath, log), runner.Options{
		Conversation: cfg.Conversation,
		OutputPath:   cfg.OrgFilePath,
		Tag:          cfg.OrgTag,
		Location:     cfg.Location,
		DryRun:       dryRun,
	}, log)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	outcome, err := r.Run(ctx)
	if err != nil {
		return err
	}
	log.Debug("run finished", "outcome", outcome.String(), "dry_run", dryRun)
	return nil
}

// journalOpener creates the database directory and journal on first use.
func journalOpener(path string, log *slog.Logger) runner.JournalOpener {
	return func() (storage.Journal, error) {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create directory %s: %w", dir, err)
			}
		}
		journal, err := storage.NewSQLite(path, log)
		if err != nil {
			return nil, fmt.Errorf("open journal %s: %w", path, err)
		}
		return journal, nil
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
