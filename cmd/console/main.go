package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Melekhin/betdesk/internal/feed"
	"github.com/Melekhin/betdesk/internal/notify"
	"github.com/Melekhin/betdesk/internal/pkg/config"
	"github.com/Melekhin/betdesk/internal/pkg/health"
	"github.com/Melekhin/betdesk/internal/pkg/logging"
	"github.com/Melekhin/betdesk/internal/pkg/models"
	"github.com/Melekhin/betdesk/internal/pkg/snapstore"
	"github.com/Melekhin/betdesk/internal/pkg/storage"
	"github.com/Melekhin/betdesk/internal/poller"
	"github.com/Melekhin/betdesk/internal/selection"
)

const defaultConfigPath = "configs/production.yaml"

type cliFlags struct {
	configPath string
	runFor     time.Duration
}

func main() {
	if err := run(); err != nil {
		slog.Error("Console failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()

	appConfig, err := config.Load(cfg.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logging.SetupLogger(appConfig.Log.Level, "console")
	slog.Info("Config loaded", "path", cfg.configPath)

	ctx, cancel := createContext(cfg.runFor)
	defer cancel()
	setupSignalHandler(ctx, cancel)

	store := snapstore.NewStore()
	client := feed.NewClient(&appConfig.Feed)

	var notifier *notify.TelegramNotifier
	if appConfig.Telegram.BotToken != "" {
		notifier = notify.NewTelegramNotifier(appConfig.Telegram.BotToken, appConfig.Telegram.ChatID)
		if notifier != nil {
			defer notifier.Stop()
		}
	}

	var engine *selection.Engine
	var pg *storage.PostgresStore
	if appConfig.Postgres.DSN != "" {
		pg, err = storage.NewPostgresStore(&appConfig.Postgres)
		if err != nil {
			return fmt.Errorf("failed to init postgres: %w", err)
		}
		defer pg.Close()
		engine = selection.NewEngine(pg, pg)
		if notifier != nil {
			engine.WithNotifier(notifier)
		}
	} else {
		slog.Warn("postgres.dsn not set, running poll-only without account selection")
	}

	sports := appConfig.Poller.Sports
	if len(sports) == 0 {
		sports = []string{"football"}
	}
	buckets := parseBuckets(appConfig.Poller.Buckets)

	p := poller.New(client, store, sports, buckets).
		WithIntervals(appConfig.Poller.LiveInterval, appConfig.Poller.LineInterval)
	if pg != nil {
		p = p.WithRecorder(pg)
	}

	if appConfig.Redis.Addr != "" {
		mirror, err := storage.NewSnapshotMirror(&appConfig.Redis)
		if err != nil {
			slog.Warn("Failed to init redis mirror, continuing without it", "error", err)
		} else {
			defer mirror.Close()
			p = p.WithMirror(mirror)
		}
	}

	if notifier != nil {
		p = p.WithAlerter(notifier)
	}

	if appConfig.Health.Addr != "" {
		srv := health.NewServer(store, engine, appConfig.Selection.DefaultLimit)
		srv.Run(ctx, appConfig.Health.Addr)
	}

	slog.Info("Starting poller", "sports", sports, "buckets", buckets)
	p.Run(ctx)

	slog.Info("Console stopped gracefully")
	return nil
}

func parseFlags() cliFlags {
	var cfg cliFlags

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&cfg.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.DurationVar(&cfg.runFor, "run-for", 0, "Auto-stop after duration (e.g. 10s, 1m). 0 = run until SIGINT/SIGTERM")
	flag.Parse()
	return cfg
}

func parseBuckets(names []string) []models.Bucket {
	if len(names) == 0 {
		return []models.Bucket{models.BucketLive, models.BucketToday, models.BucketEarly}
	}
	out := make([]models.Bucket, 0, len(names))
	for _, n := range names {
		out = append(out, models.Bucket(n))
	}
	return out
}

func createContext(runFor time.Duration) (context.Context, context.CancelFunc) {
	if runFor > 0 {
		return context.WithTimeout(context.Background(), runFor)
	}
	return context.WithCancel(context.Background())
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal, stopping console...", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
			close(sigChan)
		}
	}()
}
