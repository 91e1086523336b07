package main

import (
	"context"
	"time"

	"github.com/xaenox/habit-bot/internal/assistant"
	"github.com/xaenox/habit-bot/internal/bot"
	"github.com/xaenox/habit-bot/internal/clock"
	"github.com/xaenox/habit-bot/internal/engine"
	"github.com/xaenox/habit-bot/internal/scheduler"
	"github.com/xaenox/habit-bot/internal/storage"
	"github.com/xaenox/habit-bot/pkg/config"
	"go.uber.org/zap"
)

const restartDelay = 5 * time.Second

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal("Failed to load timezone", zap.Error(err), zap.String("timezone", cfg.Timezone))
	}

	// Supervisor: a crashed run is logged and restarted after a fixed delay.
	// In-memory state does not survive a crash; the snapshot file does.
	for {
		if err := run(cfg, loc, logger); err != nil {
			logger.Error("Bot crashed, restarting", zap.Error(err))
		}
		time.Sleep(restartDelay)
	}
}

func run(cfg *config.Config, loc *time.Location, logger *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in bot run loop", zap.Any("panic", r))
		}
	}()

	clk := clock.NewSystem(loc)

	// Initialize persistence
	var persist storage.Persistence
	if cfg.Storage.UsePostgres {
		logger.Info("Using PostgreSQL persistence")
		persist, err = storage.NewPostgresStore(storage.DatabaseConfig{
			Host:     cfg.Storage.Database.Host,
			Port:     cfg.Storage.Database.Port,
			User:     cfg.Storage.Database.User,
			Password: cfg.Storage.Database.Password,
			DBName:   cfg.Storage.Database.DBName,
			SSLMode:  cfg.Storage.Database.SSLMode,
		}, loc, logger)
		if err != nil {
			return err
		}
	} else {
		logger.Info("Using file persistence", zap.String("path", cfg.Storage.FilePath))
		persist = storage.NewFileStore(cfg.Storage.FilePath, loc, logger)
	}
	defer persist.Close()

	// Initialize the session store; a failed load falls back to empty logs.
	store := storage.NewStore()
	snap, err := persist.Load()
	if err != nil {
		logger.Error("Failed to load snapshot, starting empty", zap.Error(err))
	}
	store.Restore(snap)

	// Initialize the assistant gateway
	gateway := assistant.NewGPTAssistant(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		cfg.OpenAI.Timeout,
		logger,
	)

	// Initialize the conversation engine
	eng := engine.New(store, gateway, clk, logger)

	// Initialize the bot transport
	b, err := bot.New(cfg.Telegram.Token, eng, store, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the background timers
	sched := scheduler.New(store, persist, b, clk, scheduler.Config{
		PromptHour:       cfg.Schedule.PromptHour,
		ReportHour:       cfg.Schedule.ReportHour,
		CleanupHour:      cfg.Schedule.CleanupHour,
		CheckInterval:    cfg.Schedule.CheckInterval,
		SnapshotInterval: cfg.Schedule.SnapshotInterval,
		AutoFinishAfter:  cfg.Schedule.AutoFinishAfter,
		RemindAfter:      cfg.Schedule.RemindAfter,
		Retention:        time.Duration(cfg.Retention.MaxAgeDays) * 24 * time.Hour,
	}, logger)
	sched.Start(ctx)
	defer sched.ForceSave()

	// Start the bot
	return b.Start(ctx)
}
