package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"

	"homework_notifier/internal/config"
	"homework_notifier/internal/notifier/telegram"
	"homework_notifier/internal/publisher"
	"homework_notifier/internal/scheduler"
	"homework_notifier/internal/service"
	"homework_notifier/internal/source/practicum"
	"homework_notifier/internal/storage/postgres"
)

func main() {
	// Setup logger
	logger := setupLogger("info", os.Stdout)

	// Load configuration
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	out, closeLog, err := openLogOutput(cfg.LogFile)
	if err != nil {
		logger.Error("failed to open log file", "path", cfg.LogFile, "error", err)
		os.Exit(1)
	}
	defer closeLog()
	logger = setupLogger(cfg.LogLevel, out)

	// Optional verdict history
	var history service.HistoryStore
	if cfg.Database.Enabled() {
		db, err := sqlx.Connect("postgres", cfg.Database.DSN())
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("connected to database")
		history = postgres.NewVerdictLogStore(db)
	}

	// Optional verdict events
	var events service.Publisher
	if cfg.RabbitMQ.Enabled() {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		events = rabbitMQ
	}

	source := practicum.New(practicum.Config{
		BaseURL:        cfg.Practicum.BaseURL,
		Token:          cfg.Practicum.Token,
		Timeout:        cfg.Practicum.Timeout,
		MaxAttempts:    cfg.Practicum.Retry.MaxAttempts,
		InitialBackoff: cfg.Practicum.Retry.InitialBackoff,
		MaxBackoff:     cfg.Practicum.Retry.MaxBackoff,
	}, logger)

	bot, err := telegram.NewClient(telegram.Config{
		Token:         cfg.Telegram.Token,
		ChatID:        cfg.Telegram.ChatID,
		Endpoint:      cfg.Telegram.Endpoint,
		Timeout:       cfg.Telegram.Timeout,
		RetryAttempts: cfg.Telegram.RetryAttempts,
		RetryDelay:    cfg.Telegram.RetryDelay,
	}, logger)
	if err != nil {
		logger.Error("failed to create telegram client", "error", err)
		os.Exit(1)
	}

	clk := clockwork.NewRealClock()
	pollService := service.NewPollService(source, bot, events, history, clk, logger)

	sched := scheduler.NewScheduler(pollService, scheduler.Config{
		Interval:     cfg.Poll.Interval,
		ErrorBackoff: cfg.Poll.ErrorBackoff,
		CycleTimeout: cfg.Poll.CycleTimeout,
	}, clk, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting homework notifier",
		"source", source.ID(),
		"interval", cfg.Poll.Interval,
		"from_date", pollService.Watermark(),
	)

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func setupLogger(level string, out io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel, AddSource: true}
	handler := slog.NewJSONHandler(out, opts)
	return slog.New(handler)
}

// openLogOutput returns stdout when path is empty.
func openLogOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
