package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"taskbot/internal/config"
	"taskbot/internal/domain/models"
	"taskbot/internal/handler"
	"taskbot/internal/middleware"
	"taskbot/internal/repository/memory"
	"taskbot/internal/service/access"
	"taskbot/internal/service/conversation"
	"taskbot/internal/service/intake"
	"taskbot/internal/taskapi"
	"taskbot/internal/templates"
	"taskbot/internal/transport/telegram"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging: JSON to stdout and a rotated log file
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
	if err != nil {
		log.Fatalf("Failed to setup log file: %v", err)
	}
	defer logFile.Close()

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stdout, logFile), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("bot starting",
		"environment", cfg.Environment,
		"api", cfg.TaskAPIBaseURL(),
	)

	messages, err := templates.Load()
	if err != nil {
		log.Fatalf("Failed to load message templates: %v", err)
	}
	if err := messages.Require(
		"status.awaiting_text", "task.number", "task.description",
		"submit.pick_group", "submit.sent", "admin.menu", "start.first_admin",
	); err != nil {
		log.Fatalf("Message templates incomplete: %v", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}
	logger.Info("telegram connected", "bot", bot.Self.UserName)

	api := taskapi.NewClient(cfg.TaskAPIBaseURL(), logger)
	transport := telegram.NewTransport(bot, logger)
	sessions := memory.NewSessionStore()

	tracker := conversation.NewArtifactTracker(sessions, transport, logger)
	submitter := conversation.NewSubmissionCoordinator(api, logger)
	ctrl := conversation.NewController(sessions, transport, tracker, submitter, messages, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agg := intake.NewAggregator(
		intake.DefaultFlushWindow,
		intake.DefaultMaxWait,
		func(batch models.Batch) {
			if err := ctrl.ApplyBatch(ctx, batch); err != nil {
				logger.Error("batch apply failed", "batch_id", batch.ID, "error", err)
			}
		},
		logger,
	)

	classifier := access.NewClassifier(api, logger)
	router := handler.NewRouter(transport, ctrl, agg, api, classifier, messages, logger)

	dispatch := middleware.Chain(router.Handle,
		middleware.Recovery(logger),
		middleware.WithCorrelation(logger),
		middleware.WithUser(classifier),
	)

	poller := telegram.NewPoller(bot, dispatch, logger)
	poller.Run(ctx)

	logger.Info("bot stopped")
}
