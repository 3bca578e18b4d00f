// Package main contains the entrypoint for the reminder bot service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/remindbot/internal/bot"
	"github.com/edgard/remindbot/internal/bot/handlers"
	"github.com/edgard/remindbot/internal/bot/tasks"
	"github.com/edgard/remindbot/internal/config"
	"github.com/edgard/remindbot/internal/database"
	"github.com/edgard/remindbot/internal/gemini"
	"github.com/edgard/remindbot/internal/logger"
	"github.com/edgard/remindbot/internal/reminder"
	"github.com/edgard/remindbot/internal/telegram"
	"github.com/edgard/remindbot/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components, handles graceful
// shutdown, and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath, nil)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	store, err := database.OpenStore(cfg.Database.Backend, cfg.Database.Path, log)
	if err != nil {
		log.Error("Failed to open task store", "backend", cfg.Database.Backend, "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close task store", "error", err)
		}
	}()

	loc := cfg.Location()

	var phraser reminder.Phraser
	if cfg.Gemini.Enabled {
		gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			log.Error("Failed to initialize Gemini client", "error", err)
			return 1
		}
		phraser = gemClient
	}
	composer := reminder.NewComposer(reminder.Templates{
		PastDueFmt:  cfg.Messages.PastDueFmt,
		UpcomingFmt: cfg.Messages.UpcomingFmt,
		DateLayout:  cfg.Reminder.DateLayout,
	}, phraser, log)

	service := reminder.NewService(store, reminder.ServiceOptions{
		Location:         loc,
		MaxTitleLength:   cfg.Reminder.MaxTitleLength,
		OperationTimeout: cfg.Database.OperationTimeout,
	}, log)

	var tg *tgbot.Bot
	var notifier reminder.Notifier = reminder.NewLogNotifier(log)
	hDeps := handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Recipients: store,
		Service:    service,
	}

	if cfg.Telegram.Enabled {
		botOpts := []tgbot.Option{
			tgbot.WithMiddlewares(logger.Middleware(log)),
			tgbot.WithDefaultHandler(handlers.NewDefaultHandler(hDeps)),
			tgbot.WithHTTPClient(cfg.Telegram.RequestTimeout, &http.Client{Timeout: cfg.Telegram.RequestTimeout + 10*time.Second}),
		}
		tg, err = telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
		if err != nil {
			log.Error("Failed to create Telegram bot", "error", err)
			return 1
		}

		cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
		if err != nil {
			log.Error("Failed to get bot info", "error", err)
			return 1
		}
		log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

		messenger := telegram.NewMessenger(tg, store, cfg.Telegram.SendRatePerSecond, cfg.Telegram.SendBurst, log)
		notifier = reminder.NewMessengerNotifier(messenger, cfg.Reminder.NotifyTimeout, log)
	} else {
		log.Warn("Telegram disabled, notifications will only be logged")
	}

	reconciler := reminder.NewReconciler(store, notifier, composer, reminder.ReconcilerOptions{
		Location:         loc,
		OperationTimeout: cfg.Database.OperationTimeout,
	}, log)

	if tg != nil {
		hDeps.Reconciler = reconciler
		if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
			log.Error("Failed to register Telegram handlers", "error", err)
			return 1
		}
	}

	tDeps := tasks.TaskDeps{
		Logger:     log,
		Store:      store,
		Reconciler: reconciler,
		Config:     cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps), loc)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	var httpServer *http.Server
	if cfg.HTTP.Enabled {
		handler := web.New(web.Config{Service: service, Health: store, Logger: log})
		httpServer = web.NewHTTPServer(cfg.HTTP, handler)
	}

	app := bot.NewBot(log, cfg, tg, sched, httpServer)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
