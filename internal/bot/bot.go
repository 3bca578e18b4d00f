// Package bot implements lifecycle management and component orchestration
// for the reminder bot: the Telegram listener, the job scheduler and the
// dashboard API run side by side until shutdown.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/remindbot/internal/config"
)

const shutdownTimeout = 10 * time.Second

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger     *slog.Logger
	cfg        *config.Config
	tgBot      *tgbot.Bot
	scheduler  *Scheduler
	httpServer *http.Server
}

// NewBot wires the components to run. tgBot and httpServer are optional;
// a nil value leaves that component out.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	tgBot *tgbot.Bot,
	scheduler *Scheduler,
	httpServer *http.Server,
) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		logger:     logger.With("component", "bot_orchestrator"),
		cfg:        cfg,
		tgBot:      tgBot,
		scheduler:  scheduler,
		httpServer: httpServer,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	if b.tgBot != nil {
		g.Go(func() error {
			b.logger.Info("Starting Telegram bot listener...")

			b.tgBot.Start(gCtx)
			b.logger.Info("Telegram bot listener stopped.")

			if gCtx.Err() == nil {
				b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
				return fmt.Errorf("telegram listener stopped unexpectedly")
			}
			return nil
		})
	} else {
		b.logger.Info("Telegram listener disabled.")
	}

	if b.scheduler != nil {
		g.Go(func() error {
			b.logger.Info("Starting scheduler...")
			if err := b.scheduler.Start(gCtx); err != nil {
				b.logger.Error("Failed to start scheduler", "error", err)
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler...")

			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	if b.httpServer != nil {
		g.Go(func() error {
			b.logger.Info("Starting HTTP API...", "addr", b.httpServer.Addr)
			if err := b.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				b.logger.Error("HTTP API failed", "error", err)
				return fmt.Errorf("http api: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping HTTP API...")

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), shutdownTimeout)
			defer cancel()
			if err := b.httpServer.Shutdown(shutdownCtx); err != nil {
				b.logger.Error("Error stopping HTTP API", "error", err)
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
