// Command remindctl manages reminder tasks directly against the task store,
// without the chat transport.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/edgard/remindbot/internal/config"
	"github.com/edgard/remindbot/internal/database"
	"github.com/edgard/remindbot/internal/logger"
	"github.com/edgard/remindbot/internal/reminder"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(&app{logOut: os.Stderr})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// app carries global flags and the seams tests replace.
type app struct {
	configPath string
	dbPath     string
	backend    string
	jsonOut    bool

	logOut io.Writer
	clock  clockwork.Clock
}

// env is everything a command needs, opened from configuration.
type env struct {
	cfg        *config.Config
	log        *slog.Logger
	store      database.Store
	service    *reminder.Service
	reconciler *reminder.Reconciler
}

func (e *env) Close() error {
	return e.store.Close()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "remindctl",
		Short:         "Manage reminder tasks from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "./config.yaml", "path to configuration file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "task store path (overrides database.path)")
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "task store backend: sqlite or jsonfile (overrides database.backend)")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "output JSON")

	root.AddCommand(addCmd(a))
	root.AddCommand(listCmd(a))
	root.AddCommand(showCmd(a))
	root.AddCommand(removeCmd(a))
	root.AddCommand(editCmd(a))
	root.AddCommand(previewCmd(a))
	root.AddCommand(cycleCmd(a))
	root.AddCommand(migrateCmd(a))
	root.AddCommand(vacuumCmd(a))
	return root
}

// withEnv opens the configured store and services for the duration of fn.
func (a *app) withEnv(cmd *cobra.Command, notifier func(log *slog.Logger) reminder.Notifier, fn func(ctx context.Context, e *env) error) error {
	overrides := map[string]any{"telegram.enabled": false}
	if a.dbPath != "" {
		overrides["database.path"] = a.dbPath
	}
	if a.backend != "" {
		overrides["database.backend"] = a.backend
	}

	cfg, err := config.LoadConfig(a.configPath, overrides)
	if err != nil {
		return err
	}

	logOut := a.logOut
	if logOut == nil {
		logOut = cmd.ErrOrStderr()
	}
	log := logger.New(logOut, cfg.Logger.Level, cfg.Logger.JSON)

	store, err := database.OpenStore(cfg.Database.Backend, cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}

	loc := cfg.Location()
	e := &env{
		cfg:   cfg,
		log:   log,
		store: store,
		service: reminder.NewService(store, reminder.ServiceOptions{
			Clock:            a.clock,
			Location:         loc,
			MaxTitleLength:   cfg.Reminder.MaxTitleLength,
			OperationTimeout: cfg.Database.OperationTimeout,
		}, log),
	}
	if notifier != nil {
		composer := reminder.NewComposer(reminder.Templates{
			PastDueFmt:  cfg.Messages.PastDueFmt,
			UpcomingFmt: cfg.Messages.UpcomingFmt,
			DateLayout:  cfg.Reminder.DateLayout,
		}, nil, log)
		e.reconciler = reminder.NewReconciler(store, notifier(log), composer, reminder.ReconcilerOptions{
			Clock:            a.clock,
			Location:         loc,
			OperationTimeout: cfg.Database.OperationTimeout,
		}, log)
	}
	defer func() {
		if cerr := e.Close(); cerr != nil {
			log.Error("Failed to close task store", "error", cerr)
		}
	}()

	return fn(cmd.Context(), e)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
