// Package tasks implements the scheduled jobs of the reminder bot: the
// reconciliation cycle and storage maintenance.
package tasks

import (
	"log/slog"

	"github.com/edgard/remindbot/internal/config"
	"github.com/edgard/remindbot/internal/database"
	"github.com/edgard/remindbot/internal/reminder"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger     *slog.Logger
	Store      database.Store
	Reconciler *reminder.Reconciler
	Config     *config.Config
}
