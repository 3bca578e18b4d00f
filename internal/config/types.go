// Package config provides configuration loading, validation, and management
// for the reminder bot. It reads a YAML file through viper, overlays
// REMINDBOT_* environment variables, applies defaults and validates the
// result.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config defines the application configuration parameters for all components.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig selects and tunes the task store backend.
type DatabaseConfig struct {
	Backend          string        `mapstructure:"backend"           validate:"oneof=sqlite jsonfile"`
	Path             string        `mapstructure:"path"              validate:"required"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" validate:"min=100ms,max=5m"`
}

// TelegramConfig configures the chat transport.
type TelegramConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Token             string        `mapstructure:"token"                validate:"required_if=Enabled true"`
	AdminUserID       int64         `mapstructure:"admin_user_id"        validate:"gte=0"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"      validate:"min=1s,max=5m"`
	SendRatePerSecond float64       `mapstructure:"send_rate_per_second" validate:"gt=0,lte=30"`
	SendBurst         int           `mapstructure:"send_burst"           validate:"min=1,max=30"`

	// BotInfo is filled at runtime from getMe.
	BotInfo *models.User `mapstructure:"-" validate:"-"`
}

// ReminderConfig tunes the reminder engine.
type ReminderConfig struct {
	Timezone       string        `mapstructure:"timezone"        validate:"required,timezone"`
	NotifyTimeout  time.Duration `mapstructure:"notify_timeout"  validate:"min=1s,max=5m"`
	DateLayout     string        `mapstructure:"date_layout"     validate:"required"`
	MaxTitleLength int           `mapstructure:"max_title_length" validate:"min=1,max=4096"`
}

// SchedulerConfig holds scheduled job configuration keyed by job name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures one scheduled job. Schedule is a cron expression
// with a leading seconds field.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// HTTPConfig configures the dashboard API.
type HTTPConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"          validate:"required_if=Enabled true"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  validate:"min=1s"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=1s"`
}

// GeminiConfig configures optional AI phrasing of notifications.
type GeminiConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	APIKey            string        `mapstructure:"api_key"             validate:"required_if=Enabled true"`
	ModelName         string        `mapstructure:"model_name"          validate:"required_if=Enabled true"`
	Temperature       float32       `mapstructure:"temperature"         validate:"min=0,max=2"`
	SystemInstruction string        `mapstructure:"system_instruction"`
	MaxRetries        int           `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
	Timeout           time.Duration `mapstructure:"timeout"             validate:"min=1s,max=2m"`
	BreakerFailures   int           `mapstructure:"breaker_failures"    validate:"min=1,max=100"`
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"    validate:"min=1s,max=1h"`
}

// MessagesConfig holds every user-facing text. Fields ending in Fmt are
// fmt format strings.
type MessagesConfig struct {
	Welcome         string `mapstructure:"welcome"              validate:"required"`
	Help            string `mapstructure:"help"                 validate:"required"`
	Pong            string `mapstructure:"pong"                 validate:"required"`
	ScheduleUsage   string `mapstructure:"schedule_usage"       validate:"required"`
	ScheduledFmt    string `mapstructure:"scheduled_fmt"        validate:"required"`
	ReminderLineFmt string `mapstructure:"reminder_line_fmt"    validate:"required"`
	TaskListHeader  string `mapstructure:"task_list_header"     validate:"required"`
	TaskLineFmt     string `mapstructure:"task_line_fmt"        validate:"required"`
	NoTasks         string `mapstructure:"no_tasks"             validate:"required"`
	RemoveUsage     string `mapstructure:"remove_usage"         validate:"required"`
	RemovedFmt      string `mapstructure:"removed_fmt"          validate:"required"`
	EditUsage       string `mapstructure:"edit_usage"           validate:"required"`
	EditedFmt       string `mapstructure:"edited_fmt"           validate:"required"`
	NotFound        string `mapstructure:"not_found"            validate:"required"`
	GeneralError    string `mapstructure:"general_error"        validate:"required"`
	Unauthorized    string `mapstructure:"unauthorized"         validate:"required"`
	CycleBusy       string `mapstructure:"cycle_busy"           validate:"required"`
	CycleDoneFmt    string `mapstructure:"cycle_done_fmt"       validate:"required"`
	PastDueFmt      string `mapstructure:"past_due_fmt"         validate:"required"`
	UpcomingFmt     string `mapstructure:"upcoming_fmt"         validate:"required"`
}

// Location resolves the reminder timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reminder.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
