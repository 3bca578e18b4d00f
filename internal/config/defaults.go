package config

import (
	"time"

	"github.com/spf13/viper"
)

// Scheduled job names; they key the scheduler.tasks section.
const (
	TaskReminderCycle  = "reminder_cycle"
	TaskSQLMaintenance = "sql_maintenance"
)

var defaults = map[string]any{
	"logger.level": "info",
	"logger.json":  false,

	"database.backend":           "sqlite",
	"database.path":              "tasks.db",
	"database.operation_timeout": 15 * time.Second,

	"telegram.enabled":              true,
	"telegram.token":                "",
	"telegram.admin_user_id":        0,
	"telegram.request_timeout":      30 * time.Second,
	"telegram.send_rate_per_second": 20.0,
	"telegram.send_burst":           5,

	"reminder.timezone":         "UTC",
	"reminder.notify_timeout":   20 * time.Second,
	"reminder.date_layout":      "Monday, Jan 02, 2006",
	"reminder.max_title_length": 200,

	"scheduler.tasks." + TaskReminderCycle + ".enabled":   true,
	"scheduler.tasks." + TaskReminderCycle + ".schedule":  "0 */10 * * * *",
	"scheduler.tasks." + TaskSQLMaintenance + ".enabled":  true,
	"scheduler.tasks." + TaskSQLMaintenance + ".schedule": "0 30 3 * * 0",

	"http.enabled":       false,
	"http.addr":          ":8080",
	"http.read_timeout":  10 * time.Second,
	"http.write_timeout": 15 * time.Second,

	"gemini.enabled":             false,
	"gemini.api_key":             "",
	"gemini.model_name":          "gemini-2.0-flash",
	"gemini.temperature":         0.7,
	"gemini.system_instruction":  "You write short, friendly task reminders for a chat app. Keep every fact you are given, add at most one emoji, answer with the reminder text only.",
	"gemini.max_retries":         2,
	"gemini.retry_delay_seconds": 2,
	"gemini.timeout":             15 * time.Second,
	"gemini.breaker_failures":    3,
	"gemini.breaker_cooldown":    5 * time.Minute,

	"messages.welcome":           "👋 Hi! I remind you about your tasks before they are due. Send /help to see what I can do.",
	"messages.help":              "Commands:\n/schedule Name | jul 31 2025 | 3 - schedule a task with 1-10 reminders\n/tasks - list your tasks\n/remove <id or name> - remove a task\n/edit <id> | Name | date | count - change a task\n/ping - check that I'm alive",
	"messages.pong":              "Pong!",
	"messages.schedule_usage":    "Usage: /schedule TaskName | time (e.g., jul 31 2025) | numberOfReminders (1-10)",
	"messages.scheduled_fmt":     "✅ Task '%s' has been scheduled for %s.\nYou will receive %d reminder(s) on these days:\n\n%s",
	"messages.reminder_line_fmt": "Reminder %d: %s",
	"messages.task_list_header":  "📋 Your tasks:",
	"messages.task_line_fmt":     "#%d %s - due %s (%d reminder(s) left)",
	"messages.no_tasks":          "You have no scheduled tasks.",
	"messages.remove_usage":      "Usage: /remove <task id or exact task name>",
	"messages.removed_fmt":       "🗑️ Removed '%s'.",
	"messages.edit_usage":        "Usage: /edit <task id> | TaskName | jul 31 2025 | numberOfReminders",
	"messages.edited_fmt":        "✏️ Task #%d is now '%s' due %s with %d reminder(s).",
	"messages.not_found":         "I couldn't find that task.",
	"messages.general_error":     "❌ Something went wrong. Please try again later.",
	"messages.unauthorized":      "🚫 You are not authorized to use this command.",
	"messages.cycle_busy":        "A reminder pass is already running, try again shortly.",
	"messages.cycle_done_fmt":    "Reminder pass finished: %d overdue task(s), %d reminder(s) fired, %d stale reminder(s) removed, %d failure(s).",
	"messages.past_due_fmt":      "⏰ Reminder: your task '%s' is due!",
	"messages.upcoming_fmt":      "🔔 Upcoming: '%s' is due on %s.",
}

// setDefaults registers default values for every known key. Registering
// every key also lets AutomaticEnv overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
