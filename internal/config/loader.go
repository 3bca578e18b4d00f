package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	apperr "github.com/edgard/remindbot/internal/errors"
)

// EnvPrefix prefixes environment overrides, e.g. REMINDBOT_TELEGRAM_TOKEN.
const EnvPrefix = "REMINDBOT"

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. the YAML file at path (optional; a missing file is not an error)
// 3. REMINDBOT_* environment variables
// 4. overrides, keyed by dotted config key (used by the CLI)
func LoadConfig(path string, overrides map[string]any) (*Config, error) {
	startTime := time.Now()

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		_, statErr := os.Stat(path)
		switch {
		case statErr == nil:
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, apperr.NewConfig(fmt.Sprintf("failed to read config file %s", path), err)
			}
			slog.Debug("Configuration file loaded", "path", path)
		case errors.Is(statErr, fs.ErrNotExist):
			slog.Info("Configuration file not found, using defaults and environment", "path", path)
		default:
			return nil, apperr.NewConfig(fmt.Sprintf("failed to stat config file %s", path), statErr)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperr.NewConfig("failed to parse configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded",
		"database_backend", cfg.Database.Backend,
		"database_path", cfg.Database.Path,
		"telegram_enabled", cfg.Telegram.Enabled,
		"http_enabled", cfg.HTTP.Enabled,
		"gemini_enabled", cfg.Gemini.Enabled,
		"duration_ms", time.Since(startTime).Milliseconds())

	return cfg, nil
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperr.NewConfig("configuration validation failed", err)
	}
	for name, task := range c.Scheduler.Tasks {
		if task.Enabled && len(strings.Fields(task.Schedule)) != 6 {
			return apperr.NewConfig(fmt.Sprintf("scheduler task %q needs a 6-field cron schedule (with seconds), got %q", name, task.Schedule), nil)
		}
	}
	return nil
}
