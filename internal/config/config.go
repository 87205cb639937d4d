package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

//go:embed defaults.yaml
var defaultYAML []byte

// Version is set at runtime from build information
var Version = "dev"

var validate = validator.New()

// Config holds every sub‑config.
type Config struct {
	General  GeneralConfig  `mapstructure:"general"  yaml:"general"  validate:"required"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"  validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"  validate:"required"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database" validate:"required"`
	Account  AccountConfig  `mapstructure:"account"  yaml:"account"`
	Relays   RelaysConfig   `mapstructure:"relays"   yaml:"relays"   validate:"required"`
	Ingest   IngestConfig   `mapstructure:"ingest"   yaml:"ingest"   validate:"required"`
	Feed     FeedConfig     `mapstructure:"feed"     yaml:"feed"     validate:"required"`
}

func init() {
	registerCustomValidators()

	validate.RegisterStructValidation(performCrossFieldValidation, Config{})
}

// registerCustomValidators registers custom validation functions
func registerCustomValidators() {
	// Public key as 64-char hex or npub
	if err := validate.RegisterValidation("pubkey", func(fl validator.FieldLevel) bool {
		_, err := DecodePubkey(fl.Field().String())
		return err == nil
	}); err != nil {
		logger.Error("Failed to register pubkey validator", zap.Error(err))
	}

	if err := validate.RegisterValidation("relay_url", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		if err != nil {
			return false
		}
		return (u.Scheme == "ws" || u.Scheme == "wss") && u.Host != ""
	}); err != nil {
		logger.Error("Failed to register relay_url validator", zap.Error(err))
	}

	// Between 1 second and 24 hours
	if err := validate.RegisterValidation("reasonable_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Interface().(time.Duration)
		return duration >= time.Second && duration <= 24*time.Hour
	}); err != nil {
		logger.Error("Failed to register reasonable_duration validator", zap.Error(err))
	}

	// Loop and debounce intervals
	if err := validate.RegisterValidation("tick_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Interface().(time.Duration)
		return duration >= 10*time.Millisecond && duration <= time.Minute
	}); err != nil {
		logger.Error("Failed to register tick_duration validator", zap.Error(err))
	}

	if err := validate.RegisterValidation("log_level", func(fl validator.FieldLevel) bool {
		return isLogLevel(fl.Field().String())
	}); err != nil {
		logger.Error("Failed to register log_level validator", zap.Error(err))
	}

	if err := validate.RegisterValidation("log_format", func(fl validator.FieldLevel) bool {
		format := fl.Field().String()
		return format == "console" || format == "json"
	}); err != nil {
		logger.Error("Failed to register log_format validator", zap.Error(err))
	}

	if err := validate.RegisterValidation("db_driver", func(fl validator.FieldLevel) bool {
		driver := fl.Field().String()
		return driver == DriverPostgres || driver == DriverSQLite
	}); err != nil {
		logger.Error("Failed to register db_driver validator", zap.Error(err))
	}
}

// Supported database drivers.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

func isLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error", "fatal":
		return true
	}
	return false
}

// performCrossFieldValidation performs validation across multiple fields
func performCrossFieldValidation(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)

	if cfg.Database.MaxIdleConns > cfg.Database.MaxOpenConns {
		sl.ReportError(cfg.Database.MaxIdleConns, "MaxIdleConns", "MaxIdleConns", "idle_exceeds_open", "")
	}

	// A debounce longer than the override TTL would hide every pending action.
	if cfg.Feed.Debounce >= cfg.Feed.OverrideTTL {
		sl.ReportError(cfg.Feed.Debounce, "Debounce", "Debounce", "debounce_too_long", "")
	}

	if cfg.Relays.Throttling.Enabled && cfg.Relays.Throttling.MaxEventsPerSecond == 0 {
		sl.ReportError(cfg.Relays.Throttling.MaxEventsPerSecond, "MaxEventsPerSecond", "MaxEventsPerSecond", "required_when_throttling", "")
	}
}

/* ------------------------------------------------------------------ *
|  Public API                                                         |
* -------------------------------------------------------------------*/

// SetVersion sets the version from build information
func SetVersion(v string) {
	Version = v
}

// Load merges defaults → file (optional) → env vars, validates, and returns cfg.
// When a config file is in use, changes to logging.level are applied live.
func Load(path string, log *zap.Logger) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FEEDSYNC") // FEEDSYNC_DATABASE_DSN
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 1. defaults.yaml (embedded)
	if err := v.ReadConfig(bytes.NewReader(defaultYAML)); err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}

	// 2. optional user file
	fileLoaded := false
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		fileLoaded = true
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.MergeInConfig(); err != nil {
			if log != nil {
				log.Info("No config.yaml found, using defaults")
			}
		} else {
			fileLoaded = true
			if log != nil {
				log.Info("Loaded config.yaml from current directory")
			}
		}
	}

	// 3. env already merged by AutomaticEnv()

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, formatValidationError(err)
	}

	if err := initializeLogger(cfg.Logging); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	if log != nil {
		log.Info("configuration loaded",
			zap.String("version", Version),
			zap.String("level", cfg.Logging.Level),
			zap.String("format", cfg.Logging.Format),
			zap.String("db_driver", cfg.Database.Driver),
		)
	}

	if fileLoaded {
		watchLogLevel(v)
	}
	return &cfg, nil
}

// watchLogLevel re-reads the config file on change and swaps the log level.
// Other settings need a restart.
func watchLogLevel(v *viper.Viper) {
	v.OnConfigChange(func(e fsnotify.Event) {
		level := v.GetString("logging.level")
		if !isLogLevel(level) {
			logger.Warn("ignoring invalid log level from config change",
				zap.String("file", e.Name), zap.String("level", level))
			return
		}
		if err := logger.UpdateLevel(level); err != nil {
			logger.Warn("log level update failed", zap.Error(err))
			return
		}
		logger.Info("log level updated", zap.String("file", e.Name), zap.String("level", level))
	})
	v.WatchConfig()
}

// initializeLogger initializes the logger using the LoggingConfig
func initializeLogger(loggingConfig LoggingConfig) error {
	return logger.Init(
		logger.WithLevel(loggingConfig.Level),
		logger.WithFormat(loggingConfig.Format),
		logger.WithFile(loggingConfig.FilePath),
		logger.WithVersion(Version),
		logger.WithComponent("feedsync"),
		logger.WithRotation(loggingConfig.MaxSize, loggingConfig.MaxBackups, loggingConfig.MaxAge),
	)
}

// formatValidationError converts validator errors into user-friendly messages
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(messages, "\n  - "))
	}

	return fmt.Errorf("configuration validation failed: %w", err)
}

// getFieldErrorMessage returns a user-friendly error message for a field validation error
func getFieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	value := fe.Value()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required but not provided", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, param, value)
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", field, param, value)
	case "pubkey":
		return fmt.Sprintf("%s must be a 64-character hex key or an npub (got: %v)", field, value)
	case "relay_url":
		return fmt.Sprintf("%s must be a ws:// or wss:// URL (got: %v)", field, value)
	case "reasonable_duration":
		return fmt.Sprintf("%s must be between 1 second and 24 hours (got: %v)", field, value)
	case "tick_duration":
		return fmt.Sprintf("%s must be between 10ms and 1 minute (got: %v)", field, value)
	case "log_level":
		return fmt.Sprintf("%s must be one of: debug, info, warn, error, fatal (got: %v)", field, value)
	case "log_format":
		return fmt.Sprintf("%s must be either 'console' or 'json' (got: %v)", field, value)
	case "db_driver":
		return fmt.Sprintf("%s must be either '%s' or '%s' (got: %v)", field, DriverPostgres, DriverSQLite, value)
	case "idle_exceeds_open":
		return fmt.Sprintf("%s must not exceed max_open_conns", field)
	case "debounce_too_long":
		return fmt.Sprintf("%s must be shorter than feed.override_ttl", field)
	case "required_when_throttling":
		return fmt.Sprintf("%s must be set when throttling is enabled", field)
	default:
		return fmt.Sprintf("%s validation failed: %s (got: %v)", field, fe.Tag(), value)
	}
}
