package config

import "time"

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	Name            string        `mapstructure:"NAME"             json:"name"             yaml:"name"             validate:"required,min=1,max=64"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" json:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,reasonable_duration"`
}
