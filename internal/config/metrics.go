package config

// MetricsConfig holds metrics and health endpoint settings.
type MetricsConfig struct {
	Enabled bool `mapstructure:"ENABLED" json:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"PORT"    json:"port"    yaml:"port"    validate:"required,min=1024,max=65535"`
}
