package config

// LoggingConfig holds logging-related settings.
type LoggingConfig struct {
	Level      string `mapstructure:"LEVEL"       json:"level"       yaml:"level"       validate:"required,log_level"`
	FilePath   string `mapstructure:"FILE"        json:"file"        yaml:"file"        validate:"omitempty"`
	Format     string `mapstructure:"FORMAT"      json:"format"      yaml:"format"      validate:"omitempty,log_format"`
	MaxSize    int    `mapstructure:"MAX_SIZE"    json:"max_size"    yaml:"max_size"    validate:"required,min=1,max=1000"`
	MaxBackups int    `mapstructure:"MAX_BACKUPS" json:"max_backups" yaml:"max_backups" validate:"min=0,max=100"`
	MaxAge     int    `mapstructure:"MAX_AGE"     json:"max_age"     yaml:"max_age"     validate:"required,min=1,max=365"`
}
