package config

import "time"

// FeedConfig holds feed aggregation settings.
type FeedConfig struct {
	PageSize           int           `mapstructure:"PAGE_SIZE"            json:"page_size"            yaml:"page_size"            validate:"required,min=1,max=500"`
	ResubSpanThreshold time.Duration `mapstructure:"RESUB_SPAN_THRESHOLD" json:"resub_span_threshold" yaml:"resub_span_threshold" validate:"required,reasonable_duration"`
	OverrideTTL        time.Duration `mapstructure:"OVERRIDE_TTL"         json:"override_ttl"         yaml:"override_ttl"         validate:"required,reasonable_duration"`
	Debounce           time.Duration `mapstructure:"DEBOUNCE"             json:"debounce"             yaml:"debounce"             validate:"required,tick_duration"`
}
