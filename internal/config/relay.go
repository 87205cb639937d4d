package config

import "time"

// RelaysConfig holds the bootstrap relay set and inbound throttling.
type RelaysConfig struct {
	// Bootstrap read relays, used until the account's NIP-65 list is known.
	Bootstrap      []string         `mapstructure:"BOOTSTRAP"       json:"bootstrap"       yaml:"bootstrap"       validate:"required,min=1,dive,relay_url"`
	ConnectTimeout time.Duration    `mapstructure:"CONNECT_TIMEOUT" json:"connect_timeout" yaml:"connect_timeout" validate:"required,reasonable_duration"`
	Throttling     ThrottlingConfig `mapstructure:"THROTTLING"      json:"throttling"      yaml:"throttling"      validate:"required"`
}

// ThrottlingConfig holds per-relay inbound rate limiting settings.
type ThrottlingConfig struct {
	Enabled            bool          `mapstructure:"ENABLED"               json:"enabled"               yaml:"enabled"`
	MaxEventsPerSecond int           `mapstructure:"MAX_EVENTS_PER_SECOND" json:"max_events_per_second" yaml:"max_events_per_second" validate:"min=0,max=100000"`
	BurstSize          int           `mapstructure:"BURST_SIZE"            json:"burst_size"            yaml:"burst_size"            validate:"min=0,max=100000"`
	BanThreshold       int           `mapstructure:"BAN_THRESHOLD"         json:"ban_threshold"         yaml:"ban_threshold"         validate:"min=0,max=100000"`
	BanDuration        time.Duration `mapstructure:"BAN_DURATION"          json:"ban_duration"          yaml:"ban_duration"          validate:"reasonable_duration"`
}
