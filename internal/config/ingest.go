package config

import "time"

// IngestConfig tunes the validation, queueing and persistence pipeline.
type IngestConfig struct {
	QueueInterval   time.Duration `mapstructure:"QUEUE_INTERVAL"     json:"queue_interval"     yaml:"queue_interval"     validate:"required,tick_duration"`
	QueueIdleTicks  int           `mapstructure:"QUEUE_IDLE_TICKS"   json:"queue_idle_ticks"   yaml:"queue_idle_ticks"   validate:"required,min=1,max=100000"`
	SeenCacheSize   int           `mapstructure:"SEEN_CACHE_SIZE"    json:"seen_cache_size"    yaml:"seen_cache_size"    validate:"required,min=1000,max=10000000"`
	Workers         int           `mapstructure:"WORKERS"            json:"workers"            yaml:"workers"            validate:"min=0,max=1024"`
	JobBuffer       int           `mapstructure:"JOB_BUFFER"         json:"job_buffer"         yaml:"job_buffer"         validate:"min=0,max=1000000"`
	WriteTimeout    time.Duration `mapstructure:"WRITE_TIMEOUT"      json:"write_timeout"      yaml:"write_timeout"      validate:"required,reasonable_duration"`
	BatchDelay      time.Duration `mapstructure:"BATCH_DELAY"        json:"batch_delay"        yaml:"batch_delay"        validate:"required,tick_duration"`
	MaxIDsPerFilter int           `mapstructure:"MAX_IDS_PER_FILTER" json:"max_ids_per_filter" yaml:"max_ids_per_filter" validate:"required,min=1,max=5000"`
	ResubCooldown   time.Duration `mapstructure:"RESUB_COOLDOWN"     json:"resub_cooldown"     yaml:"resub_cooldown"     validate:"required,reasonable_duration"`
	MaxPubkeys      int           `mapstructure:"MAX_PUBKEYS"        json:"max_pubkeys"        yaml:"max_pubkeys"        validate:"required,min=1,max=10000"`
}
