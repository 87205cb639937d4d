package config

import "net/url"

// DatabaseConfig holds store settings.
// Driver selects the SQL backend: "pgx" for PostgreSQL, "sqlite3" for a local file.
type DatabaseConfig struct {
	Driver string `mapstructure:"DRIVER" json:"driver" yaml:"driver" validate:"required,db_driver"`
	// DSN is a postgres connection URL or a sqlite file path.
	DSN string `mapstructure:"DSN" json:"dsn" yaml:"dsn" validate:"required"`

	MaxOpenConns   int `mapstructure:"MAX_OPEN_CONNS"   json:"max_open_conns"   yaml:"max_open_conns"   validate:"required,min=1,max=500"`
	MaxIdleConns   int `mapstructure:"MAX_IDLE_CONNS"   json:"max_idle_conns"   yaml:"max_idle_conns"   validate:"min=0,max=500"`
	ConnectRetries int `mapstructure:"CONNECT_RETRIES"  json:"connect_retries"  yaml:"connect_retries"  validate:"required,min=1,max=20"`
}

// RedactedDSN returns the DSN with any URL password masked.
func (d DatabaseConfig) RedactedDSN() string {
	u, err := url.Parse(d.DSN)
	if err != nil || u.User == nil {
		return d.DSN
	}
	return u.Redacted()
}
