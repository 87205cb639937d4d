package storage

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/Shugur-Network/feedsync/internal/config"
	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	"github.com/cockroachdb/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// DBState represents the current state of the database connection
type DBState int

const (
	DBStateInitial DBState = iota
	DBStateConnecting
	DBStateConnected
	DBStateDisconnecting
	DBStateClosed
)

var errNotConnected = errors.New("database is not connected")

// DB is the SQL store behind the feed. One code path serves PostgreSQL and
// SQLite; only the placeholder format and the connection limits differ.
type DB struct {
	*sqlx.DB
	driver  string
	builder sq.StatementBuilderType

	state   DBState
	stateMu sync.RWMutex
}

// InitDB opens the database with retries and exponential backoff.
func InitDB(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	db := &DB{
		driver:  cfg.Driver,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholderFor(cfg.Driver)),
		state:   DBStateConnecting,
	}

	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}
	backoff := constants.DBRetryDelay

	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		var conn *sqlx.DB
		conn, err = open(ctx, cfg)
		if err == nil {
			db.DB = conn
			db.setState(DBStateConnected)
			logger.Info("database connected",
				zap.String("driver", cfg.Driver),
				zap.Int("attempts", attempt),
				zap.Int("max_open_conns", conn.Stats().MaxOpenConnections))
			metrics.DBConnections.WithLabelValues("success").Inc()
			return db, nil
		}

		metrics.DBConnections.WithLabelValues("failure").Inc()
		if attempt == retries {
			break
		}
		logger.Warn("failed to connect to database, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			db.setState(DBStateClosed)
			return nil, errors.Wrap(ctx.Err(), "database connect cancelled")
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	db.setState(DBStateClosed)
	return nil, errors.Wrapf(err, "failed to connect to database after %d attempts", retries)
}

func open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := cfg.DSN
	if cfg.Driver == config.DriverSQLite {
		dsn = sqliteDSN(dsn)
	}
	conn, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", cfg.Driver)
	}

	if cfg.Driver == config.DriverSQLite {
		// A single writer avoids SQLITE_BUSY between pool connections.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	} else {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
		conn.SetConnMaxLifetime(constants.DBConnMaxLifetime)
		conn.SetConnMaxIdleTime(constants.DBConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, constants.HealthCheckTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "ping")
	}
	return conn, nil
}

// sqliteDSN enables WAL and a busy timeout unless the DSN already sets options.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") || dsn == ":memory:" {
		return dsn
	}
	return dsn + "?_journal_mode=WAL&_busy_timeout=5000"
}

func placeholderFor(driver string) sq.PlaceholderFormat {
	if driver == config.DriverPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// Driver returns the configured driver name.
func (db *DB) Driver() string {
	return db.driver
}

// CloseDB closes the database connection
func (db *DB) CloseDB() error {
	db.stateMu.Lock()
	if db.state == DBStateDisconnecting || db.state == DBStateClosed {
		db.stateMu.Unlock()
		return nil
	}
	db.state = DBStateDisconnecting
	db.stateMu.Unlock()

	if db.DB == nil {
		db.setState(DBStateClosed)
		return errors.New("database handle is nil")
	}
	err := db.DB.Close()
	db.setState(DBStateClosed)
	metrics.DBConnections.WithLabelValues("closed").Inc()
	logger.Debug("database connection closed")
	return err
}

// Ping checks database connectivity
func (db *DB) Ping(ctx context.Context) error {
	if !db.isConnected() {
		return errNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, constants.HealthCheckTimeout)
	defer cancel()
	return db.DB.PingContext(ctx)
}

// Stats returns database connection pool statistics
func (db *DB) Stats() DatabaseStats {
	if db.DB == nil {
		return DatabaseStats{}
	}
	stat := db.DB.Stats()
	return DatabaseStats{
		OpenConnections:    stat.OpenConnections,
		InUse:              stat.InUse,
		Idle:               stat.Idle,
		MaxOpenConnections: stat.MaxOpenConnections,
		WaitCount:          stat.WaitCount,
	}
}

// DatabaseStats represents database connection pool statistics
type DatabaseStats struct {
	OpenConnections    int   `json:"open_connections"`
	InUse              int   `json:"in_use"`
	Idle               int   `json:"idle"`
	MaxOpenConnections int   `json:"max_open_connections"`
	WaitCount          int64 `json:"wait_count"`
}

func (db *DB) isConnected() bool {
	db.stateMu.RLock()
	defer db.stateMu.RUnlock()
	return db.state == DBStateConnected
}

func (db *DB) setState(s DBState) {
	db.stateMu.Lock()
	db.state = s
	db.stateMu.Unlock()
}

// withTx runs fn in a transaction, committing when it returns nil.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if !db.isConnected() {
		return errNotConnected
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

// execBuilt runs a squirrel statement inside tx.
func execBuilt(ctx context.Context, tx *sqlx.Tx, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build statement")
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "exec `%s`", query)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrapf(err, "rows affected for `%s`", query)
	}
	return n, nil
}

// selectBuilt runs a squirrel query and scans every row into dest.
func (db *DB) selectBuilt(ctx context.Context, dest any, b sq.Sqlizer) error {
	if !db.isConnected() {
		return errNotConnected
	}
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "build query")
	}
	return errors.Wrapf(db.SelectContext(ctx, dest, query, args...), "select `%s`", query)
}
