package storage

import (
	"context"
	"embed"
	"io/fs"

	"github.com/Shugur-Network/feedsync/internal/config"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/cockroachdb/errors"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to the latest embedded migration.
func (db *DB) Migrate(ctx context.Context) error {
	if !db.isConnected() {
		return errNotConnected
	}

	dialect := goose.DialectSQLite3
	if db.driver == config.DriverPostgres {
		dialect = goose.DialectPostgres
	}

	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "open embedded migrations")
	}
	provider, err := goose.NewProvider(dialect, db.DB.DB, migrations)
	if err != nil {
		return errors.Wrap(err, "create migration provider")
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Wrap(err, "apply migrations")
	}
	for _, r := range results {
		logger.Info("migration applied",
			zap.String("source", r.Source.Path),
			zap.Duration("duration", r.Duration))
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "read schema version")
	}
	logger.Info("database schema ready", zap.Int64("version", version))
	return nil
}
