package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "GENERAL:\n  NAME: test\n"), nil)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.General.Name)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 500*time.Millisecond, cfg.Ingest.QueueInterval)
	assert.Equal(t, 250, cfg.Ingest.MaxIDsPerFilter)
	assert.Equal(t, time.Hour, cfg.Feed.ResubSpanThreshold)
	assert.NotEmpty(t, cfg.Relays.Bootstrap)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FEEDSYNC_FEED_PAGE_SIZE", "40")
	t.Setenv("FEEDSYNC_DATABASE_DRIVER", "pgx")

	cfg, err := Load(writeConfig(t, "LOGGING:\n  LEVEL: debug\n"), nil)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Feed.PageSize)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"log level", "LOGGING:\n  LEVEL: loud\n", "log_level"},
		{"driver", "DATABASE:\n  DRIVER: mysql\n", "pgx"},
		{"relay url", "RELAYS:\n  BOOTSTRAP:\n    - https://example.com\n", "ws://"},
		{"pubkey", "ACCOUNT:\n  PUBKEY: nothex\n", "npub"},
		{"debounce", "FEED:\n  DEBOUNCE: 50s\n  OVERRIDE_TTL: 10s\n", "override_ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "FEED:\n  NOT_A_SETTING: 1\n"), nil)
	require.Error(t, err)
}

func TestDecodePubkey(t *testing.T) {
	pk, err := nostr.GetPublicKey(nostr.GeneratePrivateKey())
	require.NoError(t, err)

	got, err := DecodePubkey(pk)
	require.NoError(t, err)
	assert.Equal(t, pk, got)

	npub, err := nip19.EncodePublicKey(pk)
	require.NoError(t, err)
	got, err = DecodePubkey(npub)
	require.NoError(t, err)
	assert.Equal(t, pk, got)

	note, err := nip19.EncodeNote(pk)
	require.NoError(t, err)
	_, err = DecodePubkey(note)
	assert.Error(t, err)

	_, err = DecodePubkey("abc")
	assert.Error(t, err)
}

func TestRedactedDSN(t *testing.T) {
	pg := DatabaseConfig{DSN: "postgres://feed:secret@db:5432/feedsync?sslmode=disable"}
	assert.NotContains(t, pg.RedactedDSN(), "secret")
	assert.Contains(t, pg.RedactedDSN(), "db:5432/feedsync")

	file := DatabaseConfig{DSN: "feedsync.db"}
	assert.Equal(t, "feedsync.db", file.RedactedDSN())
}
