package storage

import (
	"context"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
)

// UpsertProfiles keeps the newest metadata per author.
func (db *DB) UpsertProfiles(ctx context.Context, profiles []models.Profile) error {
	profiles = newestByKey(profiles)
	if len(profiles) == 0 {
		return nil
	}
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for chunk := range slices.Chunk(profiles, insertChunk) {
			ins := db.builder.Insert("profile").
				Columns("pubkey", "id", "name", "display_name", "about", "picture", "nip05", "lud16", "created_at").
				Suffix("ON CONFLICT (pubkey) DO UPDATE SET " +
					"id = excluded.id, name = excluded.name, display_name = excluded.display_name, " +
					"about = excluded.about, picture = excluded.picture, nip05 = excluded.nip05, " +
					"lud16 = excluded.lud16, created_at = excluded.created_at " +
					"WHERE " + newerThan("profile", "id"))
			for _, p := range chunk {
				m := p.Metadata
				ins = ins.Values(p.Pubkey, p.ID, m.Name, m.DisplayName, m.About, m.Picture, m.Nip05, m.Lud16, int64(p.CreatedAt))
			}
			if _, err := execBuilt(ctx, tx, ins); err != nil {
				return errors.Wrap(err, "upsert profiles")
			}
		}
		return nil
	})
}

type profileRow struct {
	Pubkey      string `db:"pubkey"`
	ID          string `db:"id"`
	Name        string `db:"name"`
	DisplayName string `db:"display_name"`
	About       string `db:"about"`
	Picture     string `db:"picture"`
	Nip05       string `db:"nip05"`
	Lud16       string `db:"lud16"`
	CreatedAt   int64  `db:"created_at"`
}

// Profiles loads stored metadata for pubkeys. Unknown authors are absent.
func (db *DB) Profiles(ctx context.Context, pubkeys []string) ([]models.Profile, error) {
	if len(pubkeys) == 0 {
		return nil, nil
	}
	var rows []profileRow
	q := db.builder.
		Select("pubkey", "id", "name", "display_name", "about", "picture", "nip05", "lud16", "created_at").
		From("profile").
		Where(sq.Eq{"pubkey": pubkeys})
	if err := db.selectBuilt(ctx, &rows, q); err != nil {
		return nil, err
	}
	out := make([]models.Profile, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Profile{
			ID:     r.ID,
			Pubkey: r.Pubkey,
			Metadata: models.Metadata{
				Name:        r.Name,
				DisplayName: r.DisplayName,
				About:       r.About,
				Picture:     r.Picture,
				Nip05:       r.Nip05,
				Lud16:       r.Lud16,
			},
			CreatedAt: nostrTime(r.CreatedAt),
		})
	}
	return out, nil
}

// ProfileNames maps each known author to its display name.
func (db *DB) ProfileNames(ctx context.Context, pubkeys []string) (map[string]string, error) {
	profiles, err := db.Profiles(ctx, pubkeys)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(profiles))
	for _, p := range profiles {
		if name := p.Metadata.BestName(); name != "" {
			names[p.Pubkey] = name
		}
	}
	return names, nil
}
