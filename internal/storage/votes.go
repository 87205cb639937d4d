package storage

import (
	"context"
	"slices"

	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
)

// newerThan guards replaceable upserts: the incoming row replaces the stored
// one only with a later created_at, or an equal one and a larger event id.
func newerThan(table, idCol string) string {
	return "excluded.created_at > " + table + ".created_at OR (excluded.created_at = " +
		table + ".created_at AND excluded." + idCol + " > " + table + "." + idCol + ")"
}

// UpsertVotes keeps one vote per (voter, post), the newest.
func (db *DB) UpsertVotes(ctx context.Context, votes []models.Vote) error {
	votes = newestByKey(votes)
	if len(votes) == 0 {
		return nil
	}
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for chunk := range slices.Chunk(votes, insertChunk) {
			ins := db.builder.Insert("vote").
				Columns("pubkey", "post_id", "id", "is_positive", "created_at").
				Suffix("ON CONFLICT (pubkey, post_id) DO UPDATE SET " +
					"id = excluded.id, is_positive = excluded.is_positive, created_at = excluded.created_at " +
					"WHERE " + newerThan("vote", "id"))
			for _, v := range chunk {
				ins = ins.Values(v.Pubkey, v.PostID, v.ID, v.IsPositive, int64(v.CreatedAt))
			}
			if _, err := execBuilt(ctx, tx, ins); err != nil {
				return errors.Wrap(err, "upsert votes")
			}
		}
		return nil
	})
}

// newestByKey collapses a batch to the newest event per replace key. A
// single upsert statement must not touch the same conflict key twice.
func newestByKey[T models.Replaceable](events []T) []T {
	if len(events) < 2 {
		return events
	}
	index := make(map[string]int, len(events))
	out := make([]T, 0, len(events))
	for _, e := range events {
		key := e.ReplaceKey()
		if i, ok := index[key]; ok {
			if models.Newer(e, out[i]) {
				out[i] = e
			}
			continue
		}
		index[key] = len(out)
		out = append(out, e)
	}
	return out
}
