package storage

import (
	"context"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
)

// insertChunk bounds rows per statement below SQLite's variable limit.
const insertChunk = 200

const onConflictIgnore = "ON CONFLICT DO NOTHING"

// InsertRootPosts stores root posts with their topics and mentions. A post
// that is already stored keeps the relay hint it was first seen on.
func (db *DB) InsertRootPosts(ctx context.Context, posts []models.RootPost) error {
	if len(posts) == 0 {
		return nil
	}
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for chunk := range slices.Chunk(posts, insertChunk) {
			ins := db.builder.Insert("root_post").
				Columns("id", "pubkey", "title", "content", "created_at", "relay_url").
				Suffix(onConflictIgnore)
			for _, p := range chunk {
				ins = ins.Values(p.ID, p.Pubkey, p.Title, p.Content, int64(p.CreatedAt), p.RelayURL)
			}
			if _, err := execBuilt(ctx, tx, ins); err != nil {
				return errors.Wrap(err, "insert root posts")
			}
		}

		var topics, mentions [][2]string
		for _, p := range posts {
			for _, t := range p.Topics {
				topics = append(topics, [2]string{p.ID, t})
			}
			for _, m := range p.Mentions {
				mentions = append(mentions, [2]string{p.ID, m})
			}
		}
		if err := db.insertPairs(ctx, tx, "post_topic", "post_id", "topic", topics); err != nil {
			return err
		}
		return db.insertPairs(ctx, tx, "post_mention", "post_id", "pubkey", mentions)
	})
}

// InsertReplies stores replies and their mentions.
func (db *DB) InsertReplies(ctx context.Context, replies []models.Reply) error {
	if len(replies) == 0 {
		return nil
	}
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for chunk := range slices.Chunk(replies, insertChunk) {
			ins := db.builder.Insert("reply").
				Columns("id", "pubkey", "parent_id", "content", "created_at", "relay_url").
				Suffix(onConflictIgnore)
			for _, r := range chunk {
				ins = ins.Values(r.ID, r.Pubkey, r.ParentID, r.Content, int64(r.CreatedAt), r.RelayURL)
			}
			if _, err := execBuilt(ctx, tx, ins); err != nil {
				return errors.Wrap(err, "insert replies")
			}
		}

		var mentions [][2]string
		for _, r := range replies {
			for _, m := range r.Mentions {
				mentions = append(mentions, [2]string{r.ID, m})
			}
		}
		return db.insertPairs(ctx, tx, "post_mention", "post_id", "pubkey", mentions)
	})
}

// InsertCrossPosts stores cross-posts and their topics.
func (db *DB) InsertCrossPosts(ctx context.Context, posts []models.CrossPost) error {
	if len(posts) == 0 {
		return nil
	}
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for chunk := range slices.Chunk(posts, insertChunk) {
			ins := db.builder.Insert("cross_post").
				Columns("id", "pubkey", "cross_posted_id", "cross_posted_pubkey", "created_at", "relay_url").
				Suffix(onConflictIgnore)
			for _, p := range chunk {
				ins = ins.Values(p.ID, p.Pubkey, p.CrossPostedID, p.CrossPostedPubkey, int64(p.CreatedAt), p.RelayURL)
			}
			if _, err := execBuilt(ctx, tx, ins); err != nil {
				return errors.Wrap(err, "insert cross-posts")
			}
		}

		var topics [][2]string
		for _, p := range posts {
			for _, t := range p.Topics {
				topics = append(topics, [2]string{p.ID, t})
			}
		}
		return db.insertPairs(ctx, tx, "post_topic", "post_id", "topic", topics)
	})
}

// insertPairs writes two-column rows, ignoring ones already present.
func (db *DB) insertPairs(ctx context.Context, tx *sqlx.Tx, table, colA, colB string, rows [][2]string) error {
	for chunk := range slices.Chunk(rows, insertChunk) {
		ins := db.builder.Insert(table).Columns(colA, colB).Suffix(onConflictIgnore)
		for _, r := range chunk {
			ins = ins.Values(r[0], r[1])
		}
		if _, err := execBuilt(ctx, tx, ins); err != nil {
			return errors.Wrapf(err, "insert %s", table)
		}
	}
	return nil
}

// deleteWhere removes the rows of table matching eq.
func (db *DB) deleteWhere(ctx context.Context, tx *sqlx.Tx, table string, eq sq.Eq) error {
	_, err := execBuilt(ctx, tx, db.builder.Delete(table).Where(eq))
	return errors.Wrapf(err, "clear %s", table)
}
