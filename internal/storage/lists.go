package storage

import (
	"context"
	"maps"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	nostr "github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"
)

// listKey identifies one replaceable list.
type listKey struct {
	owner      string
	kind       int
	identifier string
}

// claimVersion records eventID as the newest version of key. It reports
// false when the stored version is newer or the same event, in which case
// the caller must leave the list untouched.
func (db *DB) claimVersion(ctx context.Context, tx *sqlx.Tx, key listKey, eventID string, createdAt nostr.Timestamp) (bool, error) {
	ins := db.builder.Insert("list_version").
		Columns("owner", "kind", "identifier", "event_id", "created_at").
		Values(key.owner, key.kind, key.identifier, eventID, int64(createdAt)).
		Suffix("ON CONFLICT (owner, kind, identifier) DO UPDATE SET " +
			"event_id = excluded.event_id, created_at = excluded.created_at " +
			"WHERE " + newerThan("list_version", "event_id"))
	n, err := execBuilt(ctx, tx, ins)
	if err != nil {
		return false, errors.Wrapf(err, "claim version of kind %d list", key.kind)
	}
	if n == 0 {
		logger.Debug("skipping stale list",
			zap.String("owner", key.owner),
			zap.Int("kind", key.kind),
			zap.String("identifier", key.identifier),
			zap.String("event_id", eventID))
	}
	return n > 0, nil
}

// replaceMembers swaps the member rows of one list for values.
func (db *DB) replaceMembers(ctx context.Context, tx *sqlx.Tx, table string, owner sq.Eq, memberCol string, values []string) error {
	if err := db.deleteWhere(ctx, tx, table, owner); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	cols := make([]string, 0, len(owner)+1)
	fixed := make([]any, 0, len(owner))
	// Column order must be stable across rows.
	for _, c := range slices.Sorted(maps.Keys(owner)) {
		cols = append(cols, c)
		fixed = append(fixed, owner[c])
	}
	cols = append(cols, memberCol)

	for start := 0; start < len(values); start += insertChunk {
		end := min(start+insertChunk, len(values))
		ins := db.builder.Insert(table).Columns(cols...).Suffix(onConflictIgnore)
		for _, v := range values[start:end] {
			row := append(append(make([]any, 0, len(cols)), fixed...), v)
			ins = ins.Values(row...)
		}
		if _, err := execBuilt(ctx, tx, ins); err != nil {
			return errors.Wrapf(err, "insert %s", table)
		}
	}
	return nil
}

// UpsertFriends replaces the local user's contact list.
func (db *DB) UpsertFriends(ctx context.Context, list models.ContactList) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := db.claimVersion(ctx, tx, listKey{owner: list.Pubkey, kind: constants.KindContactList}, list.ID, list.CreatedAt)
		if err != nil || !ok {
			return err
		}
		return db.replaceMembers(ctx, tx, "friend", sq.Eq{"my_pubkey": list.Pubkey}, "friend_pubkey", list.FriendPubkeys)
	})
}

// UpsertWebOfTrust replaces the contact lists of other authors.
func (db *DB) UpsertWebOfTrust(ctx context.Context, lists []models.ContactList) error {
	lists = newestByKey(lists)
	if len(lists) == 0 {
		return nil
	}
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, list := range lists {
			ok, err := db.claimVersion(ctx, tx, listKey{owner: list.Pubkey, kind: constants.KindContactList}, list.ID, list.CreatedAt)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := db.replaceMembers(ctx, tx, "web_of_trust", sq.Eq{"friended_by": list.Pubkey}, "pubkey", list.FriendPubkeys); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertTopics replaces the local user's followed topics.
func (db *DB) UpsertTopics(ctx context.Context, list models.TopicList) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := db.claimVersion(ctx, tx, listKey{owner: list.MyPubkey, kind: constants.KindTopicList}, list.ID, list.CreatedAt)
		if err != nil || !ok {
			return err
		}
		return db.replaceMembers(ctx, tx, "topic", sq.Eq{"my_pubkey": list.MyPubkey}, "topic", list.Topics)
	})
}

// UpsertNip65 replaces relay lists.
func (db *DB) UpsertNip65(ctx context.Context, lists []models.Nip65) error {
	lists = newestByKey(lists)
	if len(lists) == 0 {
		return nil
	}
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, list := range lists {
			ok, err := db.claimVersion(ctx, tx, listKey{owner: list.Pubkey, kind: constants.KindRelayList}, list.ID, list.CreatedAt)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := db.deleteWhere(ctx, tx, "nip65", sq.Eq{"pubkey": list.Pubkey}); err != nil {
				return err
			}
			if len(list.Relays) == 0 {
				continue
			}
			ins := db.builder.Insert("nip65").
				Columns("pubkey", "url", "is_read", "is_write").
				Suffix(onConflictIgnore)
			for _, r := range list.Relays {
				ins = ins.Values(list.Pubkey, r.URL, r.IsRead, r.IsWrite)
			}
			if _, err := execBuilt(ctx, tx, ins); err != nil {
				return errors.Wrap(err, "insert nip65")
			}
		}
		return nil
	})
}

// UpsertBookmarks replaces the local user's bookmarks.
func (db *DB) UpsertBookmarks(ctx context.Context, list models.BookmarkList) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := db.claimVersion(ctx, tx, listKey{owner: list.MyPubkey, kind: constants.KindBookmarkList}, list.ID, list.CreatedAt)
		if err != nil || !ok {
			return err
		}
		return db.replaceMembers(ctx, tx, "bookmark", sq.Eq{"my_pubkey": list.MyPubkey}, "post_id", list.PostIDs)
	})
}

// UpsertProfileSets replaces named pubkey sets, one per identifier.
func (db *DB) UpsertProfileSets(ctx context.Context, sets []models.ProfileSet) error {
	sets = newestByKey(sets)
	if len(sets) == 0 {
		return nil
	}
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, set := range sets {
			key := listKey{owner: set.MyPubkey, kind: constants.KindProfileSet, identifier: set.Identifier}
			ok, err := db.claimVersion(ctx, tx, key, set.ID, set.CreatedAt)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := db.upsertSetTitle(ctx, tx, "profile_set", set.MyPubkey, set.Identifier, set.Title); err != nil {
				return err
			}
			owner := sq.Eq{"my_pubkey": set.MyPubkey, "identifier": set.Identifier}
			if err := db.replaceMembers(ctx, tx, "profile_set_member", owner, "pubkey", set.Pubkeys); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertTopicSets replaces named topic sets, one per identifier.
func (db *DB) UpsertTopicSets(ctx context.Context, sets []models.TopicSet) error {
	sets = newestByKey(sets)
	if len(sets) == 0 {
		return nil
	}
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, set := range sets {
			key := listKey{owner: set.MyPubkey, kind: constants.KindTopicSet, identifier: set.Identifier}
			ok, err := db.claimVersion(ctx, tx, key, set.ID, set.CreatedAt)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := db.upsertSetTitle(ctx, tx, "topic_set", set.MyPubkey, set.Identifier, set.Title); err != nil {
				return err
			}
			owner := sq.Eq{"my_pubkey": set.MyPubkey, "identifier": set.Identifier}
			if err := db.replaceMembers(ctx, tx, "topic_set_member", owner, "topic", set.Topics); err != nil {
				return err
			}
		}
		return nil
	})
}

// upsertSetTitle is only reached after claimVersion, so the title is
// always the newest one.
func (db *DB) upsertSetTitle(ctx context.Context, tx *sqlx.Tx, table, myPubkey, identifier, title string) error {
	ins := db.builder.Insert(table).
		Columns("my_pubkey", "identifier", "title").
		Values(myPubkey, identifier, title).
		Suffix("ON CONFLICT (my_pubkey, identifier) DO UPDATE SET title = excluded.title")
	_, err := execBuilt(ctx, tx, ins)
	return errors.Wrapf(err, "upsert %s", table)
}
