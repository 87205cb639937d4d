package storage

import (
	"context"

	sq "github.com/Masterminds/squirrel"
)

// FriendPubkeys returns who myPubkey follows.
func (db *DB) FriendPubkeys(ctx context.Context, myPubkey string) ([]string, error) {
	return db.strings(ctx, db.builder.Select("friend_pubkey").From("friend").
		Where(sq.Eq{"my_pubkey": myPubkey}).OrderBy("friend_pubkey"))
}

// WebOfTrustPubkeys returns everyone followed by a friend.
func (db *DB) WebOfTrustPubkeys(ctx context.Context) ([]string, error) {
	return db.strings(ctx, db.builder.Select("pubkey").Distinct().From("web_of_trust").OrderBy("pubkey"))
}

// Topics returns the topics myPubkey follows.
func (db *DB) Topics(ctx context.Context, myPubkey string) ([]string, error) {
	return db.strings(ctx, db.builder.Select("topic").From("topic").
		Where(sq.Eq{"my_pubkey": myPubkey}).OrderBy("topic"))
}

// ReadRelays returns the relays pubkey reads from.
func (db *DB) ReadRelays(ctx context.Context, pubkey string) ([]string, error) {
	return db.strings(ctx, db.builder.Select("url").From("nip65").
		Where(sq.Eq{"pubkey": pubkey, "is_read": true}).OrderBy("url"))
}

// WriteRelays returns the relays pubkey publishes to.
func (db *DB) WriteRelays(ctx context.Context, pubkey string) ([]string, error) {
	return db.strings(ctx, db.builder.Select("url").From("nip65").
		Where(sq.Eq{"pubkey": pubkey, "is_write": true}).OrderBy("url"))
}

// BookmarkIDs returns the posts myPubkey bookmarked.
func (db *DB) BookmarkIDs(ctx context.Context, myPubkey string) ([]string, error) {
	return db.strings(ctx, db.builder.Select("post_id").From("bookmark").
		Where(sq.Eq{"my_pubkey": myPubkey}).OrderBy("post_id"))
}

// ProfileSetPubkeys returns the members of one profile set.
func (db *DB) ProfileSetPubkeys(ctx context.Context, myPubkey, identifier string) ([]string, error) {
	return db.strings(ctx, db.builder.Select("pubkey").From("profile_set_member").
		Where(sq.Eq{"my_pubkey": myPubkey, "identifier": identifier}).OrderBy("pubkey"))
}

// TopicSetTopics returns the members of one topic set.
func (db *DB) TopicSetTopics(ctx context.Context, myPubkey, identifier string) ([]string, error) {
	return db.strings(ctx, db.builder.Select("topic").From("topic_set_member").
		Where(sq.Eq{"my_pubkey": myPubkey, "identifier": identifier}).OrderBy("topic"))
}

func (db *DB) strings(ctx context.Context, q sq.SelectBuilder) ([]string, error) {
	var out []string
	if err := db.selectBuilt(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}
