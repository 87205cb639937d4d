package storage

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/Shugur-Network/feedsync/internal/domain"
	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/cockroachdb/errors"
	nostr "github.com/nbd-wtf/go-nostr"
)

// feedRow is the scan target of every feed query. Columns a query does not
// select keep their zero value.
type feedRow struct {
	ID                string `db:"id"`
	Pubkey            string `db:"pubkey"`
	ParentID          string `db:"parent_id"`
	CrossPostedID     string `db:"cross_posted_id"`
	CrossPostedPubkey string `db:"cross_posted_pubkey"`
	Title             string `db:"title"`
	Content           string `db:"content"`
	CreatedAt         int64  `db:"created_at"`
	RelayURL          string `db:"relay_url"`
	Upvotes           int    `db:"upvotes"`
	Downvotes         int    `db:"downvotes"`
	ReplyCount        int    `db:"reply_count"`
	MyVote            int    `db:"my_vote"`
	AuthorIsFriend    bool   `db:"author_is_friend"`
	IsBookmarked      bool   `db:"is_bookmarked"`
	AuthorName        string `db:"author_name"`
}

func (r feedRow) item(kind models.ItemKind) models.FeedItem {
	return models.FeedItem{
		Kind:              kind,
		ID:                r.ID,
		Pubkey:            r.Pubkey,
		ParentID:          r.ParentID,
		CrossPostedID:     r.CrossPostedID,
		CrossPostedPubkey: r.CrossPostedPubkey,
		Title:             r.Title,
		Content:           r.Content,
		CreatedAt:         nostrTime(r.CreatedAt),
		Upvotes:           r.Upvotes,
		Downvotes:         r.Downvotes,
		ReplyCount:        r.ReplyCount,
		MyVote:            models.VoteState(r.MyVote),
		AuthorIsFriend:    r.AuthorIsFriend,
		IsBookmarked:      r.IsBookmarked,
		AuthorName:        r.AuthorName,
		RelayURL:          r.RelayURL,
	}
}

func nostrTime(v int64) nostr.Timestamp {
	return nostr.Timestamp(v)
}

// RootPosts returns root posts for the setting, newest first.
func (db *DB) RootPosts(ctx context.Context, q domain.FeedQuery) ([]models.FeedItem, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	cond, err := settingCond(q, "rp", false)
	if err != nil {
		return nil, err
	}
	sb := db.builder.
		Select("rp.id", "rp.pubkey", "rp.title", "rp.content", "rp.created_at", "rp.relay_url").
		From("root_post rp")
	sb = withAggregates(sb, "rp", "rp.id", q.MyPubkey)
	sb = keyset(sb.Where(cond), "rp", q).
		OrderBy("rp.created_at DESC", "rp.id DESC").
		Limit(uint64(q.Limit))

	return db.feedItems(ctx, sb, models.ItemRoot, true)
}

// CrossPosts returns cross-posts for main feeds, newest first. Title and
// content come from the reposted post when it is stored; votes and replies
// are those of the reposted post.
func (db *DB) CrossPosts(ctx context.Context, q domain.FeedQuery) ([]models.FeedItem, error) {
	if q.Limit <= 0 || !models.IsMainFeed(q.Setting) {
		return nil, nil
	}
	cond, err := settingCond(q, "cp", false)
	if err != nil {
		return nil, err
	}
	sb := db.builder.
		Select("cp.id", "cp.pubkey", "cp.cross_posted_id", "cp.cross_posted_pubkey", "cp.created_at", "cp.relay_url").
		Column("COALESCE(orig.title, '') AS title").
		Column("COALESCE(orig.content, '') AS content").
		From("cross_post cp").
		LeftJoin("root_post orig ON orig.id = cp.cross_posted_id")
	sb = withAggregates(sb, "cp", "cp.cross_posted_id", q.MyPubkey)
	sb = keyset(sb.Where(cond), "cp", q).
		OrderBy("cp.created_at DESC", "cp.id DESC").
		Limit(uint64(q.Limit))

	return db.feedItems(ctx, sb, models.ItemCross, true)
}

// Replies returns replies for the inbox and bookmarks feeds, newest first.
func (db *DB) Replies(ctx context.Context, q domain.FeedQuery) ([]models.FeedItem, error) {
	if q.Limit <= 0 || models.IsMainFeed(q.Setting) {
		return nil, nil
	}
	cond, err := settingCond(q, "r", true)
	if err != nil {
		return nil, err
	}
	sb := db.builder.
		Select("r.id", "r.pubkey", "r.parent_id", "r.content", "r.created_at", "r.relay_url").
		From("reply r")
	sb = withAggregates(sb, "r", "r.id", q.MyPubkey)
	sb = keyset(sb.Where(cond), "r", q).
		OrderBy("r.created_at DESC", "r.id DESC").
		Limit(uint64(q.Limit))

	return db.feedItems(ctx, sb, models.ItemReply, false)
}

// CreatedAts returns root post timestamps at or below q.Until for the
// setting, newest first.
func (db *DB) CreatedAts(ctx context.Context, q domain.FeedQuery) ([]nostr.Timestamp, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	cond, err := settingCond(q, "rp", false)
	if err != nil {
		return nil, err
	}
	sb := db.builder.Select("rp.created_at").From("root_post rp").Where(cond)
	if q.Until > 0 {
		sb = sb.Where(sq.LtOrEq{"rp.created_at": int64(q.Until)})
	}
	sb = sb.OrderBy("rp.created_at DESC").Limit(uint64(q.Limit))

	var raw []int64
	if err := db.selectBuilt(ctx, &raw, sb); err != nil {
		return nil, err
	}
	out := make([]nostr.Timestamp, len(raw))
	for i, v := range raw {
		out[i] = nostrTime(v)
	}
	return out, nil
}

func (db *DB) feedItems(ctx context.Context, sb sq.SelectBuilder, kind models.ItemKind, withTopics bool) ([]models.FeedItem, error) {
	var rows []feedRow
	if err := db.selectBuilt(ctx, &rows, sb); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	items := make([]models.FeedItem, len(rows))
	ids := make([]string, len(rows))
	for i, r := range rows {
		items[i] = r.item(kind)
		ids[i] = r.ID
	}
	if !withTopics {
		return items, nil
	}

	topics, err := db.topicsOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Topics = topics[items[i].ID]
	}
	return items, nil
}

func (db *DB) topicsOf(ctx context.Context, postIDs []string) (map[string][]string, error) {
	var rows []struct {
		PostID string `db:"post_id"`
		Topic  string `db:"topic"`
	}
	q := db.builder.Select("post_id", "topic").From("post_topic").
		Where(sq.Eq{"post_id": postIDs}).
		OrderBy("post_id", "topic")
	if err := db.selectBuilt(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "load topics")
	}
	out := make(map[string][]string)
	for _, r := range rows {
		out[r.PostID] = append(out[r.PostID], r.Topic)
	}
	return out, nil
}

// withAggregates adds vote, reply, friendship, bookmark and name columns.
// target is the post votes and replies attach to.
func withAggregates(sb sq.SelectBuilder, alias, target, me string) sq.SelectBuilder {
	return sb.
		Column("(SELECT COUNT(*) FROM vote v WHERE v.post_id = "+target+" AND v.is_positive) AS upvotes").
		Column("(SELECT COUNT(*) FROM vote v WHERE v.post_id = "+target+" AND NOT v.is_positive) AS downvotes").
		Column("(SELECT COUNT(*) FROM reply rc WHERE rc.parent_id = "+target+") AS reply_count").
		Column("COALESCE((SELECT CASE WHEN v.is_positive THEN 1 ELSE -1 END FROM vote v WHERE v.post_id = "+target+" AND v.pubkey = ?), 0) AS my_vote", me).
		Column("EXISTS (SELECT 1 FROM friend f WHERE f.my_pubkey = ? AND f.friend_pubkey = "+alias+".pubkey) AS author_is_friend", me).
		Column("EXISTS (SELECT 1 FROM bookmark b WHERE b.my_pubkey = ? AND b.post_id = "+target+") AS is_bookmarked", me).
		Column("COALESCE(NULLIF(pr.display_name, ''), pr.name, '') AS author_name").
		LeftJoin("profile pr ON pr.pubkey = " + alias + ".pubkey")
}

// keyset restricts rows to those strictly older than (Until, BeforeID).
func keyset(sb sq.SelectBuilder, alias string, q domain.FeedQuery) sq.SelectBuilder {
	if q.Until == 0 {
		return sb
	}
	createdAt, id := alias+".created_at", alias+".id"
	if q.BeforeID == "" {
		return sb.Where(sq.Lt{createdAt: int64(q.Until)})
	}
	return sb.Where(sq.Or{
		sq.Lt{createdAt: int64(q.Until)},
		sq.And{sq.Eq{createdAt: int64(q.Until)}, sq.Lt{id: q.BeforeID}},
	})
}

// settingCond selects the rows of alias that belong to the feed.
func settingCond(q domain.FeedQuery, alias string, isReply bool) (sq.Sqlizer, error) {
	col := func(c string) string { return alias + "." + c }
	inTopics := func(sub string, args ...any) sq.Sqlizer {
		return sq.Expr(col("id")+" IN (SELECT post_id FROM post_topic WHERE topic IN ("+sub+"))", args...)
	}

	switch s := q.Setting.(type) {
	case models.HomeFeed:
		return sq.Or{
			sq.Eq{col("pubkey"): q.MyPubkey},
			sq.Expr(col("pubkey")+" IN (SELECT friend_pubkey FROM friend WHERE my_pubkey = ?)", q.MyPubkey),
			inTopics("SELECT topic FROM topic WHERE my_pubkey = ?", q.MyPubkey),
		}, nil
	case models.TopicFeed:
		return sq.Expr(col("id")+" IN (SELECT post_id FROM post_topic WHERE topic = ?)", s.Topic), nil
	case models.ProfileFeed:
		return sq.Eq{col("pubkey"): s.Pubkey}, nil
	case models.ListFeed:
		return sq.Or{
			sq.Expr(col("pubkey")+" IN (SELECT pubkey FROM profile_set_member WHERE my_pubkey = ? AND identifier = ?)",
				q.MyPubkey, s.Identifier),
			inTopics("SELECT topic FROM topic_set_member WHERE my_pubkey = ? AND identifier = ?",
				q.MyPubkey, s.Identifier),
		}, nil
	case models.BookmarksFeed:
		return sq.Expr(col("id")+" IN (SELECT post_id FROM bookmark WHERE my_pubkey = ?)", q.MyPubkey), nil
	case models.InboxFeed:
		if isReply {
			return sq.And{
				sq.NotEq{col("pubkey"): q.MyPubkey},
				sq.Or{
					sq.Expr(col("parent_id")+" IN (SELECT id FROM root_post WHERE pubkey = ?)", q.MyPubkey),
					sq.Expr(col("parent_id")+" IN (SELECT id FROM reply WHERE pubkey = ?)", q.MyPubkey),
				},
			}, nil
		}
		return sq.And{
			sq.NotEq{col("pubkey"): q.MyPubkey},
			sq.Expr(col("id")+" IN (SELECT post_id FROM post_mention WHERE pubkey = ?)", q.MyPubkey),
		}, nil
	}
	return nil, errors.Newf("unsupported feed setting %T", q.Setting)
}
