package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Shugur-Network/feedsync/internal/feed"
	"github.com/Shugur-Network/feedsync/internal/identity"
	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/Shugur-Network/feedsync/internal/storage"
	nostr "github.com/nbd-wtf/go-nostr"
	"github.com/spf13/cobra"
)

// offline satisfies feed.Backfiller without touching relays.
type offline struct{}

func (offline) SubFeed(context.Context, models.FeedSetting, nostr.Timestamp, nostr.Timestamp, int) {}
func (offline) SubVotesAndReplies(context.Context, []string)                                      {}
func (offline) SubProfiles(context.Context, []string)                                             {}

func newFeedCmd() *cobra.Command {
	var (
		size     int
		until    int64
		beforeID string
	)
	cmd := &cobra.Command{
		Use:   "feed [home|topic <t>|profile <npub|hex>|list <id>|bookmarks|inbox]",
		Short: "Print one page of a feed from the local store",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setting, err := feed.ParseSetting(args)
			if err != nil {
				return err
			}
			if size <= 0 {
				size = cfg.Feed.PageSize
			}

			ctx := cmd.Context()
			account, err := identity.NewAccount(cfg.Account.Pubkey)
			if err != nil {
				return err
			}
			db, err := storage.InitDB(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.CloseDB()
			if err := db.Migrate(ctx); err != nil {
				return err
			}

			agg := feed.NewAggregator(db, nil, account, offline{}, feed.NewOverrides(cfg.Feed.OverrideTTL),
				storage.NewNotifier(), feed.Options{PageSize: size})
			page, err := agg.GetPage(ctx, models.PageQuery{
				Setting:  setting,
				Until:    nostr.Timestamp(until),
				BeforeID: beforeID,
				Size:     size,
			})
			if err != nil {
				return err
			}
			printPage(page)
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 0, "Page size (defaults to feed.page_size)")
	cmd.Flags().Int64Var(&until, "until", 0, "Only items created before this unix time")
	cmd.Flags().StringVar(&beforeID, "before-id", "", "Continue items created at --until below this id")
	return cmd
}

func printPage(page models.FeedPage) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tKIND\tAUTHOR\tVOTES\tREPLIES\tTEXT")
	for _, it := range page {
		author := it.AuthorName
		if author == "" {
			author = it.Pubkey[:min(12, len(it.Pubkey))]
		}
		text := it.Title
		if text == "" {
			text = it.Content
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t+%d/-%d\t%d\t%s\n",
			it.CreatedAt.Time().UTC().Format(time.DateTime),
			it.Kind,
			author,
			it.Upvotes, it.Downvotes,
			it.ReplyCount,
			oneLine(text, 60),
		)
	}
	w.Flush()
	if len(page) > 0 {
		last := page[len(page)-1]
		fmt.Printf("\nnext: --until %d --before-id %s\n", last.CreatedAt, last.ID)
	}
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
