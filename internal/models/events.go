package models

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
)

// ValidatedEvent is an inbound event that passed validation, converted to
// its domain shape. The set of variants is closed.
type ValidatedEvent interface {
	EventID() string
	Author() string
	Timestamp() nostr.Timestamp
	isValidatedEvent()
}

// Replaceable is a ValidatedEvent where only the newest per ReplaceKey counts.
type Replaceable interface {
	ValidatedEvent
	ReplaceKey() string
}

// RootPost is a top-level text note.
type RootPost struct {
	ID        string
	Pubkey    string
	Topics    []string
	Title     string
	Content   string
	Mentions  []string
	CreatedAt nostr.Timestamp
	RelayURL  string
}

// Reply is a text note answering ParentID.
type Reply struct {
	ID        string
	Pubkey    string
	ParentID  string
	Content   string
	Mentions  []string
	CreatedAt nostr.Timestamp
	RelayURL  string
}

// CrossPost is a repost of another author's post.
type CrossPost struct {
	ID                string
	Pubkey            string
	CrossPostedID     string
	CrossPostedPubkey string
	Topics            []string
	CreatedAt         nostr.Timestamp
	RelayURL          string
}

// Vote is a reaction on PostID.
type Vote struct {
	ID         string
	Pubkey     string
	PostID     string
	IsPositive bool
	CreatedAt  nostr.Timestamp
}

// ContactList is the set of pubkeys an author follows.
type ContactList struct {
	ID            string
	Pubkey        string
	FriendPubkeys []string
	CreatedAt     nostr.Timestamp
}

// TopicList is the local user's followed topics.
type TopicList struct {
	ID        string
	MyPubkey  string
	Topics    []string
	CreatedAt nostr.Timestamp
}

// Nip65Relay is one entry of a relay list.
type Nip65Relay struct {
	URL     string `json:"url"`
	IsRead  bool   `json:"read"`
	IsWrite bool   `json:"write"`
}

// Nip65 is an author's relay list.
type Nip65 struct {
	ID        string
	Pubkey    string
	Relays    []Nip65Relay
	CreatedAt nostr.Timestamp
}

// Metadata is the profile content an author publishes.
type Metadata struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	About       string `json:"about,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Nip05       string `json:"nip05,omitempty"`
	Lud16       string `json:"lud16,omitempty"`
}

// BestName returns the name to show for the author.
func (m Metadata) BestName() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Name
}

// Profile is an author's metadata event.
type Profile struct {
	ID        string
	Pubkey    string
	Metadata  Metadata
	CreatedAt nostr.Timestamp
}

// BookmarkList is the local user's bookmarked posts.
type BookmarkList struct {
	ID        string
	MyPubkey  string
	PostIDs   []string
	CreatedAt nostr.Timestamp
}

// ProfileSet is a named list of pubkeys owned by the local user.
type ProfileSet struct {
	ID         string
	MyPubkey   string
	Identifier string
	Title      string
	Pubkeys    []string
	CreatedAt  nostr.Timestamp
}

// TopicSet is a named list of topics owned by the local user.
type TopicSet struct {
	ID         string
	MyPubkey   string
	Identifier string
	Title      string
	Topics     []string
	CreatedAt  nostr.Timestamp
}

func (e RootPost) EventID() string     { return e.ID }
func (e Reply) EventID() string        { return e.ID }
func (e CrossPost) EventID() string    { return e.ID }
func (e Vote) EventID() string         { return e.ID }
func (e ContactList) EventID() string  { return e.ID }
func (e TopicList) EventID() string    { return e.ID }
func (e Nip65) EventID() string        { return e.ID }
func (e Profile) EventID() string      { return e.ID }
func (e BookmarkList) EventID() string { return e.ID }
func (e ProfileSet) EventID() string   { return e.ID }
func (e TopicSet) EventID() string     { return e.ID }

func (e RootPost) Author() string     { return e.Pubkey }
func (e Reply) Author() string        { return e.Pubkey }
func (e CrossPost) Author() string    { return e.Pubkey }
func (e Vote) Author() string         { return e.Pubkey }
func (e ContactList) Author() string  { return e.Pubkey }
func (e TopicList) Author() string    { return e.MyPubkey }
func (e Nip65) Author() string        { return e.Pubkey }
func (e Profile) Author() string      { return e.Pubkey }
func (e BookmarkList) Author() string { return e.MyPubkey }
func (e ProfileSet) Author() string   { return e.MyPubkey }
func (e TopicSet) Author() string     { return e.MyPubkey }

func (e RootPost) Timestamp() nostr.Timestamp     { return e.CreatedAt }
func (e Reply) Timestamp() nostr.Timestamp        { return e.CreatedAt }
func (e CrossPost) Timestamp() nostr.Timestamp    { return e.CreatedAt }
func (e Vote) Timestamp() nostr.Timestamp         { return e.CreatedAt }
func (e ContactList) Timestamp() nostr.Timestamp  { return e.CreatedAt }
func (e TopicList) Timestamp() nostr.Timestamp    { return e.CreatedAt }
func (e Nip65) Timestamp() nostr.Timestamp        { return e.CreatedAt }
func (e Profile) Timestamp() nostr.Timestamp      { return e.CreatedAt }
func (e BookmarkList) Timestamp() nostr.Timestamp { return e.CreatedAt }
func (e ProfileSet) Timestamp() nostr.Timestamp   { return e.CreatedAt }
func (e TopicSet) Timestamp() nostr.Timestamp     { return e.CreatedAt }

func (RootPost) isValidatedEvent()     {}
func (Reply) isValidatedEvent()        {}
func (CrossPost) isValidatedEvent()    {}
func (Vote) isValidatedEvent()         {}
func (ContactList) isValidatedEvent()  {}
func (TopicList) isValidatedEvent()    {}
func (Nip65) isValidatedEvent()        {}
func (Profile) isValidatedEvent()      {}
func (BookmarkList) isValidatedEvent() {}
func (ProfileSet) isValidatedEvent()   {}
func (TopicSet) isValidatedEvent()     {}

// Votes collapse per (voter, post).
func (e Vote) ReplaceKey() string         { return e.Pubkey + ":" + e.PostID }
func (e ContactList) ReplaceKey() string  { return e.Pubkey }
func (e TopicList) ReplaceKey() string    { return e.MyPubkey }
func (e Nip65) ReplaceKey() string        { return e.Pubkey }
func (e Profile) ReplaceKey() string      { return e.Pubkey }
func (e BookmarkList) ReplaceKey() string { return e.MyPubkey }
func (e ProfileSet) ReplaceKey() string   { return fmt.Sprintf("%s:%s", e.MyPubkey, e.Identifier) }
func (e TopicSet) ReplaceKey() string     { return fmt.Sprintf("%s:%s", e.MyPubkey, e.Identifier) }

// Newer reports whether a should replace b: later created_at wins and equal
// timestamps fall back to the larger id, so the outcome never depends on
// arrival order.
func Newer(a, b ValidatedEvent) bool {
	if a.Timestamp() != b.Timestamp() {
		return a.Timestamp() > b.Timestamp()
	}
	return a.EventID() > b.EventID()
}
