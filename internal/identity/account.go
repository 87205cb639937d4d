package identity

import (
	"fmt"

	"github.com/Shugur-Network/feedsync/internal/config"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// Account is the local user whose feeds are assembled. Only the public key
// is known here; signing happens elsewhere.
type Account struct {
	pubkey string
	npub   string
}

// NewAccount builds the account from a configured hex or npub key.
func NewAccount(configured string) (*Account, error) {
	if configured == "" {
		return nil, fmt.Errorf("account pubkey is not configured")
	}
	pubkey, err := config.DecodePubkey(configured)
	if err != nil {
		return nil, err
	}
	npub, err := nip19.EncodePublicKey(pubkey)
	if err != nil {
		return nil, fmt.Errorf("encode npub: %w", err)
	}
	return &Account{pubkey: pubkey, npub: npub}, nil
}

// MyPubkey returns the hex public key.
func (a *Account) MyPubkey() string { return a.pubkey }

// Npub returns the bech32 public key.
func (a *Account) Npub() string { return a.npub }

// IsMe reports whether pubkey is the local user.
func (a *Account) IsMe(pubkey string) bool { return pubkey == a.pubkey }

// ShortID is a log-friendly abbreviation of the npub.
func (a *Account) ShortID() string {
	if len(a.npub) < 16 {
		return a.npub
	}
	return a.npub[:10] + "…" + a.npub[len(a.npub)-4:]
}
