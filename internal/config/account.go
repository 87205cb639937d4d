package config

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// AccountConfig names the local user. Pubkey accepts hex or npub.
type AccountConfig struct {
	Pubkey string `mapstructure:"PUBKEY" json:"pubkey" yaml:"pubkey" validate:"omitempty,pubkey"`
}

// HexPubkey returns the configured pubkey in lowercase hex form.
func (a AccountConfig) HexPubkey() (string, error) {
	return DecodePubkey(a.Pubkey)
}

// DecodePubkey normalizes a hex or npub public key to hex.
func DecodePubkey(s string) (string, error) {
	if nostr.IsValid32ByteHex(s) {
		return s, nil
	}
	prefix, value, err := nip19.Decode(s)
	if err != nil {
		return "", fmt.Errorf("decode pubkey: %w", err)
	}
	if prefix != "npub" {
		return "", fmt.Errorf("decode pubkey: unexpected prefix %q", prefix)
	}
	pk, ok := value.(string)
	if !ok || !nostr.IsValid32ByteHex(pk) {
		return "", fmt.Errorf("decode pubkey: invalid npub payload")
	}
	return pk, nil
}
