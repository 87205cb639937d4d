package nips

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	nostr "github.com/nbd-wtf/go-nostr"
	"github.com/tidwall/gjson"
)

// NIP-01: Basic protocol flow description
// https://github.com/nostr-protocol/nips/blob/master/01.md

// VerifySignature recomputes the event id from its serialization and checks
// the BIP-340 signature against the author key.
func VerifySignature(evt *nostr.Event) error {
	serialized := evt.Serialize()
	h := sha256.Sum256(serialized)
	if hex.EncodeToString(h[:]) != evt.ID {
		return fmt.Errorf("%w: id does not match content", ErrBadSignature)
	}

	pubKeyBytes, err := hex.DecodeString(evt.PubKey)
	if err != nil {
		return fmt.Errorf("%w: pubkey is not hex", ErrBadSignature)
	}
	pubKey, err := schnorr.ParsePubKey(pubKeyBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	sigBytes, err := hex.DecodeString(evt.Sig)
	if err != nil {
		return fmt.Errorf("%w: signature is not hex", ErrBadSignature)
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	if !sig.Verify(h[:], pubKey) {
		return fmt.Errorf("%w: verification failed", ErrBadSignature)
	}
	return nil
}

// ParseProfile reads kind 0 metadata. The content must be a JSON object;
// unknown fields are ignored.
func ParseProfile(evt *nostr.Event) (models.Profile, error) {
	if evt.Kind != constants.KindProfile {
		return models.Profile{}, ErrWrongKind
	}
	if !gjson.Valid(evt.Content) {
		return models.Profile{}, ErrInvalidMetadata
	}
	doc := gjson.Parse(evt.Content)
	if !doc.IsObject() {
		return models.Profile{}, ErrInvalidMetadata
	}

	field := func(name string) string {
		v := doc.Get(name)
		if v.Type != gjson.String {
			return ""
		}
		return strings.TrimSpace(v.String())
	}

	return models.Profile{
		ID:     evt.ID,
		Pubkey: evt.PubKey,
		Metadata: models.Metadata{
			Name:        field("name"),
			DisplayName: field("display_name"),
			About:       field("about"),
			Picture:     field("picture"),
			Nip05:       field("nip05"),
			Lud16:       field("lud16"),
		},
		CreatedAt: evt.CreatedAt,
	}, nil
}
