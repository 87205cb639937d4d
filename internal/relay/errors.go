package relay

import (
	"errors"

	"github.com/Shugur-Network/feedsync/internal/relay/nips"
)

// Rejection reasons raised by the validator itself. Structural reasons come
// from the nips package.
var (
	ErrSeen                = errors.New("event already seen")
	ErrUnknownSubscription = errors.New("no filters registered for subscription")
	ErrFilterMismatch      = errors.New("event matches none of the subscription filters")
	ErrUnrequestedReply    = errors.New("reply parent not requested by any filter")
	ErrUnsupportedKind     = errors.New("unsupported event kind")
	ErrNotOwnList          = errors.New("list is not authored by the local user")
)

// Metric labels for rejections.
const (
	ReasonSeen                = "seen"
	ReasonUnknownSubscription = "unknown_subscription"
	ReasonFilterMismatch      = "filter_mismatch"
	ReasonMalformed           = "malformed"
	ReasonUnsupportedKind     = "unsupported_kind"
	ReasonNotOwnList          = "not_own_list"
	ReasonBadSignature        = "bad_signature"
)

// RejectReason maps a rejection error to its metric label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrSeen):
		return ReasonSeen
	case errors.Is(err, ErrUnknownSubscription):
		return ReasonUnknownSubscription
	case errors.Is(err, ErrFilterMismatch), errors.Is(err, ErrUnrequestedReply):
		return ReasonFilterMismatch
	case errors.Is(err, ErrUnsupportedKind):
		return ReasonUnsupportedKind
	case errors.Is(err, ErrNotOwnList):
		return ReasonNotOwnList
	case errors.Is(err, nips.ErrBadSignature):
		return ReasonBadSignature
	default:
		return ReasonMalformed
	}
}
