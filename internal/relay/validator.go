package relay

import (
	"errors"
	"fmt"

	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/domain"
	apperrors "github.com/Shugur-Network/feedsync/internal/errors"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/Shugur-Network/feedsync/internal/relay/nips"
	nostr "github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"
)

// EventValidator decides which inbound events become domain records.
// Cheap checks run first; the signature is verified last and the id is only
// marked seen once everything passed.
type EventValidator struct {
	registry domain.FilterRegistrar
	seen     *SeenCache
	account  domain.PubkeyProvider
	verify   func(*nostr.Event) error
}

// NewEventValidator creates a validator over the registry and seen cache.
func NewEventValidator(registry domain.FilterRegistrar, seen *SeenCache, account domain.PubkeyProvider) *EventValidator {
	return &EventValidator{
		registry: registry,
		seen:     seen,
		account:  account,
		verify:   nips.VerifySignature,
	}
}

// Admit returns the typed event, or nil when evt is rejected. Rejections are
// counted and logged, never returned.
func (v *EventValidator) Admit(evt *nostr.Event, subID, relayURL string) models.ValidatedEvent {
	validated, err := v.admit(evt, subID, relayURL)
	if err != nil {
		v.reject(evt, subID, relayURL, err)
		return nil
	}
	metrics.IncrementAdmitted(evt.Kind)
	return validated
}

func (v *EventValidator) admit(evt *nostr.Event, subID, relayURL string) (models.ValidatedEvent, error) {
	if evt == nil {
		return nil, nips.ErrMalformed
	}

	if v.seen.Contains(evt.ID) {
		return nil, ErrSeen
	}

	filters := v.registry.Lookup(subID)
	if len(filters) == 0 {
		return nil, ErrUnknownSubscription
	}

	if err := matchFilters(evt, filters); err != nil {
		return nil, err
	}

	validated, err := v.classify(evt, relayURL)
	if err != nil {
		return nil, err
	}

	if err := v.verify(evt); err != nil {
		return nil, err
	}

	// Another relay may have delivered the same event meanwhile.
	if !v.seen.Add(evt.ID) {
		return nil, ErrSeen
	}
	return validated, nil
}

// classify runs the kind specific structural checks.
func (v *EventValidator) classify(evt *nostr.Event, relayURL string) (models.ValidatedEvent, error) {
	if nips.IsOwnOnlyKind(evt.Kind) && evt.PubKey != v.account.MyPubkey() {
		return nil, ErrNotOwnList
	}

	switch evt.Kind {
	case constants.KindTextNote:
		return nips.ParseTextNote(evt, relayURL)
	case constants.KindRepost, constants.KindGenericRepost:
		return asValidated(nips.ParseRepost(evt, relayURL))
	case constants.KindReaction:
		return asValidated(nips.ParseVote(evt))
	case constants.KindContactList:
		return asValidated(nips.ParseContactList(evt))
	case constants.KindRelayList:
		return asValidated(nips.ParseRelayList(evt))
	case constants.KindProfile:
		return asValidated(nips.ParseProfile(evt))
	case constants.KindTopicList:
		return asValidated(nips.ParseTopicList(evt))
	case constants.KindBookmarkList:
		return asValidated(nips.ParseBookmarkList(evt))
	case constants.KindProfileSet:
		return asValidated(nips.ParseProfileSet(evt))
	case constants.KindTopicSet:
		return asValidated(nips.ParseTopicSet(evt))
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedKind, evt.Kind)
	}
}

func asValidated[T models.ValidatedEvent](e T, err error) (models.ValidatedEvent, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (v *EventValidator) reject(evt *nostr.Event, subID, relayURL string, err error) {
	reason := RejectReason(err)
	metrics.IncrementRejected(reason)

	id, pubkey, kind := "", "", -1
	if evt != nil {
		id, pubkey, kind = evt.ID, evt.PubKey, evt.Kind
	}

	switch reason {
	case ReasonSeen:
		// Duplicates across relays are the normal case.
		return
	case ReasonUnsupportedKind:
		logger.Debug("event of unsupported kind dropped", logger.EventFields(id, pubkey, kind)...)
		return
	}

	if errors.Is(err, ErrFilterMismatch) {
		apperrors.HandleRejection(apperrors.ProtocolViolationError(relayURL, subID, id),
			logger.EventFields(id, pubkey, kind)...)
		return
	}
	apperrors.HandleRejection(apperrors.EventValidationError(id, err).WithRelay(relayURL),
		append(logger.EventFields(id, pubkey, kind), zap.String("sub_id", subID), zap.String("reason", reason))...)
}
