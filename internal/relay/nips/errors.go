package nips

import "errors"

// Reasons an event is refused. Parsers wrap these with detail.
var (
	ErrWrongKind         = errors.New("unexpected kind")
	ErrMalformed         = errors.New("malformed event")
	ErrEmptyPost         = errors.New("post has neither title nor content")
	ErrInvalidParent     = errors.New("invalid parent reference")
	ErrNoRelays          = errors.New("relay list has no usable relays")
	ErrInvalidMetadata   = errors.New("profile content is not a JSON object")
	ErrMissingIdentifier = errors.New("missing d identifier")
	ErrBadSignature      = errors.New("bad id or signature")
)
