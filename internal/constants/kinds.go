package constants

// Event kinds the pipeline understands.
const (
	KindProfile       = 0
	KindTextNote      = 1 // root posts and replies
	KindContactList   = 3
	KindRepost        = 6
	KindReaction      = 7 // votes
	KindGenericRepost = 16
	KindRelayList     = 10002
	KindBookmarkList  = 10003
	KindTopicList     = 10015
	KindProfileSet    = 30000
	KindTopicSet      = 30015
)

// Tag names.
const (
	TagEvent      = "e"
	TagPubkey     = "p"
	TagTopic      = "t"
	TagRelay      = "r"
	TagTitle      = "title"
	TagSubject    = "subject"
	TagIdentifier = "d"
)

// NIP-10 e-tag markers.
const (
	MarkerRoot  = "root"
	MarkerReply = "reply"
)

// NIP-65 r-tag markers.
const (
	MarkerRead  = "read"
	MarkerWrite = "write"
)

// Downvote is the reaction content that counts as a negative vote.
const Downvote = "-"
