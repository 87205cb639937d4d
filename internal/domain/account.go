package domain

import "time"

// PubkeyProvider names the local user.
type PubkeyProvider interface {
	MyPubkey() string
}

// NodeStatus is what the health endpoint reads from the running node.
type NodeStatus interface {
	ActiveSubscriptions() int
	QueueBacklog() int
	StartTime() time.Time
}
