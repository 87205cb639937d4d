package application

import (
	"github.com/Shugur-Network/feedsync/internal/config"
	"github.com/Shugur-Network/feedsync/internal/storage"
)

// DB returns the node's database instance.
func (n *Node) DB() *storage.DB {
	return n.db
}

// Config returns the node's configuration.
func (n *Node) Config() *config.Config {
	return n.config
}

// MyPubkey returns the local user's hex public key.
func (n *Node) MyPubkey() string {
	return n.account.MyPubkey()
}
