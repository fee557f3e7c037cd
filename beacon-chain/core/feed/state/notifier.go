package state

import "github.com/ethereum/go-ethereum/event"

// Notifier interface defines the methods of the service that provides state updates to consumers.
type Notifier interface {
	StateFeed() *event.Feed
}

// FeedNotifier owns a state feed. The zero value is ready to use.
type FeedNotifier struct {
	feed event.Feed
}

// StateFeed returns the feed events are sent on.
func (n *FeedNotifier) StateFeed() *event.Feed {
	return &n.feed
}
