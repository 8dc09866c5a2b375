package events

import (
	"sync"
	"time"
)

// Topic names the slice of client state that changed.
type Topic string

const (
	TopicWallet       Topic = "wallet"
	TopicTransactions Topic = "transactions"
	TopicMarkets      Topic = "markets"
	TopicPosition     Topic = "position"
	TopicLoading      Topic = "loading"
	TopicError        Topic = "error"
	TopicTheme        Topic = "theme"
)

// StateChange is emitted after every mutation of the client state.
// Version grows by one per mutation so consumers can detect gaps.
type StateChange struct {
	Timestamp time.Time `json:"ts"`
	Topic     Topic     `json:"topic"`
	Version   uint64    `json:"version"`
	// TxHash is set for transaction changes.
	TxHash string `json:"tx_hash,omitempty"`
}

// StateBroadcaster fans out state changes to all subscribers via buffered channels.
type StateBroadcaster struct {
	mu     sync.RWMutex
	subs   map[chan StateChange]struct{}
	buffer int
}

// NewStateBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewStateBroadcaster(buffer int) *StateBroadcaster {
	if buffer < 1 {
		buffer = 64
	}
	return &StateBroadcaster{
		subs:   make(map[chan StateChange]struct{}),
		buffer: buffer,
	}
}

// Publish sends the change to all subscribers, dropping it for slow readers.
func (b *StateBroadcaster) Publish(c StateChange) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- c:
		default:
			// drop slow consumer
		}
	}
}

// Subscribe returns a channel that receives changes until Unsubscribe is called.
func (b *StateBroadcaster) Subscribe() chan StateChange {
	ch := make(chan StateChange, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it. Unknown channels are ignored.
func (b *StateBroadcaster) Unsubscribe(ch chan StateChange) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers reports the number of live subscriptions.
func (b *StateBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
