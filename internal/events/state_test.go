package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateBroadcaster_PublishSubscribe(t *testing.T) {
	b := NewStateBroadcaster(4)

	first := b.Subscribe()
	second := b.Subscribe()
	require.Equal(t, 2, b.Subscribers())

	change := StateChange{Timestamp: time.Now(), Topic: TopicWallet, Version: 1}
	b.Publish(change)

	assert.Equal(t, change, <-first)
	assert.Equal(t, change, <-second)
}

func TestStateBroadcaster_DropsSlowSubscriber(t *testing.T) {
	b := NewStateBroadcaster(1)
	ch := b.Subscribe()

	b.Publish(StateChange{Topic: TopicTheme, Version: 1})
	b.Publish(StateChange{Topic: TopicTheme, Version: 2})

	got := <-ch
	assert.Equal(t, uint64(1), got.Version)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected change %v", extra)
	default:
	}
}

func TestStateBroadcaster_Unsubscribe(t *testing.T) {
	b := NewStateBroadcaster(0)
	ch := b.Subscribe()

	b.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers())

	// second unsubscribe is a no-op
	assert.NotPanics(t, func() { b.Unsubscribe(ch) })
	assert.NotPanics(t, func() { b.Publish(StateChange{Topic: TopicError}) })
}
