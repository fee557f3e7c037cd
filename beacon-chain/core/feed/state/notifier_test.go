package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedNotifier_DeliversEvents(t *testing.T) {
	n := &FeedNotifier{}
	ch := make(chan *Event, 1)
	sub := n.StateFeed().Subscribe(ch)
	defer sub.Unsubscribe()

	sent := n.StateFeed().Send(&Event{
		Type: ForkActivated,
		Data: &ForkActivatedData{Epoch: 5, PreviousVersion: [4]byte{0}, CurrentVersion: [4]byte{1}},
	})
	assert.Equal(t, 1, sent)

	select {
	case ev := <-ch:
		require.Equal(t, EventType(ForkActivated), ev.Type)
		data, ok := ev.Data.(*ForkActivatedData)
		require.True(t, ok)
		assert.Equal(t, [4]byte{1}, data.CurrentVersion)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}
