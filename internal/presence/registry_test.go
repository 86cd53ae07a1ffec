package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id string

	mu     sync.Mutex
	events []Event
	full   bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string {
	return c.id
}

func (c *fakeConn) Send(evt Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return false
	}
	c.events = append(c.events, evt)
	return true
}

func (c *fakeConn) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func (c *fakeConn) last() Event {
	events := c.received()
	if len(events) == 0 {
		return Event{}
	}
	return events[len(events)-1]
}

func TestRegistry_DeliverToAbsentUserIsNoop(t *testing.T) {
	r := NewRegistry(nil)
	assert.NotPanics(t, func() {
		assert.False(t, r.Deliver("ghost", MessageReceived(MessagePayload{Text: "hi"})))
	})
}

func TestRegistry_FirstConnectionWins(t *testing.T) {
	r := NewRegistry(nil)
	c1, c2 := newFakeConn("c1"), newFakeConn("c2")
	r.Connect(c1)
	r.Connect(c2)

	assert.True(t, r.Register("alice", "c1"))
	assert.False(t, r.Register("alice", "c2"))

	uid, ok := r.UserFor("c1")
	require.True(t, ok)
	assert.Equal(t, "alice", uid)
	_, ok = r.UserFor("c2")
	assert.False(t, ok)

	assert.True(t, r.Deliver("alice", MessageReceived(MessagePayload{Text: "hi"})))
	assert.Equal(t, EventMessageReceived, c1.last().Type)
	assert.NotEqual(t, EventMessageReceived, c2.last().Type)
}

func TestRegistry_RegisterNeedsKnownConnection(t *testing.T) {
	r := NewRegistry(nil)
	assert.False(t, r.Register("alice", "nope"))
	assert.False(t, r.IsOnline("alice"))

	r.Connect(newFakeConn("c1"))
	assert.False(t, r.Register("", "c1"))
}

func TestRegistry_SnapshotBroadcastOnChanges(t *testing.T) {
	r := NewRegistry(nil)
	c1, c2 := newFakeConn("c1"), newFakeConn("c2")
	r.Connect(c1)
	r.Connect(c2)

	require.True(t, r.Register("bob", "c2"))
	require.True(t, r.Register("alice", "c1"))

	snap := c2.last()
	require.Equal(t, EventPresenceSnapshot, snap.Type)
	assert.Equal(t, []Online{{UserID: "alice", ConnectionID: "c1"}, {UserID: "bob", ConnectionID: "c2"}},
		snap.Payload.(SnapshotPayload).Users)

	r.Disconnect("c1")
	assert.False(t, r.IsOnline("alice"))
	snap = c2.last()
	require.Equal(t, EventPresenceSnapshot, snap.Type)
	assert.Equal(t, []Online{{UserID: "bob", ConnectionID: "c2"}}, snap.Payload.(SnapshotPayload).Users)

	// The disconnected socket gets nothing further.
	before := len(c1.received())
	require.True(t, r.Register("carol", "c2"))
	assert.Len(t, c1.received(), before)
	assert.Equal(t, EventPresenceSnapshot, c2.last().Type)
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	c1 := newFakeConn("c1")
	r.Connect(c1)
	require.True(t, r.Register("alice", "c1"))

	assert.True(t, r.Unregister("c1"))
	assert.False(t, r.Unregister("c1"))
	assert.False(t, r.IsOnline("alice"))

	// The same user may come back on the same socket.
	assert.True(t, r.Register("alice", "c1"))
}

func TestRegistry_SlowConnectionDropsEvents(t *testing.T) {
	r := NewRegistry(nil)
	c1 := newFakeConn("c1")
	r.Connect(c1)
	require.True(t, r.Register("alice", "c1"))

	c1.mu.Lock()
	c1.full = true
	c1.mu.Unlock()
	assert.False(t, r.Deliver("alice", MessageReceived(MessagePayload{Text: "hi"})))
	assert.True(t, r.IsOnline("alice"))
}

func TestRegistry_ConcurrentUse(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i))
			r.Connect(newFakeConn(id))
			r.Register("user-"+id, id)
			r.Deliver("user-"+id, MessageReceived(MessagePayload{}))
			r.Snapshot()
			r.Disconnect(id)
		}()
	}
	wg.Wait()
	assert.Empty(t, r.Snapshot())
}
