package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shinyyama/swap-backend/internal/identity"
	"github.com/shinyyama/swap-backend/internal/model"
	"github.com/shinyyama/swap-backend/internal/presence"
	"github.com/shinyyama/swap-backend/internal/repository/memory"
	"github.com/stretchr/testify/require"
)

// recordingDeliverer stands in for the presence registry.
type recordingDeliverer struct {
	mu     sync.Mutex
	online map[string]bool
	events map[string][]presence.Event
}

func newRecordingDeliverer(online ...string) *recordingDeliverer {
	d := &recordingDeliverer{online: make(map[string]bool), events: make(map[string][]presence.Event)}
	for _, uid := range online {
		d.online[uid] = true
	}
	return d
}

func (d *recordingDeliverer) Deliver(userID string, evt presence.Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.online[userID] {
		return false
	}
	d.events[userID] = append(d.events[userID], evt)
	return true
}

func (d *recordingDeliverer) eventsFor(userID string) []presence.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]presence.Event(nil), d.events[userID]...)
}

// stepClock advances by one millisecond on every read so that ordering in
// tests never depends on wall-clock resolution.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type testEnv struct {
	store     *memory.Store
	directory *identity.StaticDirectory
	deliverer *recordingDeliverer
	core      *Core
	convs     ConversationService
	messages  MessageService
	offers    OfferService
}

func newTestEnv(t *testing.T, users ...string) *testEnv {
	t.Helper()
	if len(users) == 0 {
		users = []string{"alice", "bob", "carol"}
	}
	dir := identity.NewStaticDirectory()
	for _, uid := range users {
		dir.Put(model.PublicProfile{UID: uid, DisplayName: uid})
	}
	clock := &stepClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore(memory.WithClock(clock.Now))
	deliverer := newRecordingDeliverer(users...)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	core := NewCore(store, dir, deliverer, logger, WithClock(clock.Now))
	return &testEnv{
		store:     store,
		directory: dir,
		deliverer: deliverer,
		core:      core,
		convs:     NewConversationService(core),
		messages:  NewMessageService(core),
		offers:    NewOfferService(core),
	}
}

func (e *testEnv) createOffer(t *testing.T, from, to string, terms OfferTerms) *model.Offer {
	t.Helper()
	res, err := e.offers.Create(context.Background(), from, CreateOfferInput{OfferedTo: to, OfferTerms: terms})
	require.NoError(t, err)
	return res.Offer
}

func (e *testEnv) offerStatus(t *testing.T, id string) model.OfferStatus {
	t.Helper()
	o, err := e.store.Offers().FindByID(context.Background(), id)
	require.NoError(t, err)
	return o.Status
}

func productTerms(offered, requested string) OfferTerms {
	return OfferTerms{
		OfferedProducts:   []string{offered},
		RequestedProducts: []string{requested},
		Type:              string(model.OfferTypeProduct),
	}
}

func cash(v int64) *int64 {
	return &v
}

// staticWithout hides one user of a directory, as if the account was deleted.
type staticWithout struct {
	inner   *identity.StaticDirectory
	missing string
}

func (d *staticWithout) Exists(ctx context.Context, uid string) (bool, error) {
	if uid == d.missing {
		return false, nil
	}
	return d.inner.Exists(ctx, uid)
}

func (d *staticWithout) PublicProfile(ctx context.Context, uid string) (*model.PublicProfile, error) {
	if uid == d.missing {
		return nil, identity.ErrUserNotFound
	}
	return d.inner.PublicProfile(ctx, uid)
}
