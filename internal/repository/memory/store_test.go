package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shinyyama/swap-backend/internal/model"
	"github.com/shinyyama/swap-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newConversation(id, a, b string) *model.Conversation {
	a, b = model.MemberPair(a, b)
	return &model.Conversation{ID: id, MemberA: a, MemberB: b, LastActivityAt: base, CreatedAt: base}
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Conversations().Create(ctx, newConversation("c1", "alice", "bob")))

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx repository.Store) error {
		cv, err := tx.Conversations().Lock(ctx, "c1")
		require.NoError(t, err)
		cv.LastMessage = "changed"
		require.NoError(t, tx.Conversations().Update(ctx, cv))
		require.NoError(t, tx.Messages().Create(ctx, &model.Message{ID: "m1", ConversationID: "c1", Text: "hi", CreatedAt: base}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	cv, err := s.Conversations().FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, cv.LastMessage)
	_, err = s.Messages().FindByID(ctx, "m1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTransaction_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	err := s.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Conversations().Create(ctx, newConversation("c1", "alice", "bob")); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes.
		_, err := tx.Conversations().FindByID(ctx, "c1")
		return err
	})
	require.NoError(t, err)
	_, err = s.Conversations().FindByID(ctx, "c1")
	assert.NoError(t, err)
}

func TestConversations_UniqueMemberPair(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Conversations().Create(ctx, newConversation("c1", "alice", "bob")))
	err := s.Conversations().Create(ctx, newConversation("c2", "bob", "alice"))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	cv, err := s.Conversations().FindByMembers(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, "c1", cv.ID)
}

func TestConversations_ReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Conversations().Create(ctx, newConversation("c1", "alice", "bob")))

	cv, err := s.Conversations().FindByID(ctx, "c1")
	require.NoError(t, err)
	cv.DeletedBy.Add("alice")

	again, err := s.Conversations().FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, again.DeletedBy.Has("alice"))
}

func TestConversations_FindByUserOrdersByActivity(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	older := newConversation("c1", "alice", "bob")
	newer := newConversation("c2", "alice", "carol")
	newer.LastActivityAt = base.Add(time.Minute)
	require.NoError(t, s.Conversations().Create(ctx, older))
	require.NoError(t, s.Conversations().Create(ctx, newer))
	require.NoError(t, s.Conversations().Create(ctx, newConversation("c3", "bob", "carol")))

	list, err := s.Conversations().FindByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].ID)
	assert.Equal(t, "c1", list[1].ID)
}

func TestMessages_ListPageWalksInLogOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for i := 0; i < 7; i++ {
		require.NoError(t, s.Messages().Create(ctx, &model.Message{
			ID:             fmt.Sprintf("m%d", i),
			ConversationID: "c1",
			Text:           "x",
			CreatedAt:      base.Add(time.Duration(6-i) * time.Second),
		}))
	}
	require.NoError(t, s.Messages().Create(ctx, &model.Message{ID: "other", ConversationID: "c2", CreatedAt: base}))

	var got []string
	for msg, err := range repository.IterateMessages(ctx, s.Messages(), "c1", 3) {
		require.NoError(t, err)
		got = append(got, msg.ID)
	}
	assert.Equal(t, []string{"m6", "m5", "m4", "m3", "m2", "m1", "m0"}, got)

	latest, err := s.Messages().Latest(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "m0", latest.ID)

	n, err := s.Messages().DeleteByConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	_, err = s.Messages().Latest(ctx, "c1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMessages_SameTimestampOrderedByID(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, id := range []string{"b", "c", "a"} {
		require.NoError(t, s.Messages().Create(ctx, &model.Message{ID: id, ConversationID: "c1", CreatedAt: base}))
	}
	page, err := s.Messages().ListPage(ctx, "c1", nil, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "a", page[0].ID)
	assert.Equal(t, "c", page[2].ID)

	rest, err := s.Messages().ListPage(ctx, "c1", &page[0], 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "b", rest[0].ID)
}

func TestOffers_WithdrawPendingExcept(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	mk := func(id, conv string, st model.OfferStatus) {
		require.NoError(t, s.Offers().Create(ctx, &model.Offer{ID: id, ConversationID: conv, Status: st, CreatedAt: base}))
	}
	mk("keep", "c1", model.OfferStatusPending)
	mk("p1", "c1", model.OfferStatusPending)
	mk("p2", "c1", model.OfferStatusPending)
	mk("rej", "c1", model.OfferStatusRejected)
	mk("elsewhere", "c2", model.OfferStatusPending)

	n, err := s.Offers().WithdrawPendingExcept(ctx, "c1", "keep", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for id, want := range map[string]model.OfferStatus{
		"keep":      model.OfferStatusPending,
		"p1":        model.OfferStatusWithdrawn,
		"p2":        model.OfferStatusWithdrawn,
		"rej":       model.OfferStatusRejected,
		"elsewhere": model.OfferStatusPending,
	} {
		o, err := s.Offers().FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, o.Status, id)
	}
}

func TestOffers_ListFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for i, st := range []model.OfferStatus{model.OfferStatusPending, model.OfferStatusRejected, model.OfferStatusPending} {
		require.NoError(t, s.Offers().Create(ctx, &model.Offer{
			ID:        fmt.Sprintf("o%d", i),
			OfferedBy: "alice",
			OfferedTo: "bob",
			Status:    st,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	sent, err := s.Offers().ListBySender(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, sent, 3)
	assert.Equal(t, "o2", sent[0].ID)

	pending, err := s.Offers().ListByRecipient(ctx, "bob", model.OfferStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "o2", pending[0].ID)
	assert.Equal(t, "o0", pending[1].ID)

	none, err := s.Offers().ListByRecipient(ctx, "alice", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_TimestampsFollowClock(t *testing.T) {
	ctx := context.Background()
	fixed := base.Add(time.Hour)
	s := NewStore(WithClock(func() time.Time { return fixed }))

	err := s.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Conversations().Create(ctx, newConversation("c1", "alice", "bob")); err != nil {
			return err
		}
		cv, err := tx.Conversations().Lock(ctx, "c1")
		if err != nil {
			return err
		}
		return tx.Conversations().Update(ctx, cv)
	})
	require.NoError(t, err)
	cv, err := s.Conversations().FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, fixed, cv.UpdatedAt)

	o := &model.Offer{ID: "o1", ConversationID: "c1", Status: model.OfferStatusPending, CreatedAt: base}
	require.NoError(t, s.Offers().Create(ctx, o))

	t.Run("caller timestamp is kept", func(t *testing.T) {
		stamped := base.Add(2 * time.Minute)
		o.Status = model.OfferStatusRejected
		o.UpdatedAt = stamped
		require.NoError(t, s.Offers().Update(ctx, o))
		got, err := s.Offers().FindByID(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, stamped, got.UpdatedAt)
	})

	t.Run("missing timestamp comes from the clock", func(t *testing.T) {
		o.UpdatedAt = time.Time{}
		require.NoError(t, s.Offers().Update(ctx, o))
		got, err := s.Offers().FindByID(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, fixed, got.UpdatedAt)
	})
}
