package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shinyyama/swap-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestStore_NilDBIsNotReady(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	_, err := s.Conversations().FindByID(ctx, "c1")
	assert.ErrorIs(t, err, ErrDBNotReady)
	assert.ErrorIs(t, s.Conversations().Create(ctx, &model.Conversation{}), ErrDBNotReady)
	_, err = s.Messages().ListPage(ctx, "c1", nil, 10)
	assert.ErrorIs(t, err, ErrDBNotReady)
	_, err = s.Offers().WithdrawPendingExcept(ctx, "c1", "o1", time.Now())
	assert.ErrorIs(t, err, ErrDBNotReady)
	_, err = s.Offers().ListBySender(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrDBNotReady)

	called := false
	err = s.Transaction(ctx, func(Store) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrDBNotReady)
	assert.False(t, called)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)), ErrDuplicate)

	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))
}

func TestIterateMessages_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	repo := &pagedRepo{pages: [][]model.Message{{{ID: "m1"}, {ID: "m2"}}}, failAt: 1, err: boom}

	var ids []string
	var gotErr error
	for msg, err := range IterateMessages(context.Background(), repo, "c1", 2) {
		if err != nil {
			gotErr = err
			break
		}
		ids = append(ids, msg.ID)
	}
	assert.Equal(t, []string{"m1", "m2"}, ids)
	assert.ErrorIs(t, gotErr, boom)
}

// pagedRepo serves canned pages and fails on call failAt.
type pagedRepo struct {
	MessageRepository
	pages  [][]model.Message
	calls  int
	failAt int
	err    error
}

func (r *pagedRepo) ListPage(_ context.Context, _ string, _ *model.Message, _ int) ([]model.Message, error) {
	defer func() { r.calls++ }()
	if r.calls == r.failAt {
		return nil, r.err
	}
	if r.calls < len(r.pages) {
		return r.pages[r.calls], nil
	}
	return nil, nil
}
