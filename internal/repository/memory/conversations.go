package memory

import (
	"context"
	"sort"

	"github.com/shinyyama/swap-backend/internal/model"
	"github.com/shinyyama/swap-backend/internal/repository"
)

type conversations struct {
	s *Store
}

func (r conversations) Create(_ context.Context, cv *model.Conversation) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.conversations[cv.ID]; ok {
			return repository.ErrDuplicate
		}
		for _, existing := range d.conversations {
			if existing.MemberA == cv.MemberA && existing.MemberB == cv.MemberB {
				return repository.ErrDuplicate
			}
		}
		now := r.s.now()
		if cv.CreatedAt.IsZero() {
			cv.CreatedAt = now
		}
		cv.UpdatedAt = now
		d.conversations[cv.ID] = copyConversation(*cv)
		return nil
	})
}

func (r conversations) FindByID(_ context.Context, id string) (*model.Conversation, error) {
	var (
		out *model.Conversation
		err error
	)
	r.s.read(func(d *data) {
		cv, ok := d.conversations[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		cp := copyConversation(cv)
		out = &cp
	})
	return out, err
}

func (r conversations) FindByMembers(_ context.Context, userA, userB string) (*model.Conversation, error) {
	a, b := model.MemberPair(userA, userB)
	var out *model.Conversation
	r.s.read(func(d *data) {
		for _, cv := range d.conversations {
			if cv.MemberA == a && cv.MemberB == b {
				cp := copyConversation(cv)
				out = &cp
				return
			}
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r conversations) FindByUser(_ context.Context, uid string) ([]model.Conversation, error) {
	var list []model.Conversation
	r.s.read(func(d *data) {
		for _, cv := range d.conversations {
			if cv.HasMember(uid) {
				list = append(list, copyConversation(cv))
			}
		}
	})
	sort.Slice(list, func(i, j int) bool {
		if !list[i].LastActivityAt.Equal(list[j].LastActivityAt) {
			return list[i].LastActivityAt.After(list[j].LastActivityAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

// Lock is a plain read: transactions on this store are already exclusive.
func (r conversations) Lock(ctx context.Context, id string) (*model.Conversation, error) {
	return r.FindByID(ctx, id)
}

func (r conversations) Update(_ context.Context, cv *model.Conversation) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.conversations[cv.ID]; !ok {
			return repository.ErrNotFound
		}
		cv.UpdatedAt = r.s.now()
		d.conversations[cv.ID] = copyConversation(*cv)
		return nil
	})
}

func (r conversations) Delete(_ context.Context, id string) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.conversations[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.conversations, id)
		return nil
	})
}
