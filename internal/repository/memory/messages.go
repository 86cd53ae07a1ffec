package memory

import (
	"context"
	"sort"

	"github.com/shinyyama/swap-backend/internal/model"
	"github.com/shinyyama/swap-backend/internal/repository"
)

type messages struct {
	s *Store
}

func (r messages) Create(_ context.Context, msg *model.Message) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.messages[msg.ID]; ok {
			return repository.ErrDuplicate
		}
		d.messages[msg.ID] = copyMessage(*msg)
		return nil
	})
}

func (r messages) FindByID(_ context.Context, id string) (*model.Message, error) {
	var (
		out *model.Message
		err error
	)
	r.s.read(func(d *data) {
		msg, ok := d.messages[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		cp := copyMessage(msg)
		out = &cp
	})
	return out, err
}

func (r messages) byConversation(convID string) []model.Message {
	var list []model.Message
	r.s.read(func(d *data) {
		for _, msg := range d.messages {
			if msg.ConversationID == convID {
				list = append(list, copyMessage(msg))
			}
		}
	})
	sort.Slice(list, func(i, j int) bool { return list[i].Before(&list[j]) })
	return list
}

func (r messages) Latest(_ context.Context, convID string) (*model.Message, error) {
	list := r.byConversation(convID)
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	return &list[len(list)-1], nil
}

func (r messages) ListPage(_ context.Context, convID string, after *model.Message, limit int) ([]model.Message, error) {
	list := r.byConversation(convID)
	start := 0
	if after != nil {
		start = sort.Search(len(list), func(i int) bool { return after.Before(&list[i]) })
	}
	list = list[start:]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r messages) DeleteByConversation(_ context.Context, convID string) (int64, error) {
	var n int64
	err := r.s.write(func(d *data) error {
		for id, msg := range d.messages {
			if msg.ConversationID == convID {
				delete(d.messages, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
