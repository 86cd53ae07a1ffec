package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shinyyama/swap-backend/internal/model"
	"github.com/shinyyama/swap-backend/internal/repository"
)

type offers struct {
	s *Store
}

func (r offers) Create(_ context.Context, o *model.Offer) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.offers[o.ID]; ok {
			return repository.ErrDuplicate
		}
		if o.UpdatedAt.IsZero() {
			o.UpdatedAt = o.CreatedAt
		}
		d.offers[o.ID] = copyOffer(*o)
		return nil
	})
}

func (r offers) FindByID(_ context.Context, id string) (*model.Offer, error) {
	var (
		out *model.Offer
		err error
	)
	r.s.read(func(d *data) {
		o, ok := d.offers[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		cp := copyOffer(o)
		out = &cp
	})
	return out, err
}

func (r offers) Update(_ context.Context, o *model.Offer) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.offers[o.ID]; !ok {
			return repository.ErrNotFound
		}
		if o.UpdatedAt.IsZero() {
			o.UpdatedAt = r.s.now()
		}
		d.offers[o.ID] = copyOffer(*o)
		return nil
	})
}

func (r offers) Delete(_ context.Context, id string) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.offers[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.offers, id)
		return nil
	})
}

func (r offers) WithdrawPendingExcept(_ context.Context, convID, keepID string, at time.Time) (int64, error) {
	var n int64
	err := r.s.write(func(d *data) error {
		for id, o := range d.offers {
			if o.ConversationID != convID || id == keepID || o.Status != model.OfferStatusPending {
				continue
			}
			o.Status = model.OfferStatusWithdrawn
			o.UpdatedAt = at
			d.offers[id] = o
			n++
		}
		return nil
	})
	return n, err
}

func (r offers) ListChildren(_ context.Context, parentID string) ([]model.Offer, error) {
	list := r.filter(func(o *model.Offer) bool {
		return o.OriginalOfferID != nil && *o.OriginalOfferID == parentID
	})
	sort.Slice(list, func(i, j int) bool { return list[i].Before(&list[j]) })
	return list, nil
}

func (r offers) ListBySender(_ context.Context, uid string, status model.OfferStatus) ([]model.Offer, error) {
	return r.newestFirst(func(o *model.Offer) bool {
		return o.OfferedBy == uid && (status == "" || o.Status == status)
	}), nil
}

func (r offers) ListByRecipient(_ context.Context, uid string, status model.OfferStatus) ([]model.Offer, error) {
	return r.newestFirst(func(o *model.Offer) bool {
		return o.OfferedTo == uid && (status == "" || o.Status == status)
	}), nil
}

func (r offers) newestFirst(keep func(o *model.Offer) bool) []model.Offer {
	list := r.filter(keep)
	sort.Slice(list, func(i, j int) bool { return list[j].Before(&list[i]) })
	return list
}

func (r offers) filter(keep func(o *model.Offer) bool) []model.Offer {
	var list []model.Offer
	r.s.read(func(d *data) {
		for _, o := range d.offers {
			if keep(&o) {
				list = append(list, copyOffer(o))
			}
		}
	})
	return list
}
