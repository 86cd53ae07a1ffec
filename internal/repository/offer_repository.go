package repository

import (
	"context"
	"time"

	"github.com/shinyyama/swap-backend/internal/model"
	"gorm.io/gorm"
)

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(ctx context.Context, o *model.Offer) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return translate(r.db.WithContext(ctx).Create(o).Error)
}

func (r *offerRepository) FindByID(ctx context.Context, id string) (*model.Offer, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var o model.Offer
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *offerRepository) Update(ctx context.Context, o *model.Offer) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return translate(r.db.WithContext(ctx).Save(o).Error)
}

func (r *offerRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).Delete(&model.Offer{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *offerRepository) WithdrawPendingExcept(ctx context.Context, convID, keepID string, at time.Time) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("conversation_id = ? AND id <> ? AND status = ?", convID, keepID, model.OfferStatusPending).
		Updates(map[string]interface{}{
			"status":     model.OfferStatusWithdrawn,
			"updated_at": at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *offerRepository) ListChildren(ctx context.Context, parentID string) ([]model.Offer, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Offer
	if err := r.db.WithContext(ctx).
		Where("original_offer_id = ?", parentID).
		Order("created_at ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *offerRepository) ListBySender(ctx context.Context, uid string, status model.OfferStatus) ([]model.Offer, error) {
	return r.listByParty(ctx, "offered_by", uid, status)
}

func (r *offerRepository) ListByRecipient(ctx context.Context, uid string, status model.OfferStatus) ([]model.Offer, error) {
	return r.listByParty(ctx, "offered_to", uid, status)
}

func (r *offerRepository) listByParty(ctx context.Context, column, uid string, status model.OfferStatus) ([]model.Offer, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).Where(column+" = ?", uid)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []model.Offer
	if err := q.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
