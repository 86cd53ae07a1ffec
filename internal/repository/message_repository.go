package repository

import (
	"context"

	"github.com/shinyyama/swap-backend/internal/model"
	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return translate(r.db.WithContext(ctx).Create(msg).Error)
}

func (r *messageRepository) FindByID(ctx context.Context, id string) (*model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msg model.Message
	if err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (r *messageRepository) Latest(ctx context.Context, convID string) (*model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msg model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at DESC, id DESC").
		First(&msg).Error; err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (r *messageRepository) ListPage(ctx context.Context, convID string, after *model.Message, limit int) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).Where("conversation_id = ?", convID)
	if after != nil {
		q = q.Where("(created_at > ?) OR (created_at = ? AND id > ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var msgs []model.Message
	if err := q.Order("created_at ASC, id ASC").Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) DeleteByConversation(ctx context.Context, convID string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).Where("conversation_id = ?", convID).Delete(&model.Message{})
	return res.RowsAffected, res.Error
}
