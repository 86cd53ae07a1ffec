package repository

import (
	"context"

	"github.com/shinyyama/swap-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, cv *model.Conversation) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return translate(r.db.WithContext(ctx).Create(cv).Error)
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).First(&cv, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &cv, nil
}

func (r *conversationRepository) FindByMembers(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	a, b := model.MemberPair(userA, userB)
	var cv model.Conversation
	if err := r.db.WithContext(ctx).
		Where("member_a = ? AND member_b = ?", a, b).
		First(&cv).Error; err != nil {
		return nil, translate(err)
	}
	return &cv, nil
}

func (r *conversationRepository) FindByUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("member_a = ? OR member_b = ?", uid, uid).
		Order("last_activity_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *conversationRepository) Lock(ctx context.Context, id string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&cv, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &cv, nil
}

func (r *conversationRepository) Update(ctx context.Context, cv *model.Conversation) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return translate(r.db.WithContext(ctx).Save(cv).Error)
}

func (r *conversationRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).Delete(&model.Conversation{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
