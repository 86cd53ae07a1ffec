package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by gorm. A nil db yields a store whose
// operations fail with ErrDBNotReady.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Conversations() ConversationRepository {
	return NewConversationRepository(s.db)
}

func (s *gormStore) Messages() MessageRepository {
	return NewMessageRepository(s.db)
}

func (s *gormStore) Offers() OfferRepository {
	return NewOfferRepository(s.db)
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.db == nil {
		return ErrDBNotReady
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
