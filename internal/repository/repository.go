package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/swap-backend/internal/model"
)

var (
	ErrDBNotReady = errors.New("database not initialized")
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate record")
)

type ConversationRepository interface {
	Create(ctx context.Context, cv *model.Conversation) error
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	FindByMembers(ctx context.Context, userA, userB string) (*model.Conversation, error)
	// FindByUser returns every conversation uid is a member of, most recent
	// activity first, regardless of the member's hidden state.
	FindByUser(ctx context.Context, uid string) ([]model.Conversation, error)
	// Lock loads the conversation and holds a write lock on it until the
	// surrounding transaction ends.
	Lock(ctx context.Context, id string) (*model.Conversation, error)
	Update(ctx context.Context, cv *model.Conversation) error
	Delete(ctx context.Context, id string) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id string) (*model.Message, error)
	Latest(ctx context.Context, convID string) (*model.Message, error)
	// ListPage returns up to limit messages of the conversation in log order,
	// strictly after the given cursor when it is non-nil.
	ListPage(ctx context.Context, convID string, after *model.Message, limit int) ([]model.Message, error)
	DeleteByConversation(ctx context.Context, convID string) (int64, error)
}

type OfferRepository interface {
	Create(ctx context.Context, o *model.Offer) error
	FindByID(ctx context.Context, id string) (*model.Offer, error)
	Update(ctx context.Context, o *model.Offer) error
	Delete(ctx context.Context, id string) error
	// WithdrawPendingExcept moves every pending offer of the conversation
	// other than keepID to withdrawn and returns how many changed.
	WithdrawPendingExcept(ctx context.Context, convID, keepID string, at time.Time) (int64, error)
	// ListChildren returns the direct counter-offers of parentID in creation order.
	ListChildren(ctx context.Context, parentID string) ([]model.Offer, error)
	// ListBySender and ListByRecipient return newest first; an empty status
	// matches every status.
	ListBySender(ctx context.Context, uid string, status model.OfferStatus) ([]model.Offer, error)
	ListByRecipient(ctx context.Context, uid string, status model.OfferStatus) ([]model.Offer, error)
}

// Store groups the repositories that must change together.
type Store interface {
	Conversations() ConversationRepository
	Messages() MessageRepository
	Offers() OfferRepository
	// Transaction runs fn against a transactional view of the store. Nothing
	// fn wrote is kept if it returns an error.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
