package service

import (
	"context"
	"errors"

	"github.com/shinyyama/swap-backend/internal/identity"
	"github.com/shinyyama/swap-backend/internal/model"
	"github.com/shinyyama/swap-backend/internal/repository"
)

type ConversationService interface {
	FindOrCreate(ctx context.Context, uid, peerUID string) (*model.Conversation, error)
	Get(ctx context.Context, convID, uid string) (*model.Conversation, error)
	ListVisible(ctx context.Context, uid string) ([]ConversationView, error)
	// Hide removes the conversation from uid's list. It reports true when
	// every member has now hidden it and it was destroyed with its messages.
	Hide(ctx context.Context, convID, uid string) (bool, error)
}

// ConversationView is a conversation as listed for one of its members.
type ConversationView struct {
	Conversation  model.Conversation
	Peer          *model.PublicProfile
	LatestMessage *model.Message
}

type conversationService struct {
	*Core
}

func NewConversationService(core *Core) ConversationService {
	return &conversationService{Core: core}
}

func (s *conversationService) FindOrCreate(ctx context.Context, uid, peerUID string) (*model.Conversation, error) {
	return s.inPairConversation(ctx, uid, peerUID, nil)
}

func (s *conversationService) Get(ctx context.Context, convID, uid string) (*model.Conversation, error) {
	cv, err := s.store.Conversations().FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("conversation not found")
		}
		return nil, err
	}
	if !cv.HasMember(uid) {
		return nil, forbidden("not a participant")
	}
	return cv, nil
}

func (s *conversationService) ListVisible(ctx context.Context, uid string) ([]ConversationView, error) {
	convs, err := s.store.Conversations().FindByUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	views := make([]ConversationView, 0, len(convs))
	for _, cv := range convs {
		if !cv.VisibleTo(uid) {
			continue
		}
		view := ConversationView{Conversation: cv}
		peer, err := s.directory.PublicProfile(ctx, cv.Peer(uid))
		switch {
		case err == nil:
			view.Peer = peer
		case errors.Is(err, identity.ErrUserNotFound):
			// Deleted accounts still leave the thread readable.
		default:
			return nil, err
		}
		latest, err := s.store.Messages().Latest(ctx, cv.ID)
		switch {
		case err == nil:
			view.LatestMessage = latest
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *conversationService) Hide(ctx context.Context, convID, uid string) (bool, error) {
	destroyed := false
	err := s.inConversation(ctx, convID, func(tx repository.Store, cv *model.Conversation) error {
		if !cv.HasMember(uid) {
			return forbidden("not a participant")
		}
		cv.DeletedBy.Add(uid)
		if !cv.HiddenByAll() {
			return tx.Conversations().Update(ctx, cv)
		}
		if _, err := tx.Messages().DeleteByConversation(ctx, cv.ID); err != nil {
			return err
		}
		destroyed = true
		return tx.Conversations().Delete(ctx, cv.ID)
	})
	if err != nil {
		return false, err
	}
	if destroyed {
		s.logger.Info("conversation destroyed", "conversation_id", convID)
	}
	return destroyed, nil
}
