package service

import (
	"context"
	"iter"

	"github.com/shinyyama/swap-backend/internal/model"
	"github.com/shinyyama/swap-backend/internal/presence"
	"github.com/shinyyama/swap-backend/internal/repository"
)

type MessageService interface {
	Send(ctx context.Context, convID, senderUID, text string) (*model.Message, error)
	// SendRealtime is Send for messages announced over the realtime channel,
	// where the client also names the receiver.
	SendRealtime(ctx context.Context, senderID, receiverID, convID, text string) error
	// List returns the conversation's log in order. The sequence is lazy and
	// may be ranged over more than once.
	List(ctx context.Context, convID, uid string) (iter.Seq2[model.Message, error], error)
}

type messageService struct {
	*Core
	conversations ConversationService
	pageSize      int
}

func NewMessageService(core *Core) MessageService {
	return &messageService{
		Core:          core,
		conversations: NewConversationService(core),
		pageSize:      repository.DefaultMessagePageSize,
	}
}

func (s *messageService) Send(ctx context.Context, convID, senderUID, text string) (*model.Message, error) {
	var (
		msg  *model.Message
		conv *model.Conversation
	)
	err := s.inConversation(ctx, convID, func(tx repository.Store, cv *model.Conversation) error {
		var err error
		msg, err = s.appendMessage(ctx, tx, cv, senderUID, text, nil)
		if err != nil {
			return err
		}
		conv = cv
		return tx.Conversations().Update(ctx, cv)
	})
	if err != nil {
		return nil, err
	}
	s.deliverMessage(conv, msg)
	return msg, nil
}

func (s *messageService) SendRealtime(ctx context.Context, senderID, receiverID, convID, text string) error {
	cv, err := s.conversations.Get(ctx, convID, senderID)
	if err != nil {
		return err
	}
	if cv.Peer(senderID) != receiverID {
		return forbidden("receiver is not the other participant")
	}
	_, err = s.Send(ctx, convID, senderID, text)
	return err
}

func (s *messageService) List(ctx context.Context, convID, uid string) (iter.Seq2[model.Message, error], error) {
	if _, err := s.conversations.Get(ctx, convID, uid); err != nil {
		return nil, err
	}
	return repository.IterateMessages(ctx, s.store.Messages(), convID, s.pageSize), nil
}

var _ presence.MessageSender = (*messageService)(nil)
