package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/swap-backend/internal/identity"
	"github.com/shinyyama/swap-backend/internal/model"
	"github.com/shinyyama/swap-backend/internal/presence"
	"github.com/shinyyama/swap-backend/internal/repository"
)

// Deliverer pushes realtime events to online users. Returning false means
// the user was offline, which callers ignore.
type Deliverer interface {
	Deliver(userID string, evt presence.Event) bool
}

// Core holds what the conversation, message and offer services share: the
// store, the identity directory and the per-conversation locks that
// serialise every mutation of one conversation inside this process.
type Core struct {
	store     repository.Store
	directory identity.Directory
	presence  Deliverer
	locks     *keyedMutex
	logger    *slog.Logger
	now       func() time.Time
}

type CoreOption func(*Core)

// WithClock replaces the time source used for server-assigned timestamps.
func WithClock(now func() time.Time) CoreOption {
	return func(c *Core) {
		c.now = now
	}
}

func NewCore(store repository.Store, directory identity.Directory, deliverer Deliverer, logger *slog.Logger, opts ...CoreOption) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Core{
		store:     store,
		directory: directory,
		presence:  deliverer,
		locks:     newKeyedMutex(),
		logger:    logger,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Millisecond)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func conversationLockKey(id string) string {
	return "conv:" + id
}

func pairLockKey(userA, userB string) string {
	a, b := model.MemberPair(userA, userB)
	return "pair:" + a + "|" + b
}

// errConversationGone marks a conversation destroyed before its lock was
// taken. It never leaves this package.
var errConversationGone = errors.New("conversation gone")

// lockConversation runs fn in a transaction holding both the in-process lock
// and the store lock of the conversation. cv is nil when the conversation
// no longer exists.
func (c *Core) lockConversation(ctx context.Context, convID string, fn func(tx repository.Store, cv *model.Conversation) error) error {
	unlock := c.locks.Lock(conversationLockKey(convID))
	defer unlock()
	return c.store.Transaction(ctx, func(tx repository.Store) error {
		cv, err := tx.Conversations().Lock(ctx, convID)
		if errors.Is(err, repository.ErrNotFound) {
			return fn(tx, nil)
		}
		if err != nil {
			return err
		}
		return fn(tx, cv)
	})
}

// inConversation is lockConversation for callers that need the
// conversation to exist.
func (c *Core) inConversation(ctx context.Context, convID string, fn func(tx repository.Store, cv *model.Conversation) error) error {
	err := c.lockConversation(ctx, convID, func(tx repository.Store, cv *model.Conversation) error {
		if cv == nil {
			return errConversationGone
		}
		return fn(tx, cv)
	})
	if errors.Is(err, errConversationGone) {
		return notFound("conversation not found")
	}
	return err
}

// inPairConversation resolves the conversation between the two users,
// creating it when missing, and runs fn on it in the same transaction.
// counterpart must exist in the identity directory.
func (c *Core) inPairConversation(ctx context.Context, actor, counterpart string, fn func(tx repository.Store, cv *model.Conversation) error) (*model.Conversation, error) {
	actor = strings.TrimSpace(actor)
	counterpart = strings.TrimSpace(counterpart)
	if actor == "" || counterpart == "" {
		return nil, invalidOperation("both users are required")
	}
	if actor == counterpart {
		return nil, invalidOperation("cannot start a conversation with yourself")
	}
	ok, err := c.directory.Exists(ctx, counterpart)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("user not found")
	}

	unlock := c.locks.Lock(pairLockKey(actor, counterpart))
	defer unlock()

	// A concurrent creator in another process surfaces as ErrDuplicate on
	// insert and the second attempt finds its row. A conversation destroyed
	// between lookup and lock is recreated by the second attempt.
	for attempt := 0; ; attempt++ {
		cv, err := c.pairAttempt(ctx, actor, counterpart, fn)
		retry := errors.Is(err, repository.ErrDuplicate) || errors.Is(err, errConversationGone)
		if retry && attempt == 0 {
			continue
		}
		if errors.Is(err, errConversationGone) {
			return nil, notFound("conversation not found")
		}
		return cv, err
	}
}

func (c *Core) pairAttempt(ctx context.Context, actor, counterpart string, fn func(tx repository.Store, cv *model.Conversation) error) (*model.Conversation, error) {
	existing, err := c.store.Conversations().FindByMembers(ctx, actor, counterpart)
	switch {
	case err == nil:
		var out *model.Conversation
		err := c.lockConversation(ctx, existing.ID, func(tx repository.Store, cv *model.Conversation) error {
			if cv == nil {
				return errConversationGone
			}
			if fn != nil {
				if err := fn(tx, cv); err != nil {
					return err
				}
			}
			out = cv
			return nil
		})
		return out, err
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	a, b := model.MemberPair(actor, counterpart)
	now := c.now()
	cv := &model.Conversation{
		ID:             newID(),
		MemberA:        a,
		MemberB:        b,
		DeletedBy:      model.UserSet{},
		LastActivityAt: now,
		CreatedAt:      now,
	}
	err = c.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Conversations().Create(ctx, cv); err != nil {
			return err
		}
		if fn != nil {
			return fn(tx, cv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("conversation created", "conversation_id", cv.ID, "members", cv.Members())
	return cv, nil
}

// appendMessage writes a message into the log and applies its side effects
// to cv: preview text, activity time and un-hiding for both members. The
// caller persists cv.
func (c *Core) appendMessage(ctx context.Context, tx repository.Store, cv *model.Conversation, sender, text string, offerID *string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalidOperation("message text is required")
	}
	if !cv.HasMember(sender) {
		return nil, forbidden("not a participant")
	}
	msg := &model.Message{
		ID:             newID(),
		ConversationID: cv.ID,
		SenderUID:      sender,
		Text:           text,
		OfferID:        offerID,
		CreatedAt:      c.now(),
	}
	if err := tx.Messages().Create(ctx, msg); err != nil {
		return nil, err
	}
	touchLastMessage(cv, text, msg.CreatedAt)
	unhideOnActivity(cv, sender)
	unhideOnActivity(cv, cv.Peer(sender))
	return msg, nil
}

// deliverMessage notifies the recipient after the message is committed.
func (c *Core) deliverMessage(cv *model.Conversation, msg *model.Message) {
	if c.presence == nil || msg == nil {
		return
	}
	receiver := cv.Peer(msg.SenderUID)
	delivered := c.presence.Deliver(receiver, presence.MessageReceived(presence.MessagePayload{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderUID,
		ReceiverID:     receiver,
		Text:           msg.Text,
		OfferID:        msg.OfferID,
		CreatedAt:      msg.CreatedAt,
	}))
	c.logger.Debug("message pushed", "message_id", msg.ID, "receiver", receiver, "delivered", delivered)
}

func touchLastMessage(cv *model.Conversation, text string, at time.Time) {
	cv.LastMessage = text
	if at.After(cv.LastActivityAt) {
		cv.LastActivityAt = at
	}
}

func unhideOnActivity(cv *model.Conversation, uid string) {
	if uid != "" {
		cv.DeletedBy.Remove(uid)
	}
}
