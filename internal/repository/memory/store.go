// Package memory provides an in-process Store used for local development and
// tests. Transactions are serialised and applied copy-on-commit.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shinyyama/swap-backend/internal/model"
	"github.com/shinyyama/swap-backend/internal/repository"
)

type data struct {
	conversations map[string]model.Conversation
	messages      map[string]model.Message
	offers        map[string]model.Offer
}

func newData() *data {
	return &data{
		conversations: make(map[string]model.Conversation),
		messages:      make(map[string]model.Message),
		offers:        make(map[string]model.Offer),
	}
}

func (d *data) clone() *data {
	out := &data{
		conversations: make(map[string]model.Conversation, len(d.conversations)),
		messages:      make(map[string]model.Message, len(d.messages)),
		offers:        make(map[string]model.Offer, len(d.offers)),
	}
	for id, cv := range d.conversations {
		out.conversations[id] = copyConversation(cv)
	}
	for id, msg := range d.messages {
		out.messages[id] = copyMessage(msg)
	}
	for id, o := range d.offers {
		out.offers[id] = copyOffer(o)
	}
	return out
}

type Store struct {
	// txMu serialises writers: transactions and direct writes on the root store.
	txMu *sync.Mutex
	mu   sync.RWMutex
	data *data
	inTx bool
	now  func() time.Time
}

type Option func(*Store)

// WithClock sets the time source for timestamps the store fills in itself.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		txMu: &sync.Mutex{},
		data: newData(),
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Millisecond)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Conversations() repository.ConversationRepository {
	return conversations{s}
}

func (s *Store) Messages() repository.MessageRepository {
	return messages{s}
}

func (s *Store) Offers() repository.OfferRepository {
	return offers{s}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.inTx {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	tx := &Store{txMu: s.txMu, data: snapshot, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
	return nil
}

func (s *Store) read(fn func(d *data)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func (s *Store) write(fn func(d *data) error) error {
	if !s.inTx {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func copyConversation(cv model.Conversation) model.Conversation {
	cv.DeletedBy = cv.DeletedBy.Clone()
	if cv.ActiveOfferID != nil {
		id := *cv.ActiveOfferID
		cv.ActiveOfferID = &id
	}
	return cv
}

func copyMessage(msg model.Message) model.Message {
	if msg.OfferID != nil {
		id := *msg.OfferID
		msg.OfferID = &id
	}
	return msg
}

func copyOffer(o model.Offer) model.Offer {
	o.OfferedProducts = o.OfferedProducts.Clone()
	o.RequestedProducts = o.RequestedProducts.Clone()
	if o.OriginalOfferID != nil {
		id := *o.OriginalOfferID
		o.OriginalOfferID = &id
	}
	if o.InitialMessageID != nil {
		id := *o.InitialMessageID
		o.InitialMessageID = &id
	}
	return o
}

var _ repository.Store = (*Store)(nil)
