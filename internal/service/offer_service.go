package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shinyyama/swap-backend/internal/model"
	"github.com/shinyyama/swap-backend/internal/repository"
)

// maxChainDepth bounds walks over originalOfferId links.
const maxChainDepth = 256

type OfferService interface {
	Create(ctx context.Context, offeredBy string, in CreateOfferInput) (*OfferResult, error)
	Get(ctx context.Context, offerID, uid string) (*model.Offer, error)
	GetChain(ctx context.Context, offerID, uid string) (*OfferChain, error)
	GetChainTree(ctx context.Context, offerID, uid string) (*OfferTree, error)
	Accept(ctx context.Context, offerID, actor string) (*model.Offer, error)
	Reject(ctx context.Context, offerID, actor string) (*model.Offer, error)
	Withdraw(ctx context.Context, offerID, actor string) (*model.Offer, error)
	Counter(ctx context.Context, offerID, actor string, terms OfferTerms) (*OfferResult, error)
	Delete(ctx context.Context, offerID, actor string) error
	ListSent(ctx context.Context, uid, status string) ([]model.Offer, error)
	ListReceived(ctx context.Context, uid, status string) ([]model.Offer, error)
}

// OfferTerms describes what changes hands. Nil cash fields mean "not
// given", which matters for counters.
type OfferTerms struct {
	OfferedProducts   []string
	RequestedProducts []string
	OfferedCash       *int64
	RequestedCash     *int64
	Type              string
	Message           string
}

type CreateOfferInput struct {
	OfferedTo string
	OfferTerms
}

type OfferResult struct {
	Offer   *model.Offer
	Message *model.Message
}

// OfferChain is the named offer and its direct counter-offers.
type OfferChain struct {
	Offer         model.Offer
	Chain         []model.Offer
	IsChainClosed bool
}

type ChainNode struct {
	Offer    model.Offer
	Counters []*ChainNode
}

// OfferTree is the whole negotiation an offer belongs to, from its root.
type OfferTree struct {
	Root          *ChainNode
	Size          int
	IsChainClosed bool
}

type offerService struct {
	*Core
}

func NewOfferService(core *Core) OfferService {
	return &offerService{Core: core}
}

func (s *offerService) Create(ctx context.Context, offeredBy string, in CreateOfferInput) (*OfferResult, error) {
	if offeredBy == in.OfferedTo {
		return nil, invalidOperation("cannot make an offer to yourself")
	}
	offer, err := buildOffer(in.OfferTerms, nil)
	if err != nil {
		return nil, err
	}
	offer.OfferedBy = offeredBy
	offer.OfferedTo = in.OfferedTo

	var msg *model.Message
	cv, err := s.inPairConversation(ctx, offeredBy, in.OfferedTo, func(tx repository.Store, cv *model.Conversation) error {
		var err error
		msg, err = s.persistOffer(ctx, tx, cv, offer, in.Message)
		if err != nil {
			return err
		}
		if cv.ActiveOfferID == nil {
			id := offer.ID
			cv.ActiveOfferID = &id
		}
		return tx.Conversations().Update(ctx, cv)
	})
	if err != nil {
		return nil, err
	}
	s.deliverMessage(cv, msg)
	s.logger.Info("offer created", "offer_id", offer.ID, "conversation_id", cv.ID, "offered_by", offeredBy, "offered_to", in.OfferedTo)
	return &OfferResult{Offer: offer, Message: msg}, nil
}

// persistOffer stores a new pending offer in cv and, when text is given,
// the message announcing it.
func (s *offerService) persistOffer(ctx context.Context, tx repository.Store, cv *model.Conversation, offer *model.Offer, text string) (*model.Message, error) {
	offer.ID = newID()
	offer.ConversationID = cv.ID
	offer.Status = model.OfferStatusPending
	offer.CreatedAt = s.now()
	offer.UpdatedAt = offer.CreatedAt
	if err := tx.Offers().Create(ctx, offer); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	id := offer.ID
	msg, err := s.appendMessage(ctx, tx, cv, offer.OfferedBy, text, &id)
	if err != nil {
		return nil, err
	}
	msgID := msg.ID
	offer.InitialMessageID = &msgID
	if err := tx.Offers().Update(ctx, offer); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *offerService) Get(ctx context.Context, offerID, uid string) (*model.Offer, error) {
	offer, err := s.loadOffer(ctx, s.store, offerID)
	if err != nil {
		return nil, err
	}
	if !offer.IsParty(uid) {
		return nil, forbidden("not a party to this offer")
	}
	return offer, nil
}

func (s *offerService) GetChain(ctx context.Context, offerID, uid string) (*OfferChain, error) {
	offer, err := s.Get(ctx, offerID, uid)
	if err != nil {
		return nil, err
	}
	children, err := s.store.Offers().ListChildren(ctx, offer.ID)
	if err != nil {
		return nil, err
	}
	chain := &OfferChain{
		Offer: *offer,
		Chain: append([]model.Offer{*offer}, children...),
	}
	for _, o := range chain.Chain {
		if o.Status.ClosesChain() {
			chain.IsChainClosed = true
			break
		}
	}
	return chain, nil
}

func (s *offerService) GetChainTree(ctx context.Context, offerID, uid string) (*OfferTree, error) {
	offer, err := s.Get(ctx, offerID, uid)
	if err != nil {
		return nil, err
	}
	root := offer
	seen := map[string]bool{root.ID: true}
	for depth := 0; root.OriginalOfferID != nil && depth < maxChainDepth; depth++ {
		parent, err := s.store.Offers().FindByID(ctx, *root.OriginalOfferID)
		if errors.Is(err, repository.ErrNotFound) {
			// Deleted ancestors end the walk; the oldest survivor is the root.
			break
		}
		if err != nil {
			return nil, err
		}
		if seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		root = parent
	}

	tree := &OfferTree{}
	visited := make(map[string]bool)
	tree.Root, err = s.buildNode(ctx, *root, visited, 0, tree)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func (s *offerService) buildNode(ctx context.Context, offer model.Offer, visited map[string]bool, depth int, tree *OfferTree) (*ChainNode, error) {
	visited[offer.ID] = true
	tree.Size++
	if offer.Status.ClosesChain() {
		tree.IsChainClosed = true
	}
	node := &ChainNode{Offer: offer}
	if depth >= maxChainDepth {
		return node, nil
	}
	children, err := s.store.Offers().ListChildren(ctx, offer.ID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if visited[child.ID] {
			continue
		}
		childNode, err := s.buildNode(ctx, child, visited, depth+1, tree)
		if err != nil {
			return nil, err
		}
		node.Counters = append(node.Counters, childNode)
	}
	return node, nil
}

func (s *offerService) Accept(ctx context.Context, offerID, actor string) (*model.Offer, error) {
	var withdrawn int64
	offer, err := s.transition(ctx, offerID, func(tx repository.Store, _ *model.Conversation, offer *model.Offer) error {
		if offer.OfferedTo != actor {
			return forbidden("only the recipient can accept this offer")
		}
		if err := s.setStatus(ctx, tx, offer, model.OfferStatusAccepted); err != nil {
			return err
		}
		var err error
		withdrawn, err = tx.Offers().WithdrawPendingExcept(ctx, offer.ConversationID, offer.ID, offer.UpdatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("offer accepted", "offer_id", offer.ID, "conversation_id", offer.ConversationID, "withdrawn_rivals", withdrawn)
	return offer, nil
}

func (s *offerService) Reject(ctx context.Context, offerID, actor string) (*model.Offer, error) {
	offer, err := s.transition(ctx, offerID, func(tx repository.Store, _ *model.Conversation, offer *model.Offer) error {
		if offer.OfferedTo != actor {
			return forbidden("only the recipient can reject this offer")
		}
		return s.setStatus(ctx, tx, offer, model.OfferStatusRejected)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("offer rejected", "offer_id", offer.ID)
	return offer, nil
}

func (s *offerService) Withdraw(ctx context.Context, offerID, actor string) (*model.Offer, error) {
	offer, err := s.transition(ctx, offerID, func(tx repository.Store, _ *model.Conversation, offer *model.Offer) error {
		if offer.OfferedBy != actor {
			return forbidden("only the sender can withdraw this offer")
		}
		return s.setStatus(ctx, tx, offer, model.OfferStatusWithdrawn)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("offer withdrawn", "offer_id", offer.ID)
	return offer, nil
}

func (s *offerService) Counter(ctx context.Context, offerID, actor string, terms OfferTerms) (*OfferResult, error) {
	var (
		counter *model.Offer
		msg     *model.Message
		conv    *model.Conversation
	)
	_, err := s.transition(ctx, offerID, func(tx repository.Store, cv *model.Conversation, original *model.Offer) error {
		if original.OfferedTo != actor {
			return forbidden("only the recipient can counter this offer")
		}
		if cv == nil {
			return invalidState("the conversation of this offer was deleted")
		}
		switch original.Status {
		case model.OfferStatusAccepted, model.OfferStatusWithdrawn:
			return invalidState("cannot counter an offer that is %s", original.Status)
		case model.OfferStatusPending:
			if err := s.setStatus(ctx, tx, original, model.OfferStatusCounterSent); err != nil {
				return err
			}
		}

		var err error
		counter, err = buildOffer(terms, original)
		if err != nil {
			return err
		}
		counter.OfferedBy = actor
		counter.OfferedTo = original.OfferedBy
		counter.IsCounterOffer = true
		parentID := original.ID
		counter.OriginalOfferID = &parentID

		msg, err = s.persistOffer(ctx, tx, cv, counter, terms.Message)
		if err != nil {
			return err
		}
		activeID := counter.ID
		cv.ActiveOfferID = &activeID
		conv = cv
		return tx.Conversations().Update(ctx, cv)
	})
	if err != nil {
		return nil, err
	}
	s.deliverMessage(conv, msg)
	s.logger.Info("counter offer created", "offer_id", counter.ID, "original_offer_id", offerID, "conversation_id", counter.ConversationID)
	return &OfferResult{Offer: counter, Message: msg}, nil
}

func (s *offerService) Delete(ctx context.Context, offerID, actor string) error {
	_, err := s.transition(ctx, offerID, func(tx repository.Store, _ *model.Conversation, offer *model.Offer) error {
		if offer.OfferedBy != actor {
			return forbidden("only the sender can delete this offer")
		}
		if offer.Status == model.OfferStatusAccepted {
			return invalidState("accepted offers cannot be deleted")
		}
		return tx.Offers().Delete(ctx, offerID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("offer deleted", "offer_id", offerID)
	return nil
}

func (s *offerService) ListSent(ctx context.Context, uid, status string) ([]model.Offer, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.store.Offers().ListBySender(ctx, uid, st)
}

func (s *offerService) ListReceived(ctx context.Context, uid, status string) ([]model.Offer, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.store.Offers().ListByRecipient(ctx, uid, st)
}

// transition loads the offer, then re-reads it inside its conversation's
// transaction and hands it to fn. Whatever fn changes commits atomically.
// Offers outlive their conversation, so cv is nil once both members have
// hidden it.
func (s *offerService) transition(ctx context.Context, offerID string, fn func(tx repository.Store, cv *model.Conversation, offer *model.Offer) error) (*model.Offer, error) {
	offer, err := s.loadOffer(ctx, s.store, offerID)
	if err != nil {
		return nil, err
	}
	var out *model.Offer
	err = s.lockConversation(ctx, offer.ConversationID, func(tx repository.Store, cv *model.Conversation) error {
		current, err := s.loadOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if err := fn(tx, cv, current); err != nil {
			return err
		}
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *offerService) setStatus(ctx context.Context, tx repository.Store, offer *model.Offer, next model.OfferStatus) error {
	if !offer.Status.CanTransition(next) {
		return invalidState("offer is %s, not pending", offer.Status)
	}
	offer.Status = next
	offer.UpdatedAt = s.now()
	return tx.Offers().Update(ctx, offer)
}

func (s *offerService) loadOffer(ctx context.Context, store repository.Store, offerID string) (*model.Offer, error) {
	offer, err := store.Offers().FindByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("offer not found")
		}
		return nil, err
	}
	return offer, nil
}

// buildOffer validates terms into an unsaved offer. When mirror is set,
// omitted sides default to the mirror image of that offer: what I give
// defaults to what was asked of me and what I ask for defaults to what I
// was offered.
func buildOffer(terms OfferTerms, mirror *model.Offer) (*model.Offer, error) {
	typ, ok := model.ParseOfferType(terms.Type)
	if !ok {
		return nil, invalidOperation("unknown offer type %q", terms.Type)
	}
	offered := model.NewProductRefs(terms.OfferedProducts)
	requested := model.NewProductRefs(terms.RequestedProducts)
	var offeredCash, requestedCash int64
	if terms.OfferedCash != nil {
		offeredCash = *terms.OfferedCash
	}
	if terms.RequestedCash != nil {
		requestedCash = *terms.RequestedCash
	}
	if mirror != nil {
		if len(offered) == 0 {
			offered = mirror.RequestedProducts.Clone()
		}
		if len(requested) == 0 {
			requested = mirror.OfferedProducts.Clone()
		}
		if terms.OfferedCash == nil {
			offeredCash = mirror.RequestedCash
		}
		if terms.RequestedCash == nil {
			requestedCash = mirror.OfferedCash
		}
	}

	if offeredCash < 0 || requestedCash < 0 {
		return nil, invalidOperation("cash amounts cannot be negative")
	}
	hasProducts := len(offered) > 0 || len(requested) > 0
	switch typ {
	case model.OfferTypeCash:
		if offeredCash+requestedCash <= 0 {
			return nil, invalidOperation("a cash offer needs a positive amount")
		}
	case model.OfferTypeProduct:
		if !hasProducts {
			return nil, invalidOperation("a product offer needs at least one product")
		}
	default:
		if !hasProducts && offeredCash+requestedCash <= 0 {
			return nil, invalidOperation("offer has no terms")
		}
	}
	return &model.Offer{
		OfferedProducts:   offered,
		RequestedProducts: requested,
		OfferedCash:       offeredCash,
		RequestedCash:     requestedCash,
		Type:              typ,
	}, nil
}

func parseStatusFilter(raw string) (model.OfferStatus, error) {
	if raw == "" {
		return "", nil
	}
	st, ok := model.ParseOfferStatus(raw)
	if !ok {
		return "", invalidOperation("unknown offer status %q", raw)
	}
	return st, nil
}
