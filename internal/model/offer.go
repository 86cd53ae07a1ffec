package model

import "time"

type OfferStatus string

const (
	OfferStatusPending     OfferStatus = "pending"
	OfferStatusAccepted    OfferStatus = "accepted"
	OfferStatusRejected    OfferStatus = "rejected"
	OfferStatusWithdrawn   OfferStatus = "withdrawn"
	OfferStatusCounterSent OfferStatus = "counter_sent"
)

func ParseOfferStatus(raw string) (OfferStatus, bool) {
	switch st := OfferStatus(raw); st {
	case OfferStatusPending, OfferStatusAccepted, OfferStatusRejected, OfferStatusWithdrawn, OfferStatusCounterSent:
		return st, true
	}
	return "", false
}

// CanTransition reports whether an offer may move from s to next. Only
// Pending has outgoing edges; nothing re-enters Pending.
func (s OfferStatus) CanTransition(next OfferStatus) bool {
	if s != OfferStatusPending {
		return false
	}
	switch next {
	case OfferStatusAccepted, OfferStatusRejected, OfferStatusWithdrawn, OfferStatusCounterSent:
		return true
	}
	return false
}

// ClosesChain reports whether an offer in this status marks its chain as settled.
func (s OfferStatus) ClosesChain() bool {
	return s == OfferStatusAccepted || s == OfferStatusCounterSent
}

type OfferType string

const (
	OfferTypeProduct OfferType = "product"
	OfferTypeCash    OfferType = "cash"
	OfferTypeMixed   OfferType = "mixed"
)

func ParseOfferType(raw string) (OfferType, bool) {
	switch t := OfferType(raw); t {
	case "":
		return OfferTypeMixed, true
	case OfferTypeProduct, OfferTypeCash, OfferTypeMixed:
		return t, true
	}
	return "", false
}

type Offer struct {
	ID                string      `gorm:"primaryKey;size:36" json:"id"`
	OfferedBy         string      `gorm:"column:offered_by;size:128;not null;index" json:"offeredBy"`
	OfferedTo         string      `gorm:"column:offered_to;size:128;not null;index" json:"offeredTo"`
	OfferedProducts   ProductRefs `gorm:"column:offered_products;type:json;serializer:json" json:"offeredProducts"`
	RequestedProducts ProductRefs `gorm:"column:requested_products;type:json;serializer:json" json:"requestedProducts"`
	OfferedCash       int64       `gorm:"column:offered_cash;not null;default:0" json:"offeredCash"`
	RequestedCash     int64       `gorm:"column:requested_cash;not null;default:0" json:"requestedCash"`
	Type              OfferType   `gorm:"column:type;size:16;not null" json:"type"`
	Status            OfferStatus `gorm:"column:status;size:32;not null;index:idx_conv_status,priority:2" json:"status"`
	IsCounterOffer    bool        `gorm:"column:is_counter_offer;not null;default:false" json:"isCounterOffer"`
	OriginalOfferID   *string     `gorm:"column:original_offer_id;size:36;index" json:"originalOfferId"`
	ConversationID    string      `gorm:"column:conversation_id;size:36;not null;index:idx_conv_status,priority:1" json:"conversationId"`
	InitialMessageID  *string     `gorm:"column:initial_message_id;size:36" json:"initialMessageId"`
	CreatedAt         time.Time   `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt         time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Offer) TableName() string {
	return "offers"
}

func (o *Offer) IsParty(uid string) bool {
	return uid != "" && (o.OfferedBy == uid || o.OfferedTo == uid)
}

// Before reports whether o was created before other.
func (o *Offer) Before(other *Offer) bool {
	if !o.CreatedAt.Equal(other.CreatedAt) {
		return o.CreatedAt.Before(other.CreatedAt)
	}
	return o.ID < other.ID
}

// ProductRefs holds opaque product references; duplicates are dropped and
// the original order is kept.
type ProductRefs []string

func NewProductRefs(refs []string) ProductRefs {
	seen := make(map[string]struct{}, len(refs))
	out := make(ProductRefs, 0, len(refs))
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func (p ProductRefs) Clone() ProductRefs {
	return append(ProductRefs{}, p...)
}
