package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfferStatus_CanTransition(t *testing.T) {
	all := []OfferStatus{OfferStatusPending, OfferStatusAccepted, OfferStatusRejected, OfferStatusWithdrawn, OfferStatusCounterSent}
	for _, from := range all {
		for _, to := range all {
			want := from == OfferStatusPending && to != OfferStatusPending
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestOfferStatus_ClosesChain(t *testing.T) {
	assert.True(t, OfferStatusAccepted.ClosesChain())
	assert.True(t, OfferStatusCounterSent.ClosesChain())
	assert.False(t, OfferStatusPending.ClosesChain())
	assert.False(t, OfferStatusRejected.ClosesChain())
	assert.False(t, OfferStatusWithdrawn.ClosesChain())
}

func TestParseOfferStatus(t *testing.T) {
	st, ok := ParseOfferStatus("counter_sent")
	assert.True(t, ok)
	assert.Equal(t, OfferStatusCounterSent, st)

	_, ok = ParseOfferStatus("Pending")
	assert.False(t, ok)
	_, ok = ParseOfferStatus("")
	assert.False(t, ok)
}

func TestParseOfferType(t *testing.T) {
	tests := []struct {
		raw  string
		want OfferType
		ok   bool
	}{
		{"", OfferTypeMixed, true},
		{"mixed", OfferTypeMixed, true},
		{"cash", OfferTypeCash, true},
		{"product", OfferTypeProduct, true},
		{"barter", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseOfferType(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewProductRefs_DropsEmptyAndDuplicates(t *testing.T) {
	refs := NewProductRefs([]string{"p2", "", "p1", "p2", "p3", "p1"})
	assert.Equal(t, ProductRefs{"p2", "p1", "p3"}, refs)
	assert.Empty(t, NewProductRefs(nil))
}

func TestProductRefs_CloneIsIndependent(t *testing.T) {
	refs := ProductRefs{"a", "b"}
	cp := refs.Clone()
	cp[0] = "z"
	assert.Equal(t, "a", refs[0])
}

func TestOffer_IsParty(t *testing.T) {
	o := Offer{OfferedBy: "alice", OfferedTo: "bob"}
	assert.True(t, o.IsParty("alice"))
	assert.True(t, o.IsParty("bob"))
	assert.False(t, o.IsParty("carol"))
	assert.False(t, o.IsParty(""))
}
