package model

import "time"

type Conversation struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	MemberA        string    `gorm:"column:member_a;size:128;not null;uniqueIndex:uniq_members" json:"-"`
	MemberB        string    `gorm:"column:member_b;size:128;not null;uniqueIndex:uniq_members;index" json:"-"`
	LastMessage    string    `gorm:"column:last_message;type:text" json:"lastMessage"`
	ActiveOfferID  *string   `gorm:"column:active_offer_id;size:36" json:"activeOfferId"`
	DeletedBy      UserSet   `gorm:"column:deleted_by;type:json;serializer:json" json:"deletedBy"`
	LastActivityAt time.Time `gorm:"column:last_activity_at;index" json:"lastActivityAt"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// MemberPair normalises two user ids so that the smaller one comes first.
func MemberPair(userA, userB string) (string, string) {
	if userB < userA {
		return userB, userA
	}
	return userA, userB
}

func (c *Conversation) Members() []string {
	return []string{c.MemberA, c.MemberB}
}

func (c *Conversation) HasMember(uid string) bool {
	return uid != "" && (c.MemberA == uid || c.MemberB == uid)
}

// Peer returns the member that is not uid, or "" when uid is not a member.
func (c *Conversation) Peer(uid string) string {
	switch uid {
	case c.MemberA:
		return c.MemberB
	case c.MemberB:
		return c.MemberA
	}
	return ""
}

// VisibleTo reports whether uid is a member that has not hidden the conversation.
func (c *Conversation) VisibleTo(uid string) bool {
	return c.HasMember(uid) && !c.DeletedBy.Has(uid)
}

// HiddenByAll reports whether every member has hidden the conversation, at
// which point it must be destroyed.
func (c *Conversation) HiddenByAll() bool {
	return c.DeletedBy.ContainsAll(c.Members()...)
}
