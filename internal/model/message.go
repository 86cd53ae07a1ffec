package model

import "time"

type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"column:conversation_id;size:36;not null;index:idx_conv_created,priority:1" json:"conversationId"`
	SenderUID      string    `gorm:"column:sender_uid;size:128;not null;index" json:"senderUid"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	OfferID        *string   `gorm:"column:offer_id;size:36;index" json:"offerId,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index:idx_conv_created,priority:2" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}

// Before reports whether m sorts before other in log order.
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}
