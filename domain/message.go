// Package domain contains core concepts of the relay.
// This file defines Message entities and the conversation rules.
// Messages are immutable once stored.
package domain

import (
	"time"
)

// Message is one direct message between two users.
// JSON names follow the wire format clients already consume.
type Message struct {
	ID         string    `json:"MessageId"`
	SenderID   UserID    `json:"SenderId"`
	ReceiverID UserID    `json:"ReceiverId"`
	Content    string    `json:"Message"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Conversation identifies the unordered pair of users exchanging messages.
// Conversation(a, b) and Conversation(b, a) are equal.
type Conversation struct {
	Low  UserID
	High UserID
}

func NewConversation(a, b UserID) Conversation {
	if b < a {
		a, b = b, a
	}
	return Conversation{Low: a, High: b}
}
