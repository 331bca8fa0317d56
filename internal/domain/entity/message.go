package entity

import "time"

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Rank orders statuses along the delivery lifecycle. Unknown values rank as sent.
func (s MessageStatus) Rank() int {
	switch s {
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	default:
		return 0
	}
}

// Normalize maps legacy or missing values onto the lifecycle.
func (s MessageStatus) Normalize() MessageStatus {
	switch s {
	case StatusDelivered, StatusRead:
		return s
	default:
		return StatusSent
	}
}

// CanAdvanceTo reports whether moving from s to next goes strictly forward.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	return next.Rank() > s.Rank()
}

// IsUnread is true until the recipient explicitly marks the message read.
func (s MessageStatus) IsUnread() bool {
	return s.Rank() < StatusRead.Rank()
}

type Message struct {
	ID           string        `json:"id" firestore:"-"`
	ChatID       string        `json:"chat_id" firestore:"chatId"`
	SenderID     string        `json:"sender_id" firestore:"senderId"`
	RecipientID  string        `json:"recipient_id" firestore:"recipientId"`
	Participants []string      `json:"-" firestore:"participants"`
	Text         string        `json:"text" firestore:"text"`
	Status       MessageStatus `json:"status" firestore:"status"`
	CreatedAt    time.Time     `json:"created_at" firestore:"createdAt"`
}

func (m *Message) Clone() *Message {
	c := *m
	if m.Participants != nil {
		c.Participants = append([]string(nil), m.Participants...)
	}
	return &c
}

// CounterpartOf returns the other participant relative to selfID, or "" when selfID is not a party.
func (m *Message) CounterpartOf(selfID string) string {
	switch selfID {
	case m.SenderID:
		if m.RecipientID == selfID {
			return ""
		}
		return m.RecipientID
	case m.RecipientID:
		return m.SenderID
	default:
		return ""
	}
}

// IsIncoming is true when selfID did not author the message.
func (m *Message) IsIncoming(selfID string) bool {
	return m.SenderID != selfID
}
