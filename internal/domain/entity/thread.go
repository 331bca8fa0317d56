package entity

// ThreadView is derived from the live message set and never persisted.
type ThreadView struct {
	CounterpartID   string     `json:"counterpart_id"`
	UnreadCount     int        `json:"unread_count"`
	LastMessage     *Message   `json:"last_message"`
	OrderedMessages []*Message `json:"ordered_messages"`
}
