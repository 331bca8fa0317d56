package entity

import "time"

// ChatSummary is the per-pair thread record. Concurrent first contacts may leave
// more than one row with the same ChatID.
type ChatSummary struct {
	ID            string    `json:"id" firestore:"-"`
	ChatID        string    `json:"chat_id" firestore:"chatId"`
	Participants  []string  `json:"participants" firestore:"participants"`
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`
	LastMessageAt time.Time `json:"last_message_at" firestore:"lastMessageAt"`
}

// CounterpartOf returns the participant that is not selfID.
func (c *ChatSummary) CounterpartOf(selfID string) string {
	for _, p := range c.Participants {
		if p != selfID {
			return p
		}
	}
	return ""
}

// PickSummary chooses the canonical row among duplicates: the most recently
// created one, the later row winning ties.
func PickSummary(rows []*ChatSummary) *ChatSummary {
	var picked *ChatSummary
	for _, row := range rows {
		if row == nil {
			continue
		}
		if picked == nil || !row.CreatedAt.Before(picked.CreatedAt) {
			picked = row
		}
	}
	return picked
}

// DedupeSummaries collapses rows sharing a ChatID using PickSummary, keeping
// the position of each chat's first row.
func DedupeSummaries(rows []*ChatSummary) []*ChatSummary {
	groups := make(map[string][]*ChatSummary)
	var order []string
	for _, row := range rows {
		if row == nil {
			continue
		}
		if _, seen := groups[row.ChatID]; !seen {
			order = append(order, row.ChatID)
		}
		groups[row.ChatID] = append(groups[row.ChatID], row)
	}

	result := make([]*ChatSummary, 0, len(order))
	for _, chatID := range order {
		result = append(result, PickSummary(groups[chatID]))
	}
	return result
}
