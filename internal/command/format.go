package command

import (
	"encoding/json"
	"fmt"
	"io"

	"chatsync/internal/domain/entity"
)

const timeLayout = "2006-01-02 15:04:05"

func writeJSON(out io.Writer, v interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// FormatMessage renders one message from selfID's point of view.
func FormatMessage(m *entity.Message, selfID string) string {
	direction := "<-"
	if !m.IsIncoming(selfID) {
		direction = "->"
	}
	return fmt.Sprintf("[%s] %s %s %s (%s)",
		m.CreatedAt.Local().Format(timeLayout), direction, m.CounterpartOf(selfID), m.Text, m.Status)
}

func FormatThread(t *entity.ThreadView) string {
	last := ""
	if t.LastMessage != nil {
		last = t.LastMessage.Text
	}
	return fmt.Sprintf("%-24s unread=%-3d %s", t.CounterpartID, t.UnreadCount, last)
}
