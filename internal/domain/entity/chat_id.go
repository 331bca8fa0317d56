package entity

import (
	"strings"

	"chatsync/pkg/errors"
)

// ChatIDSeparator joins the two participant ids. Participant ids must not contain it.
const ChatIDSeparator = "_"

// DeriveChatID returns the conversation id for an unordered pair of participants:
// the lexicographically smaller id, the separator, then the larger one.
func DeriveChatID(idA, idB string) (string, error) {
	if strings.TrimSpace(idA) == "" || strings.TrimSpace(idB) == "" {
		return "", errors.InvalidArgument("participant id must not be empty")
	}
	if idA > idB {
		idA, idB = idB, idA
	}
	return idA + ChatIDSeparator + idB, nil
}
