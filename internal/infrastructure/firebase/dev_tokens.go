package firebase

import (
	"context"
	"fmt"
	"strings"

	"chatsync/internal/usecase"
)

// DevTokenPrefix marks tokens accepted without a Firebase round trip.
const DevTokenPrefix = "dev:"

// DevTokenVerifier accepts "dev:<uid>" tokens, for local runs against the
// in-memory store. Anything else goes to next, when set.
type DevTokenVerifier struct {
	next usecase.TokenVerifier
}

func NewDevTokenVerifier(next usecase.TokenVerifier) *DevTokenVerifier {
	return &DevTokenVerifier{next: next}
}

func (v *DevTokenVerifier) VerifyToken(ctx context.Context, token string) (*usecase.Identity, error) {
	if uid, ok := strings.CutPrefix(token, DevTokenPrefix); ok {
		uid = strings.TrimSpace(uid)
		if uid == "" {
			return nil, fmt.Errorf("dev token carries no uid")
		}
		return &usecase.Identity{UID: uid, Email: uid + "@dev.local"}, nil
	}

	if v.next == nil {
		return nil, fmt.Errorf("only dev tokens are accepted")
	}
	return v.next.VerifyToken(ctx, token)
}
