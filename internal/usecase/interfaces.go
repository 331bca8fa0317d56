package usecase

import "context"

// Identity is what a verified ID token tells us about its bearer.
type Identity struct {
	UID      string
	Email    string
	PhotoURL string
}

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}
