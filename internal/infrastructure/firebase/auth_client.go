package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"chatsync/internal/usecase"
)

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (*usecase.Identity, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return IdentityFromClaims(result.UID, result.Claims), nil
}

// IdentityFromClaims reads the profile claims Firebase puts in ID tokens.
func IdentityFromClaims(uid string, claims map[string]interface{}) *usecase.Identity {
	identity := &usecase.Identity{UID: uid}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if picture, ok := claims["picture"].(string); ok {
		identity.PhotoURL = picture
	}
	return identity
}
