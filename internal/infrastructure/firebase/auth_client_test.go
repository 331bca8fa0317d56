package firebase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/usecase"
)

func TestIdentityFromClaims(t *testing.T) {
	identity := IdentityFromClaims("u1", map[string]interface{}{
		"email":   "a@example.com",
		"picture": "https://cdn.example.com/a.png",
		"name":    "ignored",
	})

	assert.Equal(t, &usecase.Identity{UID: "u1", Email: "a@example.com", PhotoURL: "https://cdn.example.com/a.png"}, identity)
	assert.Equal(t, &usecase.Identity{UID: "u2"}, IdentityFromClaims("u2", nil))
}

type fixedVerifier struct{ uid string }

func (v fixedVerifier) VerifyToken(ctx context.Context, token string) (*usecase.Identity, error) {
	return &usecase.Identity{UID: v.uid}, nil
}

func TestDevTokenVerifier(t *testing.T) {
	ctx := context.Background()

	devOnly := NewDevTokenVerifier(nil)
	identity, err := devOnly.VerifyToken(ctx, "dev:alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.UID)
	assert.Equal(t, "alice@dev.local", identity.Email)

	_, err = devOnly.VerifyToken(ctx, "dev: ")
	assert.Error(t, err)
	_, err = devOnly.VerifyToken(ctx, "eyJhbGciOi...")
	assert.Error(t, err)

	chained := NewDevTokenVerifier(fixedVerifier{uid: "firebase-user"})
	identity, err = chained.VerifyToken(ctx, "eyJhbGciOi...")
	require.NoError(t, err)
	assert.Equal(t, "firebase-user", identity.UID)
}
