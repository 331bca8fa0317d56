package usecase

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/pkg/errors"
)

type stubVerifier map[string]*Identity

func (v stubVerifier) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	identity, ok := v[token]
	if !ok {
		return nil, stderrors.New("token expired")
	}
	return identity, nil
}

func TestAuthenticate(t *testing.T) {
	verifier := stubVerifier{
		"good":    {UID: "u1", Email: "a@example.com"},
		"no-user": {},
	}
	uc := NewAuthUseCase(verifier, NewUserUseCase(newFixture(t).userRepo))

	identity, err := uc.Authenticate(context.Background(), " good ")
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.UID)

	for _, token := range []string{"", "bad", "no-user"} {
		_, err := uc.Authenticate(context.Background(), token)
		assert.True(t, errors.Is(err, errors.CodeUnauthorized), token)
	}
}

func TestEnsureProfileRegistersOnce(t *testing.T) {
	ctx := context.Background()
	userUseCase := NewUserUseCase(newFixture(t).userRepo)
	uc := NewAuthUseCase(stubVerifier{}, userUseCase)

	user, err := uc.EnsureProfile(ctx, &Identity{UID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)
	assert.NotEmpty(t, user.PhotoURL)

	// Later sign-ins do not overwrite the stored profile.
	user, err = uc.EnsureProfile(ctx, &Identity{UID: "u1", Email: "changed@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)

	user, err = uc.EnsureProfile(ctx, &Identity{UID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, "u2", user.Email)
}
