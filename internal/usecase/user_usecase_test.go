package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/domain/entity"
	"chatsync/pkg/errors"
)

func TestRegisterProfileAssignsPlaceholderPhoto(t *testing.T) {
	ctx := context.Background()
	uc := NewUserUseCase(newFixture(t).userRepo)

	user, err := uc.RegisterProfile(ctx, "u1", RegisterProfileInput{Email: " Alice@Example.com "})
	require.NoError(t, err)

	assert.Equal(t, "Alice@Example.com", user.Email)
	assert.Equal(t, PlaceholderPhotoURL("alice@example.com"), user.PhotoURL)
	assert.Contains(t, user.PhotoURL, "d=identicon")
	assert.False(t, user.CreatedAt.IsZero())

	withPhoto, err := uc.RegisterProfile(ctx, "u2", RegisterProfileInput{Email: "bob@example.com", PhotoURL: "https://cdn.example.com/bob.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/bob.png", withPhoto.PhotoURL)
}

func TestRegisterProfileValidatesInput(t *testing.T) {
	uc := NewUserUseCase(newFixture(t).userRepo)

	_, err := uc.RegisterProfile(context.Background(), "", RegisterProfileInput{Email: "a@example.com"})
	assert.True(t, errors.Is(err, errors.CodeInvalidArgument))

	_, err = uc.RegisterProfile(context.Background(), "u1", RegisterProfileInput{})
	assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
}

func TestRegisterProfileKeepsPresence(t *testing.T) {
	ctx := context.Background()
	uc := NewUserUseCase(newFixture(t).userRepo)

	_, err := uc.RegisterProfile(ctx, "u1", RegisterProfileInput{Email: "a@example.com"})
	require.NoError(t, err)
	require.NoError(t, uc.SetPresence(ctx, "u1", true))

	_, err = uc.RegisterProfile(ctx, "u1", RegisterProfileInput{Email: "new@example.com"})
	require.NoError(t, err)

	user, err := uc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.True(t, user.Online)
	assert.False(t, user.LastSeen.IsZero())
}

func TestListContactsExcludesSelf(t *testing.T) {
	ctx := context.Background()
	uc := NewUserUseCase(newFixture(t).userRepo)

	for i, email := range []string{"carol@example.com", "alice@example.com", "bob@example.com"} {
		_, err := uc.RegisterProfile(ctx, fmt.Sprintf("u%d", i), RegisterProfileInput{Email: email})
		require.NoError(t, err)
	}

	contacts, err := uc.ListContacts(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, contacts, 2)
	assert.Equal(t, "bob@example.com", contacts[0].Email)
	assert.Equal(t, "carol@example.com", contacts[1].Email)
}

func TestGetProfileNotFound(t *testing.T) {
	uc := NewUserUseCase(newFixture(t).userRepo)

	_, err := uc.GetProfile(context.Background(), "ghost")

	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestSetPresenceTogglesOnline(t *testing.T) {
	ctx := context.Background()
	uc := NewUserUseCase(newFixture(t).userRepo)

	require.NoError(t, uc.SetPresence(ctx, "u1", true))
	user, err := uc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.Online)

	require.NoError(t, uc.SetPresence(ctx, "u1", false))
	user, err = uc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, user.Online)
}

func TestSubscribeProfileFollowsPresence(t *testing.T) {
	ctx := context.Background()
	uc := NewUserUseCase(newFixture(t).userRepo)

	var mu sync.Mutex
	var latest *entity.User
	stop, err := uc.SubscribeProfile(ctx, "u1", func(user *entity.User) {
		mu.Lock()
		defer mu.Unlock()
		latest = user
	})
	require.NoError(t, err)

	_, err = uc.RegisterProfile(ctx, "u1", RegisterProfileInput{Email: "u1@example.com"})
	require.NoError(t, err)
	require.NoError(t, uc.SetPresence(ctx, "u1", true))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return latest != nil && latest.Email == "u1@example.com" && latest.Online
	}, time.Second, 5*time.Millisecond)

	stop()
	stop()

	_, err = uc.SubscribeProfile(ctx, " ", func(*entity.User) {})
	assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
}
