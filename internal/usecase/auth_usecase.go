package usecase

import (
	"context"
	"strings"

	"chatsync/internal/domain/entity"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

// AuthUseCase turns a bearer token into the authenticated uid that every
// other use case takes explicitly.
type AuthUseCase struct {
	verifier    TokenVerifier
	userUseCase *UserUseCase
}

func NewAuthUseCase(verifier TokenVerifier, userUseCase *UserUseCase) *AuthUseCase {
	return &AuthUseCase{
		verifier:    verifier,
		userUseCase: userUseCase,
	}
}

func (uc *AuthUseCase) Authenticate(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.Unauthorized("Missing token", nil)
	}

	identity, err := uc.verifier.VerifyToken(ctx, token)
	if err != nil {
		logger.Debug("Authenticate: token rejected: %v", err)
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}
	if identity.UID == "" {
		return nil, errors.Unauthorized("Token carries no user id", nil)
	}

	return identity, nil
}

// EnsureProfile writes the profile document the first time a user shows up.
// Later calls leave the stored profile untouched.
func (uc *AuthUseCase) EnsureProfile(ctx context.Context, identity *Identity) (*entity.User, error) {
	user, err := uc.userUseCase.GetProfile(ctx, identity.UID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}

	email := identity.Email
	if email == "" {
		// Accounts without an email still need a sortable contact entry.
		email = identity.UID
	}

	user, err = uc.userUseCase.RegisterProfile(ctx, identity.UID, RegisterProfileInput{
		Email:    email,
		PhotoURL: identity.PhotoURL,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Registered profile for %s", identity.UID)
	return user, nil
}
