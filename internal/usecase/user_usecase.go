package usecase

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

const placeholderAvatarURL = "https://www.gravatar.com/avatar/%s?d=identicon"

type UserUseCase struct {
	userRepo repository.UserRepository
}

func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
	}
}

// ProfileFunc receives the current profile, or nil while it does not exist.
type ProfileFunc func(user *entity.User)

type RegisterProfileInput struct {
	Email    string
	PhotoURL string
}

// PlaceholderPhotoURL derives a stable avatar for users without a photo.
func PlaceholderPhotoURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf(placeholderAvatarURL, hex.EncodeToString(sum[:]))
}

// RegisterProfile writes the profile document of an authenticated user.
// Presence and the creation time survive re-registration.
func (uc *UserUseCase) RegisterProfile(ctx context.Context, userID string, input RegisterProfileInput) (*entity.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.InvalidArgument("user id must not be empty")
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, errors.InvalidArgument("email must not be empty")
	}

	photo := strings.TrimSpace(input.PhotoURL)
	if photo == "" {
		photo = PlaceholderPhotoURL(email)
	}

	user := &entity.User{
		ID:       userID,
		Email:    email,
		PhotoURL: photo,
	}
	if err := uc.userRepo.Upsert(ctx, user); err != nil {
		logger.Error("RegisterProfile Error: Failed to save profile %s: %v", userID, err)
		return nil, err
	}

	return user, nil
}

func (uc *UserUseCase) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil && !errors.Is(err, errors.CodeNotFound) {
		logger.Error("GetProfile Error: Failed to load profile %s: %v", userID, err)
	}
	return user, err
}

// ListContacts returns every registered user except selfID, ordered by email.
func (uc *UserUseCase) ListContacts(ctx context.Context, selfID string) ([]*entity.User, error) {
	users, err := uc.userRepo.List(ctx)
	if err != nil {
		logger.Error("ListContacts Error: Failed to list users: %v", err)
		return nil, err
	}

	contacts := make([]*entity.User, 0, len(users))
	for _, u := range users {
		if u.ID == selfID {
			continue
		}
		contacts = append(contacts, u)
	}
	return contacts, nil
}

func (uc *UserUseCase) SetPresence(ctx context.Context, userID string, online bool) error {
	if err := uc.userRepo.SetPresence(ctx, userID, online); err != nil {
		logger.WithFields(logger.Fields{
			"user_id": userID,
			"online":  online,
		}).Warnf("failed to update presence: %v", err)
		return err
	}
	return nil
}

// SubscribeProfile follows the profile of userID, presence included. No
// callback runs once the returned stop function has returned.
func (uc *UserUseCase) SubscribeProfile(ctx context.Context, userID string, onUpdate ProfileFunc) (func(), error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.InvalidArgument("user id must not be empty")
	}

	guard := &callbackGuard{}
	guard.mu.Lock()
	sub, err := uc.userRepo.SubscribeByID(ctx, userID, func(user *entity.User) {
		guard.run(func() {
			onUpdate(user)
		})
	})
	guard.mu.Unlock()
	if err != nil {
		logger.Error("SubscribeProfile Error: Failed to follow profile %s: %v", userID, err)
		return nil, err
	}
	return guard.stopWith(sub), nil
}
