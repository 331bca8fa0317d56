package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

const usersCollection = "users"

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) Upsert(ctx context.Context, user *entity.User) error {
	ref := r.client.Collection(usersCollection).Doc(user.ID)

	updateData := map[string]interface{}{
		"uid":      user.ID,
		"email":    user.Email,
		"photoURL": user.PhotoURL,
	}

	// Only include non-empty fields so a partial profile never blanks stored values.
	cleanUpdateData := make(map[string]interface{})
	for key, value := range updateData {
		if strVal, ok := value.(string); ok && strVal == "" {
			continue
		}
		cleanUpdateData[key] = value
	}

	if _, err := ref.Get(ctx); err != nil {
		if !errors.Is(translateError("User", err), errors.CodeNotFound) {
			return errors.Transient("Failed to read user", err)
		}
		cleanUpdateData["createdAt"] = firestore.ServerTimestamp
	}

	if _, err := ref.Set(ctx, cleanUpdateData, firestore.MergeAll); err != nil {
		logger.Error("Firestore user upsert error for %s: %v", user.ID, err)
		return errors.Transient("Failed to save user", err)
	}
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translateError("User", err)
	}
	return decodeUser(doc)
}

func (r *firestoreUserRepository) List(ctx context.Context) ([]*entity.User, error) {
	query := r.client.Collection(usersCollection).OrderBy("email", firestore.Asc)
	return getAll(ctx, query, "users", decodeUser)
}

func (r *firestoreUserRepository) SetPresence(ctx context.Context, id string, online bool) error {
	_, err := r.client.Collection(usersCollection).Doc(id).Set(ctx, map[string]interface{}{
		"online":   online,
		"lastSeen": time.Now().UTC(),
	}, firestore.MergeAll)
	if err != nil {
		return errors.Transient("Failed to update presence", err)
	}
	return nil
}

func (r *firestoreUserRepository) SubscribeByID(ctx context.Context, id string, fn repository.UserSnapshotFunc) (repository.Subscription, error) {
	ref := r.client.Collection(usersCollection).Doc(id)
	return listenDoc(ctx, ref, "user", decodeUser, func(users []*entity.User) {
		var user *entity.User
		if len(users) > 0 {
			user = users[0]
		}
		fn(user)
	})
}

func decodeUser(doc *firestore.DocumentSnapshot) (*entity.User, error) {
	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, err
	}
	user.ID = doc.Ref.ID
	return &user, nil
}
