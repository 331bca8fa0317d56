package memory

import (
	"context"
	"sort"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
)

type userRepository struct {
	store *Store
}

func NewUserRepository(store *Store) repository.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) Upsert(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()

	stored := *user
	if existing, ok := r.store.users[user.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
		stored.Online = existing.Online
		stored.LastSeen = existing.LastSeen
	} else {
		stored.CreatedAt = r.store.now()
	}
	r.store.users[user.ID] = &stored
	*user = stored
	r.store.mu.Unlock()

	r.store.broadcast(usersCollection, &stored)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	out := *user
	return &out, nil
}

func (r *userRepository) List(ctx context.Context) ([]*entity.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	users := make([]*entity.User, 0, len(r.store.users))
	for _, u := range r.store.users {
		out := *u
		users = append(users, &out)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Email < users[j].Email
	})
	return users, nil
}

func (r *userRepository) SetPresence(ctx context.Context, id string, online bool) error {
	r.store.mu.Lock()

	user, ok := r.store.users[id]
	if !ok {
		user = &entity.User{ID: id, CreatedAt: r.store.now()}
		r.store.users[id] = user
	}
	user.Online = online
	user.LastSeen = r.store.now()
	changed := *user
	r.store.mu.Unlock()

	r.store.broadcast(usersCollection, &changed)
	return nil
}

func (r *userRepository) SubscribeByID(ctx context.Context, id string, fn repository.UserSnapshotFunc) (repository.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Transient("Failed to register user listener", err)
	}

	l := r.store.listen(usersCollection,
		func(doc interface{}) bool { return doc.(*entity.User).ID == id },
		func() {
			user, err := r.GetByID(ctx, id)
			if err != nil {
				user = nil
			}
			fn(user)
		},
	)

	stop := repository.SubscriptionFunc(func() { r.store.unlisten(l) })
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-l.done:
		}
	}()
	return stop, nil
}
