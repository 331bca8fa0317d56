package repository

import (
	"context"

	"chatsync/internal/domain/entity"
)

// UserSnapshotFunc receives the current profile, or nil while it does not exist.
type UserSnapshotFunc func(user *entity.User)

type UserRepository interface {
	Upsert(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	SetPresence(ctx context.Context, id string, online bool) error
	SubscribeByID(ctx context.Context, id string, fn UserSnapshotFunc) (Subscription, error)
}
