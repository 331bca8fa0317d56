package repository

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

// listen opens a snapshot listener on q. The first snapshot is awaited so that
// registration failures surface to the caller; later snapshots are decoded and
// handed to fn on a single goroutine, in the order Firestore emits them.
func listen[T any](
	ctx context.Context,
	q firestore.Query,
	name string,
	decode func(*firestore.DocumentSnapshot) (T, error),
	fn func([]T),
) (repository.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := q.Snapshots(ctx)

	next := func() ([]T, error) {
		snap, err := it.Next()
		if err != nil {
			return nil, err
		}
		return decodeSnapshot(snap, name, decode), nil
	}
	return startListener(ctx, cancel, name, next, it.Stop, fn)
}

// listenDoc follows a single document. fn receives one item, or none while the
// document does not exist.
func listenDoc[T any](
	ctx context.Context,
	ref *firestore.DocumentRef,
	name string,
	decode func(*firestore.DocumentSnapshot) (T, error),
	fn func([]T),
) (repository.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := ref.Snapshots(ctx)

	next := func() ([]T, error) {
		snap, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !snap.Exists() {
			return nil, nil
		}
		item, err := decode(snap)
		if err != nil {
			logger.Warn("Skipping malformed %s document %s: %v", name, ref.ID, err)
			return nil, nil
		}
		return []T{item}, nil
	}
	return startListener(ctx, cancel, name, next, it.Stop, fn)
}

// startListener drives next on one goroutine until ctx ends or next fails.
// Stop cancels the listener and returns once that goroutine has exited, so it
// must not be called from inside fn.
func startListener[T any](
	ctx context.Context,
	cancel context.CancelFunc,
	name string,
	next func() ([]T, error),
	stop func(),
	fn func([]T),
) (repository.Subscription, error) {
	first, err := next()
	if err != nil {
		stop()
		cancel()
		return nil, errors.Transient("Failed to register "+name+" listener", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		defer stop()

		items := first
		for {
			fn(items)

			var err error
			items, err = next()
			if err != nil {
				if err == iterator.Done || status.Code(err) == codes.Canceled || ctx.Err() != nil {
					return
				}
				logger.Error("%s listener stopped: %v", name, err)
				return
			}
		}
	}()

	var once sync.Once
	return repository.SubscriptionFunc(func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}), nil
}

func decodeSnapshot[T any](snap *firestore.QuerySnapshot, name string, decode func(*firestore.DocumentSnapshot) (T, error)) []T {
	docs, err := snap.Documents.GetAll()
	if err != nil {
		logger.Error("Failed to read %s snapshot: %v", name, err)
		return nil
	}

	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := decode(doc)
		if err != nil {
			logger.Warn("Skipping malformed %s document %s: %v", name, doc.Ref.ID, err)
			continue
		}
		items = append(items, item)
	}
	return items
}

// getAll runs q once and decodes every document, skipping malformed ones.
func getAll[T any](ctx context.Context, q firestore.Query, name string, decode func(*firestore.DocumentSnapshot) (T, error)) ([]T, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	items := make([]T, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Transient("Failed to query "+name, err)
		}

		item, err := decode(doc)
		if err != nil {
			logger.Warn("Skipping malformed %s document %s: %v", name, doc.Ref.ID, err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func translateError(message string, err error) error {
	if status.Code(err) == codes.NotFound {
		return errors.NotFound(message, err)
	}
	return errors.Transient("Failed to access "+message, err)
}
