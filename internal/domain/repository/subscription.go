package repository

// Subscription is a standing live query. Stop is idempotent; once it returns the
// backend stops producing snapshots, though one already in flight may still arrive.
type Subscription interface {
	Stop()
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Stop() { f() }
