package domain

import "context"

// Repositories groups the three document stores.
type Repositories interface {
	Users() UserRepository
	Events() EventRepository
	Reviews() ReviewRepository
}

// Store is the persistence collaborator. Its repositories run each call on
// its own; WithinTx runs fn as one atomic multi-document transaction.
//
// fn may be invoked more than once when the backend reports a write conflict,
// so it must not have side effects outside tx. If fn returns an error nothing
// it wrote is committed. Context cancellation is never retried.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
