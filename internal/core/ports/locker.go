package ports

import "context"

// KeyLocker serialises work per key. Acquire blocks until the key is free or
// ctx is done; the returned release func must be called exactly once.
type KeyLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
