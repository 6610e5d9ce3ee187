package interfaces

import "context"

// AccountLocker serializes sync runs per account. TryLock never blocks:
// it reports false when another holder owns the key.
type AccountLocker interface {
	TryLock(ctx context.Context, key string) (release func(), ok bool, err error)
}
