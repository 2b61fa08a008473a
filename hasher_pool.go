package auth

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// BoundedHasher limits how many derivations run at once. Callers wait for
// a slot until their context is done or the acquire timeout elapses; a
// derivation that has started always runs to completion.
type BoundedHasher struct {
	next    PasswordHasher
	sem     *semaphore.Weighted
	timeout time.Duration
}

var _ PasswordHasher = (*BoundedHasher)(nil)

// NewBoundedHasher wraps next. A non positive limit is treated as one.
func NewBoundedHasher(next PasswordHasher, limit int64, timeout time.Duration) *BoundedHasher {
	if limit <= 0 {
		limit = 1
	}
	return &BoundedHasher{
		next:    next,
		sem:     semaphore.NewWeighted(limit),
		timeout: timeout,
	}
}

func (b *BoundedHasher) HashPassword(ctx context.Context, password string) (string, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	return b.next.HashPassword(context.WithoutCancel(ctx), password)
}

func (b *BoundedHasher) ComparePasswordAndHash(ctx context.Context, password, hash string) (bool, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	return b.next.ComparePasswordAndHash(context.WithoutCancel(ctx), password, hash)
}

// NeedsRehash delegates when the wrapped hasher supports it
func (b *BoundedHasher) NeedsRehash(hash string) bool {
	if rc, ok := b.next.(RehashChecker); ok {
		return rc.NeedsRehash(hash)
	}
	return false
}

func (b *BoundedHasher) acquire(ctx context.Context) (func(), error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, ErrHasherBusy
	}

	return func() { b.sem.Release(1) }, nil
}
