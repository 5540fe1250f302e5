// Package optimistic applies a local change before the request that makes
// it durable, and restores the previous state if that request fails.
package optimistic

import (
	"errors"
	"sync"
)

// ErrSettled is returned when an update is committed or reverted twice.
var ErrSettled = errors.New("optimistic update already settled")

// Store is the local state an update mutates.
type Store[T any] interface {
	Load() (T, bool)
	Save(T)
}

// Update is one optimistic change: Apply snapshots the store and writes the
// new value, then exactly one of Commit or Revert settles it.
type Update[T any] struct {
	mu       sync.Mutex
	store    Store[T]
	snapshot T
	existed  bool
	applied  bool
	settled  bool
}

func New[T any](store Store[T]) *Update[T] {
	return &Update[T]{store: store}
}

// Apply snapshots the current value and stores mutate(current).
func (u *Update[T]) Apply(mutate func(T) T) {
	u.mu.Lock()
	defer u.mu.Unlock()
	current, ok := u.store.Load()
	u.snapshot, u.existed, u.applied = current, ok, true
	if ok {
		u.store.Save(mutate(current))
	}
}

// Snapshot returns the value captured by Apply.
func (u *Update[T]) Snapshot() (T, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.snapshot, u.existed
}

// Commit discards the snapshot.
func (u *Update[T]) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.settled {
		return ErrSettled
	}
	u.settled = true
	var zero T
	u.snapshot = zero
	return nil
}

// Revert restores the snapshot verbatim.
func (u *Update[T]) Revert() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.settled {
		return ErrSettled
	}
	u.settled = true
	if u.applied && u.existed {
		u.store.Save(u.snapshot)
	}
	return nil
}

// CommitOrRevert settles the update from the outcome of the request and
// returns err unchanged.
func (u *Update[T]) CommitOrRevert(err error) error {
	if err != nil {
		_ = u.Revert()
		return err
	}
	_ = u.Commit()
	return nil
}

// Reconcile settles an update that covered several items of which only
// some succeeded. restore receives the snapshot and the current value and
// returns the value to keep, typically the current one with the failed
// items copied back from the snapshot.
func (u *Update[T]) Reconcile(restore func(snapshot, current T) T) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.settled {
		return ErrSettled
	}
	u.settled = true
	if !u.applied || !u.existed {
		return nil
	}
	current, ok := u.store.Load()
	if !ok {
		return nil
	}
	u.store.Save(restore(u.snapshot, current))
	return nil
}

// Do runs the three phases in order: Apply, the request, then
// CommitOrRevert.
func Do[T any](store Store[T], mutate func(T) T, request func() error) error {
	u := New(store)
	u.Apply(mutate)
	return u.CommitOrRevert(request())
}
