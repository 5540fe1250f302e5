package optimistic

import "timesheets/internal/cache"

// CacheStore adapts one key of a cache to a Store.
type CacheStore[T any] struct {
	Cache cache.Cache[T]
	Key   string
}

func (s CacheStore[T]) Load() (T, bool) {
	return s.Cache.Get(s.Key)
}

func (s CacheStore[T]) Save(v T) {
	s.Cache.Set(s.Key, v)
}

// Value is an in-memory Store holding a single value.
type Value[T any] struct {
	V   T
	Set bool
}

func (v *Value[T]) Load() (T, bool) { return v.V, v.Set }

func (v *Value[T]) Save(x T) { v.V, v.Set = x, true }
