package kv

import "io"

type SafeStoreKeyFilterFunc[K comparable] func(key K) bool

func defaultAllKeysFilter[K comparable](key K) bool {
	return true
}

type Closable interface {
	io.Closer
}

// ThreadSafeStorer is a small RWMutex map used for registries whose
// write rate (register/cancel) is far below the read rate.
type ThreadSafeStorer[K comparable, V any] interface {
	Purge() error
	AddOrUpdate(key K, obj V)
	Replace(items map[K]V)
	Delete(key K)
	Get(key K) (item V, exists bool)
	Len() int
	ListKeys(filters ...SafeStoreKeyFilterFunc[K]) []K
	ListValues(keys ...K) (items []V)
}
