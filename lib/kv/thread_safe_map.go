package kv

import (
	"log/slog"
	"sync"
)

var _ ThreadSafeStorer[string, any] = (*threadSafeMap[string, any])(nil)

type threadSafeMap[K comparable, V any] struct {
	lock  sync.RWMutex
	items map[K]V
}

func (t *threadSafeMap[K, V]) AddOrUpdate(key K, obj V) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.items[key] = obj
}

func (t *threadSafeMap[K, V]) Replace(items map[K]V) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.items = items
}

func (t *threadSafeMap[K, V]) Delete(key K) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if _, exists := t.items[key]; exists {
		delete(t.items, key)
	}
}

func (t *threadSafeMap[K, V]) Get(key K) (item V, exists bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	item, exists = t.items[key]
	return
}

func (t *threadSafeMap[K, V]) Len() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return len(t.items)
}

func (t *threadSafeMap[K, V]) ListKeys(filters ...SafeStoreKeyFilterFunc[K]) []K {
	realFilters := make([]SafeStoreKeyFilterFunc[K], 0, len(filters))
	for _, filter := range filters {
		if filter != nil {
			realFilters = append(realFilters, filter)
		}
	}
	if len(realFilters) == 0 {
		realFilters = append(realFilters, defaultAllKeysFilter[K])
	}

	t.lock.RLock()
	defer t.lock.RUnlock()

	keys := make([]K, 0, len(t.items))
	for key := range t.items {
		for _, filter := range realFilters {
			if filter(key) {
				keys = append(keys, key)
				break
			}
		}
	}
	return keys
}

func (t *threadSafeMap[K, V]) ListValues(keys ...K) (items []V) {
	contains := func(keys []K, key K) bool {
		for _, k := range keys {
			if k == key {
				return true
			}
		}
		return false
	}

	t.lock.RLock()
	defer t.lock.RUnlock()
	values := make([]V, 0, len(t.items))
	for key, item := range t.items {
		if len(keys) == 0 || contains(keys, key) {
			values = append(values, item)
		}
	}
	return values
}

func (t *threadSafeMap[K, V]) Purge() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	for _, item := range t.items {
		if closer, ok := any(item).(Closable); ok && closer != nil {
			if err := closer.Close(); err != nil {
				slog.Error("Purge info", "error", err)
			}
		}
	}
	t.items = nil
	return nil
}

func NewThreadSafeMap[K comparable, V any]() ThreadSafeStorer[K, V] {
	return &threadSafeMap[K, V]{items: make(map[K]V, 32)}
}
