package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key      string
	value    []byte
	expireAt time.Time
}

// MemoryCache is a size-bounded LRU with per-entry expiry.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = most recently used
	cfg   MemoryConfig
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := MemoryConfig{MaxSize: 1000, DefaultTTL: 24 * time.Hour, Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1
	}
	return &MemoryCache{items: make(map[string]*list.Element), order: list.New(), cfg: cfg}
}

func (mc *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	el, ok := mc.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	e := el.Value.(*memoryEntry)
	if mc.cfg.Now().After(e.expireAt) {
		mc.remove(el)
		return nil, ErrCacheMiss
	}
	mc.order.MoveToFront(el)
	return append([]byte(nil), e.value...), nil
}

func (mc *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.put(key, append([]byte(nil), value...), ttl)
	return nil
}

func (mc *MemoryCache) put(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = mc.cfg.DefaultTTL
	}
	exp := mc.cfg.Now().Add(ttl)
	if el, ok := mc.items[key]; ok {
		e := el.Value.(*memoryEntry)
		e.value, e.expireAt = value, exp
		mc.order.MoveToFront(el)
		return
	}
	for mc.order.Len() >= mc.cfg.MaxSize {
		mc.remove(mc.order.Back())
	}
	mc.items[key] = mc.order.PushFront(&memoryEntry{key: key, value: value, expireAt: exp})
}

func (mc *MemoryCache) remove(el *list.Element) {
	mc.order.Remove(el)
	delete(mc.items, el.Value.(*memoryEntry).key)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		if el, ok := mc.items[k]; ok {
			mc.remove(el)
		}
	}
	return nil
}

// TryLock stores a marker under key unless a live one exists.
func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if el, ok := mc.items[key]; ok && !mc.cfg.Now().After(el.Value.(*memoryEntry).expireAt) {
		return false, nil
	}
	mc.put(key, []byte("locked"), ttl)
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// Len returns the number of stored entries, expired ones included.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.order.Len()
}

func (mc *MemoryCache) Close() error { return nil }
