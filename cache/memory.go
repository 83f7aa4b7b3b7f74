package cache

import (
	"context"
	"sync"
	"time"
)

type item struct {
	value      []byte
	expiration int64
}

func (it *item) expired(now int64) bool {
	return it.expiration > 0 && now > it.expiration
}

// MemoryCache implements an in-memory cache
type MemoryCache struct {
	mu          sync.Mutex
	items       map[string]*item
	maxKeys     int
	keyPrefix   string
	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// NewMemory creates a memory cache and starts its expiry sweeper.
func NewMemory(cfg Config) *MemoryCache {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}

	mc := &MemoryCache{
		items:       make(map[string]*item),
		maxKeys:     cfg.MaxKeys,
		keyPrefix:   cfg.KeyPrefix,
		stopCleanup: make(chan struct{}),
	}

	go mc.cleanupExpired(interval)

	return mc
}

// Get retrieves a value by key
func (mc *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	it, ok := mc.items[mc.keyPrefix+key]
	if !ok || it.expired(time.Now().UnixNano()) {
		return nil, ErrKeyNotFound
	}
	return it.value, nil
}

// Set stores a value with optional TTL
func (mc *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	fullKey := mc.keyPrefix + key
	if mc.maxKeys > 0 && len(mc.items) >= mc.maxKeys {
		if _, exists := mc.items[fullKey]; !exists {
			return ErrMaxKeys
		}
	}

	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	mc.items[fullKey] = &item{value: stored, expiration: expiration}
	return nil
}

// GetDel retrieves and removes a key in one critical section.
func (mc *MemoryCache) GetDel(ctx context.Context, key string) ([]byte, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	fullKey := mc.keyPrefix + key
	it, ok := mc.items[fullKey]
	if !ok {
		return nil, ErrKeyNotFound
	}
	delete(mc.items, fullKey)

	if it.expired(time.Now().UnixNano()) {
		return nil, ErrKeyNotFound
	}
	return it.value, nil
}

// Delete removes a key
func (mc *MemoryCache) Delete(ctx context.Context, key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	delete(mc.items, mc.keyPrefix+key)
	return nil
}

// Close stops the sweeper. It is safe to call more than once.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() { close(mc.stopCleanup) })
	return nil
}

// Ping always succeeds for the memory cache.
func (mc *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored keys, expired ones included until the next sweep.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.items)
}

func (mc *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.removeExpired()
		case <-mc.stopCleanup:
			return
		}
	}
}

func (mc *MemoryCache) removeExpired() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now().UnixNano()
	for key, it := range mc.items {
		if it.expired(now) {
			delete(mc.items, key)
		}
	}
}
