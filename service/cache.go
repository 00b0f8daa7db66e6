package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/config"
)

// KVStore is the small key/value surface the impersonation manager uses to
// mirror session identity (the server-side stand-in for browser session
// storage). Redis in production, a map in tests and when redis is not
// configured.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// TenantCache invalidates the tenant-scoped caches (content blocks, sector
// derivations, home layout) that must not survive a context switch.
type TenantCache interface {
	Invalidate(ctx context.Context, orgID string) error
}

// tenantCacheKeys are the cache namespaces invalidated on every
// impersonation start and stop.
var tenantCacheKeys = []string{"content_blocks", "sectors", "home_layout"}

// NewRedisClient connects to redis and verifies the connection.
func NewRedisClient(cfg *config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// RedisKVStore implements KVStore on redis.
type RedisKVStore struct {
	rdb *goredis.Client
}

func NewRedisKVStore(rdb *goredis.Client) *RedisKVStore {
	return &RedisKVStore{rdb: rdb}
}

func (s *RedisKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisKVStore) Set(ctx context.Context, key, value string) error {
	return s.rdb.Set(ctx, key, value, 0).Err()
}

func (s *RedisKVStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// RedisTenantCache implements TenantCache on redis.
type RedisTenantCache struct {
	rdb *goredis.Client
}

func NewRedisTenantCache(rdb *goredis.Client) *RedisTenantCache {
	return &RedisTenantCache{rdb: rdb}
}

func (c *RedisTenantCache) Invalidate(ctx context.Context, orgID string) error {
	keys := make([]string, 0, len(tenantCacheKeys))
	for _, ns := range tenantCacheKeys {
		keys = append(keys, fmt.Sprintf("cache:%s:%s", ns, orgID))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// MemoryKVStore is the in-process KVStore used in tests and when redis is
// not configured.
type MemoryKVStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{data: make(map[string]string)}
}

func (s *MemoryKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok, nil
}

func (s *MemoryKVStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryKVStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// MemoryTenantCache is the in-process TenantCache counterpart. Put and Get
// exist so tests can observe invalidation.
type MemoryTenantCache struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryTenantCache() *MemoryTenantCache {
	return &MemoryTenantCache{data: make(map[string]string)}
}

func (c *MemoryTenantCache) Put(orgID, ns, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[fmt.Sprintf("cache:%s:%s", ns, orgID)] = value
}

func (c *MemoryTenantCache) Get(orgID, ns string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.data[fmt.Sprintf("cache:%s:%s", ns, orgID)]
	return val, ok
}

func (c *MemoryTenantCache) Invalidate(ctx context.Context, orgID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ns := range tenantCacheKeys {
		delete(c.data, fmt.Sprintf("cache:%s:%s", ns, orgID))
	}
	return nil
}
