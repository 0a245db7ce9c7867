// Package auth keeps the set of access tokens revoked by sign-out.  A token
// stays listed until its own expiry, after which JWT validation rejects it
// anyway.
package auth

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/store-reservation/internal/utils"
)

const keyPrefix = "blacklist:"

// RedisBlacklist stores revoked tokens as keys with a TTL equal to the
// token's remaining lifetime.  Keys hold the token's SHA‑256, never the JWT.
type RedisBlacklist struct {
    rdb *redis.Client
    now func() time.Time
}

func NewRedisBlacklist(rdb *redis.Client) *RedisBlacklist {
    return &RedisBlacklist{rdb: rdb, now: time.Now}
}

func blacklistKey(token string) string {
    return keyPrefix + utils.HashRefreshRaw(token)
}

// Revoke lists token until expiry.  Already expired tokens are ignored.
func (b *RedisBlacklist) Revoke(ctx context.Context, token string, expiry time.Time) error {
    ttl := expiry.Sub(b.now())
    if ttl <= 0 {
        return nil
    }
    return b.rdb.Set(ctx, blacklistKey(token), "1", ttl).Err()
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
    err := b.rdb.Get(ctx, blacklistKey(token)).Err()
    if errors.Is(err, redis.Nil) {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// MemoryBlacklist is the single-process fallback used when Redis is not
// reachable.  Expired entries are purged lazily on Revoke.
type MemoryBlacklist struct {
    mu      sync.Mutex
    entries map[string]time.Time
    now     func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
    return &MemoryBlacklist{entries: make(map[string]time.Time), now: time.Now}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, token string, expiry time.Time) error {
    b.mu.Lock()
    defer b.mu.Unlock()
    now := b.now()
    for k, exp := range b.entries {
        if !exp.After(now) {
            delete(b.entries, k)
        }
    }
    if expiry.After(now) {
        b.entries[utils.HashRefreshRaw(token)] = expiry
    }
    return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
    b.mu.Lock()
    defer b.mu.Unlock()
    exp, ok := b.entries[utils.HashRefreshRaw(token)]
    return ok && exp.After(b.now()), nil
}

// Blacklist is implemented by RedisBlacklist and MemoryBlacklist.
type Blacklist interface {
    Revoke(ctx context.Context, token string, expiry time.Time) error
    IsRevoked(ctx context.Context, token string) (bool, error)
}

// New picks the Redis store when a client is available.
func New(rdb *redis.Client) Blacklist {
    if rdb == nil {
        return NewMemoryBlacklist()
    }
    return NewRedisBlacklist(rdb)
}
