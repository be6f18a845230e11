// Package lease provides per-property advisory leases so two sync runs never
// process the same property at once. Leases expire, so a crashed holder only
// blocks a property until its TTL runs out.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rental-sync/backend/internal/storage"
)

// ErrLeaseHeld is returned when another holder owns a live lease.
var ErrLeaseHeld = errors.New("sync already in progress")

// ReleaseFunc gives a lease back. It is safe to call after expiry.
type ReleaseFunc func(ctx context.Context) error

// Locker hands out expiring leases keyed by an arbitrary string.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

// PropertyKey is the lease key for a property.
func PropertyKey(propertyID string) string {
	return "property:" + propertyID
}

// SQLLocker stores leases in the sync_leases table of the main database.
type SQLLocker struct {
	repo *storage.LeaseRepository
	now  func() time.Time
}

// NewSQLLocker creates a locker backed by repo.
func NewSQLLocker(repo *storage.LeaseRepository) *SQLLocker {
	return &SQLLocker{repo: repo, now: time.Now}
}

func (l *SQLLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	holder := uuid.NewString()

	ok, err := l.repo.TryAcquire(ctx, key, holder, l.now().UTC(), ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLeaseHeld
	}

	return func(ctx context.Context) error {
		return l.repo.Release(ctx, key, holder)
	}, nil
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker stores leases as Redis keys with a PX expiry, for deployments
// running several service instances against one store.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

// NewRedisLocker creates a locker on client. Keys are namespaced by prefix.
func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lease %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("releasing lease %s: %w", key, err)
		}
		return nil
	}, nil
}

// NewRedisClient builds a client and checks connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}
