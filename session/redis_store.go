package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "session:"

// RedisStore is a Redis-based implementation of the Store interface. It
// suits clients that roam between hosts but must resume the same session.
type RedisStore struct {
	client *redis.Client
	mu     sync.RWMutex
	closed bool
	ttl    time.Duration
}

// RedisStoreConfig configures the Redis store
type RedisStoreConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // Optional: TTL for session keys (0 = no TTL)
	Options  *redis.Options
}

// NewRedisStore creates a new Redis-based session store
func NewRedisStore(config RedisStoreConfig) (*RedisStore, error) {
	var client *redis.Client

	if config.Options != nil {
		client = redis.NewClient(config.Options)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    config.TTL,
	}, nil
}

func redisKey(clientID string) string {
	return redisSessionPrefix + clientID
}

// keyTTL derives the key lifetime: an explicit store TTL wins, otherwise
// the session's own expiry interval bounds it
func (r *RedisStore) keyTTL(session *Session) time.Duration {
	if r.ttl > 0 {
		return r.ttl
	}
	if session.SessionExpiryInterval > 0 && session.SessionExpiryInterval != 0xFFFFFFFF {
		return time.Duration(session.SessionExpiryInterval) * time.Second
	}
	return 0
}

// Save stores or updates a session
func (r *RedisStore) Save(ctx context.Context, session *Session) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrStoreClosed
	}
	r.mu.RUnlock()

	snapshot, err := session.Snapshot()
	if err != nil {
		return err
	}

	return r.client.Set(ctx, redisKey(session.ClientID), snapshot, r.keyTTL(session)).Err()
}

// Load retrieves a session by client ID
func (r *RedisStore) Load(ctx context.Context, clientID string) (*Session, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	r.mu.RUnlock()

	value, err := r.client.Get(ctx, redisKey(clientID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return Restore(value)
}

// Delete removes a session
func (r *RedisStore) Delete(ctx context.Context, clientID string) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrStoreClosed
	}
	r.mu.RUnlock()

	return r.client.Del(ctx, redisKey(clientID)).Err()
}

// Exists checks if a session exists
func (r *RedisStore) Exists(ctx context.Context, clientID string) (bool, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return false, ErrStoreClosed
	}
	r.mu.RUnlock()

	n, err := r.client.Exists(ctx, redisKey(clientID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns all session client IDs
func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	r.mu.RUnlock()

	var clientIDs []string
	iter := r.client.Scan(ctx, 0, redisSessionPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		clientIDs = append(clientIDs, iter.Val()[len(redisSessionPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return clientIDs, nil
}

// Close closes the store
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrStoreClosed
	}

	r.closed = true
	return r.client.Close()
}
