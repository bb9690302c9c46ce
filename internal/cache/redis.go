// Package cache wraps the key-value store shared by sessions and cached
// API responses. Keys are namespaced with "session:" and "cache:".
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix = "session:"
	cachePrefix   = "cache:"

	// DefaultSessionTTL applies when SetSession is called with a non-positive ttl.
	DefaultSessionTTL = 24 * time.Hour
	// DefaultCacheTTL applies when SetCache is called with a non-positive ttl.
	DefaultCacheTTL = time.Hour

	scanBatch = 100
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// SessionData is the value stored under session:<id>.
type SessionData struct {
	UserID string `json:"userId"`
}

// Store is a JSON codec over a redis client.
type Store struct {
	client redis.UniversalClient
}

// Open parses a redis:// URL and returns a connected Store.
func Open(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client), nil
}

func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Set stores value as JSON. A zero ttl stores the key without expiry.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Get decodes the JSON stored at key into dest.
func (s *Store) Get(ctx context.Context, key string, dest any) error {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

// Expire resets the ttl of key and reports whether the key existed.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("expire %s: %w", key, err)
	}
	return ok, nil
}

func (s *Store) SetSession(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return s.Set(ctx, sessionPrefix+sessionID, SessionData{UserID: userID}, ttl)
}

// GetSession returns ErrMiss when the session never existed or has expired.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*SessionData, error) {
	var data SessionData
	if err := s.Get(ctx, sessionPrefix+sessionID, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// RenewSession extends a live session to ttl. It returns ErrMiss when the
// session is gone, so a logged out session cannot be revived.
func (s *Store) RenewSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	ok, err := s.Expire(ctx, sessionPrefix+sessionID, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMiss
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	return s.Delete(ctx, sessionPrefix+sessionID)
}

func (s *Store) SetCache(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return s.Set(ctx, cachePrefix+key, value, ttl)
}

func (s *Store) GetCache(ctx context.Context, key string, dest any) error {
	return s.Get(ctx, cachePrefix+key, dest)
}

// ClearCache deletes every cache entry whose key matches the glob pattern.
func (s *Store) ClearCache(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, cachePrefix+pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
		if err := s.Delete(ctx, keys...); err != nil {
			return err
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
