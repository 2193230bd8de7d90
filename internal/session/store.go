// Package session keeps the server-side state of logged-in mini-program
// users: the WeChat session_key lives in Redis with a TTL, and access to the
// API is granted through short-lived HS256 tokens.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const opTimeout = 2 * time.Second

// Store persists WeChat session keys per user in Redis.
type Store struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewStore connects to Redis. ttl bounds how long a WeChat session key is
// kept after the last login.
func NewStore(addr, password string, ttl time.Duration) (*Store, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("session: redis addr is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		keyPrefix: "healthhub:session",
		ttl:       ttl,
	}, nil
}

// Save stores the session key for a user, refreshing the TTL.
func (s *Store) Save(ctx context.Context, userID int64, sessionKey string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key(userID), sessionKey, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Get returns the stored session key, if any.
func (s *Store) Get(ctx context.Context, userID int64) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	val, err := s.client.Get(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: get: %w", err)
	}
	return val, true, nil
}

// Delete drops the session for a user.
func (s *Store) Delete(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

func (s *Store) key(userID int64) string {
	return fmt.Sprintf("%s:%d", s.keyPrefix, userID)
}
