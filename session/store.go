package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when a Redis command fails for reasons other than a missing key.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when a key is absent or already expired.
var ErrNotFound = errors.New("session key not found")

// ErrRefreshNotFound is returned when a refresh token has no live record: it was
// never issued, already redeemed, revoked or expired.
var ErrRefreshNotFound = errors.New("refresh record not found")

const takeScript = `
local v = redis.call("GET", KEYS[1])
if v then
  redis.call("DEL", KEYS[1])
end
return v
`

var takeLua = redis.NewScript(takeScript)

// Store keeps refresh-token records and the access-token blacklist in Redis.
//
// Token values are never used as keys directly; every key is derived from the
// SHA-256 of the token, so writes are idempotent per token and key size is bounded.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore returns a Store that namespaces every key under prefix.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	return &Store{redis: redis, prefix: prefix}
}

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		if k != "" {
			k += ":"
		}
		k += p
	}
	return k
}

// refreshID and blacklistID are relative keys; Put, Get, Delete and Take add the prefix.
func refreshID(token string) string {
	return "refresh_token:" + tokenDigest(token)
}

func blacklistID(token string) string {
	return "blacklist:" + tokenDigest(token)
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Put stores value under key with the given TTL. A non-positive ttl is rejected,
// every entry in this store must expire on its own.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("session: ttl must be > 0 for key %q", key)
	}
	if err := s.redis.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the value stored under key, or [ErrNotFound].
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return data, nil
}

// Delete removes key. It reports whether the key existed; deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Take atomically reads and deletes key. Of any number of concurrent callers
// at most one receives the value; the rest get [ErrNotFound].
func (s *Store) Take(ctx context.Context, key string) ([]byte, error) {
	res, err := takeLua.Run(ctx, s.redis, []string{s.key(key)}).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return []byte(res), nil
}

// SaveRefresh persists rec for token until ttl elapses.
func (s *Store) SaveRefresh(ctx context.Context, token string, rec *RefreshRecord, ttl time.Duration) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	return s.Put(ctx, refreshID(token), data, ttl)
}

// GetRefresh reads the record for token without consuming it.
func (s *Store) GetRefresh(ctx context.Context, token string) (*RefreshRecord, error) {
	data, err := s.Get(ctx, refreshID(token))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrRefreshNotFound
	}
	if err != nil {
		return nil, err
	}
	return DecodeRecord(data)
}

// RedeemRefresh consumes the record for token. The read and the delete happen in
// one script, so a token can be redeemed at most once even under concurrent calls.
func (s *Store) RedeemRefresh(ctx context.Context, token string) (*RefreshRecord, error) {
	data, err := s.Take(ctx, refreshID(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrRefreshNotFound
		}
		return nil, err
	}
	return DecodeRecord(data)
}

// RevokeRefresh deletes the record for token and reports whether it existed.
func (s *Store) RevokeRefresh(ctx context.Context, token string) (bool, error) {
	return s.Delete(ctx, refreshID(token))
}

// Blacklist marks token as revoked for ttl, normally the token's remaining life.
// A non-positive ttl is a no-op: the token has already expired.
func (s *Store) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.Put(ctx, blacklistID(token), []byte("1"), ttl)
}

// IsBlacklisted reports whether token has a live blacklist entry.
func (s *Store) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(blacklistID(token))).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
