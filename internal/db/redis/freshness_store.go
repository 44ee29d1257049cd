// Package redis stores freshness records in Redis, one hash per identity.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"Headshot/internal/core/textures"
)

// Hash fields of a record.
const (
	fieldSkin    = "s"
	fieldCape    = "c"
	fieldChecked = "t"
)

// DefaultPrefix namespaces record keys.
const DefaultPrefix = "headshot:"

// Client is the subset of go-redis client methods used by FreshnessStore.
// Keeping it as an interface enables mocking in tests.
type Client interface {
	goredis.Scripter
	Ping(ctx context.Context) *goredis.StatusCmd
	HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...any) *goredis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *goredis.BoolCmd
	Close() error
}

// touchScript sets the checked field only when the record exists, so a key
// expiring between the check and the write never leaves a partial record.
// KEYS[1] record key, ARGV[1] field, ARGV[2] timestamp, ARGV[3] TTL in ms.
var touchScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// Config holds configuration for the Redis freshness store.
type Config struct {
	// Prefix is prepended to every key.
	Prefix string

	// TTL expires records that have not been written for this long.
	// 0 keeps records forever.
	TTL time.Duration
}

// FreshnessStore implements textures.FreshnessStore on Redis hashes.
type FreshnessStore struct {
	client Client
	cfg    Config
	now    func() time.Time
}

// NewFreshnessStore creates a FreshnessStore backed by client.
func NewFreshnessStore(client Client, cfg Config) *FreshnessStore {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	return &FreshnessStore{
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Connect parses a redis:// URL, connects and verifies the connection
// with PING.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (s *FreshnessStore) key(key string) string {
	return s.cfg.Prefix + key
}

// Get returns the record for key. Missing and malformed records are nil.
func (s *FreshnessStore) Get(ctx context.Context, key string) (*textures.FreshnessRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	skin, okSkin := fields[fieldSkin]
	cape, okCape := fields[fieldCape]
	checked, err := strconv.ParseInt(fields[fieldChecked], 10, 64)
	if !okSkin || !okCape || err != nil {
		slog.Warn("[REDIS] malformed freshness record, treating as absent",
			"key", key,
			"fields", len(fields),
		)
		return nil, nil
	}

	return &textures.FreshnessRecord{
		SkinHash:    skin,
		CapeHash:    cape,
		LastChecked: time.UnixMilli(checked),
	}, nil
}

// Touch bumps the checked timestamp of an existing record and refreshes its
// TTL in one atomic step. Missing records stay missing.
func (s *FreshnessStore) Touch(ctx context.Context, key string) error {
	err := touchScript.Run(ctx, s.client, []string{s.key(key)},
		fieldChecked, s.now().UnixMilli(), s.cfg.TTL.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis touch: %w", err)
	}
	return nil
}

// Put writes both hashes and the checked timestamp.
func (s *FreshnessStore) Put(ctx context.Context, key, skinHash, capeHash string) error {
	k := s.key(key)
	err := s.client.HSet(ctx, k,
		fieldSkin, skinHash,
		fieldCape, capeHash,
		fieldChecked, s.now().UnixMilli(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return s.expire(ctx, k)
}

func (s *FreshnessStore) expire(ctx context.Context, key string) error {
	if s.cfg.TTL <= 0 {
		return nil
	}
	if err := s.client.Expire(ctx, key, s.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}
	return nil
}
