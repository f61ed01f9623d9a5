// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// list.go provides a Valkey-backed cache of rendered prompt listings.
// Entries live under a generation number; bumping the generation hides
// every existing entry at once, and the old keys are then scanned away.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// listKeyPrefix is the Valkey key namespace for cached listings.
	listKeyPrefix = "prompt:list:"

	// generationKey holds the current listing generation.
	generationKey = listKeyPrefix + "gen"

	// DefaultListTTL is how long a cached listing stays valid.
	DefaultListTTL = 60 * time.Second
)

// ListCache caches serialized listing responses in Valkey.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewListCache creates a listing cache backed by the given Valkey client.
func NewListCache(client *redis.Client, ttl time.Duration) *ListCache {
	if ttl <= 0 {
		ttl = DefaultListTTL
	}
	return &ListCache{client: client, ttl: ttl}
}

// Fingerprint returns a stable SHA-256 digest of v's JSON encoding.
// Struct fields encode in declaration order, so equal queries always
// hash to the same digest.
func Fingerprint(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Key returns the cache key for a fingerprint under the current generation.
func (lc *ListCache) Key(ctx context.Context, fingerprint string) (string, error) {
	gen, err := lc.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		gen = 0
	} else if err != nil {
		return "", fmt.Errorf("read list generation: %w", err)
	}
	return listKey(gen, fingerprint), nil
}

func listKey(gen int64, fingerprint string) string {
	return listKeyPrefix + strconv.FormatInt(gen, 10) + ":" + fingerprint
}

// Get retrieves a cached listing. Errors are logged and reported as a miss.
func (lc *ListCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := lc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("list cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("list cache hit", "key", key)
	return val, true
}

// Set stores a listing with the configured TTL. Errors are logged only.
func (lc *ListCache) Set(ctx context.Context, key string, data []byte) {
	if err := lc.client.Set(ctx, key, data, lc.ttl).Err(); err != nil {
		slog.Warn("list cache set error", "key", key, "error", err)
	}
}

// InvalidateAll drops every cached listing. The generation bump takes
// effect immediately for all readers; the scan then reclaims the stale keys.
func (lc *ListCache) InvalidateAll(ctx context.Context) error {
	gen, err := lc.client.Incr(ctx, generationKey).Result()
	if err != nil {
		return fmt.Errorf("bump list generation: %w", err)
	}

	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := lc.client.Scan(ctx, cursor, listKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan list cache: %w", err)
		}
		stale := keys[:0]
		for _, k := range keys {
			if k != generationKey {
				stale = append(stale, k)
			}
		}
		if len(stale) > 0 {
			if err := lc.client.Del(ctx, stale...).Err(); err != nil {
				return fmt.Errorf("delete list cache keys: %w", err)
			}
			deleted += len(stale)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	slog.Debug("list cache invalidated", "generation", gen, "deleted", deleted)
	return nil
}

// Ping checks that Valkey is reachable.
func (lc *ListCache) Ping(ctx context.Context) error {
	return lc.client.Ping(ctx).Err()
}
