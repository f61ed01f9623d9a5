// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client for tests.
// Skips if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, listKeyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestConnectValkey(t *testing.T) {
	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")

	client, err := ConnectValkey(context.Background(), host, port, os.Getenv("VALKEY_PASSWORD"), 15)
	if err != nil {
		t.Skipf("skipping: Valkey not available: %v", err)
	}
	defer client.Close()

	pong, err := client.Ping(context.Background()).Result()
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if pong != "PONG" {
		t.Errorf("expected PONG, got %q", pong)
	}
}

type listQuery struct {
	Q        string `json:"q"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Role     string `json:"role"`
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(listQuery{Q: "hero", Page: 1, PageSize: 20, Role: "public"})
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	b, _ := Fingerprint(listQuery{Q: "hero", Page: 1, PageSize: 20, Role: "public"})
	if a != b {
		t.Errorf("equal queries hashed differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("digest length: got %d, want 64", len(a))
	}

	tests := []listQuery{
		{Q: "hero", Page: 2, PageSize: 20, Role: "public"},
		{Q: "hero", Page: 1, PageSize: 50, Role: "public"},
		{Q: "hero", Page: 1, PageSize: 20, Role: "staff"},
		{Q: "Hero", Page: 1, PageSize: 20, Role: "public"},
	}
	for _, q := range tests {
		d, _ := Fingerprint(q)
		if d == a {
			t.Errorf("query %+v collided with the base query", q)
		}
	}
}

func TestFingerprint_Unencodable(t *testing.T) {
	if _, err := Fingerprint(map[string]any{"ch": make(chan int)}); err == nil {
		t.Error("expected error for unencodable value")
	}
}

func TestListKey(t *testing.T) {
	if got := listKey(7, "abc"); got != "prompt:list:7:abc" {
		t.Errorf("listKey: got %q, want %q", got, "prompt:list:7:abc")
	}
}

func TestNewListCacheDefaultTTL(t *testing.T) {
	lc := NewListCache(nil, 0)
	if lc.ttl != DefaultListTTL {
		t.Errorf("expected DefaultListTTL (%v), got %v", DefaultListTTL, lc.ttl)
	}
}

func TestListCacheSetAndGet(t *testing.T) {
	client := testValkeyClient(t)
	lc := NewListCache(client, time.Minute)
	ctx := context.Background()

	key, err := lc.Key(ctx, "set-and-get")
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if !strings.HasPrefix(key, listKeyPrefix) {
		t.Errorf("key %q lacks prefix %q", key, listKeyPrefix)
	}

	if _, ok := lc.Get(ctx, key); ok {
		t.Error("expected cache miss")
	}

	body := []byte(`{"page":1,"page_size":20,"total":0,"items":[]}`)
	lc.Set(ctx, key, body)

	data, ok := lc.Get(ctx, key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(data) != string(body) {
		t.Errorf("data mismatch: got %q, want %q", data, body)
	}

	ttl, err := client.TTL(ctx, key).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl: got %v, want within (0, 1m]", ttl)
	}
}

// TestListCacheInvalidateAll verifies that every entry disappears and that
// keys computed before the flush no longer match keys computed after it.
func TestListCacheInvalidateAll(t *testing.T) {
	client := testValkeyClient(t)
	lc := NewListCache(client, time.Minute)
	ctx := context.Background()

	var before []string
	for _, fp := range []string{"a", "b", "c"} {
		key, err := lc.Key(ctx, fp)
		if err != nil {
			t.Fatalf("Key: %v", err)
		}
		lc.Set(ctx, key, []byte(fp))
		before = append(before, key)
	}

	if err := lc.InvalidateAll(ctx); err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}

	for _, key := range before {
		if _, ok := lc.Get(ctx, key); ok {
			t.Errorf("expected miss for %q after InvalidateAll", key)
		}
	}

	after, err := lc.Key(ctx, "a")
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if after == before[0] {
		t.Errorf("key unchanged across invalidation: %q", after)
	}

	// The generation counter itself must survive the flush.
	if n, _ := client.Exists(ctx, generationKey).Result(); n != 1 {
		t.Error("generation key was deleted by InvalidateAll")
	}
}

// TestListCacheStaleWriteInvisible simulates a reader that computed its key
// before a mutation and stores its result after the flush.
func TestListCacheStaleWriteInvisible(t *testing.T) {
	client := testValkeyClient(t)
	lc := NewListCache(client, time.Minute)
	ctx := context.Background()

	staleKey, err := lc.Key(ctx, "race")
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if err := lc.InvalidateAll(ctx); err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}
	lc.Set(ctx, staleKey, []byte("stale"))

	freshKey, _ := lc.Key(ctx, "race")
	if _, ok := lc.Get(ctx, freshKey); ok {
		t.Error("a post-flush reader observed the stale listing")
	}
}

func TestListCachePing(t *testing.T) {
	client := testValkeyClient(t)
	if err := NewListCache(client, 0).Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
