package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis on DB 15 and skips when none is running.
// tests/integration covers the same paths against a testcontainers Redis.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func solutionsPage(session string, skip, limit int) CacheKey {
	return CacheKey{
		Session:  session,
		Endpoint: "/api/v1/solutions/",
		QueryParams: url.Values{
			"skip":  []string{fmt.Sprint(skip)},
			"limit": []string{fmt.Sprint(limit)},
		},
	}
}

func freshEntry(ttl time.Duration) *CacheEntry {
	return &CacheEntry{
		Data:       []byte(`{"success":true,"data":[],"total":0,"skip":0,"limit":9}`),
		ETag:       `"p0"`,
		Expires:    time.Now().Add(ttl),
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		CachedAt:   time.Now(),
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_EntryLifecycle(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()
	key := solutionsPage("s1", 0, 9)
	entry := freshEntry(time.Minute)

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get before Set = %v, want ErrCacheMiss", err)
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Data) != string(entry.Data) || got.ETag != entry.ETag || got.StatusCode != http.StatusOK {
		t.Errorf("Get returned %+v", got)
	}
	if got.Headers.Get("Content-Type") != "application/json" {
		t.Errorf("headers not preserved: %v", got.Headers)
	}

	later := time.Now().Add(10 * time.Minute)
	if err := manager.UpdateTTL(ctx, key, later); err != nil {
		t.Fatalf("UpdateTTL failed: %v", err)
	}
	got, err = manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after UpdateTTL failed: %v", err)
	}
	if diff := got.Expires.Sub(later); diff < -time.Second || diff > time.Second {
		t.Errorf("Expires = %v, want %v", got.Expires, later)
	}

	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after Delete = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Set(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()

	if err := manager.Set(ctx, solutionsPage("s1", 0, 9), nil); err == nil {
		t.Error("Set with nil entry should return error")
	}

	// expired and no-store answers are not written
	key := solutionsPage("s1", 9, 6)
	if err := manager.Set(ctx, key, freshEntry(-time.Second)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expired entry was stored: %v", err)
	}

	if err := manager.UpdateTTL(ctx, key, time.Now().Add(time.Minute)); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("UpdateTTL on missing key = %v, want ErrCacheMiss", err)
	}
}

func TestManager_UpdateTTL_ExpiredRemovesEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()
	key := solutionsPage("s1", 0, 9)

	if err := manager.Set(ctx, key, freshEntry(time.Hour)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// 304 with Cache-Control: no-cache
	expires := ExpiresFrom(http.Header{"Cache-Control": []string{"no-cache"}})
	if err := manager.UpdateTTL(ctx, key, expires); err != nil {
		t.Fatalf("UpdateTTL failed: %v", err)
	}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after expiring UpdateTTL = %v, want ErrCacheMiss", err)
	}
	if n := client.Exists(ctx, key.String()).Val(); n != 0 {
		t.Errorf("key still present in Redis: exists = %d", n)
	}
}

func TestManager_Get_CorruptEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()
	key := solutionsPage("s1", 0, 9)

	if err := client.Set(ctx, key.String(), "not json", time.Minute).Err(); err != nil {
		t.Fatalf("raw set failed: %v", err)
	}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Get = %v, want ErrInvalidEntry", err)
	}
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()

	if err := manager.Set(ctx, solutionsPage("alice", 0, 9), freshEntry(time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := manager.Get(ctx, solutionsPage("bob", 0, 9)); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("other session saw the entry: %v", err)
	}
}

func TestManager_PurgeSession(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()
	entry := freshEntry(5 * time.Minute)

	// more than one DEL batch
	for skip := 0; skip < 150; skip++ {
		if err := manager.Set(ctx, solutionsPage("ending", skip, 1), entry); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	other := solutionsPage("other", 0, 9)
	if err := manager.Set(ctx, other, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	removed, err := manager.PurgeSession(ctx, "ending")
	if err != nil {
		t.Fatalf("PurgeSession failed: %v", err)
	}
	if removed != 150 {
		t.Errorf("removed = %d, want 150", removed)
	}

	if _, err := manager.Get(ctx, other); err != nil {
		t.Errorf("other session entry lost: %v", err)
	}

	removed, err = manager.PurgeSession(ctx, "ending")
	if err != nil || removed != 0 {
		t.Errorf("second purge = %d, %v; want 0, nil", removed, err)
	}
}
