package engine

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestCacheKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		k1 := CacheKey("search", "golang context")
		k2 := CacheKey("search", "golang context")
		if k1 != k2 {
			t.Errorf("CacheKey not deterministic: %q != %q", k1, k2)
		}
	})

	t.Run("different inputs differ", func(t *testing.T) {
		k1 := CacheKey("search", "golang")
		k2 := CacheKey("search", "python")
		if k1 == k2 {
			t.Errorf("different inputs produced same key: %q", k1)
		}
	})

	t.Run("has prefix", func(t *testing.T) {
		k := CacheKey("test")
		if k[:3] != "gp:" {
			t.Errorf("expected gp: prefix, got %q", k[:3])
		}
	})
}

func TestCacheGetSet(t *testing.T) {
	// Init minimal cache (no Redis)
	InitCache("", 1*time.Minute, 100, 5*time.Minute)

	ctx := context.Background()
	key := CacheKey("test", "round-trip")

	// Miss
	_, ok := CacheGet(ctx, key)
	if ok {
		t.Error("expected cache miss on empty cache")
	}

	// Set
	CacheSet(ctx, key, []byte("hello"))

	// Hit
	got, ok := CacheGet(ctx, key)
	if !ok {
		t.Fatal("expected cache hit after set")
	}
	if string(got) != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestCacheExpiration(t *testing.T) {
	// Init with very short TTL
	InitCache("", 1*time.Millisecond, 100, 5*time.Minute)

	ctx := context.Background()
	key := CacheKey("test", "expiry")

	CacheSet(ctx, key, []byte("temp"))
	time.Sleep(5 * time.Millisecond)

	_, ok := CacheGet(ctx, key)
	if ok {
		t.Error("expected cache miss after TTL expiry")
	}
}

func TestCacheEviction(t *testing.T) {
	// maxEntries=3
	InitCache("", 1*time.Minute, 3, 5*time.Minute)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		key := CacheKey("evict", fmt.Sprintf("%d", i))
		CacheSet(ctx, key, []byte("v"))
		time.Sleep(2 * time.Millisecond) // distinct expiry order
	}

	count := 0
	resultCache.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count > 3 {
		t.Errorf("L1 holds %d entries, want <= 3", count)
	}

	// Newest entry must survive eviction.
	if _, ok := CacheGet(ctx, CacheKey("evict", "4")); !ok {
		t.Error("newest entry was evicted")
	}
}

func TestCacheJSONRoundTrip(t *testing.T) {
	InitCache("", 1*time.Minute, 100, 5*time.Minute)

	ctx := context.Background()
	key := CacheKey("test", "json")

	want := []Result{{Episode: "show/ep1", SegmentIndex: 2, Text: "hello"}}
	CacheStoreJSON(ctx, key, want)

	got, ok := CacheLoadJSON[[]Result](ctx, key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 || got[0].Episode != "show/ep1" || got[0].SegmentIndex != 2 {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestCacheUninitialized(t *testing.T) {
	saved := resultCache
	resultCache = nil
	defer func() { resultCache = saved }()

	ctx := context.Background()
	CacheSet(ctx, "k", []byte("v"))
	if _, ok := CacheGet(ctx, "k"); ok {
		t.Error("expected miss with no cache initialized")
	}
}
