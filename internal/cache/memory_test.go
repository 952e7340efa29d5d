package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheGetSet(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("expected v, got %q", got)
	}

	// Returned slice is a copy; mutating it must not poison the cache.
	got[0] = 'x'
	got, _ = c.Get(ctx, "k")
	if string(got) != "v" {
		t.Fatalf("cache entry was mutated through the returned slice")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), -time.Second)
	if _, err := c.Get(ctx, "k"); err != ErrCacheMiss {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, PrefixOffers+"id:1", []byte("a"), time.Minute)
	c.Set(ctx, PrefixOffers+"list:x", []byte("b"), time.Minute)
	c.Set(ctx, PrefixListings+"id:1", []byte("c"), time.Minute)

	if err := c.DeletePrefix(ctx, PrefixOffers); err != nil {
		t.Fatalf("DeletePrefix error: %v", err)
	}

	if _, err := c.Get(ctx, PrefixOffers+"id:1"); err != ErrCacheMiss {
		t.Fatalf("expected offer entry removed")
	}
	if _, err := c.Get(ctx, PrefixOffers+"list:x"); err != ErrCacheMiss {
		t.Fatalf("expected offer list entry removed")
	}
	if _, err := c.Get(ctx, PrefixListings+"id:1"); err != nil {
		t.Fatalf("expected listing entry to survive, got %v", err)
	}
}
