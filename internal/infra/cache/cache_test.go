package cache_test

import (
	"testing"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/infra/cache"
)

func TestGetSetDelete(t *testing.T) {
	c := cache.New[string](time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("expected hit with 'v', got %q ok=%v", got, ok)
	}

	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestExpiry(t *testing.T) {
	c := cache.New[int](10 * time.Millisecond)

	c.Set("k", 42)
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestLen(t *testing.T) {
	c := cache.New[int](time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3) // overwrite, not a new entry

	if n := c.Len(); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}
}
