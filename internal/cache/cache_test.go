package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCache_GetSet(t *testing.T) {
	c := New[string](time.Minute, 10)
	c.Set("final", "ranking")

	got, ok := c.Get("final")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != "ranking" {
		t.Errorf("expected ranking, got %q", got)
	}
}

func TestCache_Miss(t *testing.T) {
	c := New[int](time.Minute, 10)
	if _, ok := c.Get("missing"); ok {
		t.Error("expected cache miss")
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	c := New[int](30*time.Second, 10)
	c.now = func() time.Time { return now }

	c.Set("k", 1)
	now = now.Add(29 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed, len=%d", c.Len())
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := New[int](time.Minute, 10)
	c.Set("midday", 1)
	c.Set("final", 2)

	c.Invalidate()

	if c.Len() != 0 {
		t.Errorf("expected empty cache, len=%d", c.Len())
	}
	if _, ok := c.Get("final"); ok {
		t.Error("expected miss after invalidate")
	}
}

func TestCache_MaxEntriesEvictsOldest(t *testing.T) {
	c := New[int](time.Minute, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Error("expected oldest entry a to be evicted")
	}
	for _, k := range []string{"b", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %s to remain", k)
		}
	}
}

func TestCache_OverwriteKeepsCapacity(t *testing.T) {
	c := New[int](time.Minute, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	if v, _ := c.Get("a"); v != 3 {
		t.Errorf("expected overwritten value 3, got %d", v)
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("overwrite must not evict b")
	}
}

func TestCache_MaxEntriesZero(t *testing.T) {
	c := New[int](time.Minute, 0)
	c.Set("a", 1)
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a capacity of at least one")
	}
}

func TestCache_ThreadSafety(t *testing.T) {
	c := New[int](time.Minute, 50)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (n+j)%60)
				c.Set(key, j)
				c.Get(key)
				if j%25 == 0 {
					c.Invalidate()
				}
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("cache exceeded capacity: %d", c.Len())
	}
}
