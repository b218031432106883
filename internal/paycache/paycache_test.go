package paycache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := NewWithConfig(10, time.Minute)
	defer c.Stop()

	if c.Get("ag_key") {
		t.Fatal("Expected miss on empty cache")
	}
	c.Set("ag_key")
	if !c.Get("ag_key") {
		t.Fatal("Expected hit after set")
	}
	if c.Get("ag_other") {
		t.Fatal("Expected miss for unrelated key")
	}
}

func TestLazyExpiry(t *testing.T) {
	c := NewWithConfig(10, 20*time.Millisecond)
	defer c.Stop()

	c.Set("ag_key")
	if !c.Get("ag_key") {
		t.Fatal("Expected hit before TTL")
	}
	time.Sleep(40 * time.Millisecond)
	if c.Get("ag_key") {
		t.Fatal("Expected stale entry to read as absent")
	}
}

func TestCapacityBound(t *testing.T) {
	c := NewWithConfig(1000, time.Minute)
	defer c.Stop()

	for i := 0; i < 1500; i++ {
		c.Set(fmt.Sprintf("ag_key_%d", i))
		if n := c.Len(); n > 1000 {
			t.Fatalf("Expected at most 1000 entries, got %d", n)
		}
	}
	if n := c.Len(); n != 1000 {
		t.Fatalf("Expected exactly 1000 entries after overflow, got %d", n)
	}
}

func TestFIFOEviction(t *testing.T) {
	c := NewWithConfig(3, time.Minute)
	defer c.Stop()

	c.Set("a")
	c.Set("b")
	c.Set("c")
	c.Set("d") // evicts a

	if c.Get("a") {
		t.Fatal("Expected oldest entry to be evicted")
	}
	for _, k := range []string{"b", "c", "d"} {
		if !c.Get(k) {
			t.Fatalf("Expected %q to survive eviction", k)
		}
	}
}

func TestReadsDoNotAffectEvictionOrder(t *testing.T) {
	c := NewWithConfig(3, time.Minute)
	defer c.Stop()

	c.Set("a")
	c.Set("b")
	c.Set("c")
	c.Get("a") // must not promote a
	c.Set("d")

	if c.Get("a") {
		t.Fatal("Expected eviction by insertion order, not access order")
	}
}

func TestReinsertRefreshesPosition(t *testing.T) {
	c := NewWithConfig(3, time.Minute)
	defer c.Stop()

	c.Set("a")
	c.Set("b")
	c.Set("c")
	c.Set("a") // refresh: b is now oldest
	c.Set("d")

	if c.Get("b") {
		t.Fatal("Expected b to be evicted after a was refreshed")
	}
	if !c.Get("a") {
		t.Fatal("Expected refreshed entry to survive")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := NewWithConfig(100, time.Minute)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("ag_%d_%d", worker, j%50)
				c.Set(key)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if n := c.Len(); n > 100 {
		t.Fatalf("Expected capacity to hold under concurrency, got %d", n)
	}
}
