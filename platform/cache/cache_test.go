package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSetEvictsOldestAtCapacity(t *testing.T) {
	c := New[int](3, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Set("d", 4)

	if c.Len() != 3 {
		t.Fatalf("expected 3 entries after overflow, got %d", c.Len())
	}
	if c.Has("a") {
		t.Fatal("expected oldest key a to be evicted")
	}
	for _, key := range []string{"b", "c", "d"} {
		if !c.Has(key) {
			t.Fatalf("expected key %s to survive eviction", key)
		}
	}
}

func TestSetExistingKeyDoesNotEvict(t *testing.T) {
	c := New[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	got, ok := c.Get("a")
	if !ok || got != 10 {
		t.Fatalf("expected updated value 10, got %d (ok=%v)", got, ok)
	}
	if !c.Has("b") {
		t.Fatal("updating an existing key must not evict")
	}
}

func TestGetLazilyExpires(t *testing.T) {
	c := New[string](10, time.Minute)
	now := time.Now()
	c.SetClock(func() time.Time { return now })

	c.Set("k", "v")

	now = now.Add(time.Minute + time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to be absent")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry removed on read, got len %d", c.Len())
	}
}

func TestPruneRemovesOnlyExpired(t *testing.T) {
	c := New[int](10, time.Minute)
	now := time.Now()
	c.SetClock(func() time.Time { return now })

	c.Set("old", 1)
	now = now.Add(40 * time.Second)
	c.Set("fresh", 2)
	now = now.Add(30 * time.Second)

	removed := c.Prune()
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
	if c.Has("old") {
		t.Fatal("expected old entry pruned")
	}
	if !c.Has("fresh") {
		t.Fatal("expected fresh entry kept")
	}
}

func TestSetNXGuardSemantics(t *testing.T) {
	c := New[string](10, time.Minute)
	now := time.Now()
	c.SetClock(func() time.Time { return now })

	if !c.SetNX("k", "first", time.Minute) {
		t.Fatal("expected the first SetNX to win")
	}
	if c.SetNX("k", "second", time.Minute) {
		t.Fatal("expected SetNX on a held key to lose")
	}
	got, _ := c.Get("k")
	if got != "first" {
		t.Fatalf("a losing SetNX must not overwrite, got %q", got)
	}

	// An expired entry counts as absent.
	now = now.Add(2 * time.Minute)
	if !c.SetNX("k", "third", time.Minute) {
		t.Fatal("expected SetNX to win over an expired entry")
	}
}

func TestSetNXSingleWinnerUnderContention(t *testing.T) {
	c := New[int](10, time.Minute)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if c.SetNX("k", n, time.Minute) {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&wins); got != 1 {
		t.Fatalf("expected exactly one winner, got %d", got)
	}
}

func TestDeleteAndClear(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	if c.Has("a") {
		t.Fatal("expected deleted key absent")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after clear, got %d", c.Len())
	}

	// Eviction order must stay consistent after deletes.
	c.Set("x", 1)
	c.Set("y", 2)
	c.Delete("x")
	c.Set("z", 3)
	if !c.Has("y") || !c.Has("z") {
		t.Fatal("expected y and z present after delete/reinsert")
	}
}
