package cache

import (
	"strconv"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	for _, tt := range []struct{ capacity, want int }{{100, 100}, {0, 1}, {-5, 1}} {
		c := New[string, int](tt.capacity)
		if got := c.Stats().Capacity; got != tt.want {
			t.Errorf("New(%d) capacity = %d, want %d", tt.capacity, got, tt.want)
		}
		if c.Len() != 0 {
			t.Errorf("New(%d).Len() = %d, want 0", tt.capacity, c.Len())
		}
	}
}

func TestCacheGetSet(t *testing.T) {
	c := New[string, int](10)
	c.Set("key1", 42)

	if val, ok := c.Get("key1"); !ok || val != 42 {
		t.Errorf("Get(key1) = %d, %v, want 42, true", val, ok)
	}
	if _, ok := c.Get("nonexistent"); ok {
		t.Error("Get(nonexistent) found an entry")
	}

	c.Set("key1", 7)
	if val, _ := c.Get("key1"); val != 7 {
		t.Errorf("Get(key1) after overwrite = %d, want 7", val)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheGetOrCreate(t *testing.T) {
	c := New[string, int](10)
	calls := 0
	create := func() int {
		calls++
		return 100
	}
	for range 3 {
		if got := c.GetOrCreate("key1", create); got != 100 {
			t.Errorf("GetOrCreate() = %d, want 100", got)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats() hits/misses = %d/%d, want 2/1", s.Hits, s.Misses)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int, int](3)
	c.Set(1, 1)
	c.Set(2, 2)
	c.Set(3, 3)
	c.Get(1)
	c.Set(4, 4)

	if _, ok := c.Get(2); ok {
		t.Error("entry 2 survived, want it evicted as least recently used")
	}
	for _, k := range []int{1, 3, 4} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("entry %d was evicted", k)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestCacheSingleEntry(t *testing.T) {
	c := New[int, int](1)
	for i := range 5 {
		c.Set(i, i)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	if v, ok := c.Get(4); !ok || v != 4 {
		t.Errorf("Get(4) = %d, %v, want 4, true", v, ok)
	}
}

func TestCacheConcurrent(t *testing.T) {
	c := New[string, int](64)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				k := strconv.Itoa((g + i) % 100)
				c.GetOrCreate(k, func() int { return i })
				c.Get(k)
			}
		}()
	}
	wg.Wait()
	if c.Len() > 64 {
		t.Errorf("Len() = %d, want at most 64", c.Len())
	}
}

func TestList(t *testing.T) {
	var l list[int, struct{}]
	a, b, c := &node[int, struct{}]{key: 1}, &node[int, struct{}]{key: 2}, &node[int, struct{}]{key: 3}
	l.pushFront(a)
	l.pushFront(b)
	l.pushFront(c)
	if l.front != c || l.back != a || l.len != 3 {
		t.Fatalf("after pushes front=%d back=%d len=%d, want 3 1 3", l.front.key, l.back.key, l.len)
	}
	l.moveToFront(a)
	if l.front != a || l.back != b {
		t.Errorf("after moveToFront(1) front=%d back=%d, want 1 2", l.front.key, l.back.key)
	}
	l.remove(c)
	if l.len != 2 || a.next != b || b.prev != a {
		t.Error("remove(3) did not relink its neighbors")
	}
	l.remove(a)
	l.remove(b)
	if l.front != nil || l.back != nil || l.len != 0 {
		t.Error("list not empty after removing every node")
	}
}
