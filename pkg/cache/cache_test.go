package cache_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sandrolain/gobeat/pkg/cache"
	"github.com/sandrolain/gobeat/pkg/parser"
	"github.com/sandrolain/gobeat/pkg/types"
)

func mustParse(t *testing.T, src string) *types.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return prog
}

func TestCacheNew(t *testing.T) {
	c := cache.New(10)
	if got := c.Len(); got != 0 {
		t.Fatalf("expected empty cache, got %d", got)
	}
	if got := c.Capacity(); got != 10 {
		t.Fatalf("expected capacity 10, got %d", got)
	}
}

func TestCacheDefaultCapacity(t *testing.T) {
	c := cache.New(0)
	if got := c.Capacity(); got != 256 {
		t.Fatalf("expected default capacity 256, got %d", got)
	}
}

func TestCacheSetGet(t *testing.T) {
	c := cache.New(4)
	prog := mustParse(t, "t*2")
	c.Set("t*2", prog)
	if got := c.Len(); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
	got, ok := c.Get("t*2")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != prog {
		t.Fatal("expected same program pointer")
	}
}

func TestCacheMiss(t *testing.T) {
	c := cache.New(4)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected cache miss")
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c := cache.New(3)
	for _, k := range []string{"a", "b", "c"} {
		c.Set(k, mustParse(t, "t"))
	}
	// touch "a" so "b" becomes the least recently used entry
	if _, ok := c.Get("a"); !ok {
		t.Fatal(`expected "a" to be cached`)
	}
	c.Set("d", mustParse(t, "t"))

	if got := c.Len(); got != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", got)
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal(`expected "b" to be evicted (LRU)`)
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("expected %q to survive", k)
		}
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := cache.New(4)
	c.Set("k", mustParse(t, "t"))
	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after Invalidate")
	}
}

func TestCacheClear(t *testing.T) {
	c := cache.New(4)
	for _, k := range []string{"a", "b", "c"} {
		c.Set(k, mustParse(t, "t"))
	}
	c.Clear()
	if got := c.Len(); got != 0 {
		t.Fatalf("expected 0 after Clear, got %d", got)
	}
}

func TestCacheGetOrParse(t *testing.T) {
	c := cache.New(4)
	calls := 0
	parse := func() (*types.Program, error) {
		calls++
		return parser.Parse("t>>4")
	}

	p1, err := c.GetOrParse("t>>4", parse)
	if err != nil || p1 == nil {
		t.Fatalf("first GetOrParse: %v", err)
	}
	p2, err := c.GetOrParse("t>>4", parse)
	if err != nil || p2 == nil {
		t.Fatalf("second GetOrParse: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 parse call, got %d", calls)
	}
	if p1 != p2 {
		t.Fatal("expected same pointer from cache")
	}
}

func TestCacheGetOrParseDoesNotCacheErrors(t *testing.T) {
	c := cache.New(4)
	boom := errors.New("boom")
	calls := 0
	parse := func() (*types.Program, error) {
		calls++
		return nil, boom
	}
	for i := 0; i < 2; i++ {
		if _, err := c.GetOrParse("bad", parse); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}
	if calls != 2 || c.Len() != 0 {
		t.Fatalf("errors must not be cached: calls=%d len=%d", calls, c.Len())
	}
}

func TestCacheSetUpdate(t *testing.T) {
	c := cache.New(4)
	p1 := mustParse(t, "t")
	p2 := mustParse(t, "t+1")
	c.Set("k", p1)
	c.Set("k", p2)
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit after overwrite")
	}
	if got != p2 {
		t.Fatal("expected updated program pointer")
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after overwrite, got %d", c.Len())
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := cache.New(8)
	prog := mustParse(t, "t")
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g+i)%12)
				c.Set(key, prog)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > c.Capacity() {
		t.Fatalf("cache grew past capacity: %d", c.Len())
	}
}
