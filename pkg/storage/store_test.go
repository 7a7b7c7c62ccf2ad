package storage

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/hubview/hubview/pkg/config"
	"github.com/hubview/hubview/pkg/model"
)

func testCfg() config.Cache {
	return config.Cache{
		FreshFor:                  time.Minute,
		MaxEntries:                1024,
		MemoryLimit:               64 << 20,
		MemoryFillThreshold:       0.95,
		InitStorageLengthPerShard: 8,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, testCfg())
}

func testEntry(t *testing.T, url string) *model.Entry {
	t.Helper()
	k, err := model.NewCacheKey("GET", url, http.Header{})
	if err != nil {
		t.Fatal(err)
	}
	return model.NewEntry(k, 200, http.Header{}, []byte(`[]`), time.Now(), time.Minute)
}

func TestStoreSetGetDel(t *testing.T) {
	s := newTestStore(t)
	e := testEntry(t, "https://api.github.com/user/repos")

	if _, found := s.Get(e.Key()); found {
		t.Fatal("empty store returned an entry")
	}
	s.Set(e)
	got, found := s.Get(e.Key())
	if !found || got != e {
		t.Fatal("stored entry not retrievable")
	}
	if s.Len() != 1 {
		t.Fatalf("wrong length: %d", s.Len())
	}
	if s.Mem() <= 0 {
		t.Fatal("memory accounting not tracking the entry")
	}

	if _, ok := s.Del(e.Key()); !ok {
		t.Fatal("delete of present entry failed")
	}
	if _, found := s.Get(e.Key()); found {
		t.Fatal("deleted entry still retrievable")
	}
	if s.Len() != 0 || s.Mem() != 0 {
		t.Fatalf("accounting not restored after delete: len=%d mem=%d", s.Len(), s.Mem())
	}
}

func TestStoreSetReplacesAndAccounts(t *testing.T) {
	s := newTestStore(t)
	url := "https://api.github.com/repos/o/r"
	s.Set(testEntry(t, url))
	s.Set(testEntry(t, url))
	if s.Len() != 1 {
		t.Fatalf("replace must not grow the store: len=%d", s.Len())
	}
}

func TestShardLRUEvictionOrder(t *testing.T) {
	sh := newShard(0, 8)
	a := testEntry(t, "https://api.github.com/a")
	b := testEntry(t, "https://api.github.com/b")
	c := testEntry(t, "https://api.github.com/c")
	sh.set(a.Key().UniqueKey(), a)
	sh.set(b.Key().UniqueKey(), b)
	sh.set(c.Key().UniqueKey(), c)

	// Touch a so b becomes least recently used.
	if _, found := sh.get(a.Key().UniqueKey()); !found {
		t.Fatal("a missing")
	}

	evicted, ok := sh.evictBack()
	if !ok || evicted != b {
		t.Fatalf("expected b evicted first, got %v", evicted)
	}
	evicted, ok = sh.evictBack()
	if !ok || evicted != c {
		t.Fatalf("expected c evicted second, got %v", evicted)
	}
	evicted, ok = sh.evictBack()
	if !ok || evicted != a {
		t.Fatalf("expected a evicted last, got %v", evicted)
	}
	if _, ok := sh.evictBack(); ok {
		t.Fatal("empty shard must not evict")
	}
}

func TestStoreInvalidatePrefix(t *testing.T) {
	s := newTestStore(t)
	issues := testEntry(t, "https://api.github.com/repos/o/r/issues?page=1")
	issues2 := testEntry(t, "https://api.github.com/repos/o/r/issues?page=2")
	pulls := testEntry(t, "https://api.github.com/repos/o/r/pulls")
	s.Set(issues)
	s.Set(issues2)
	s.Set(pulls)

	removed := s.InvalidatePrefix("https://api.github.com/repos/o/r/issues")
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed, got %d", len(removed))
	}
	if _, found := s.Get(issues.Key()); found {
		t.Fatal("invalidated entry still present")
	}
	if _, found := s.Get(pulls.Key()); !found {
		t.Fatal("unrelated entry was invalidated")
	}
}

func TestStoreMostLoaded(t *testing.T) {
	s := newTestStore(t)
	if s.mostLoaded() != nil {
		t.Fatal("empty store has no loaded shard")
	}
	e := testEntry(t, "https://api.github.com/user")
	s.Set(e)
	sh := s.mostLoaded()
	if sh == nil || sh.count.Load() != 1 {
		t.Fatal("mostLoaded missed the populated shard")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := newTestStore(t)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				e := testEntry(t, fmt.Sprintf("https://api.github.com/repos/o/r%d/issues?page=%d", w, i))
				s.Set(e)
				s.Get(e.Key())
				if i%3 == 0 {
					s.Del(e.Key())
				}
			}
		}(w)
	}
	wg.Wait()

	var walked int64
	s.Walk(func(*model.Entry) { walked++ })
	if walked != s.Len() {
		t.Fatalf("walk and length disagree: %d vs %d", walked, s.Len())
	}
}
