package storage

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hubview/hubview/pkg/config"
	"github.com/hubview/hubview/pkg/model"
	"github.com/hubview/hubview/pkg/utils"
)

// Store is the in-memory cache storage: a sharded map with per-shard
// LRU lists, bounded by entry count and resident memory. A background
// evictor trims least-recently-used entries once either bound is hit.
type Store struct {
	ctx          context.Context
	cfg          config.Cache
	shards       [ShardCount]*shard
	memThreshold int64

	// onEvict, when set, observes every entry removed by capacity
	// eviction (not by explicit Del/InvalidatePrefix). Set once before
	// the store is shared.
	onEvict func(*model.Entry)
}

func New(ctx context.Context, cfg config.Cache) *Store {
	s := &Store{
		ctx:          ctx,
		cfg:          cfg,
		memThreshold: int64(float64(cfg.MemoryLimit) * cfg.MemoryFillThreshold),
	}
	for id := uint64(0); id < ShardCount; id++ {
		s.shards[id] = newShard(id, cfg.InitStorageLengthPerShard)
	}
	go s.evictor()
	return s
}

// OnEvict registers the eviction observer. Must be called before the
// store is used concurrently.
func (s *Store) OnEvict(fn func(*model.Entry)) { s.onEvict = fn }

func (s *Store) shard(key uint64) *shard {
	return s.shards[key%ShardCount]
}

// Get returns the entry for the key and marks it most recently used.
func (s *Store) Get(key *model.CacheKey) (*model.Entry, bool) {
	return s.shard(key.UniqueKey()).get(key.UniqueKey())
}

// Set inserts or replaces the entry for its key.
func (s *Store) Set(entry *model.Entry) {
	k := entry.Key().UniqueKey()
	s.shard(k).set(k, entry)
}

// Del removes the entry for the key if present.
func (s *Store) Del(key *model.CacheKey) (*model.Entry, bool) {
	return s.shard(key.UniqueKey()).del(key.UniqueKey())
}

// InvalidatePrefix removes every entry whose canonical URL starts with
// prefix and returns the removed entries so the caller can drop their
// persisted copies too.
func (s *Store) InvalidatePrefix(prefix string) []*model.Entry {
	var removed []*model.Entry
	for _, sh := range s.shards {
		removed = append(removed, sh.removePrefix(prefix)...)
	}
	return removed
}

// Walk visits every entry across all shards under read locks.
func (s *Store) Walk(fn func(*model.Entry)) {
	for _, sh := range s.shards {
		sh.walk(fn)
	}
}

func (s *Store) Len() int64 {
	var n int64
	for _, sh := range s.shards {
		n += sh.count.Load()
	}
	return n
}

func (s *Store) Mem() int64 {
	var mem int64
	for _, sh := range s.shards {
		mem += sh.mem.Load()
	}
	return mem
}

func (s *Store) shouldEvict() bool {
	return s.Mem() >= s.memThreshold || s.Len() > s.cfg.MaxEntries
}

// evictor wakes every second and trims LRU entries from the most loaded
// shard until the store is back under its limits.
func (s *Store) evictor() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	var lastReport time.Time
	var evictedItems int
	var evictedMem int64
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			for s.shouldEvict() {
				sh := s.mostLoaded()
				if sh == nil {
					break
				}
				entry, ok := sh.evictBack()
				if !ok {
					break
				}
				evictedItems++
				evictedMem += entry.Size()
				if s.onEvict != nil {
					s.onEvict(entry)
				}
			}
			if s.cfg.Dir != "" || evictedItems > 0 {
				if time.Since(lastReport) >= 5*time.Second && evictedItems > 0 {
					var m runtime.MemStats
					runtime.ReadMemStats(&m)
					log.Debug().Msgf("[storage]: evicted [n: %d, mem: %s], storage [memUsage: %s, memLimit: %s, len: %d], sys [alloc: %s, routines: %d]",
						evictedItems, utils.FmtMemory(uintptr(evictedMem)),
						utils.FmtMemory(uintptr(s.Mem())), utils.FmtMemory(uintptr(s.cfg.MemoryLimit)),
						s.Len(), utils.FmtMemory(uintptr(m.Alloc)), runtime.NumGoroutine())
					evictedItems = 0
					evictedMem = 0
					lastReport = time.Now()
				}
			}
		}
	}
}

func (s *Store) mostLoaded() *shard {
	var best *shard
	var bestMem int64
	for _, sh := range s.shards {
		if sh.count.Load() == 0 {
			continue
		}
		if m := sh.mem.Load(); best == nil || m > bestMem {
			best = sh
			bestMem = m
		}
	}
	return best
}
