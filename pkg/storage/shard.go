package storage

import (
	"container/list"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hubview/hubview/pkg/model"
)

// ShardCount is the number of independent shards. Shard selection is
// UniqueKey % ShardCount, so it must stay a power of two.
const ShardCount uint64 = 256

// shard owns one slice of the keyspace: a hash map for lookup and an
// LRU list for eviction ordering. The shard lock covers both.
type shard struct {
	sync.RWMutex
	id    uint64
	items map[uint64]*model.Entry
	lru   *list.List // front = most recently used
	mem   atomic.Int64
	count atomic.Int64
}

func newShard(id uint64, defaultLen int) *shard {
	return &shard{
		id:    id,
		items: make(map[uint64]*model.Entry, defaultLen),
		lru:   list.New(),
	}
}

func (s *shard) get(key uint64) (*model.Entry, bool) {
	s.Lock()
	defer s.Unlock()
	entry, found := s.items[key]
	if !found {
		return nil, false
	}
	if el := entry.ListElement(); el != nil {
		s.lru.MoveToFront(el)
	}
	return entry, true
}

func (s *shard) set(key uint64, entry *model.Entry) (replaced *model.Entry) {
	s.Lock()
	defer s.Unlock()
	if old, found := s.items[key]; found {
		replaced = old
		if el := old.ListElement(); el != nil {
			s.lru.Remove(el)
		}
		s.mem.Add(-old.Size())
		s.count.Add(-1)
	}
	entry.SetListElement(s.lru.PushFront(entry))
	s.items[key] = entry
	s.mem.Add(entry.Size())
	s.count.Add(1)
	return replaced
}

func (s *shard) del(key uint64) (*model.Entry, bool) {
	s.Lock()
	defer s.Unlock()
	return s.removeLocked(key)
}

func (s *shard) removeLocked(key uint64) (*model.Entry, bool) {
	entry, found := s.items[key]
	if !found {
		return nil, false
	}
	delete(s.items, key)
	if el := entry.ListElement(); el != nil {
		s.lru.Remove(el)
	}
	s.mem.Add(-entry.Size())
	s.count.Add(-1)
	return entry, true
}

// evictBack removes the least-recently-used entry of this shard.
func (s *shard) evictBack() (*model.Entry, bool) {
	s.Lock()
	defer s.Unlock()
	back := s.lru.Back()
	if back == nil {
		return nil, false
	}
	entry, ok := back.Value.(*model.Entry)
	if !ok {
		s.lru.Remove(back)
		return nil, false
	}
	return s.removeLocked(entry.Key().UniqueKey())
}

// removePrefix drops every entry whose canonical URL starts with prefix
// and returns the removed entries.
func (s *shard) removePrefix(prefix string) []*model.Entry {
	s.Lock()
	defer s.Unlock()
	var removed []*model.Entry
	for key, entry := range s.items {
		if strings.HasPrefix(entry.Key().URL(), prefix) {
			if e, ok := s.removeLocked(key); ok {
				removed = append(removed, e)
			}
		}
	}
	return removed
}

func (s *shard) walk(fn func(*model.Entry)) {
	s.RLock()
	defer s.RUnlock()
	for _, entry := range s.items {
		fn(entry)
	}
}
