// Package cache is the response cache: conditional-request
// revalidation over the transport, per-key duplicate suppression,
// stale-on-error degradation and prefix invalidation, with an optional
// write-through persistence collaborator.
package cache

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/hubview/hubview/pkg/config"
	"github.com/hubview/hubview/pkg/metrics"
	"github.com/hubview/hubview/pkg/model"
	"github.com/hubview/hubview/pkg/storage"
	"github.com/hubview/hubview/pkg/storage/persist"
	"github.com/hubview/hubview/pkg/transport"
)

// Result is what a cache fetch hands back. FromCache marks a body that
// did not cross the network on this call; Stale additionally marks a
// body served past its freshness window because revalidation failed.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FromCache  bool
	Stale      bool
}

// Cache coordinates storage, transport and persistence. At most one
// network fetch is in flight per CacheKey: concurrent callers for the
// same key share the outstanding call.
type Cache struct {
	cfg   config.Cache
	store *storage.Store

	// kvMu guards kv, which is dropped to nil when the persistence
	// collaborator fails (degraded, in-memory-only operation).
	kvMu      sync.Mutex
	kv        persist.KV
	transport transport.Transporter
	group     singleflight.Group
	meter     metrics.Meter
	now       func() time.Time
}

func New(cfg config.Cache, store *storage.Store, kv persist.KV, tr transport.Transporter, meter metrics.Meter) *Cache {
	c := &Cache{
		cfg:       cfg,
		store:     store,
		kv:        kv,
		transport: tr,
		meter:     meter,
		now:       time.Now,
	}
	store.OnEvict(c.onEvict)
	return c
}

func (c *Cache) onEvict(entry *model.Entry) {
	c.meter.CacheEvicted(1)
	c.persistDelete(entry.Key())
}

// Fetch returns the response for key, consulting the network only on a
// miss or past freshness. forceRevalidate skips the freshness window
// and always revalidates against the server.
func (c *Cache) Fetch(ctx context.Context, key *model.CacheKey, forceRevalidate bool) (*Result, error) {
	if entry, found := c.store.Get(key); found && !forceRevalidate && entry.Fresh(c.now()) {
		c.meter.CacheHit()
		return cachedResult(entry, false), nil
	}

	// Collapse concurrent fetches for the same key into one flight.
	v, err, _ := c.group.Do(strconv.FormatUint(key.UniqueKey(), 10), func() (interface{}, error) {
		return c.fetch(ctx, key, forceRevalidate)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (c *Cache) fetch(ctx context.Context, key *model.CacheKey, forceRevalidate bool) (*Result, error) {
	entry, found := c.store.Get(key)

	// A concurrent flight may have refreshed the entry while this
	// caller waited on the singleflight lock.
	if found && !forceRevalidate && entry.Fresh(c.now()) {
		c.meter.CacheHit()
		return cachedResult(entry, false), nil
	}

	req := &transport.Request{
		Method: key.Method(),
		URL:    key.URL(),
		Header: http.Header{},
	}
	if found {
		etag, lastModified := entry.Validators()
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		if lastModified != "" {
			req.Header.Set("If-Modified-Since", lastModified)
		}
	}

	raw, err := c.transport.Do(ctx, req)
	if err != nil {
		if found {
			// Stale data beats no data in an interactive view; the
			// caller sees the degradation through the Stale flag.
			log.Warn().Err(err).Str("url", key.URL()).Msg("[cache] revalidation failed, serving stale")
			c.meter.CacheStaleServed()
			return cachedResult(entry, true), nil
		}
		c.meter.CacheMiss()
		return nil, err
	}

	now := c.now()
	switch {
	case raw.StatusCode == http.StatusNotModified && found:
		entry.Refresh(raw.Header, now)
		c.meter.CacheRevalidated()
		c.persistPut(entry)
		return cachedResult(entry, false), nil

	case raw.StatusCode >= 200 && raw.StatusCode < 300:
		if !found {
			c.meter.CacheMiss()
		}
		// A changed response is stored as a fresh entry through the
		// shard, so the memory and LRU accounting track the new size.
		// Readers holding the previous entry keep their snapshot.
		entry = model.NewEntry(key, raw.StatusCode, raw.Header, raw.Body, now, c.cfg.FreshFor)
		c.store.Set(entry)
		c.persistPut(entry)
		return &Result{
			StatusCode: entry.StatusCode(),
			Header:     entry.Header(),
			Body:       entry.Body(),
		}, nil

	default:
		// Non-cacheable status (404 and friends): pass through
		// without touching the stored entry.
		return &Result{
			StatusCode: raw.StatusCode,
			Header:     raw.Header,
			Body:       raw.Body,
		}, nil
	}
}

// Invalidate removes every cached response whose canonical URL starts
// with prefix, typically after a mutating action on that resource.
func (c *Cache) Invalidate(prefix string) int {
	removed := c.store.InvalidatePrefix(prefix)
	for _, entry := range removed {
		c.persistDelete(entry.Key())
	}
	if len(removed) > 0 {
		log.Debug().Msgf("[cache] invalidated %d entries under %s", len(removed), prefix)
	}
	return len(removed)
}

// Stats is the introspection view served by the debug endpoint.
type Stats struct {
	Entries int64 `json:"entries"`
	Memory  int64 `json:"memory_bytes"`
}

func (c *Cache) Stats() Stats {
	return Stats{Entries: c.store.Len(), Memory: c.store.Mem()}
}

func cachedResult(entry *model.Entry, stale bool) *Result {
	return &Result{
		StatusCode: entry.StatusCode(),
		Header:     entry.Header(),
		Body:       entry.Body(),
		FromCache:  true,
		Stale:      stale,
	}
}
