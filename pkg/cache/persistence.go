package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hubview/hubview/pkg/model"
	"github.com/hubview/hubview/pkg/storage/persist"
)

// CacheIOError reports a persistence collaborator failure. Callers
// degrade to in-memory-only operation instead of failing the fetch.
type CacheIOError struct {
	Op  string
	Err error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("cache persistence %s: %v", e.Op, e.Err)
}

func (e *CacheIOError) Unwrap() error { return e.Err }

// Load rebuilds the in-memory store from the persistence collaborator.
// Corrupt records are skipped, not fatal; a failing walk disables
// persistence for the rest of the process.
func (c *Cache) Load() error {
	kv := c.currentKV()
	if kv == nil {
		return nil
	}
	var loaded, skipped int
	err := kv.Walk(func(key, value []byte) error {
		var snap model.EntrySnapshot
		if err := gob.NewDecoder(bytes.NewReader(value)).Decode(&snap); err != nil {
			skipped++
			return nil
		}
		entry, err := model.Restore(snap)
		if err != nil {
			skipped++
			return nil
		}
		c.store.Set(entry)
		loaded++
		return nil
	})
	if err != nil {
		ioErr := &CacheIOError{Op: "load", Err: err}
		c.degrade(ioErr)
		return ioErr
	}
	log.Info().Msgf("[cache] restored %d persisted entries (%d skipped)", loaded, skipped)
	return nil
}

func (c *Cache) currentKV() persist.KV {
	c.kvMu.Lock()
	defer c.kvMu.Unlock()
	return c.kv
}

func (c *Cache) persistPut(entry *model.Entry) {
	kv := c.currentKV()
	if kv == nil {
		return
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry.Snapshot()); err != nil {
		c.degrade(&CacheIOError{Op: "encode", Err: err})
		return
	}
	if err := kv.Put([]byte(entry.Key().String()), buf.Bytes()); err != nil {
		c.degrade(&CacheIOError{Op: "put", Err: err})
	}
}

func (c *Cache) persistDelete(key *model.CacheKey) {
	kv := c.currentKV()
	if kv == nil {
		return
	}
	if err := kv.Delete([]byte(key.String())); err != nil {
		c.degrade(&CacheIOError{Op: "delete", Err: err})
	}
}

// degrade drops the persistence collaborator after a failure: the
// cache keeps running in memory only.
func (c *Cache) degrade(err *CacheIOError) {
	log.Warn().Err(err).Msg("[cache] persistence degraded to in-memory only")
	c.kvMu.Lock()
	c.kv = nil
	c.kvMu.Unlock()
}
