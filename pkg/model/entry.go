package model

import (
	"container/list"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unsafe"
)

// Entry is a cached HTTP response. It owns the stored body, status and
// headers together with the conditional-request validators and the
// staleness timestamp. All mutation goes through Refresh/Replace under
// the entry lock, so a reader never observes a partial write.
type Entry struct {
	mu           sync.RWMutex
	key          *CacheKey
	statusCode   int
	header       http.Header
	body         []byte
	etag         string
	lastModified string
	fetchedAt    time.Time
	freshFor     time.Duration

	// listElement is LRU bookkeeping owned by the storage shard.
	listElement *list.Element
}

// NewEntry builds an entry from a fetched response. The freshness window
// defaults to freshFor but a Cache-Control max-age directive on the
// response takes precedence.
func NewEntry(key *CacheKey, statusCode int, header http.Header, body []byte, now time.Time, freshFor time.Duration) *Entry {
	e := &Entry{
		key:        key,
		statusCode: statusCode,
		header:     header,
		body:       body,
		fetchedAt:  now,
		freshFor:   freshFor,
	}
	e.absorbValidators(header)
	return e
}

func (e *Entry) absorbValidators(header http.Header) {
	if v := header.Get("ETag"); v != "" {
		e.etag = v
	}
	if v := header.Get("Last-Modified"); v != "" {
		e.lastModified = v
	}
	if age, ok := maxAge(header); ok {
		e.freshFor = age
	}
}

func maxAge(header http.Header) (time.Duration, bool) {
	cc := header.Get("Cache-Control")
	for _, part := range strings.Split(cc, ",") {
		part = strings.TrimSpace(part)
		if rest, ok := strings.CutPrefix(part, "max-age="); ok {
			secs, err := strconv.Atoi(rest)
			if err != nil || secs < 0 {
				return 0, false
			}
			return time.Duration(secs) * time.Second, true
		}
	}
	return 0, false
}

// Fresh reports whether the entry may be served without revalidation.
func (e *Entry) Fresh(now time.Time) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return now.Sub(e.fetchedAt) < e.freshFor
}

// Validators returns the stored ETag and Last-Modified values for
// building a conditional request. Either may be empty.
func (e *Entry) Validators() (etag, lastModified string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.etag, e.lastModified
}

// Refresh handles a 304 revalidation: the staleness timestamp moves
// forward and rate-limit/validator headers from the 304 are absorbed,
// but the stored body and status never change.
func (e *Entry) Refresh(header http.Header, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fetchedAt = now
	for _, name := range []string{"X-RateLimit-Remaining", "X-RateLimit-Reset", "X-RateLimit-Limit"} {
		if v := header.Get(name); v != "" {
			e.header.Set(name, v)
		}
	}
	e.absorbValidators(header)
}

func (e *Entry) Key() *CacheKey { return e.key }

func (e *Entry) StatusCode() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.statusCode
}

// Header returns a copy of the stored headers. The stored map is
// mutated in place by Refresh, so the live map must never escape the
// entry lock.
func (e *Entry) Header() http.Header {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.header.Clone()
}

func (e *Entry) Body() []byte {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.body
}

func (e *Entry) FetchedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fetchedAt
}

// Size approximates the resident memory of the entry for the storage
// memory accounting.
func (e *Entry) Size() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	size := int64(unsafe.Sizeof(*e)) + int64(len(e.body)) + int64(len(e.key.String()))
	for name, vals := range e.header {
		size += int64(len(name))
		for _, v := range vals {
			size += int64(len(v))
		}
	}
	return size
}

func (e *Entry) ListElement() *list.Element {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.listElement
}

func (e *Entry) SetListElement(el *list.Element) {
	e.mu.Lock()
	e.listElement = el
	e.mu.Unlock()
}

// EntrySnapshot is the gob-encodable image of an entry used by the
// persistence collaborator.
type EntrySnapshot struct {
	// Key is the canonical CacheKey string.
	Key        string
	StatusCode int
	Header     http.Header
	Body       []byte
	FetchedAt  time.Time
	FreshFor   time.Duration
}

// Snapshot captures the entry under the read lock.
func (e *Entry) Snapshot() EntrySnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return EntrySnapshot{
		Key:        e.key.String(),
		StatusCode: e.statusCode,
		// Copied: the snapshot is serialized after the lock is released.
		Header:    e.header.Clone(),
		Body:      e.body,
		FetchedAt: e.fetchedAt,
		FreshFor:  e.freshFor,
	}
}

// Restore rebuilds an entry from a persisted snapshot.
func Restore(s EntrySnapshot) (*Entry, error) {
	key, err := ParseCacheKey(s.Key)
	if err != nil {
		return nil, err
	}
	return NewEntry(key, s.StatusCode, s.Header, s.Body, s.FetchedAt, s.FreshFor), nil
}
