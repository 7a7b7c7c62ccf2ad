package model

import (
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// varyHeaders are the request headers that participate in cache identity.
// Accept changes the representation GitHub returns; Authorization scopes
// what the token is allowed to see.
var varyHeaders = []string{"Accept", "Authorization"}

// CacheKey identifies a cacheable request: method, canonicalized URL and
// the small set of varying headers. Immutable once constructed.
type CacheKey struct {
	method    string
	url       string
	vary      string
	uniqueKey uint64
}

// NewCacheKey canonicalizes rawURL (lowercased scheme/host, default port
// stripped, query parameters sorted) and folds the varying headers into
// the key. Two requests that differ only in query parameter order map to
// the same key.
func NewCacheKey(method, rawURL string, header http.Header) (*CacheKey, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) ||
		(u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) {
		u.Host = u.Host[:strings.LastIndexByte(u.Host, ':')]
	}
	if u.RawQuery != "" {
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			vals := q[k]
			sort.Strings(vals)
			for _, v := range vals {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = b.String()
	}

	var vb strings.Builder
	for _, name := range varyHeaders {
		if v := header.Get(name); v != "" {
			vb.WriteString(name)
			vb.WriteByte(':')
			vb.WriteString(v)
			vb.WriteByte('\n')
		}
	}

	k := &CacheKey{
		method: strings.ToUpper(method),
		url:    u.String(),
		vary:   vb.String(),
	}
	k.uniqueKey = xxh3.HashString(k.String())
	return k, nil
}

func (k *CacheKey) Method() string { return k.method }
func (k *CacheKey) URL() string    { return k.url }

// String is the canonical textual form, also used as the persistence key.
func (k *CacheKey) String() string {
	return k.method + " " + k.url + "\n" + k.vary
}

// UniqueKey is the xxh3 hash of the canonical form, used for sharded
// storage lookup and duplicate suppression.
func (k *CacheKey) UniqueKey() uint64 {
	return k.uniqueKey
}

// ParseCacheKey rebuilds a key from its canonical String() form, as
// stored by the persistence collaborator.
func ParseCacheKey(canonical string) (*CacheKey, error) {
	idx := strings.IndexByte(canonical, '\n')
	if idx < 0 {
		return nil, errMalformedKey
	}
	first := canonical[:idx]
	method, rawURL, ok := strings.Cut(first, " ")
	if !ok || method == "" || rawURL == "" {
		return nil, errMalformedKey
	}
	k := &CacheKey{
		method: method,
		url:    rawURL,
		vary:   canonical[idx+1:],
	}
	k.uniqueKey = xxh3.HashString(k.String())
	return k, nil
}

var errMalformedKey = errors.New("malformed cache key")
