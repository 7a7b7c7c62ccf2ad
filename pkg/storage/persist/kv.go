// Package persist is the cache persistence collaborator: a byte-level
// key-value store the response cache writes entry snapshots through.
// The cache is agnostic to the backing medium; the shipped backend is
// LevelDB, tests use the in-memory implementation.
package persist

import "errors"

// ErrNotFound is returned by Get when no value is stored for the key.
var ErrNotFound = errors.New("persist: not found")

// KV is the minimal byte store contract.
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// Walk visits every stored pair. Returning an error from fn stops
	// the walk and surfaces the error.
	Walk(fn func(key, value []byte) error) error
	Close() error
}
