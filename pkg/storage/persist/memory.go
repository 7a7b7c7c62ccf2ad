package persist

import "sync"

// Memory is an in-memory KV used in tests and as the degraded fallback
// when the disk backend cannot be opened.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.items[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *Memory) Put(key, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.mu.Lock()
	m.items[string(key)] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(key []byte) error {
	m.mu.Lock()
	delete(m.items, string(key))
	m.mu.Unlock()
	return nil
}

func (m *Memory) Walk(fn func(key, value []byte) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.items {
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }
