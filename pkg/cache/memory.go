package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements Store with a capacity-bounded LRU map and
// per-entry TTLs. Suitable for single-node deployments; distributed
// deployments should use the Redis-backed store.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // Front = most recently used
	capacity int

	sweepEvery time.Duration
	stopSweep  chan struct{}
	sweepOnce  sync.Once
}

type memoryEntry struct {
	key       string
	val       []byte
	expiresAt time.Time
}

// MemoryOption is a functional option for configuring MemoryStore.
type MemoryOption func(*MemoryStore)

// WithSweepInterval sets how often the expiry sweep runs.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.sweepEvery = d
	}
}

// NewMemoryStore creates a bounded in-memory verdict cache.
func NewMemoryStore(capacity int, opts ...MemoryOption) *MemoryStore {
	if capacity <= 0 {
		capacity = 2048
	}
	s := &MemoryStore{
		entries:    make(map[string]*list.Element, capacity),
		order:      list.New(),
		capacity:   capacity,
		sweepEvery: time.Minute,
		stopSweep:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.sweepLoop()

	return s
}

// Get returns the cached value and refreshes its recency.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}

	entry := elem.Value.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		s.order.Remove(elem)
		delete(s.entries, key)
		return nil, false, nil
	}

	s.order.MoveToFront(elem)
	return entry.val, true, nil
}

// Set stores a value, evicting the least recently used entry when full.
func (s *MemoryStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if elem, ok := s.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.val = val
		entry.expiresAt = now.Add(ttl)
		s.order.MoveToFront(elem)
		return nil
	}

	for len(s.entries) >= s.capacity {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*memoryEntry).key)
	}

	elem := s.order.PushFront(&memoryEntry{
		key:       key,
		val:       val,
		expiresAt: now.Add(ttl),
	})
	s.entries[key] = elem
	return nil
}

// InvalidateSession removes every entry keyed under the session prefix.
func (s *MemoryStore) InvalidateSession(_ context.Context, sessionID string) error {
	prefix := sessionID + ":"

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, elem := range s.entries {
		if strings.HasPrefix(key, prefix) {
			s.order.Remove(elem)
			delete(s.entries, key)
		}
	}
	return nil
}

// Len returns the current entry count.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the expiry sweep.
func (s *MemoryStore) Close() error {
	s.sweepOnce.Do(func() {
		close(s.stopSweep)
	})
	return nil
}

// sweepLoop periodically removes expired entries so the map does not hold
// dead weight between Gets.
func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopSweep:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, elem := range s.entries {
		if now.After(elem.Value.(*memoryEntry).expiresAt) {
			s.order.Remove(elem)
			delete(s.entries, key)
		}
	}
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
