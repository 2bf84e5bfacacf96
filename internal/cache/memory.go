package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryOption customises the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock injects a custom time source, primarily for testing.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemoryStore constructs an empty in-memory cache store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	store := &MemoryStore{
		entries: make(map[string]memoryEntry),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Get returns the live value for key. Expired entries read as misses; they
// stay in the map so GetStale can still serve them until PurgeExpired runs.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && s.clock().After(entry.expiresAt) {
		return nil, false, nil
	}
	return cloneBytes(entry.value), true, nil
}

// GetStale returns the value for key regardless of expiry.
func (s *MemoryStore) GetStale(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(entry.value), true, nil
}

// Set stores the value under key with the supplied TTL.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	expiry := time.Time{}
	if ttl > 0 {
		expiry = s.clock().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{value: cloneBytes(value), expiresAt: expiry}
	return nil
}

// Delete removes the supplied keys.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

// InvalidatePrefix removes every entry whose key starts with prefix. Entries
// under other prefixes are untouched.
func (s *MemoryStore) InvalidatePrefix(_ context.Context, prefix string) error {
	if prefix == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}

// IncrementWithTTL atomically increments a counter for the supplied key.
func (s *MemoryStore) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || (!entry.expiresAt.IsZero() && now.After(entry.expiresAt)) {
		expiry := now.Add(window)
		s.entries[key] = memoryEntry{value: []byte("1"), expiresAt: expiry}
		return 1, window, nil
	}

	current, _ := strconv.ParseInt(string(entry.value), 10, 64)
	count := current + 1
	entry.value = []byte(strconv.FormatInt(count, 10))
	s.entries[key] = entry

	return count, entry.expiresAt.Sub(now), nil
}

// PurgeExpired removes expired entries eagerly and reports how many were removed.
func (s *MemoryStore) PurgeExpired(_ context.Context) int {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func cloneBytes(value []byte) []byte {
	if value == nil {
		return nil
	}
	cpy := make([]byte, len(value))
	copy(cpy, value)
	return cpy
}
