package cache

import (
	"context"
	"sync"
	"time"

	"github.com/betonplant/backend/internal/domain/weighing"
)

// entry represents a stored capture token with expiration
type entry struct {
	expiresAt time.Time
}

// InMemoryTokenStore implements CaptureTokenStore using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryTokenStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryTokenStore creates a new in-memory capture token store.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryTokenStore() *InMemoryTokenStore {
	store := &InMemoryTokenStore{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// MarkCaptured marks a capture token as used with a TTL.
// Returns true if the token was newly marked, false if it was already used.
func (s *InMemoryTokenStore) MarkCaptured(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[token]; exists {
		if time.Now().Before(e.expiresAt) {
			return false, nil // already used
		}
		// entry exists but expired, will be overwritten
	}

	s.entries[token] = entry{
		expiresAt: time.Now().Add(ttl),
	}

	return true, nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (s *InMemoryTokenStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryTokenStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryTokenStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for token, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, token)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryTokenStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ weighing.CaptureTokenStore = (*InMemoryTokenStore)(nil)
