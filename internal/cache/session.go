package cache

import (
	"container/list"
	"sync"
	"time"
)

// Session is an in-process LRU cache with per-entry TTL. It holds
// serialized payloads keyed by fingerprint and serves repeat queries
// within a session without touching SQLite.
type Session struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	items    map[string]*list.Element

	hits   int64
	misses int64

	now func() time.Time
}

type sessionEntry struct {
	fingerprint string
	payload     string
	storedAt    time.Time
}

// NewSession creates a Session with the given capacity and TTL in seconds.
// capacity <= 0 disables the cache entirely.
func NewSession(capacity, ttlSeconds int) *Session {
	return &Session{
		capacity: capacity,
		ttl:      time.Duration(ttlSeconds) * time.Second,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Get returns the cached payload for the fingerprint, if present and fresh.
func (s *Session) Get(fingerprint string) (string, bool) {
	if s.capacity <= 0 {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[fingerprint]
	if !ok {
		s.misses++
		return "", false
	}
	entry := el.Value.(*sessionEntry)
	if s.ttl > 0 && s.now().Sub(entry.storedAt) > s.ttl {
		s.order.Remove(el)
		delete(s.items, fingerprint)
		s.misses++
		return "", false
	}

	s.order.MoveToFront(el)
	s.hits++
	return entry.payload, true
}

// Put stores a payload, evicting the least recently used entry when full.
func (s *Session) Put(fingerprint, payload string) {
	if s.capacity <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[fingerprint]; ok {
		entry := el.Value.(*sessionEntry)
		entry.payload = payload
		entry.storedAt = s.now()
		s.order.MoveToFront(el)
		return
	}

	el := s.order.PushFront(&sessionEntry{
		fingerprint: fingerprint,
		payload:     payload,
		storedAt:    s.now(),
	})
	s.items[fingerprint] = el

	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*sessionEntry).fingerprint)
	}
}

// Len returns the number of cached entries.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Stats returns hit and miss counts since creation.
func (s *Session) Stats() (hits, misses int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}
