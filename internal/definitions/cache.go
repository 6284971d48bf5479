package definitions

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store memoizes definition results. Implementations must treat expired
// entries as misses and never grow past their configured capacity.
type Store interface {
	Get(key string) (Result, bool)
	Put(key string, v Result)
}

// CacheKey derives a deterministic key from the normalized term, language,
// and a fingerprint of the surrounding context. The fingerprint is built
// from sorted unique context words so the same sentence tokenized in a
// different order maps to the same entry, while distinct topical contexts
// keep polysemous terms apart.
func CacheKey(term, lang, contextText string) string {
	return strings.ToLower(strings.TrimSpace(term)) + "|" + strings.ToLower(lang) + "|" + contextFingerprint(contextText)
}

func contextFingerprint(contextText string) string {
	words := strings.Fields(strings.ToLower(contextText))
	seen := make(map[string]struct{}, len(words))
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?\"'()")
		// Short words carry no topical signal.
		if len([]rune(w)) < 4 {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}
	sort.Strings(keywords)
	sum := sha256.Sum256([]byte(strings.Join(keywords, " ")))
	return hex.EncodeToString(sum[:8])
}

type cacheEntry struct {
	key     string
	value   Result
	expires time.Time
}

// MemoryStore is an in-process LRU store with per-entry TTL. TTL expiry is
// independent of recency: a hot entry still becomes a miss once its hour is
// up, so stale definitions never outlive the configured lifetime.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	now      func() time.Time
}

// NewMemoryStore creates a store with the given capacity and TTL.
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryStore{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the cached result and true on a live hit. Expired entries are
// evicted and reported as misses.
func (s *MemoryStore) Get(key string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return Result{}, false
	}
	entry := el.Value.(*cacheEntry)
	if s.now().After(entry.expires) {
		s.order.Remove(el)
		delete(s.entries, key)
		return Result{}, false
	}
	s.order.MoveToFront(el)
	return entry.value, true
}

// Put stores a result, evicting the least recently used entry at capacity.
func (s *MemoryStore) Put(key string, v Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.value = v
		entry.expires = s.now().Add(s.ttl)
		s.order.MoveToFront(el)
		return
	}
	if s.order.Len() >= s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	el := s.order.PushFront(&cacheEntry{key: key, value: v, expires: s.now().Add(s.ttl)})
	s.entries[key] = el
}

// Len returns the current entry count.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
