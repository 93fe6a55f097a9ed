// Package session keeps per-session background context overrides in memory.
// Sessions expire after a fixed TTL; nothing is persisted.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"interview-bot/internal/domain"
)

const (
	DefaultTTL      = 30 * time.Minute
	DefaultCapacity = 1024
)

var ErrNotFound = errors.New("session not found")

type entry struct {
	mu      sync.Mutex
	context *string
	busy    bool
}

type Store struct {
	cache *expirable.LRU[string, *entry]
}

// NewStore creates a store holding at most capacity sessions, each evicted
// ttl after it was created or last saved.
func NewStore(capacity int, ttl time.Duration) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: expirable.NewLRU[string, *entry](capacity, nil, ttl)}
}

func (s *Store) Create() string {
	id := uuid.NewString()
	s.cache.Add(id, &entry{})
	return id
}

// SaveContext replaces the session's override and restarts its TTL.
func (s *Store) SaveContext(id, text string) error {
	e, ok := s.cache.Get(id)
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	e.context = &text
	e.mu.Unlock()
	s.cache.Add(id, e)
	return nil
}

// Context returns a copy of the saved override, or nil when none was saved.
// The bool reports whether the session exists.
func (s *Store) Context(id string) (*string, bool) {
	e, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.context == nil {
		return nil, true
	}
	text := *e.context
	return &text, true
}

// Acquire marks the session busy until release is called. A second caller
// gets domain.ErrBusy.
func (s *Store) Acquire(id string) (release func(), err error) {
	e, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return nil, domain.ErrBusy
	}
	e.busy = true

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			e.busy = false
			e.mu.Unlock()
		})
	}, nil
}

func (s *Store) Len() int {
	return s.cache.Len()
}
