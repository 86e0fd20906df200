// Package session holds per-client session state and notifies subscribers of changes.
package session

import (
	"sync"

	"litoralcitrus/models"
)

// Listener receives the current session after every change.
type Listener func(models.Session)

// Store is the explicit, injectable holder of one client's session.
// It starts unresolved; the first Set resolves it.
type Store struct {
	mu        sync.Mutex
	current   models.Session
	resolved  bool
	nextID    int
	listeners map[int]Listener
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

// Get returns the current session and whether it has been resolved yet.
func (s *Store) Get() (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.resolved
}

// Set replaces the session and notifies every listener.
func (s *Store) Set(sess models.Session) {
	s.mu.Lock()
	s.current = sess
	s.resolved = true
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(sess)
	}
}

// OnStateChange registers fn and, if the session is already resolved,
// calls it immediately with the current value. The returned func unsubscribes.
func (s *Store) OnStateChange(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current, resolved := s.current, s.resolved
	s.mu.Unlock()

	if resolved {
		fn(current)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}
