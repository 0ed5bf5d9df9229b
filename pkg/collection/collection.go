package collection

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/kasuboski/moviez/pkg/movie"
	"github.com/kasuboski/moviez/pkg/observer"
)

var (
	ErrNotFound  = errors.New("movie not found in collection")
	ErrDuplicate = errors.New("movie already in collection")
)

// EventKind names the mutation that produced an Event
type EventKind string

const (
	EventLoad    EventKind = "load"
	EventInsert  EventKind = "insert"
	EventPatch   EventKind = "patch"
	EventReplace EventKind = "replace"
	EventRemove  EventKind = "remove"
)

// Event is published after every successful mutation
type Event struct {
	Kind    EventKind
	ID      movie.ID
	Version uint64
}

// Store is the authoritative ordered collection. Records keep insertion order.
//
// Snapshots are immutable: every mutation installs a fresh slice, so a snapshot
// taken earlier is never modified and consecutive snapshots without a mutation in
// between are the same slice. Listeners run synchronously after the mutation with
// no lock held.
type Store struct {
	mu        sync.RWMutex
	records   []movie.Movie
	index     map[movie.ID]int
	version   uint64
	listeners observer.List[Event]
}

func New() *Store {
	return &Store{
		records: []movie.Movie{},
		index:   make(map[movie.ID]int),
	}
}

// Load replaces the whole collection. Later duplicates of an id are dropped.
func (s *Store) Load(records []movie.Movie) {
	next := make([]movie.Movie, 0, len(records))
	index := make(map[movie.ID]int, len(records))
	for _, m := range records {
		if _, ok := index[m.ID]; ok {
			continue
		}
		index[m.ID] = len(next)
		next = append(next, movie.Normalize(m))
	}

	s.mu.Lock()
	s.records = next
	s.index = index
	event := s.bump(EventLoad, "")
	s.mu.Unlock()

	s.listeners.Publish(event)
}

// Insert appends a new record
func (s *Store) Insert(m movie.Movie) error {
	m = movie.Normalize(m)

	s.mu.Lock()
	if _, ok := s.index[m.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicate, m.ID)
	}

	next := make([]movie.Movie, len(s.records), len(s.records)+1)
	copy(next, s.records)
	s.index[m.ID] = len(next)
	s.records = append(next, m)
	event := s.bump(EventInsert, m.ID)
	s.mu.Unlock()

	s.listeners.Publish(event)
	return nil
}

// Patch merges the specified fields of p into the record with id
func (s *Store) Patch(id movie.ID, p movie.Patch) error {
	return s.update(id, EventPatch, func(m movie.Movie) movie.Movie {
		return m.Apply(p)
	})
}

// Replace installs m in place of the record with the same id, keeping its position
func (s *Store) Replace(m movie.Movie) error {
	return s.update(m.ID, EventReplace, func(movie.Movie) movie.Movie {
		return m
	})
}

func (s *Store) update(id movie.ID, kind EventKind, fn func(movie.Movie) movie.Movie) error {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := slices.Clone(s.records)
	next[i] = movie.Normalize(fn(next[i]))
	s.records = next
	event := s.bump(kind, id)
	s.mu.Unlock()

	s.listeners.Publish(event)
	return nil
}

// Remove deletes the record with id
func (s *Store) Remove(id movie.ID) error {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := make([]movie.Movie, 0, len(s.records)-1)
	next = append(next, s.records[:i]...)
	next = append(next, s.records[i+1:]...)
	s.records = next

	delete(s.index, id)
	for j := i; j < len(next); j++ {
		s.index[next[j].ID] = j
	}
	event := s.bump(EventRemove, id)
	s.mu.Unlock()

	s.listeners.Publish(event)
	return nil
}

// Snapshot returns the current records in insertion order. The slice must not be modified.
func (s *Store) Snapshot() []movie.Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

// Versioned returns the current records together with the version they belong to
func (s *Store) Versioned() ([]movie.Movie, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records, s.version
}

// Get returns the record with id
func (s *Store) Get(id movie.ID) (movie.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return movie.Movie{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.records[i], nil
}

// Len returns the number of records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Version increases by one with every mutation
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers fn to run after each mutation
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.listeners.Subscribe(fn)
}

// bump must be called with the write lock held
func (s *Store) bump(kind EventKind, id movie.ID) Event {
	s.version++
	return Event{Kind: kind, ID: id, Version: s.version}
}
