// Package memory provides an in-memory storage implementation for
// testing and example code.
package memory

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flockhq/eventkit/event"
	"github.com/flockhq/eventkit/storage"
)

// Store implements storage.Storage using in-memory maps.
type Store struct {
	mu         sync.RWMutex
	events     map[string]event.Event
	exceptions map[string]event.ExceptionSet
	revisions  map[string]int
}

// New creates a new in-memory storage.
func New() *Store {
	return &Store{
		events:     make(map[string]event.Event),
		exceptions: make(map[string]event.ExceptionSet),
		revisions:  make(map[string]int),
	}
}

func generateETag(id string, revision int) string {
	hash := sha1.Sum([]byte(id + "#" + strconv.Itoa(revision)))
	return `"` + hex.EncodeToString(hash[:]) + `"`
}

func (s *Store) CreateEvent(_ context.Context, ev *event.Event) error {
	if ev == nil {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "nil event"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	} else if _, exists := s.events[ev.ID]; exists {
		return &storage.Error{Type: storage.ErrAlreadyExists, Message: "event already exists"}
	}
	s.revisions[ev.ID] = 1
	ev.ETag = generateETag(ev.ID, 1)
	s.events[ev.ID] = *ev
	return nil
}

func (s *Store) UpdateEvent(_ context.Context, ev *event.Event) error {
	if ev == nil || ev.ID == "" {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "event without id"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.events[ev.ID]
	if !exists {
		return &storage.Error{Type: storage.ErrNotFound, Message: "event not found"}
	}
	if ev.ETag != "" && ev.ETag != stored.ETag {
		return &storage.Error{Type: storage.ErrConflict, Message: "etag mismatch"}
	}
	rev := s.revisions[ev.ID] + 1
	s.revisions[ev.ID] = rev
	ev.ETag = generateETag(ev.ID, rev)
	s.events[ev.ID] = *ev
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[eventID]; !exists {
		return &storage.Error{Type: storage.ErrNotFound, Message: "event not found"}
	}
	delete(s.events, eventID)
	delete(s.exceptions, eventID)
	delete(s.revisions, eventID)
	return nil
}

func (s *Store) GetEvent(_ context.Context, eventID string) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, exists := s.events[eventID]
	if !exists {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: "event not found"}
	}
	return &ev, nil
}

func (s *Store) CreateException(_ context.Context, eventID string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[eventID]; !exists {
		return &storage.Error{Type: storage.ErrNotFound, Message: "event not found"}
	}
	s.exceptions[eventID] = s.exceptions[eventID].Add(date)
	return nil
}

func (s *Store) GetSeries(_ context.Context, eventID string) (*storage.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, exists := s.events[eventID]
	if !exists {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: "event not found"}
	}
	return &storage.Series{Event: ev, Exceptions: s.exceptions[eventID]}, nil
}
