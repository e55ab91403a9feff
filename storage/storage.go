// Package storage defines the event-storage collaborator boundary the
// series editor writes through and the calendar UI reads from. The engine
// never talks to a network or database itself; applications implement
// Storage against their backend and the memory subpackage provides a
// reference implementation.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/flockhq/eventkit/event"
)

// ErrorType classifies storage errors.
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	// ErrConflict is returned when an update carries a stale ETag.
	ErrConflict ErrorType = "conflict"
)

// Error represents a storage-related error.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Series bundles an event with the exception markers recorded against it;
// together with the rule carried inside the event it is everything the
// expander needs.
type Series struct {
	Event      event.Event
	Exceptions event.ExceptionSet
}

// Storage is the interface that must be implemented by event storage
// backends. Please use the error types provided.
type Storage interface {
	// CreateEvent persists a new event, assigning its ID and ETag in place.
	CreateEvent(ctx context.Context, ev *event.Event) error
	// UpdateEvent overwrites an existing event. The event's ETag must match
	// the stored one; a mismatch fails with ErrConflict. The stored ETag is
	// bumped and written back into ev.
	UpdateEvent(ctx context.Context, ev *event.Event) error
	// DeleteEvent removes an event and any exceptions recorded against it.
	DeleteEvent(ctx context.Context, eventID string) error
	// GetEvent retrieves a single event by ID.
	GetEvent(ctx context.Context, eventID string) (*event.Event, error)
	// CreateException records a suppressed occurrence date against a
	// series. Recording the same date twice is a no-op.
	CreateException(ctx context.Context, eventID string, date time.Time) error
	// GetSeries retrieves an event together with its exception set.
	GetSeries(ctx context.Context, eventID string) (*Series, error)
}
