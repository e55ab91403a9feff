// Package event holds the core calendar domain values shared by the rule
// model, the occurrence expander and the series editor: the persisted Event,
// the derived Occurrence, query windows and per-series exception sets.
package event

import "time"

// Visibility controls who can see an event.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Event is the persisted entity a series (or a one-off event) is rooted on.
type Event struct {
	// ID is the opaque storage identifier. Empty for not-yet-created events.
	ID string

	Title       string
	Description string

	// Start and End are absolute instants with End >= Start. When AllDay is
	// set they are interpreted as whole calendar days and carry no
	// time-of-day.
	Start  time.Time
	End    time.Time
	AllDay bool

	// RecurrenceRule is the serialized recurrence rule. Empty means a
	// single, non-recurring event.
	RecurrenceRule string

	Visibility Visibility

	// GroupID is the owning group, if any.
	GroupID string

	// ETag is an opaque concurrency token assigned by storage on every
	// create and update. Storage rejects updates carrying a stale ETag.
	ETag string
}

// Duration returns End - Start. The expander preserves it for every
// generated occurrence.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Recurring reports whether the event carries a recurrence rule.
func (e Event) Recurring() bool {
	return e.RecurrenceRule != ""
}

// Occurrence is a single concrete instance of a series inside a query
// window. Occurrences are derived values, rebuilt on every expansion and
// never persisted.
type Occurrence struct {
	SeriesID string
	Start    time.Time
	End      time.Time
}
