package event

import (
	"sort"
	"time"
)

// ExceptionSet is the ordered collection of "skip this date" markers for a
// series. Each entry matches the original, unmodified start of the
// occurrence it suppresses. The set is append-only: the engine never
// removes an exception, since that would resurrect an occurrence.
type ExceptionSet struct {
	dates []time.Time
}

// NewExceptionSet builds a set from the given dates, deduplicated and
// sorted ascending.
func NewExceptionSet(dates ...time.Time) ExceptionSet {
	var s ExceptionSet
	for _, d := range dates {
		s = s.Add(d)
	}
	return s
}

// Add returns a set containing d. Adding an already-present date is a
// no-op; the receiver is never modified.
func (s ExceptionSet) Add(d time.Time) ExceptionSet {
	i := sort.Search(len(s.dates), func(i int) bool {
		return !s.dates[i].Before(d)
	})
	if i < len(s.dates) && s.dates[i].Equal(d) {
		return s
	}
	out := make([]time.Time, 0, len(s.dates)+1)
	out = append(out, s.dates[:i]...)
	out = append(out, d)
	out = append(out, s.dates[i:]...)
	return ExceptionSet{dates: out}
}

// Contains reports whether d is in the set, by exact instant.
func (s ExceptionSet) Contains(d time.Time) bool {
	i := sort.Search(len(s.dates), func(i int) bool {
		return !s.dates[i].Before(d)
	})
	return i < len(s.dates) && s.dates[i].Equal(d)
}

// Excludes reports whether an occurrence starting at t is suppressed by
// the set. Exact matches always exclude. A date-only marker (midnight
// UTC) additionally excludes any occurrence on the same calendar day,
// which is how all-day suppressions are stored.
func (s ExceptionSet) Excludes(t time.Time) bool {
	if s.Contains(t) {
		return true
	}
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for _, d := range s.dates {
		if d.Equal(dayStart) && isMidnightUTC(d) {
			return true
		}
	}
	return false
}

// Dates returns a copy of the marker dates, sorted ascending.
func (s ExceptionSet) Dates() []time.Time {
	out := make([]time.Time, len(s.dates))
	copy(out, s.dates)
	return out
}

// Len returns the number of markers.
func (s ExceptionSet) Len() int {
	return len(s.dates)
}

func isMidnightUTC(t time.Time) bool {
	return t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
