package event

import "time"

// Window is a half-open time range [Start, End). A zero End means the
// window is unbounded on the right; expansion of a never-ending rule
// against such a window is refused by the expander.
type Window struct {
	Start time.Time
	End   time.Time
}

// Bounded reports whether the window has a finite right edge.
func (w Window) Bounded() bool {
	return !w.End.IsZero()
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	return !w.Bounded() || t.Before(w.End)
}

// Span returns End - Start, or zero for an unbounded window.
func (w Window) Span() time.Duration {
	if !w.Bounded() {
		return 0
	}
	return w.End.Sub(w.Start)
}

// MonthWindow returns the window covering one calendar month in loc,
// from the first of the month inclusive to the first of the next month
// exclusive. Calendar views expand one month at a time.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}
