// Package editor turns a user's edit or delete of one occurrence into the
// correct set of storage mutations for the whole series: an exception plus
// a detached copy for "this", a truncation plus a continuation series for
// "future", an in-place write or removal for "all".
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/flockhq/eventkit/event"
	"github.com/flockhq/eventkit/rule"
	"github.com/flockhq/eventkit/storage"
)

// StaleSeriesError reports that a future-scope operation could not obtain
// a usable authoritative copy of the series: the fetch failed, the stored
// event no longer carries a recurrence rule, or a concurrent edit won the
// write. Callers should re-fetch and retry rather than fall back to
// all-scope semantics.
type StaleSeriesError struct {
	SeriesID string
	Err      error
}

func (e *StaleSeriesError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("series %q is stale: %v", e.SeriesID, e.Err)
	}
	return fmt.Sprintf("series %q is stale", e.SeriesID)
}

func (e *StaleSeriesError) Unwrap() error {
	return e.Err
}

// OpKind names a persistence operation the editor performed.
type OpKind string

const (
	OpCreateEvent     OpKind = "create_event"
	OpUpdateEvent     OpKind = "update_event"
	OpDeleteEvent     OpKind = "delete_event"
	OpCreateException OpKind = "create_exception"
)

// Op is one persistence operation applied against storage.
type Op struct {
	Kind    OpKind
	EventID string
	// Date is the suppressed occurrence start for OpCreateException.
	Date time.Time
}

// Result reports what an edit or delete actually did, in order. When an
// operation fails partway the applied prefix is still returned alongside
// the error, so callers can surface the partial failure and compensate;
// the editor never rolls back.
type Result struct {
	Applied []Op
	// Created is the newly created event record, if the operation produced
	// one (the detached copy of a "this" edit, the continuation series of
	// a "future" edit). Its ID and ETag are filled in by storage.
	Created *event.Event
}

func (r *Result) applied(op Op) {
	r.Applied = append(r.Applied, op)
}

// EditRequest describes an edit of one occurrence of a series.
type EditRequest struct {
	// Series is the series event as the client knows it. Its ID addresses
	// the stored record; future-scope operations re-fetch the
	// authoritative copy rather than trusting the rest.
	Series event.Event
	// Pivot is the original, unmodified start of the targeted occurrence.
	Pivot time.Time
	// Updated is the new payload. Its RecurrenceRule carries the new rule
	// text, if recurrence is being changed.
	Updated event.Event
}

// Editor applies series edits and deletes through an injected storage
// collaborator. It assumes the caller serializes operations per series;
// concurrent edits of the same series are detected only via ETags.
type Editor struct {
	store  storage.Storage
	logger *slog.Logger
}

// New creates an editor writing through store. A nil logger discards.
func New(store storage.Storage, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Editor{store: store, logger: logger}
}

// Edit applies an edit of the pivot occurrence with the given scope.
// Editing a non-recurring series always behaves as ScopeAll.
func (ed *Editor) Edit(ctx context.Context, req EditRequest, scope Scope) (*Result, error) {
	if req.Series.ID == "" {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "edit needs a stored series"}
	}
	if req.Updated.Recurring() {
		r, err := rule.Parse(req.Updated.RecurrenceRule)
		if err != nil {
			return nil, err
		}
		if err := rule.ApplyBaseDefaults(r, req.Updated.Start).ValidateFor(req.Updated.Start); err != nil {
			return nil, err
		}
	}
	if !req.Series.Recurring() {
		scope = ScopeAll
	}

	ed.logger.Debug("applying series edit",
		"series", req.Series.ID, "scope", scope.String(), "pivot", req.Pivot)

	switch scope {
	case ScopeThis:
		return ed.editThis(ctx, req)
	case ScopeFuture:
		return ed.editFuture(ctx, req)
	default:
		return ed.editAll(ctx, req)
	}
}

// editThis suppresses the pivot date on the series and creates the edited
// occurrence as an independent, non-recurring event. The series itself is
// untouched.
func (ed *Editor) editThis(ctx context.Context, req EditRequest) (*Result, error) {
	result := &Result{}

	if err := ed.store.CreateException(ctx, req.Series.ID, req.Pivot); err != nil {
		return result, fmt.Errorf("suppress occurrence: %w", err)
	}
	result.applied(Op{Kind: OpCreateException, EventID: req.Series.ID, Date: req.Pivot})

	detached := req.Updated
	detached.ID = ""
	detached.ETag = ""
	detached.RecurrenceRule = ""
	if err := ed.store.CreateEvent(ctx, &detached); err != nil {
		return result, fmt.Errorf("create detached occurrence: %w", err)
	}
	result.applied(Op{Kind: OpCreateEvent, EventID: detached.ID})
	result.Created = &detached
	return result, nil
}

// editFuture truncates the authoritative series just before the pivot and
// creates a new series carrying the updated payload from the pivot
// forward. The original keeps its identity and start anchor; the
// continuation gets a fresh identity.
func (ed *Editor) editFuture(ctx context.Context, req EditRequest) (*Result, error) {
	result := &Result{}

	original, truncated, ok, err := ed.truncatedOriginal(ctx, req.Series.ID, req.Pivot)
	if err != nil {
		return result, err
	}

	if !ok {
		// Nothing of the series precedes the pivot; the truncated original
		// would be empty. Replace it with the continuation outright.
		if err := ed.store.DeleteEvent(ctx, original.ID); err != nil {
			return result, fmt.Errorf("remove emptied series: %w", err)
		}
		result.applied(Op{Kind: OpDeleteEvent, EventID: original.ID})
	} else {
		original.RecurrenceRule = truncated.String()
		if err := ed.store.UpdateEvent(ctx, original); err != nil {
			if conflict(err) {
				return result, &StaleSeriesError{SeriesID: original.ID, Err: err}
			}
			return result, fmt.Errorf("truncate series: %w", err)
		}
		result.applied(Op{Kind: OpUpdateEvent, EventID: original.ID})
	}

	continuation := req.Updated
	continuation.ID = ""
	continuation.ETag = ""
	if err := ed.store.CreateEvent(ctx, &continuation); err != nil {
		return result, fmt.Errorf("create continuation series: %w", err)
	}
	result.applied(Op{Kind: OpCreateEvent, EventID: continuation.ID})
	result.Created = &continuation
	return result, nil
}

// editAll overwrites the series in place, keeping its identity.
// Exceptions stay untouched; they keep applying to the same absolute
// dates.
func (ed *Editor) editAll(ctx context.Context, req EditRequest) (*Result, error) {
	result := &Result{}

	updated := req.Updated
	updated.ID = req.Series.ID
	if updated.ETag == "" {
		updated.ETag = req.Series.ETag
	}
	if err := ed.store.UpdateEvent(ctx, &updated); err != nil {
		return result, fmt.Errorf("update series: %w", err)
	}
	result.applied(Op{Kind: OpUpdateEvent, EventID: updated.ID})
	return result, nil
}

// Delete applies a delete of the pivot occurrence with the given scope.
// Deleting a non-recurring series always behaves as ScopeAll.
func (ed *Editor) Delete(ctx context.Context, series event.Event, pivot time.Time, scope Scope) (*Result, error) {
	if series.ID == "" {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "delete needs a stored series"}
	}
	if !series.Recurring() {
		scope = ScopeAll
	}

	ed.logger.Debug("applying series delete",
		"series", series.ID, "scope", scope.String(), "pivot", pivot)

	result := &Result{}
	switch scope {
	case ScopeThis:
		// A single occurrence is never deleted by touching the event
		// record; it is suppressed with an exception marker.
		if err := ed.store.CreateException(ctx, series.ID, pivot); err != nil {
			return result, fmt.Errorf("suppress occurrence: %w", err)
		}
		result.applied(Op{Kind: OpCreateException, EventID: series.ID, Date: pivot})
		return result, nil

	case ScopeFuture:
		original, truncated, ok, err := ed.truncatedOriginal(ctx, series.ID, pivot)
		if err != nil {
			return result, err
		}
		if !ok {
			if err := ed.store.DeleteEvent(ctx, original.ID); err != nil {
				return result, fmt.Errorf("remove emptied series: %w", err)
			}
			result.applied(Op{Kind: OpDeleteEvent, EventID: original.ID})
			return result, nil
		}
		original.RecurrenceRule = truncated.String()
		if err := ed.store.UpdateEvent(ctx, original); err != nil {
			if conflict(err) {
				return result, &StaleSeriesError{SeriesID: original.ID, Err: err}
			}
			return result, fmt.Errorf("truncate series: %w", err)
		}
		result.applied(Op{Kind: OpUpdateEvent, EventID: original.ID})
		return result, nil

	default:
		// Removing the record removes its exceptions with it; the series
		// they belonged to no longer exists.
		if err := ed.store.DeleteEvent(ctx, series.ID); err != nil {
			return result, fmt.Errorf("delete series: %w", err)
		}
		result.applied(Op{Kind: OpDeleteEvent, EventID: series.ID})
		return result, nil
	}
}

// truncatedOriginal fetches the authoritative series and computes its
// truncation just before pivot. Both edit and delete share this path, so
// the truncation policy cannot drift between them: the until bound moves
// to the last occurrence strictly before the pivot and the series' own
// start stays where it is. ok is false when no occurrence precedes the
// pivot; a stored rule the truncation cannot compile surfaces as a
// StaleSeriesError, never as an empty truncation.
func (ed *Editor) truncatedOriginal(ctx context.Context, seriesID string, pivot time.Time) (original *event.Event, truncated rule.Rule, ok bool, err error) {
	original, err = ed.store.GetEvent(ctx, seriesID)
	if err != nil {
		return nil, rule.Rule{}, false, &StaleSeriesError{SeriesID: seriesID, Err: err}
	}
	if !original.Recurring() {
		return nil, rule.Rule{}, false, &StaleSeriesError{SeriesID: seriesID, Err: errors.New("stored series has no recurrence rule")}
	}
	r, err := rule.Parse(original.RecurrenceRule)
	if err != nil {
		return nil, rule.Rule{}, false, &StaleSeriesError{SeriesID: seriesID, Err: err}
	}
	r = rule.ApplyBaseDefaults(r, original.Start)

	truncated, ok, err = r.TruncateBefore(original.Start, pivot)
	if err != nil {
		return nil, rule.Rule{}, false, &StaleSeriesError{SeriesID: seriesID, Err: err}
	}
	if ok {
		ed.logger.Debug("truncating series before pivot",
			"series", seriesID, "pivot", pivot, "rule", truncated.String())
	}
	return original, truncated, ok, nil
}

func conflict(err error) bool {
	var serr *storage.Error
	return errors.As(err, &serr) && serr.Type == storage.ErrConflict
}
