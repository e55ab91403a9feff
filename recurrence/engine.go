// Package recurrence expands a recurring series into its concrete
// occurrences inside a query window. Expansion is pure date arithmetic:
// deterministic, side-effect-free and safe for concurrent use.
package recurrence

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/flockhq/eventkit/event"
	"github.com/flockhq/eventkit/rule"
)

// UnboundedExpansionError reports an attempt to expand a never-ending
// rule against a window with no right edge; such an expansion has no
// stopping condition.
type UnboundedExpansionError struct {
	SeriesID string
}

func (e *UnboundedExpansionError) Error() string {
	return fmt.Sprintf("series %q: never-ending rule expanded against an unbounded window", e.SeriesID)
}

// Engine expands series into occurrences.
type Engine struct {
	cache  *ResultCache
	config EngineConfig
	logger *slog.Logger
}

// NewEngine creates an engine with DefaultEngineConfig.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// NewEngineWithConfig creates an engine with custom configuration.
func NewEngineWithConfig(config EngineConfig) *Engine {
	var cache *ResultCache
	if config.CacheEnabled {
		cache = NewResultCache(config.CacheConfig)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{cache: cache, config: config, logger: logger}
}

// Close releases the engine's cache, if any.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// Expand generates the ordered, duplicate-free occurrences of a series
// inside w. ev supplies the anchor start and the duration every
// occurrence preserves; r is the recurrence rule, or nil for a one-off
// event; exceptions suppress individual dates without touching the rule.
//
// Candidates before w.Start are enumerated (they count toward a rule's
// occurrence bound) but not emitted. Occurrences whose start is excluded
// by the exception set are dropped and never replaced.
func (e *Engine) Expand(ev event.Event, r *rule.Rule, exceptions event.ExceptionSet, w event.Window) ([]event.Occurrence, error) {
	if w.Bounded() && w.End.Before(w.Start) {
		return nil, errors.New("window end precedes window start")
	}

	duration := ev.Duration()
	if r == nil {
		if w.Contains(ev.Start) && !exceptions.Excludes(ev.Start) {
			return []event.Occurrence{{SeriesID: ev.ID, Start: ev.Start, End: ev.Start.Add(duration)}}, nil
		}
		return nil, nil
	}

	rl := rule.ApplyBaseDefaults(*r, ev.Start)
	if err := rl.ValidateFor(ev.Start); err != nil {
		return nil, err
	}
	if rl.NeverEnds() && !w.Bounded() {
		return nil, &UnboundedExpansionError{SeriesID: ev.ID}
	}

	ruleText := rl.String()
	var key string
	if e.cache != nil {
		key = cacheKey(ev, ruleText, exceptions, w)
		if cached, ok := e.cache.get(key); ok {
			return cached, nil
		}
	}

	compiled, err := rl.RRule(ev.Start)
	if err != nil {
		return nil, err
	}

	limit := e.config.MaxOccurrences
	if limit <= 0 {
		limit = DefaultEngineConfig.MaxOccurrences
	}

	var out []event.Occurrence
	var last time.Time
	enumerated := 0
	next := compiled.Iterator()
	for {
		t, ok := next()
		if !ok {
			break
		}
		if enumerated++; enumerated > limit {
			e.logger.Warn("expansion truncated at occurrence cap",
				"series", ev.ID, "rule", ruleText, "cap", limit)
			break
		}
		if w.Bounded() && !t.Before(w.End) {
			break
		}
		if t.Before(w.Start) {
			continue
		}
		if len(out) > 0 && t.Equal(last) {
			continue
		}
		last = t
		if exceptions.Excludes(t) {
			continue
		}
		out = append(out, event.Occurrence{SeriesID: ev.ID, Start: t, End: t.Add(duration)})
	}

	if e.cache != nil {
		e.cache.set(key, out)
	}
	return out, nil
}

// ExpandEvent is Expand with the rule taken from ev.RecurrenceRule.
func (e *Engine) ExpandEvent(ev event.Event, exceptions event.ExceptionSet, w event.Window) ([]event.Occurrence, error) {
	if !ev.Recurring() {
		return e.Expand(ev, nil, exceptions, w)
	}
	r, err := rule.Parse(ev.RecurrenceRule)
	if err != nil {
		return nil, err
	}
	return e.Expand(ev, &r, exceptions, w)
}

// HasOccurrenceInWindow reports whether the series has at least one
// occurrence inside w, without the caller needing the full expansion.
// Wide windows are first probed over a shorter span; list views asking
// "anything this quarter?" rarely need to look past the first weeks.
func (e *Engine) HasOccurrenceInWindow(ev event.Event, r *rule.Rule, exceptions event.ExceptionSet, w event.Window) (bool, error) {
	if r == nil {
		return w.Contains(ev.Start) && !exceptions.Excludes(ev.Start), nil
	}

	probe := w
	limited := false
	if w.Bounded() && e.config.LargeWindowThreshold > 0 && w.Span() > e.config.LargeWindowThreshold {
		probe = event.Window{Start: w.Start, End: w.Start.Add(e.config.LargeWindowProbe)}
		limited = true
	}

	occurrences, err := e.Expand(ev, r, exceptions, probe)
	if err != nil {
		return false, err
	}
	if len(occurrences) > 0 {
		return true, nil
	}
	if !limited {
		return false, nil
	}

	occurrences, err = e.Expand(ev, r, exceptions, w)
	if err != nil {
		return false, err
	}
	return len(occurrences) > 0, nil
}
