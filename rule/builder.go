package rule

import (
	"time"

	"github.com/samber/mo"
)

// Builder assembles a rule step by step on behalf of incremental UIs
// (frequency dropdowns, weekday toggles, "ends" selectors). Intermediate
// state may be sparse but Build always returns either a rule that passes
// ValidateFor or an error; callers never see a half-mutated rule.
type Builder struct {
	base time.Time
	r    Rule

	// weekdaysTouched records an explicit weekday selection. Build only
	// backfills the base start's weekday into a selection the user never
	// touched; an explicitly emptied one is invalid.
	weekdaysTouched bool
}

// NewBuilder starts from the default rule for a series beginning at
// baseStart.
func NewBuilder(baseStart time.Time) *Builder {
	return &Builder{base: baseStart, r: DefaultFor(baseStart)}
}

// Edit starts from an existing rule, keeping baseStart for defaults and
// validation.
func Edit(r Rule, baseStart time.Time) *Builder {
	return &Builder{base: baseStart, r: r}
}

// Frequency switches the cadence, resetting frequency-specific fields to
// defaults derived from the base start.
func (b *Builder) Frequency(f Frequency) *Builder {
	b.r = RetargetFrequency(b.r, f, b.base)
	b.weekdaysTouched = false
	return b
}

// Interval sets the step between cadence units.
func (b *Builder) Interval(n int) *Builder {
	b.r.Interval = n
	return b
}

// OnWeekdays replaces the weekly weekday selection.
func (b *Builder) OnWeekdays(days ...time.Weekday) *Builder {
	b.r.ByWeekday = dedupeWeekdays(append([]time.Weekday(nil), days...))
	b.weekdaysTouched = true
	return b
}

// ToggleWeekday adds the weekday to the weekly selection, or removes it
// if already selected.
func (b *Builder) ToggleWeekday(d time.Weekday) *Builder {
	b.weekdaysTouched = true
	for i, wd := range b.r.ByWeekday {
		if wd == d {
			b.r.ByWeekday = append(b.r.ByWeekday[:i], b.r.ByWeekday[i+1:]...)
			return b
		}
	}
	b.r.ByWeekday = append(b.r.ByWeekday, d)
	return b
}

// OnMonthDay puts a monthly rule in "on day N" mode.
func (b *Builder) OnMonthDay(day int) *Builder {
	b.r.MonthDay = mo.Some(day)
	b.r.ByNthWeekday = mo.None[NthWeekday]()
	return b
}

// OnNthWeekdayOfStart puts a monthly rule in "on the Nth weekday" mode
// for the slot the base start occupies.
func (b *Builder) OnNthWeekdayOfStart() *Builder {
	b.r = WithNthWeekdayMode(b.r, b.base)
	return b
}

// OnNthWeekday puts a monthly rule in "on the Nth weekday" mode for an
// explicit slot.
func (b *Builder) OnNthWeekday(ordinal int, wd time.Weekday) *Builder {
	b.r.MonthDay = mo.None[int]()
	b.r.ByNthWeekday = mo.Some(NthWeekday{Ordinal: ordinal, Weekday: wd})
	return b
}

// EndNever removes any end bound.
func (b *Builder) EndNever() *Builder {
	b.r = WithNoEnd(b.r)
	return b
}

// EndUntil bounds the series at until, inclusive.
func (b *Builder) EndUntil(until time.Time) *Builder {
	b.r = WithUntil(b.r, until)
	return b
}

// EndCount bounds the series at n occurrences.
func (b *Builder) EndCount(n int) *Builder {
	b.r = WithCount(b.r, n)
	return b
}

// Build fills remaining implicit fields from the base start and
// validates. Defaulting covers only fields left untouched: deselecting
// every weekday of a weekly rule is an error, not an invitation to
// backfill. The builder stays usable afterwards.
func (b *Builder) Build() (Rule, error) {
	if b.r.Freq == Weekly && b.weekdaysTouched && len(b.r.ByWeekday) == 0 {
		return Rule{}, &InvalidRuleError{Reason: "weekly rule needs at least one weekday"}
	}
	r := ApplyBaseDefaults(b.r, b.base)
	if err := r.ValidateFor(b.base); err != nil {
		return Rule{}, err
	}
	return r, nil
}
