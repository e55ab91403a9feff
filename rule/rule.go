// Package rule models bounded recurrence rules: a structured value for a
// constrained subset of the iCalendar RRULE grammar (frequency, interval,
// by-weekday, by-month-day, Nth-weekday-of-month, count, until), a parser
// and canonical serializer for the textual form, and context-sensitive
// defaults derived from a series' base start.
//
// Rule values are immutable; every transformation returns a new value.
package rule

import (
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// Frequency is the coarse cadence of a rule.
type Frequency int

const (
	Daily Frequency = iota
	Weekly
	Monthly
)

// String returns the RRULE token for the frequency.
func (f Frequency) String() string {
	switch f {
	case Daily:
		return "DAILY"
	case Weekly:
		return "WEEKLY"
	case Monthly:
		return "MONTHLY"
	default:
		return "UNKNOWN"
	}
}

// OrdinalLast selects the last occurrence of a weekday within a month.
const OrdinalLast = -1

// NthWeekday identifies one weekday-of-month slot, e.g. the second Monday
// or the last Friday.
type NthWeekday struct {
	// Ordinal is 1..4, or OrdinalLast.
	Ordinal int
	Weekday time.Weekday
}

// Rule is a bounded recurrence rule. The zero value is not valid; build
// rules with DefaultFor, Parse or a Builder.
type Rule struct {
	Freq Frequency

	// Interval is the step between cadence units; always >= 1.
	Interval int

	// ByWeekday selects the weekdays within a week; meaningful for Weekly
	// rules, sorted ascending and never empty for them.
	ByWeekday []time.Weekday

	// MonthDay and ByNthWeekday are the two Monthly modes ("on day N" and
	// "on the Nth weekday"); exactly one of them is set for Monthly rules.
	MonthDay     mo.Option[int]
	ByNthWeekday mo.Option[NthWeekday]

	// Until and Count bound the series; at most one is set. Both absent
	// means the series never ends.
	Until mo.Option[time.Time]
	Count mo.Option[int]
}

// DefaultFor returns the rule used when a user turns recurrence on with no
// prior rule: daily, every 1 day, never ending.
func DefaultFor(baseStart time.Time) Rule {
	return Rule{Freq: Daily, Interval: 1}
}

// RetargetFrequency switches r to freq, resetting the frequency-specific
// fields to defaults derived from baseStart: Weekly selects the weekday of
// baseStart, Monthly selects its day-of-month. The end bound and interval
// carry over.
func RetargetFrequency(r Rule, freq Frequency, baseStart time.Time) Rule {
	out := r
	out.Freq = freq
	out.ByWeekday = nil
	out.MonthDay = mo.None[int]()
	out.ByNthWeekday = mo.None[NthWeekday]()
	if out.Interval < 1 {
		out.Interval = 1
	}
	switch freq {
	case Weekly:
		out.ByWeekday = []time.Weekday{baseStart.Weekday()}
	case Monthly:
		out.MonthDay = mo.Some(baseStart.Day())
	}
	return out
}

// NthWeekdayOf returns the weekday-of-month slot baseStart occupies. The
// ordinal is capped to OrdinalLast when no later occurrence of that
// weekday exists in the month, so e.g. the 5th Monday of a month is "the
// last Monday".
func NthWeekdayOf(baseStart time.Time) NthWeekday {
	ordinal := (baseStart.Day()-1)/7 + 1
	if baseStart.AddDate(0, 0, 7).Month() != baseStart.Month() || ordinal > 4 {
		ordinal = OrdinalLast
	}
	return NthWeekday{Ordinal: ordinal, Weekday: baseStart.Weekday()}
}

// WithNthWeekdayMode returns a Monthly copy of r in "on the Nth weekday"
// mode for the slot baseStart occupies, clearing the day-of-month mode.
func WithNthWeekdayMode(r Rule, baseStart time.Time) Rule {
	out := r
	out.Freq = Monthly
	out.MonthDay = mo.None[int]()
	out.ByNthWeekday = mo.Some(NthWeekdayOf(baseStart))
	out.ByWeekday = nil
	return out
}

// WithUntil returns a copy of r ending at until (inclusive), clearing any
// count bound.
func WithUntil(r Rule, until time.Time) Rule {
	out := r
	out.Until = mo.Some(until)
	out.Count = mo.None[int]()
	return out
}

// WithCount returns a copy of r ending after n occurrences, clearing any
// until bound.
func WithCount(r Rule, n int) Rule {
	out := r
	out.Count = mo.Some(n)
	out.Until = mo.None[time.Time]()
	return out
}

// WithNoEnd returns a never-ending copy of r.
func WithNoEnd(r Rule) Rule {
	out := r
	out.Until = mo.None[time.Time]()
	out.Count = mo.None[int]()
	return out
}

// NeverEnds reports whether r carries neither an until nor a count bound.
func (r Rule) NeverEnds() bool {
	return r.Until.IsAbsent() && r.Count.IsAbsent()
}

// Validate checks the rule's intrinsic invariants.
func (r Rule) Validate() error {
	switch r.Freq {
	case Daily, Weekly, Monthly:
	default:
		return &InvalidRuleError{Reason: "unknown frequency"}
	}
	if r.Interval < 1 {
		return &InvalidRuleError{Reason: "interval must be positive"}
	}
	if r.Freq == Weekly && len(r.ByWeekday) == 0 {
		return &InvalidRuleError{Reason: "weekly rule needs at least one weekday"}
	}
	if r.Freq == Monthly {
		if r.MonthDay.IsPresent() == r.ByNthWeekday.IsPresent() {
			return &InvalidRuleError{Reason: "monthly rule needs exactly one of day-of-month or Nth weekday"}
		}
		if d, ok := r.MonthDay.Get(); ok && (d < 1 || d > 31) {
			return &InvalidRuleError{Reason: "day of month out of range"}
		}
		if nw, ok := r.ByNthWeekday.Get(); ok {
			if nw.Ordinal != OrdinalLast && (nw.Ordinal < 1 || nw.Ordinal > 4) {
				return &InvalidRuleError{Reason: "weekday ordinal out of range"}
			}
		}
	}
	if r.Until.IsPresent() && r.Count.IsPresent() {
		return &InvalidRuleError{Reason: "count and until are mutually exclusive"}
	}
	if n, ok := r.Count.Get(); ok && n < 1 {
		return &InvalidRuleError{Reason: "count must be at least 1"}
	}
	return nil
}

// ValidateFor checks the rule against the series' base start: everything
// Validate checks, plus that an until bound does not precede the start.
func (r Rule) ValidateFor(seriesStart time.Time) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if until, ok := r.Until.Get(); ok && until.Before(seriesStart) {
		return &InvalidRuleError{Reason: "until precedes series start"}
	}
	return nil
}

// ROption converts r into rrule-go options anchored at dtstart. By-hour,
// by-minute and by-second are never populated; the rule grammar has no
// time-of-day dimension.
func (r Rule) ROption(dtstart time.Time) (rrule.ROption, error) {
	if err := r.Validate(); err != nil {
		return rrule.ROption{}, err
	}
	opt := rrule.ROption{
		Dtstart:  dtstart,
		Interval: r.Interval,
	}
	switch r.Freq {
	case Daily:
		opt.Freq = rrule.DAILY
	case Weekly:
		opt.Freq = rrule.WEEKLY
		for _, wd := range r.ByWeekday {
			opt.Byweekday = append(opt.Byweekday, rruleWeekday(wd))
		}
	case Monthly:
		opt.Freq = rrule.MONTHLY
		if d, ok := r.MonthDay.Get(); ok {
			opt.Bymonthday = []int{d}
		}
		if nw, ok := r.ByNthWeekday.Get(); ok {
			wd := rruleWeekday(nw.Weekday)
			opt.Byweekday = []rrule.Weekday{wd.Nth(nw.Ordinal)}
		}
	}
	if until, ok := r.Until.Get(); ok {
		opt.Until = until
	}
	if n, ok := r.Count.Get(); ok {
		opt.Count = n
	}
	return opt, nil
}

// RRule compiles r into an rrule-go rule anchored at dtstart.
func (r Rule) RRule(dtstart time.Time) (*rrule.RRule, error) {
	opt, err := r.ROption(dtstart)
	if err != nil {
		return nil, err
	}
	return rrule.NewRRule(opt)
}

// TruncateBefore returns a copy of r whose until bound is the last
// occurrence of the series (anchored at seriesStart) strictly before
// pivot. The pivot itself and everything after it fall outside the
// truncated rule; the series' start anchor is untouched. ok is false when
// no occurrence precedes the pivot, i.e. truncation would leave the
// series empty. A rule that fails validation returns the error instead;
// callers must not mistake an uncomputable truncation for an empty one.
func (r Rule) TruncateBefore(seriesStart, pivot time.Time) (truncated Rule, ok bool, err error) {
	rr, err := r.RRule(seriesStart)
	if err != nil {
		return r, false, err
	}
	prev := rr.Before(pivot, false)
	if prev.IsZero() {
		return r, false, nil
	}
	return WithUntil(r, prev), true, nil
}

func rruleWeekday(wd time.Weekday) rrule.Weekday {
	switch wd {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}
