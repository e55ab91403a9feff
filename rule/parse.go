package rule

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Rule text is the semicolon-separated key=value form used inside
// Event.RecurrenceRule, e.g. "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE".
// Recognized keys: FREQ, INTERVAL, BYDAY, BYMONTHDAY, BYSETPOS, COUNT,
// UNTIL. Key order is insensitive; unknown keys (including the BYHOUR /
// BYMINUTE / BYSECOND noise older clients emitted) are ignored.

const (
	untilLayout     = "20060102T150405Z"
	untilDateLayout = "20060102"
)

var weekdayCodes = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var weekdayNames = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// Parse reads rule text into a Rule. A leading "RRULE:" prefix is
// tolerated. Parse only checks structure; semantic invariants are the
// business of Validate / ValidateFor.
func Parse(text string) (Rule, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "RRULE:")
	if trimmed == "" {
		return Rule{}, &ParseError{Text: text, Reason: "empty rule"}
	}

	r := Rule{Freq: -1, Interval: 1}
	var setpos mo.Option[int]
	var plainDays []time.Weekday
	var nthDays []NthWeekday

	for _, part := range strings.Split(trimmed, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			return Rule{}, &ParseError{Text: text, Reason: "malformed component " + strconv.Quote(part)}
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.ToUpper(strings.TrimSpace(value))

		switch key {
		case "FREQ":
			switch value {
			case "DAILY":
				r.Freq = Daily
			case "WEEKLY":
				r.Freq = Weekly
			case "MONTHLY":
				r.Freq = Monthly
			default:
				return Rule{}, &ParseError{Text: text, Reason: "unsupported frequency " + strconv.Quote(value)}
			}
		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return Rule{}, &ParseError{Text: text, Reason: "bad interval " + strconv.Quote(value)}
			}
			r.Interval = n
		case "BYDAY":
			for _, tok := range strings.Split(value, ",") {
				tok = strings.TrimSpace(tok)
				if tok == "" {
					continue
				}
				ordinal, wd, err := parseWeekdayToken(tok)
				if err != nil {
					return Rule{}, &ParseError{Text: text, Reason: err.Error()}
				}
				if ordinal != 0 {
					nthDays = append(nthDays, NthWeekday{Ordinal: ordinal, Weekday: wd})
				} else {
					plainDays = append(plainDays, wd)
				}
			}
		case "BYMONTHDAY":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Rule{}, &ParseError{Text: text, Reason: "bad month day " + strconv.Quote(value)}
			}
			r.MonthDay = mo.Some(n)
		case "BYSETPOS":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Rule{}, &ParseError{Text: text, Reason: "bad set position " + strconv.Quote(value)}
			}
			setpos = mo.Some(n)
		case "COUNT":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Rule{}, &ParseError{Text: text, Reason: "bad count " + strconv.Quote(value)}
			}
			r.Count = mo.Some(n)
		case "UNTIL":
			t, err := parseUntil(value)
			if err != nil {
				return Rule{}, &ParseError{Text: text, Reason: "bad until " + strconv.Quote(value)}
			}
			r.Until = mo.Some(t)
		default:
			// Unknown key: skipped for forward compatibility.
		}
	}

	if r.Freq < 0 {
		return Rule{}, &ParseError{Text: text, Reason: "missing frequency"}
	}
	if r.Count.IsPresent() && r.Until.IsPresent() {
		return Rule{}, &ParseError{Text: text, Reason: "count and until are mutually exclusive"}
	}

	if len(nthDays) > 1 {
		return Rule{}, &ParseError{Text: text, Reason: "multiple ordinal weekdays"}
	}
	if len(nthDays) == 1 {
		if r.MonthDay.IsPresent() {
			return Rule{}, &ParseError{Text: text, Reason: "month day and ordinal weekday are mutually exclusive"}
		}
		r.ByNthWeekday = mo.Some(nthDays[0])
	}

	// The mobile rule editor expressed "Nth weekday of the month" as a
	// plain BYDAY plus BYSETPOS. Fold that form into the ordinal mode.
	if pos, ok := setpos.Get(); ok && r.Freq == Monthly && len(plainDays) == 1 && r.ByNthWeekday.IsAbsent() {
		if r.MonthDay.IsPresent() {
			return Rule{}, &ParseError{Text: text, Reason: "month day and set position are mutually exclusive"}
		}
		r.ByNthWeekday = mo.Some(NthWeekday{Ordinal: pos, Weekday: plainDays[0]})
		plainDays = nil
	}

	if len(plainDays) > 0 {
		sort.Slice(plainDays, func(i, j int) bool { return plainDays[i] < plainDays[j] })
		r.ByWeekday = dedupeWeekdays(plainDays)
	}

	return r, nil
}

// String renders the canonical text form. The key order is fixed and
// INTERVAL is always emitted, so String(Parse(x)) is idempotent: parsing
// canonical output and re-serializing yields the same bytes.
func (r Rule) String() string {
	var b strings.Builder
	b.WriteString("FREQ=")
	b.WriteString(r.Freq.String())

	interval := r.Interval
	if interval < 1 {
		interval = 1
	}
	b.WriteString(";INTERVAL=")
	b.WriteString(strconv.Itoa(interval))

	if len(r.ByWeekday) > 0 {
		days := dedupeWeekdays(append([]time.Weekday(nil), r.ByWeekday...))
		sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
		b.WriteString(";BYDAY=")
		for i, wd := range days {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(weekdayNames[wd])
		}
	}
	if nw, ok := r.ByNthWeekday.Get(); ok {
		b.WriteString(";BYDAY=")
		b.WriteString(strconv.Itoa(nw.Ordinal))
		b.WriteString(weekdayNames[nw.Weekday])
	}
	if d, ok := r.MonthDay.Get(); ok {
		b.WriteString(";BYMONTHDAY=")
		b.WriteString(strconv.Itoa(d))
	}
	if n, ok := r.Count.Get(); ok {
		b.WriteString(";COUNT=")
		b.WriteString(strconv.Itoa(n))
	}
	if until, ok := r.Until.Get(); ok {
		b.WriteString(";UNTIL=")
		b.WriteString(until.UTC().Format(untilLayout))
	}
	return b.String()
}

// ApplyBaseDefaults fills frequency-specific fields a sparse rule left
// implicit, deriving them from the series' base start the way the
// standard RRULE semantics would: a weekly rule with no weekdays recurs
// on the start's weekday, a monthly rule with neither mode recurs on the
// start's day-of-month.
func ApplyBaseDefaults(r Rule, baseStart time.Time) Rule {
	out := r
	if out.Interval < 1 {
		out.Interval = 1
	}
	if out.Freq == Weekly && len(out.ByWeekday) == 0 {
		out.ByWeekday = []time.Weekday{baseStart.Weekday()}
	}
	if out.Freq == Monthly && out.MonthDay.IsAbsent() && out.ByNthWeekday.IsAbsent() {
		out.MonthDay = mo.Some(baseStart.Day())
	}
	return out
}

func parseWeekdayToken(tok string) (ordinal int, wd time.Weekday, err error) {
	code := tok
	if len(tok) > 2 {
		prefix := tok[:len(tok)-2]
		code = tok[len(tok)-2:]
		prefix = strings.TrimPrefix(prefix, "+")
		ordinal, err = strconv.Atoi(prefix)
		if err != nil {
			return 0, 0, errors.New("bad weekday token " + strconv.Quote(tok))
		}
	}
	wd, ok := weekdayCodes[code]
	if !ok {
		return 0, 0, errors.New("bad weekday token " + strconv.Quote(tok))
	}
	return ordinal, wd, nil
}

func parseUntil(value string) (time.Time, error) {
	if t, err := time.Parse(untilLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(untilDateLayout, value)
}

func dedupeWeekdays(days []time.Weekday) []time.Weekday {
	out := days[:0]
	seen := [7]bool{}
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}
