package rule

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFor(t *testing.T) {
	r := DefaultFor(time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC))
	assert.Equal(t, Daily, r.Freq)
	assert.Equal(t, 1, r.Interval)
	assert.True(t, r.NeverEnds())
	require.NoError(t, r.Validate())
}

func TestRetargetFrequency(t *testing.T) {
	base := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC) // a Wednesday
	start := WithCount(DefaultFor(base), 5)

	t.Run("weekly selects base weekday", func(t *testing.T) {
		r := RetargetFrequency(start, Weekly, base)
		assert.Equal(t, Weekly, r.Freq)
		assert.Equal(t, []time.Weekday{time.Wednesday}, r.ByWeekday)
		assert.Equal(t, mo.Some(5), r.Count)
		require.NoError(t, r.ValidateFor(base))
	})

	t.Run("monthly selects base day of month", func(t *testing.T) {
		r := RetargetFrequency(start, Monthly, base)
		assert.Equal(t, Monthly, r.Freq)
		assert.Equal(t, mo.Some(3), r.MonthDay)
		assert.True(t, r.ByNthWeekday.IsAbsent())
		require.NoError(t, r.ValidateFor(base))
	})

	t.Run("retarget clears previous mode", func(t *testing.T) {
		monthly := RetargetFrequency(start, Monthly, base)
		back := RetargetFrequency(monthly, Weekly, base)
		assert.True(t, back.MonthDay.IsAbsent())
		assert.Equal(t, []time.Weekday{time.Wednesday}, back.ByWeekday)
	})
}

func TestNthWeekdayOf(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		expected NthWeekday
	}{
		{
			name:     "first wednesday",
			date:     time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			expected: NthWeekday{Ordinal: 1, Weekday: time.Wednesday},
		},
		{
			name:     "second monday",
			date:     time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
			expected: NthWeekday{Ordinal: 2, Weekday: time.Monday},
		},
		{
			name: "fifth monday collapses to last",
			// 2024-01-29 is the fifth Monday of January.
			date:     time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC),
			expected: NthWeekday{Ordinal: OrdinalLast, Weekday: time.Monday},
		},
		{
			name: "fourth weekday near month end collapses to last",
			// 2024-02-26 is the fourth and final Monday of February.
			date:     time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC),
			expected: NthWeekday{Ordinal: OrdinalLast, Weekday: time.Monday},
		},
		{
			name:     "fourth weekday with a fifth after it stays fourth",
			date:     time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC),
			expected: NthWeekday{Ordinal: 4, Weekday: time.Monday},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NthWeekdayOf(tt.date))
		})
	}
}

func TestValidate(t *testing.T) {
	base := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		r    Rule
	}{
		{name: "zero value", r: Rule{}},
		{name: "bad interval", r: Rule{Freq: Daily, Interval: 0}},
		{name: "weekly without weekdays", r: Rule{Freq: Weekly, Interval: 1}},
		{name: "monthly without mode", r: Rule{Freq: Monthly, Interval: 1}},
		{
			name: "monthly with both modes",
			r: Rule{
				Freq: Monthly, Interval: 1,
				MonthDay:     mo.Some(3),
				ByNthWeekday: mo.Some(NthWeekday{Ordinal: 1, Weekday: time.Monday}),
			},
		},
		{
			name: "month day out of range",
			r:    Rule{Freq: Monthly, Interval: 1, MonthDay: mo.Some(32)},
		},
		{
			name: "ordinal out of range",
			r: Rule{
				Freq: Monthly, Interval: 1,
				ByNthWeekday: mo.Some(NthWeekday{Ordinal: 5, Weekday: time.Monday}),
			},
		},
		{
			name: "count and until",
			r: Rule{
				Freq: Daily, Interval: 1,
				Count: mo.Some(3),
				Until: mo.Some(base),
			},
		},
		{name: "zero count", r: Rule{Freq: Daily, Interval: 1, Count: mo.Some(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ierr *InvalidRuleError
			require.ErrorAs(t, tt.r.Validate(), &ierr)
		})
	}

	t.Run("valid daily rule", func(t *testing.T) {
		require.NoError(t, Rule{Freq: Daily, Interval: 1}.Validate())
	})

	t.Run("until before series start", func(t *testing.T) {
		r := WithUntil(DefaultFor(base), base.AddDate(0, 0, -1))
		require.NoError(t, r.Validate())
		var ierr *InvalidRuleError
		require.ErrorAs(t, r.ValidateFor(base), &ierr)
	})
}

func TestTruncateBefore(t *testing.T) {
	start := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC) // a Monday
	weekly, err := Parse("FREQ=WEEKLY;BYDAY=MO")
	require.NoError(t, err)

	t.Run("until lands on last occurrence before pivot", func(t *testing.T) {
		pivot := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)
		truncated, ok, err := weekly.TruncateBefore(start, pivot)
		require.NoError(t, err)
		require.True(t, ok)
		until, present := truncated.Until.Get()
		require.True(t, present)
		assert.Equal(t, time.Date(2024, 1, 8, 14, 0, 0, 0, time.UTC), until)

		// The occurrence at the pivot must not survive the truncation.
		rr, err := truncated.RRule(start)
		require.NoError(t, err)
		all := rr.All()
		require.Len(t, all, 2)
		assert.True(t, all[len(all)-1].Before(pivot))
	})

	t.Run("pivot on first occurrence leaves nothing", func(t *testing.T) {
		_, ok, err := weekly.TruncateBefore(start, start)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("count bound becomes until bound", func(t *testing.T) {
		counted := WithCount(weekly, 10)
		pivot := time.Date(2024, 1, 22, 14, 0, 0, 0, time.UTC)
		truncated, ok, err := counted.TruncateBefore(start, pivot)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, truncated.Count.IsAbsent())
		until, present := truncated.Until.Get()
		require.True(t, present)
		assert.Equal(t, time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC), until)
	})

	t.Run("invalid rule surfaces the error", func(t *testing.T) {
		bad, err := Parse("FREQ=MONTHLY;BYMONTHDAY=40")
		require.NoError(t, err)
		pivot := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)
		_, ok, err := bad.TruncateBefore(start, pivot)
		var ierr *InvalidRuleError
		require.ErrorAs(t, err, &ierr)
		assert.False(t, ok, "an uncomputable truncation is not an empty one")
	})
}

func TestRRuleNthWeekday(t *testing.T) {
	start := time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC) // first Wednesday
	r, err := Parse("FREQ=MONTHLY;BYDAY=1WE;COUNT=3")
	require.NoError(t, err)

	rr, err := r.RRule(start)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 7, 18, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC),
	}, rr.All())
}
