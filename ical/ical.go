// Package ical converts between the engine's event model and iCalendar
// VEVENTs, so group calendars can be published as ICS feeds and imported
// back. The recurrence rule travels as RRULE and the exception set as
// EXDATE; all-day events use VALUE=DATE properties.
package ical

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/flockhq/eventkit/event"
	"github.com/flockhq/eventkit/rule"
)

const (
	dateTimeLayout = "20060102T150405Z"
	dateLayout     = "20060102"

	propGroupID = "X-FLOCK-GROUP-ID"
)

// Export renders a series as a single-VEVENT calendar.
func Export(ev event.Event, exceptions event.ExceptionSet) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//Flock//EventKit//EN")

	vevent := ical.NewEvent()
	props := vevent.Props

	uid := ev.ID
	if uid == "" {
		uid = uuid.NewString()
	}
	props.SetText(ical.PropUID, uid)
	props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	if ev.Title != "" {
		props.SetText(ical.PropSummary, ev.Title)
	}
	if ev.Description != "" {
		props.SetText(ical.PropDescription, ev.Description)
	}
	switch ev.Visibility {
	case event.VisibilityPrivate:
		props.SetText(ical.PropClass, "PRIVATE")
	default:
		props.SetText(ical.PropClass, "PUBLIC")
	}
	if ev.GroupID != "" {
		props.SetText(propGroupID, ev.GroupID)
	}

	if ev.AllDay {
		setDateProp(props, ical.PropDateTimeStart, ev.Start)
		setDateProp(props, ical.PropDateTimeEnd, ev.End)
	} else {
		props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
		props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
	}

	if ev.Recurring() {
		r, err := rule.Parse(ev.RecurrenceRule)
		if err != nil {
			return nil, err
		}
		// RECUR values are written raw; SetText would escape the
		// semicolons and mark the property VALUE=TEXT.
		prop := ical.NewProp(ical.PropRecurrenceRule)
		prop.Value = rule.ApplyBaseDefaults(r, ev.Start).String()
		props.Set(prop)
	}

	if exceptions.Len() > 0 {
		prop := ical.NewProp(ical.PropExceptionDates)
		values := make([]string, 0, exceptions.Len())
		if ev.AllDay {
			prop.Params.Set(ical.ParamValue, "DATE")
			for _, d := range exceptions.Dates() {
				values = append(values, d.UTC().Format(dateLayout))
			}
		} else {
			for _, d := range exceptions.Dates() {
				values = append(values, d.UTC().Format(dateTimeLayout))
			}
		}
		prop.Value = strings.Join(values, ",")
		props.Set(prop)
	}

	cal.Children = append(cal.Children, vevent.Component)
	return cal, nil
}

// Import reads a single-VEVENT calendar back into the event model. The
// recurrence rule text is canonicalized on the way in.
func Import(cal *ical.Calendar) (event.Event, event.ExceptionSet, error) {
	var ev event.Event
	var exceptions event.ExceptionSet

	events := cal.Events()
	if len(events) == 0 {
		return ev, exceptions, fmt.Errorf("no events found in calendar")
	}
	if len(events) > 1 {
		return ev, exceptions, fmt.Errorf("multiple events found in calendar")
	}
	props := events[0].Props

	if p := props.Get(ical.PropUID); p != nil {
		ev.ID = p.Value
	}
	if p := props.Get(ical.PropSummary); p != nil {
		ev.Title = p.Value
	}
	if p := props.Get(ical.PropDescription); p != nil {
		ev.Description = p.Value
	}
	if p := props.Get(propGroupID); p != nil {
		ev.GroupID = p.Value
	}
	ev.Visibility = event.VisibilityPublic
	if p := props.Get(ical.PropClass); p != nil && strings.EqualFold(p.Value, "PRIVATE") {
		ev.Visibility = event.VisibilityPrivate
	}

	startProp := props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return ev, exceptions, fmt.Errorf("event has no start")
	}
	ev.AllDay = isDateOnly(startProp)

	start, err := props.DateTime(ical.PropDateTimeStart, time.UTC)
	if err != nil {
		return ev, exceptions, fmt.Errorf("bad start: %w", err)
	}
	ev.Start = start

	if props.Get(ical.PropDateTimeEnd) != nil {
		end, err := props.DateTime(ical.PropDateTimeEnd, time.UTC)
		if err != nil {
			return ev, exceptions, fmt.Errorf("bad end: %w", err)
		}
		ev.End = end
	} else if ev.AllDay {
		ev.End = ev.Start.AddDate(0, 0, 1)
	} else {
		ev.End = ev.Start
	}

	if p := props.Get(ical.PropRecurrenceRule); p != nil && p.Value != "" {
		r, err := rule.Parse(p.Value)
		if err != nil {
			return ev, exceptions, err
		}
		ev.RecurrenceRule = rule.ApplyBaseDefaults(r, ev.Start).String()
	}

	if p := props.Get(ical.PropExceptionDates); p != nil && p.Value != "" {
		for _, raw := range strings.Split(p.Value, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			d, err := parseExceptionDate(raw, isDateOnly(p))
			if err != nil {
				return ev, exceptions, fmt.Errorf("bad exception date %q: %w", raw, err)
			}
			exceptions = exceptions.Add(d)
		}
	}

	return ev, exceptions, nil
}

// EncodeICS renders a series as ICS text.
func EncodeICS(ev event.Event, exceptions event.ExceptionSet) (string, error) {
	cal, err := Export(ev, exceptions)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.String(), nil
}

// DecodeICS parses ICS text holding a single VEVENT.
func DecodeICS(ics string) (event.Event, event.ExceptionSet, error) {
	cal, err := ical.NewDecoder(strings.NewReader(ics)).Decode()
	if err != nil {
		return event.Event{}, event.ExceptionSet{}, fmt.Errorf("failed to decode calendar: %w", err)
	}
	return Import(cal)
}

func setDateProp(props ical.Props, name string, t time.Time) {
	prop := ical.NewProp(name)
	prop.Params.Set(ical.ParamValue, "DATE")
	prop.Value = t.UTC().Format(dateLayout)
	props.Set(prop)
}

func isDateOnly(p *ical.Prop) bool {
	return strings.EqualFold(p.Params.Get(ical.ParamValue), "DATE")
}

// parseExceptionDate accepts both the date-time and date-only EXDATE
// forms; date-only markers are stored as midnight UTC so they suppress
// whole calendar days.
func parseExceptionDate(raw string, dateOnly bool) (time.Time, error) {
	if !dateOnly {
		if t, err := time.Parse(dateTimeLayout, raw); err == nil {
			return t, nil
		}
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
