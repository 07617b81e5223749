package model

import (
	"strings"
	"time"
)

// Property names an editable attribute of an event or a calendar.
type Property string

const (
	PropSubject      Property = "SUBJECT"
	PropStart        Property = "START"
	PropEnd          Property = "END"
	PropLocation     Property = "LOCATION"
	PropDescription  Property = "DESCRIPTION"
	PropStatus       Property = "STATUS"
	PropCalendarName Property = "CALENDARNAME"
	PropTimezone     Property = "TIMEZONE"
)

// ParseProperty maps a property name (any case) to a Property. "name" is
// accepted as an alias of CALENDARNAME.
func ParseProperty(s string) (Property, error) {
	p := Property(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PropSubject, PropStart, PropEnd, PropLocation, PropDescription,
		PropStatus, PropCalendarName, PropTimezone:
		return p, nil
	case "NAME":
		return PropCalendarName, nil
	default:
		return "", Validationf("unknown property %q", s)
	}
}

// IsTiming reports whether p moves an event in time.
func (p Property) IsTiming() bool {
	return p == PropStart || p == PropEnd
}

// PropertyChange replaces one property with a new value. Time-valued
// properties take a DateTimeLayout string.
type PropertyChange struct {
	Property Property
	Value    string
}

// Change is shorthand for PropertyChange{p, value}.
func Change(p Property, value string) PropertyChange {
	return PropertyChange{Property: p, Value: value}
}

// Apply returns a copy of ev with the changed property replaced.
//
// With seriesScope set, START and END only take the hour and minute of the
// new value and keep the event's own date, so one change can be applied to
// every member of a series.
func (c PropertyChange) Apply(ev Event, seriesScope bool) (Event, error) {
	b := From(ev)
	switch c.Property {
	case PropSubject:
		if strings.TrimSpace(c.Value) == "" {
			return Event{}, Validationf("subject can't be empty")
		}
		b.Subject(c.Value)
	case PropStart:
		t, err := c.timeFor(ev.Start, seriesScope)
		if err != nil {
			return Event{}, err
		}
		b.Start(t)
	case PropEnd:
		t, err := c.timeFor(ev.End, seriesScope)
		if err != nil {
			return Event{}, err
		}
		b.End(t)
	case PropLocation:
		b.Location(c.Value)
	case PropStatus:
		b.Status(c.Value)
	case PropDescription:
		b.Description(c.Value)
	default:
		return Event{}, Validationf("property %s cannot be changed on an event", c.Property)
	}
	return b.Build()
}

func (c PropertyChange) timeFor(current time.Time, seriesScope bool) (time.Time, error) {
	t, err := ParseDateTime(c.Value)
	if err != nil {
		return time.Time{}, err
	}
	if seriesScope {
		return AtClock(current, t), nil
	}
	return t, nil
}
