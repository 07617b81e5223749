package model

import (
	"strings"
	"time"
)

// DateTimeLayout is the minute-precision layout used for time-valued
// property changes (e.g. "2025-06-02T10:00").
const DateTimeLayout = "2006-01-02T15:04"

// Location tells whether an event happens online or in person. The zero
// value means the location was never set.
type Location string

const (
	LocationUnset    Location = ""
	LocationOnline   Location = "ONLINE"
	LocationPhysical Location = "PHYSICAL"
)

// ParseLocation accepts ONLINE or PHYSICAL in any case. An empty string
// yields LocationUnset.
func ParseLocation(s string) (Location, error) {
	switch Location(strings.ToUpper(strings.TrimSpace(s))) {
	case LocationUnset:
		return LocationUnset, nil
	case LocationOnline:
		return LocationOnline, nil
	case LocationPhysical:
		return LocationPhysical, nil
	default:
		return LocationUnset, Validationf("invalid location %q: must be ONLINE or PHYSICAL", s)
	}
}

// Status is the visibility of an event. The zero value means unset.
type Status string

const (
	StatusUnset   Status = ""
	StatusPublic  Status = "PUBLIC"
	StatusPrivate Status = "PRIVATE"
)

// ParseStatus accepts PUBLIC or PRIVATE in any case. An empty string yields
// StatusUnset.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusUnset:
		return StatusUnset, nil
	case StatusPublic:
		return StatusPublic, nil
	case StatusPrivate:
		return StatusPrivate, nil
	default:
		return StatusUnset, Validationf("invalid status %q: must be PUBLIC or PRIVATE", s)
	}
}

// Event is a single calendar entry.
//
// Start and End are wall-clock date-times. They are always carried in UTC
// with no offset meaning attached; Zone names the IANA zone the wall clock
// is read in. Use Wall to normalize any time.Time before storing it here.
//
// Events are values: every edit builds a new Event, nothing is mutated in
// place inside a store.
type Event struct {
	Subject     string
	Start       time.Time
	End         time.Time
	Zone        string
	Location    Location
	Status      Status
	Description string

	// SeriesID is 0 for standalone events.
	SeriesID int64
}

// Key is the identity of an event inside a calendar. Two events with the
// same Key cannot coexist in one calendar.
type Key struct {
	Subject string
	Start   time.Time
	End     time.Time
}

// Key returns the identity of e.
func (e Event) Key() Key {
	return Key{Subject: e.Subject, Start: e.Start, End: e.End}
}

// Same reports whether e and other share subject, start and end.
func (e Event) Same(other Event) bool {
	return e.Key() == other.Key()
}

// Duration is End - Start on the wall clock.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// InSeries reports whether e belongs to a series.
func (e Event) InSeries() bool {
	return e.SeriesID != 0
}

// Span returns every calendar date from Start's date to End's date inclusive.
func (e Event) Span() []time.Time {
	first := DateOf(e.Start)
	last := DateOf(e.End)
	days := make([]time.Time, 0, 1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Covers reports whether date falls inside e's span.
func (e Event) Covers(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(DateOf(e.Start)) && !d.After(DateOf(e.End))
}

// WithAllDayDefault fills a missing Start or End. When only one of them is
// set, the event becomes 08:00-17:00 on that date. When neither is set the
// event is rejected.
func (e Event) WithAllDayDefault() (Event, error) {
	if !e.Start.IsZero() && !e.End.IsZero() {
		return e, nil
	}
	var date time.Time
	switch {
	case !e.Start.IsZero():
		date = DateOf(e.Start)
	case !e.End.IsZero():
		date = DateOf(e.End)
	default:
		return e, Validationf("either start or end time must be set")
	}
	e.Start = date.Add(8 * time.Hour)
	e.End = date.Add(17 * time.Hour)
	return e, nil
}

// Identifier locates an existing event in a calendar.
type Identifier struct {
	Subject  string
	Start    time.Time
	End      time.Time
	SeriesID int64
}

// IdentifierOf returns the identifier of ev.
func IdentifierOf(ev Event) Identifier {
	return Identifier{Subject: ev.Subject, Start: ev.Start, End: ev.End, SeriesID: ev.SeriesID}
}

// Key mirrors Event.Key; SeriesID is not part of identity.
func (id Identifier) Key() Key {
	return Key{Subject: id.Subject, Start: Wall(id.Start), End: Wall(id.End)}
}

// Wall drops the location of t and keeps its wall-clock reading, so
// 10:00 in Asia/Seoul becomes 10:00 UTC.
func Wall(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)
}

// DateOf truncates t to midnight of its wall-clock date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a wall-clock date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateTime builds a wall-clock date-time with minute precision.
func DateTime(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

// AtClock puts the hour and minute of clock onto date's day.
func AtClock(date, clock time.Time) time.Time {
	return DateOf(date).Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
}

// SameClock reports whether a and b share hour and minute.
func SameClock(a, b time.Time) bool {
	return a.Hour() == b.Hour() && a.Minute() == b.Minute()
}

// ParseDateTime parses a DateTimeLayout value as a wall-clock time.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(DateTimeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, Validationf("incorrect date format %q: use yyyy-MM-ddTHH:mm", s)
	}
	return t, nil
}
