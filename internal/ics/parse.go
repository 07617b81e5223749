package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "multical/internal/log"
	"multical/internal/model"
)

// SeriesProperty carries a calendar-local series id on exported VEVENTs.
const SeriesProperty = "X-MULTICAL-SERIES"

// Feed is a decoded VCALENDAR.
//
// Events that belong together carry the same SeriesID. The ids are local to
// the feed (1, 2, ...) and only group events; callers recreate each group
// as a fresh series.
type Feed struct {
	Name    string
	Zone    string
	Events  []model.Event
	Skipped int
}

// parsedEvent is one VEVENT before recurrence expansion. Times are wall
// clocks in Zone.
type parsedEvent struct {
	UID         string
	Summary     string
	Description string
	Location    model.Location
	Status      model.Status

	Start  time.Time
	End    time.Time
	Zone   string
	AllDay bool

	SeriesTag  string
	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time
}

// Decode reads one VCALENDAR. VEVENTs that cannot be understood are logged
// and counted in Feed.Skipped; a malformed calendar is an error.
func Decode(r io.Reader) (Feed, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return Feed{}, model.Validationf("parse ics: %v", err)
	}

	var feed Feed
	for _, p := range cal.CalendarProperties {
		switch p.IANAToken {
		case string(ical.PropertyXWRCalName):
			feed.Name = p.Value
		case string(ical.PropertyXWRTimezone):
			feed.Zone = p.Value
		}
	}
	if feed.Zone != "" {
		if _, err := model.LoadZone(feed.Zone); err != nil {
			appLog.Warn("ics calendar zone ignored", "error", err, "zone", feed.Zone)
			feed.Zone = ""
		}
	}

	parsed := make([]parsedEvent, 0)
	for _, ve := range cal.Events() {
		pe, perr := parseVEvent(ve, feed.Zone)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "error", perr, "uid", ve.Id())
			feed.Skipped++
			continue
		}
		parsed = append(parsed, pe)
	}

	feed.Events = group(parsed)
	appLog.Info("ics decode completed", "name", feed.Name, "event_count", len(feed.Events), "skipped", feed.Skipped)
	return feed, nil
}

// group expands recurring events and assigns feed-local series ids by
// series tag, in order of first appearance.
func group(parsed []parsedEvent) []model.Event {
	overrides := make(map[string][]parsedEvent)
	base := make([]parsedEvent, 0, len(parsed))
	for _, pe := range parsed {
		if pe.Recurrence != nil {
			overrides[pe.UID] = append(overrides[pe.UID], pe)
			continue
		}
		base = append(base, pe)
	}

	ids := make(map[string]int64)
	out := make([]model.Event, 0, len(base))
	for _, pe := range base {
		instances := []parsedEvent{pe}
		tag := pe.SeriesTag
		if pe.RawRRule != "" {
			instances = expandRule(pe, overrides[pe.UID])
			if tag == "" {
				tag = "rrule:" + pe.UID
			}
		}

		var id int64
		if tag != "" {
			if id = ids[tag]; id == 0 {
				id = int64(len(ids) + 1)
				ids[tag] = id
			}
		}
		for _, inst := range instances {
			ev := inst.event()
			ev.SeriesID = id
			out = append(out, ev)
		}
	}
	return out
}

func (pe parsedEvent) event() model.Event {
	ev := model.Event{
		Subject:     pe.Summary,
		Start:       pe.Start,
		End:         pe.End,
		Zone:        pe.Zone,
		Location:    pe.Location,
		Status:      pe.Status,
		Description: pe.Description,
	}
	if pe.AllDay {
		ev.End = time.Time{}
		ev, _ = ev.WithAllDayDefault()
	}
	return ev
}

func parseVEvent(ve *ical.VEvent, feedZone string) (parsedEvent, error) {
	var out parsedEvent
	out.UID = ve.Id()

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if strings.TrimSpace(out.Summary) == "" {
		return out, errors.New("missing SUMMARY")
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = locationOf(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyClass); p != nil {
		out.Status = statusOf(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentProperty(SeriesProperty)); p != nil {
		out.SeriesTag = "series:" + strings.TrimSpace(p.Value)
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, errors.New("missing DTSTART")
	}
	start, zone, allDay, err := parseICSTime(startProp.Value, tzidOf(startProp.ICalParameters), feedZone)
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	out.Start, out.Zone, out.AllDay = start, zone, allDay

	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil && !allDay {
		end, endZone, _, err := parseICSTime(endProp.Value, tzidOf(endProp.ICalParameters), feedZone)
		if err != nil {
			return out, fmt.Errorf("DTEND: %w", err)
		}
		if endZone != zone {
			end = reread(end, endZone, zone)
		}
		out.End = end
	} else {
		out.End = out.Start
	}
	if out.End.Before(out.Start) {
		return out, errors.New("DTEND before DTSTART")
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, exZone, _, err := parseICSTime(part, tzidOf(p.ICalParameters), zone)
			if err != nil {
				continue
			}
			out.ExDates = append(out.ExDates, reread(t, exZone, zone))
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		t, ridZone, _, err := parseICSTime(p.Value, tzidOf(p.ICalParameters), zone)
		if err == nil {
			t = reread(t, ridZone, zone)
			out.Recurrence = &t
		}
	}
	return out, nil
}

// parseICSTime parses a DATE or DATE-TIME value into a wall clock and the
// zone it is read in.
//
//   - 20250101T090000Z is converted from UTC into fallback (or kept as UTC).
//   - 20250101T090000 is read in tzid, else fallback, else UTC.
//   - 20250101 is a date and reported as all-day.
func parseICSTime(v, tzid, fallback string) (time.Time, string, bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, "", false, errors.New("empty time value")
	}
	zone := tzid
	if zone == "" {
		zone = fallback
	}
	if zone == "" {
		zone = "UTC"
	}
	loc, err := model.LoadZone(zone)
	if err != nil {
		return time.Time{}, "", false, err
	}

	switch {
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse("20060102T150405Z", v)
		if err != nil {
			return time.Time{}, "", false, err
		}
		return model.Wall(t.In(loc)), loc.String(), false, nil
	case strings.Contains(v, "T"):
		t, err := time.Parse("20060102T150405", v)
		if err != nil {
			return time.Time{}, "", false, err
		}
		return t, loc.String(), false, nil
	default:
		t, err := time.Parse("20060102", v)
		if err != nil {
			return time.Time{}, "", false, err
		}
		return t, loc.String(), true, nil
	}
}

// reread moves a wall clock read in from into the wall clock of to.
func reread(wall time.Time, from, to string) time.Time {
	if from == to {
		return wall
	}
	src, err1 := model.LoadZone(from)
	dst, err2 := model.LoadZone(to)
	if err1 != nil || err2 != nil {
		return wall
	}
	y, mo, d := wall.Date()
	h, mi, s := wall.Clock()
	return model.Wall(time.Date(y, mo, d, h, mi, s, 0, src).In(dst))
}

func tzidOf(params map[string][]string) string {
	if vs, ok := params[string(ical.ParameterTzid)]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// locationOf maps a LOCATION text onto the two-valued model. Anything that
// is not ONLINE/PHYSICAL is online when it looks like a link and physical
// otherwise.
func locationOf(v string) model.Location {
	if loc, err := model.ParseLocation(v); err == nil {
		return loc
	}
	lower := strings.ToLower(strings.TrimSpace(v))
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return model.LocationOnline
	}
	return model.LocationPhysical
}

func statusOf(v string) model.Status {
	switch ical.Classification(strings.ToUpper(strings.TrimSpace(v))) {
	case ical.ClassificationPublic:
		return model.StatusPublic
	case ical.ClassificationPrivate, ical.ClassificationConfidential:
		return model.StatusPrivate
	}
	return model.StatusUnset
}
