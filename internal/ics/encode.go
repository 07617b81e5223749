package ics

import (
	"io"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"multical/internal/model"
)

const localLayout = "20060102T150405"

// uidSpace namespaces the name-based UUIDs of exported events.
var uidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:multical:event"))

// UID is the stable VEVENT UID of ev inside the named calendar. Re-exporting
// an unchanged event yields the same UID.
func UID(calendar string, ev model.Event) string {
	key := calendar + "\x00" + ev.Subject + "\x00" +
		ev.Start.Format(localLayout) + "\x00" + ev.End.Format(localLayout)
	return uuid.NewSHA1(uidSpace, []byte(key)).String() + "@multical"
}

// Encode writes events as one VCALENDAR. DTSTART/DTEND carry the event's
// zone as TZID (zone when the event has none), so the wall clock survives a
// round trip through Decode.
func Encode(w io.Writer, name, zone string, events []model.Event) error {
	cal := ical.NewCalendarFor("multical")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(zone)

	stamp := time.Now().UTC()
	for _, ev := range events {
		tz := ev.Zone
		if tz == "" {
			tz = zone
		}

		ve := cal.AddEvent(UID(name, ev))
		ve.SetDtStampTime(stamp)
		ve.SetSummary(ev.Subject)
		ve.SetProperty(ical.ComponentPropertyDtStart, ev.Start.Format(localLayout), ical.WithTZID(tz))
		ve.SetProperty(ical.ComponentPropertyDtEnd, ev.End.Format(localLayout), ical.WithTZID(tz))
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != model.LocationUnset {
			ve.SetLocation(string(ev.Location))
		}
		if ev.Status != model.StatusUnset {
			ve.SetClass(ical.Classification(ev.Status))
		}
		if ev.InSeries() {
			ve.SetProperty(ical.ComponentProperty(SeriesProperty), strconv.FormatInt(ev.SeriesID, 10))
		}
	}
	return cal.SerializeTo(w)
}
