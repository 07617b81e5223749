package calendar

import (
	"time"

	"multical/internal/model"
)

// DefaultZone is assumed for events that were never given a zone.
var DefaultZone = time.Local

// Reproject moves ev's wall clock from its own zone to target while keeping
// the instants fixed. Start and End are converted separately, so a DST
// change between them alters the apparent duration.
func Reproject(ev model.Event, target string) (model.Event, error) {
	to, err := model.LoadZone(target)
	if err != nil {
		return model.Event{}, err
	}
	from := DefaultZone
	if ev.Zone != "" {
		if from, err = model.LoadZone(ev.Zone); err != nil {
			return model.Event{}, err
		}
	}

	ev.Start = convertWall(ev.Start, from, to)
	ev.End = convertWall(ev.End, from, to)
	ev.Zone = to.String()
	return ev, nil
}

// convertWall reads wall in from and renders the same instant in to.
func convertWall(wall time.Time, from, to *time.Location) time.Time {
	if wall.IsZero() {
		return wall
	}
	y, mo, d := wall.Date()
	h, mi, s := wall.Clock()
	return model.Wall(time.Date(y, mo, d, h, mi, s, wall.Nanosecond(), from).In(to))
}

// Instant returns the absolute time of a wall-clock value read in zone.
func Instant(wall time.Time, zone string) (time.Time, error) {
	loc := DefaultZone
	if zone != "" {
		var err error
		if loc, err = model.LoadZone(zone); err != nil {
			return time.Time{}, err
		}
	}
	y, mo, d := wall.Date()
	h, mi, s := wall.Clock()
	return time.Date(y, mo, d, h, mi, s, wall.Nanosecond(), loc), nil
}
