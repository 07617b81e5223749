package registry

import (
	"sort"
	"time"

	"multical/internal/calendar"
	"multical/internal/model"
)

// CopyEvent copies the event (subject, sourceStart) of the current calendar
// into target, starting at targetStart. The copy ends on targetStart's date
// at the original end's hour and minute, whatever the two calendars' zones.
func (r *Registry) CopyEvent(subject string, sourceStart time.Time, target string, targetStart time.Time) (model.Event, error) {
	r.mu.Lock()
	src, err := r.currentLocked()
	var dst *calendar.Calendar
	if err == nil {
		dst, err = r.lookup(target)
	}
	r.mu.Unlock()
	if err != nil {
		return model.Event{}, err
	}

	orig, err := find(src, subject, model.Wall(sourceStart))
	if err != nil {
		return model.Event{}, err
	}

	targetStart = model.Wall(targetStart)
	ev, err := model.From(orig).
		Start(targetStart).
		End(model.AtClock(targetStart, orig.End)).
		Zone(dst.Timezone()).
		Build()
	if err != nil {
		return model.Event{}, err
	}
	if err := dst.CreateEvent(ev); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// CopyEvents copies every event of the current calendar lying within
// [startDate 00:00, endDate 23:59] into target. Each event is re-projected
// into the target zone and then shifted by the days between startDate and
// targetStartDate. Series are recreated as new series in the target,
// standalone events one by one. On failure the target is left as it was.
func (r *Registry) CopyEvents(startDate, endDate time.Time, target string, targetStartDate time.Time) error {
	from, to := model.DateOf(startDate), model.DateOf(endDate)
	if from.After(to) {
		return model.Validationf("start date %s is after end date %s",
			from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	r.mu.Lock()
	src, err := r.currentLocked()
	var dst *calendar.Calendar
	if err == nil {
		dst, err = r.lookup(target)
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}

	events := src.Between(from, to.Add(23*time.Hour+59*time.Minute))
	offset := int(model.DateOf(targetStartDate).Sub(from).Hours() / 24)

	moved := make([]model.Event, 0, len(events))
	for _, ev := range events {
		conv, err := calendar.Reproject(ev, dst.Timezone())
		if err != nil {
			return err
		}
		conv.Start = conv.Start.AddDate(0, 0, offset)
		conv.End = conv.End.AddDate(0, 0, offset)
		moved = append(moved, conv)
	}
	return recreate(dst, moved)
}

// recreate adds events to cal. Events sharing a non-zero SeriesID become
// one new series each, in ascending id order; the rest are added alone.
// Anything added before a failure is removed again.
func recreate(cal calendar.Handle, events []model.Event) error {
	zone := cal.Timezone()
	groups := make(map[int64][]model.Event)
	standalone := make([]model.Event, 0)
	for _, ev := range events {
		if ev.Zone != "" && ev.Zone != zone {
			conv, err := calendar.Reproject(ev, zone)
			if err != nil {
				return err
			}
			ev = conv
		}
		if ev.InSeries() {
			groups[ev.SeriesID] = append(groups[ev.SeriesID], ev)
			continue
		}
		standalone = append(standalone, ev)
	}
	ids := make([]int64, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var (
		series []int64
		added  []model.Event
	)
	undo := func() {
		for i := len(added) - 1; i >= 0; i-- {
			_ = cal.RemoveEvent(added[i])
		}
		for i := len(series) - 1; i >= 0; i-- {
			_ = cal.RemoveSeries(series[i])
		}
	}

	for _, id := range ids {
		members := groups[id]
		for i := range members {
			members[i].SeriesID = 0
		}
		newID, err := cal.CreateEvents(members)
		if err != nil {
			undo()
			return err
		}
		series = append(series, newID)
	}
	for _, ev := range standalone {
		if err := cal.CreateEvent(ev); err != nil {
			undo()
			return err
		}
		added = append(added, ev)
	}
	return nil
}

// find locates an event by subject and exact start.
func find(cal calendar.Querier, subject string, start time.Time) (model.Event, error) {
	for _, ev := range cal.OnDate(start) {
		if ev.Subject == subject && ev.Start.Equal(start) {
			return ev, nil
		}
	}
	return model.Event{}, model.NotFoundf("event %q at %s does not exist",
		subject, start.Format(model.DateTimeLayout))
}
