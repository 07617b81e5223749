package calendar

import (
	"time"

	"multical/internal/model"
)

// applied records one edit so a multi-event edit can be undone. at holds
// the bucket positions of before when the edit moved it.
type applied struct {
	before model.Event
	after  model.Event
	at     map[time.Time]int
}

// EditEvent changes one event, found on id.Start's date by subject and
// exact start. START and END take a full date-time and may move the event
// to other date buckets.
func (c *Calendar) EditEvent(id model.Identifier, change model.PropertyChange) (model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target, err := c.locate(id.Subject, model.Wall(id.Start))
	if err != nil {
		return model.Event{}, err
	}
	done, err := c.editOne(target, change, false)
	if err != nil {
		return model.Event{}, err
	}
	return done.after, nil
}

// EditFollowing changes the anchor event and every member of its series
// that starts after it. START and END only take the time of day of the new
// value; each member keeps its own date. An anchor outside any series is
// edited alone.
func (c *Calendar) EditFollowing(subject string, anchorStart time.Time, change model.PropertyChange) ([]model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	anchorStart = model.Wall(anchorStart)
	anchor, err := c.locate(subject, anchorStart)
	if err != nil {
		return nil, err
	}

	targets := []model.Event{anchor}
	for _, m := range c.seriesOf(anchor) {
		if m.Start.After(anchorStart) && !m.Same(anchor) {
			targets = append(targets, m)
		}
	}
	return c.editAll(targets, change)
}

// EditSeries changes every member of a series, in series order, with the
// same time-of-day rule as EditFollowing.
func (c *Calendar) EditSeries(seriesID int64, change model.PropertyChange) ([]model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	members := c.series[seriesID]
	if len(members) == 0 {
		return nil, model.NotFoundf("no events found for series %d", seriesID)
	}
	return c.editAll(append([]model.Event(nil), members...), change)
}

// EditSeriesOf edits the whole series the event (subject, start) belongs to.
func (c *Calendar) EditSeriesOf(subject string, start time.Time, change model.PropertyChange) ([]model.Event, error) {
	c.mu.RLock()
	ev, err := c.locate(subject, model.Wall(start))
	member := err == nil && c.seriesOf(ev) != nil
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, model.NotFoundf("event %q at %s is not part of a series",
			subject, ev.Start.Format(model.DateTimeLayout))
	}
	return c.EditSeries(ev.SeriesID, change)
}

// editAll applies change in series scope to each target. If one edit
// fails, the ones before it are reverted.
func (c *Calendar) editAll(targets []model.Event, change model.PropertyChange) ([]model.Event, error) {
	done := make([]applied, 0, len(targets))
	for _, t := range targets {
		a, err := c.editOne(t, change, true)
		if err != nil {
			c.revert(done)
			return nil, err
		}
		done = append(done, a)
	}

	out := make([]model.Event, 0, len(done))
	for _, a := range done {
		out = append(out, a.after)
	}
	return out, nil
}

func (c *Calendar) editOne(target model.Event, change model.PropertyChange, seriesScope bool) (applied, error) {
	updated, err := change.Apply(target, seriesScope)
	if err != nil {
		return applied{}, err
	}

	if change.Property.IsTiming() {
		if change.Property == model.PropStart {
			for _, other := range c.store.OnDate(updated.Start) {
				if !other.Same(target) && other.Start.Equal(updated.Start) {
					return applied{}, model.Conflictf("time %s already exists",
						updated.Start.Format(model.DateTimeLayout))
				}
			}
		}
		at := c.store.positions(target)
		c.store.Remove(target)
		if err := c.store.Insert(updated); err != nil {
			c.store.restore(target, at)
			return applied{}, err
		}
		c.syncSeries(target, updated)
		return applied{before: target, after: updated, at: at}, nil
	}

	if err := c.store.Replace(target, updated); err != nil {
		return applied{}, err
	}
	c.syncSeries(target, updated)
	return applied{before: target, after: updated}, nil
}

// revert undoes edits newest first, putting moved events back at their
// old bucket positions.
func (c *Calendar) revert(done []applied) {
	for i := len(done) - 1; i >= 0; i-- {
		a := done[i]
		if a.at != nil {
			c.store.Remove(a.after)
			c.store.restore(a.before, a.at)
		} else {
			_ = c.store.Replace(a.after, a.before)
		}
		c.syncSeries(a.after, a.before)
	}
}

// syncSeries keeps the series table pointing at the current version of a
// member.
func (c *Calendar) syncSeries(old, ev model.Event) {
	members := c.seriesOf(old)
	for i, m := range members {
		if m.Same(old) {
			members[i] = ev
			return
		}
	}
}

// locate finds the event on start's date with the given subject and start.
func (c *Calendar) locate(subject string, start time.Time) (model.Event, error) {
	for _, ev := range c.store.OnDate(start) {
		if ev.Subject == subject && ev.Start.Equal(start) {
			return ev, nil
		}
	}
	return model.Event{}, model.NotFoundf("event %q at %s does not exist",
		subject, start.Format(model.DateTimeLayout))
}
