package calendar

import (
	"strings"
	"sync"
	"time"

	"multical/internal/model"
)

// Calendar is one named calendar: an event store, its series table and the
// zone its wall clocks are read in.
type Calendar struct {
	mu sync.RWMutex

	name   string
	zone   string
	store  *Store
	series map[int64][]model.Event

	// nextSeriesID is the id handed to the next series; ids start at 1.
	nextSeriesID int64
}

// New creates an empty calendar. zone must be a valid IANA id.
func New(name, zone string) (*Calendar, error) {
	if strings.TrimSpace(name) == "" {
		return nil, model.Validationf("calendar name cannot be empty")
	}
	loc, err := model.LoadZone(zone)
	if err != nil {
		return nil, err
	}
	return &Calendar{
		name:         name,
		zone:         loc.String(),
		store:        NewStore(),
		series:       make(map[int64][]model.Event),
		nextSeriesID: 1,
	}, nil
}

func (c *Calendar) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Rename only changes the calendar's own name; the registry owns uniqueness.
func (c *Calendar) Rename(name string) error {
	if strings.TrimSpace(name) == "" {
		return model.Validationf("calendar name cannot be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
	return nil
}

// Timezone returns the calendar's IANA zone id.
func (c *Calendar) Timezone() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.zone
}

// SetTimezone re-projects every stored event into zone and then adopts it.
// Wall clocks of existing events change; nothing changes on error.
func (c *Calendar) SetTimezone(zone string) error {
	loc, err := model.LoadZone(zone)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	moved := make(map[model.Key]model.Event)
	next := NewStore()
	for _, ev := range c.store.All() {
		conv, err := Reproject(ev, loc.String())
		if err != nil {
			return err
		}
		if err := next.Insert(conv); err != nil {
			return err
		}
		moved[ev.Key()] = conv
	}

	series := make(map[int64][]model.Event, len(c.series))
	for id, members := range c.series {
		out := make([]model.Event, 0, len(members))
		for _, m := range members {
			if conv, ok := moved[m.Key()]; ok {
				out = append(out, conv)
			}
		}
		series[id] = out
	}

	c.store = next
	c.series = series
	c.zone = loc.String()
	return nil
}

// CreateEvent stores a single event. A missing start or end turns it into
// an 08:00-17:00 all-day event; an event without a zone takes the
// calendar's, and one in another zone is re-projected into it.
func (c *Calendar) CreateEvent(ev model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, err := c.prepare(ev)
	if err != nil {
		return err
	}
	return c.store.Insert(ev)
}

// CreateEvents stores events as one new series and returns its id. Every
// event must start and end on one date, and all must share the first
// event's start time. On any duplicate, events already added by this call
// are removed again before the error is returned.
func (c *Calendar) CreateEvents(events []model.Event) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createSeries(events)
}

// CreateSeries expands seed over pattern for weeks weeks (see Expand) and
// stores the result as one series.
func (c *Calendar) CreateSeries(seed model.Event, pattern string, weeks int) (int64, error) {
	events, err := Expand(seed, pattern, weeks)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createSeries(events)
}

// CreateSeriesUntil is CreateSeries with the week count derived from an
// end date.
func (c *Calendar) CreateSeriesUntil(seed model.Event, pattern string, until time.Time) (int64, error) {
	start := seed.Start
	if start.IsZero() {
		start = seed.End
	}
	weeks, err := WeeksUntil(start, until)
	if err != nil {
		return 0, err
	}
	return c.CreateSeries(seed, pattern, weeks)
}

func (c *Calendar) createSeries(events []model.Event) (int64, error) {
	if len(events) == 0 {
		return 0, model.Validationf("events list cannot be empty")
	}

	prepared := make([]model.Event, 0, len(events))
	for _, ev := range events {
		p, err := c.prepare(ev)
		if err != nil {
			return 0, err
		}
		prepared = append(prepared, p)
	}

	first := prepared[0].Start
	for _, ev := range prepared {
		if !model.DateOf(ev.Start).Equal(model.DateOf(ev.End)) {
			return 0, model.Validationf("event spans multiple days")
		}
		if !model.SameClock(ev.Start, first) {
			return 0, model.Validationf("start times must all be the same")
		}
	}

	id := c.nextSeriesID
	c.nextSeriesID++

	added := make([]model.Event, 0, len(prepared))
	for _, ev := range prepared {
		ev.SeriesID = id
		if err := c.store.Insert(ev); err != nil {
			c.rollback(added)
			return 0, model.Conflictf("duplicate exists in series: %q at %s",
				ev.Subject, ev.Start.Format(model.DateTimeLayout))
		}
		added = append(added, ev)
	}
	c.series[id] = added
	return id, nil
}

// rollback undoes the inserts of a failed batch, newest first.
func (c *Calendar) rollback(added []model.Event) {
	for i := len(added) - 1; i >= 0; i-- {
		c.store.Remove(added[i])
	}
}

// prepare applies the all-day default and the calendar zone, then
// validates.
func (c *Calendar) prepare(ev model.Event) (model.Event, error) {
	ev.Start = model.Wall(ev.Start)
	ev.End = model.Wall(ev.End)
	ev, err := ev.WithAllDayDefault()
	if err != nil {
		return ev, err
	}
	switch {
	case ev.Zone == "":
		ev.Zone = c.zone
	case ev.Zone != c.zone:
		if ev, err = Reproject(ev, c.zone); err != nil {
			return ev, err
		}
	}
	if err := model.Validate(ev); err != nil {
		return ev, err
	}
	return ev, nil
}

// OnDate returns the events covering date in insertion order.
func (c *Calendar) OnDate(date time.Time) []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.OnDate(date)
}

// Between returns the events that start no earlier than from and end no
// later than to.
func (c *Calendar) Between(from, to time.Time) []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Between(from, to)
}

// StatusAt answers StatusBusy or StatusAvailable for the wall-clock time t.
func (c *Calendar) StatusAt(t time.Time) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.StatusAt(t)
}

// Events returns every stored event once.
func (c *Calendar) Events() []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.All()
}

// Series returns the members of a series in creation order.
func (c *Calendar) Series(id int64) []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Event(nil), c.series[id]...)
}

// Len is the number of distinct stored events.
func (c *Calendar) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Len()
}

// farFuture bounds open-ended queries.
var farFuture = model.DateTime(9999, time.December, 31, 0, 0)

// Upcoming lists events from date onward. Once at least limit events
// exist, the window is cut at the end of the limit-th one.
func (c *Calendar) Upcoming(date time.Time, limit int) []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	from := model.DateOf(date)
	events := c.store.Between(from, farFuture)
	if limit <= 0 || len(events) < limit {
		return events
	}
	return c.store.Between(from, events[limit-1].End)
}

// Summaries lists every event as "subject start".
func (c *Calendar) Summaries() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := c.store.All()
	out := make([]string, 0, len(all))
	for _, ev := range all {
		out = append(out, ev.Subject+" "+ev.Start.Format(model.DateTimeLayout))
	}
	return out
}

// FindBySubject returns the first stored event with the given subject.
func (c *Calendar) FindBySubject(subject string) (model.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, ev := range c.store.All() {
		if ev.Subject == subject {
			return ev, nil
		}
	}
	return model.Event{}, model.NotFoundf("event %q not found", subject)
}

// RemoveEvent deletes one event, matched by identity, and drops it from its
// series.
func (c *Calendar) RemoveEvent(ev model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev.Start, ev.End = model.Wall(ev.Start), model.Wall(ev.End)
	if !c.store.Remove(ev) {
		return model.NotFoundf("event %q at %s does not exist",
			ev.Subject, ev.Start.Format(model.DateTimeLayout))
	}
	for id, members := range c.series {
		for i, m := range members {
			if m.Same(ev) {
				c.series[id] = append(members[:i:i], members[i+1:]...)
				if len(c.series[id]) == 0 {
					delete(c.series, id)
				}
				return nil
			}
		}
	}
	return nil
}

// RemoveSeries deletes every member of a series.
func (c *Calendar) RemoveSeries(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	members, ok := c.series[id]
	if !ok {
		return model.NotFoundf("no events found for series %d", id)
	}
	c.rollback(members)
	delete(c.series, id)
	return nil
}

// seriesOf returns the series table entry of ev, or nil when ev is not a
// registered member. Copied events can carry an id that means nothing in
// this calendar.
func (c *Calendar) seriesOf(ev model.Event) []model.Event {
	if !ev.InSeries() {
		return nil
	}
	members := c.series[ev.SeriesID]
	for _, m := range members {
		if m.Same(ev) {
			return members
		}
	}
	return nil
}
