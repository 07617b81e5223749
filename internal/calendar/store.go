package calendar

import (
	"sort"
	"time"

	"multical/internal/model"
)

// Busy/available answers of StatusAt.
const (
	StatusBusy      = "Busy"
	StatusAvailable = "Available"
)

// Store is a date-indexed event store. An event is listed under every date
// of its span, so a three-day event sits in three buckets.
//
// Store is not safe for concurrent use; Calendar guards it.
type Store struct {
	byDate map[time.Time][]model.Event
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byDate: make(map[time.Time][]model.Event)}
}

// Insert adds ev under every date it spans. If an event with the same
// identity already sits on any of those dates the store is left untouched.
func (s *Store) Insert(ev model.Event) error {
	span := ev.Span()
	for _, day := range span {
		if s.holds(day, ev.Key()) {
			return model.Conflictf("event %q from %s to %s exists already",
				ev.Subject, ev.Start.Format(model.DateTimeLayout), ev.End.Format(model.DateTimeLayout))
		}
	}
	for _, day := range span {
		s.byDate[day] = append(s.byDate[day], ev)
	}
	return nil
}

// Remove deletes ev (matched by identity) from every bucket it spans and
// drops buckets left empty. It reports whether anything was removed.
func (s *Store) Remove(ev model.Event) bool {
	removed := false
	key := ev.Key()
	for _, day := range ev.Span() {
		bucket := s.byDate[day]
		for i, e := range bucket {
			if e.Key() != key {
				continue
			}
			bucket = append(bucket[:i:i], bucket[i+1:]...)
			removed = true
			break
		}
		if len(bucket) == 0 {
			delete(s.byDate, day)
		} else {
			s.byDate[day] = bucket
		}
	}
	return removed
}

// Replace swaps old for ev in place, keeping bucket order. Both events must
// have the same span; timing changes go through Remove and Insert.
func (s *Store) Replace(old, ev model.Event) error {
	if ev.Key() != old.Key() {
		for _, day := range ev.Span() {
			if s.holds(day, ev.Key()) {
				return model.Conflictf("event %q at %s exists already",
					ev.Subject, ev.Start.Format(model.DateTimeLayout))
			}
		}
	}
	key := old.Key()
	for _, day := range old.Span() {
		for i, e := range s.byDate[day] {
			if e.Key() == key {
				s.byDate[day][i] = ev
				break
			}
		}
	}
	return nil
}

// OnDate returns the events whose span covers date, in insertion order.
func (s *Store) OnDate(date time.Time) []model.Event {
	day := model.DateOf(date)
	bucket := s.byDate[day]
	out := make([]model.Event, 0, len(bucket))
	for _, e := range bucket {
		if e.Covers(day) {
			out = append(out, e)
		}
	}
	return out
}

// Between returns the events with from <= Start and End <= to, walking the
// dates from from's date to to's date. A multi-day event is reported once,
// on the first date it is met.
func (s *Store) Between(from, to time.Time) []model.Event {
	from, to = model.Wall(from), model.Wall(to)
	first, last := model.DateOf(from), model.DateOf(to)

	seen := make(map[model.Key]struct{})
	out := make([]model.Event, 0)
	for _, day := range s.dates() {
		if day.Before(first) || day.After(last) {
			continue
		}
		for _, e := range s.byDate[day] {
			if e.Start.Before(from) || e.End.After(to) {
				continue
			}
			if _, dup := seen[e.Key()]; dup {
				continue
			}
			seen[e.Key()] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// StatusAt reports StatusBusy when some event has Start <= t <= End.
func (s *Store) StatusAt(t time.Time) string {
	t = model.Wall(t)
	for _, e := range s.byDate[model.DateOf(t)] {
		if !e.Start.After(t) && !e.End.Before(t) {
			return StatusBusy
		}
	}
	return StatusAvailable
}

// All returns every stored event once, ordered by the first date it spans
// and then by insertion.
func (s *Store) All() []model.Event {
	seen := make(map[model.Key]struct{})
	out := make([]model.Event, 0)
	for _, day := range s.dates() {
		for _, e := range s.byDate[day] {
			if _, dup := seen[e.Key()]; dup {
				continue
			}
			seen[e.Key()] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// Len is the number of distinct events stored.
func (s *Store) Len() int {
	return len(s.All())
}

// positions records where ev sits in each bucket of its span, so a Remove
// can later be undone with restore.
func (s *Store) positions(ev model.Event) map[time.Time]int {
	key := ev.Key()
	at := make(map[time.Time]int)
	for _, day := range ev.Span() {
		for i, e := range s.byDate[day] {
			if e.Key() == key {
				at[day] = i
				break
			}
		}
	}
	return at
}

// restore puts ev back at the bucket positions recorded by positions.
// Dates where ev is already present are left alone.
func (s *Store) restore(ev model.Event, at map[time.Time]int) {
	key := ev.Key()
	for _, day := range ev.Span() {
		if s.holds(day, key) {
			continue
		}
		bucket := s.byDate[day]
		i, ok := at[day]
		if !ok || i > len(bucket) {
			i = len(bucket)
		}
		bucket = append(bucket, model.Event{})
		copy(bucket[i+1:], bucket[i:])
		bucket[i] = ev
		s.byDate[day] = bucket
	}
}

func (s *Store) holds(day time.Time, key model.Key) bool {
	for _, e := range s.byDate[day] {
		if e.Key() == key {
			return true
		}
	}
	return false
}

func (s *Store) dates() []time.Time {
	days := make([]time.Time, 0, len(s.byDate))
	for d := range s.byDate {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
