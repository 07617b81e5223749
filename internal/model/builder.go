package model

import (
	"strings"
	"time"
)

// Builder assembles a validated Event.
//
//	ev, err := model.NewBuilder().
//		Subject("Standup").
//		Start(model.DateTime(2025, 1, 1, 9, 0)).
//		End(model.DateTime(2025, 1, 1, 10, 0)).
//		Build()
//
// Setters never fail; the first invalid input is remembered and returned
// from Build.
type Builder struct {
	ev  Event
	err error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// From starts a builder holding a copy of every field of ev.
func From(ev Event) *Builder {
	return &Builder{ev: ev}
}

func (b *Builder) Subject(s string) *Builder {
	b.ev.Subject = s
	return b
}

func (b *Builder) Start(t time.Time) *Builder {
	b.ev.Start = Wall(t)
	return b
}

func (b *Builder) End(t time.Time) *Builder {
	b.ev.End = Wall(t)
	return b
}

func (b *Builder) Zone(name string) *Builder {
	name = strings.TrimSpace(name)
	if name != "" {
		if _, err := LoadZone(name); err != nil {
			b.fail(err)
			return b
		}
	}
	b.ev.Zone = name
	return b
}

func (b *Builder) Location(s string) *Builder {
	loc, err := ParseLocation(s)
	if err != nil {
		b.fail(err)
		return b
	}
	b.ev.Location = loc
	return b
}

func (b *Builder) Status(s string) *Builder {
	st, err := ParseStatus(s)
	if err != nil {
		b.fail(err)
		return b
	}
	b.ev.Status = st
	return b
}

func (b *Builder) Description(s string) *Builder {
	b.ev.Description = s
	return b
}

func (b *Builder) SeriesID(id int64) *Builder {
	b.ev.SeriesID = id
	return b
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build validates and returns the event.
func (b *Builder) Build() (Event, error) {
	if b.err != nil {
		return Event{}, b.err
	}
	if err := Validate(b.ev); err != nil {
		return Event{}, err
	}
	return b.ev, nil
}

// Validate checks the invariants every stored event must satisfy.
func Validate(ev Event) error {
	if strings.TrimSpace(ev.Subject) == "" {
		return Validationf("subject cannot be empty")
	}
	if ev.Start.IsZero() || ev.End.IsZero() {
		return Validationf("start and end time are required")
	}
	if ev.End.Before(ev.Start) {
		return Validationf("end time cannot be before start time")
	}
	return nil
}

// LoadZone resolves an IANA zone id. Unlike time.LoadLocation it rejects an
// empty name instead of returning UTC.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Validationf("timezone cannot be empty")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, Validationf("invalid timezone %q", name)
	}
	return loc, nil
}
