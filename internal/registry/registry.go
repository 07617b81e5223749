package registry

import (
	"io"
	"sort"
	"strings"
	"sync"

	"multical/internal/calendar"
	"multical/internal/ics"
	appLog "multical/internal/log"
	"multical/internal/model"
)

// Registry owns every calendar by unique name and the current selection.
// Its lock guards the name table and the selection; each Calendar guards
// its own events.
type Registry struct {
	mu        sync.Mutex
	calendars map[string]*calendar.Calendar
	current   string
}

func New() *Registry {
	return &Registry{calendars: make(map[string]*calendar.Calendar)}
}

// CreateCalendar adds an empty calendar. The first calendar created becomes
// the current one.
func (r *Registry) CreateCalendar(name, zone string) error {
	cal, err := calendar.New(name, zone)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calendars[name]; ok {
		return model.Conflictf("calendar %q already exists", name)
	}
	r.calendars[name] = cal
	if r.current == "" {
		r.current = name
	}
	appLog.Debug("calendar created", "name", name, "timezone", cal.Timezone())
	return nil
}

// UseCalendar selects name as the current calendar and returns it.
func (r *Registry) UseCalendar(name string) (*calendar.Calendar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cal, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	r.current = name
	return cal, nil
}

// Calendar returns the named calendar without changing the selection.
func (r *Registry) Calendar(name string) (*calendar.Calendar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(name)
}

// Current returns the selected calendar, or ErrNoCalendar.
func (r *Registry) Current() (*calendar.Calendar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked()
}

// CurrentName is "" when nothing is selected.
func (r *Registry) CurrentName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Registry) CurrentTimezone() (string, error) {
	cal, err := r.Current()
	if err != nil {
		return "", err
	}
	return cal.Timezone(), nil
}

// EditCalendar changes a calendar property. TIMEZONE re-projects every
// stored event into the new zone; CALENDARNAME renames the calendar and
// keeps the selection on it.
func (r *Registry) EditCalendar(name string, property model.Property, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cal, err := r.lookup(name)
	if err != nil {
		return err
	}
	if strings.TrimSpace(value) == "" {
		return model.Validationf("new value of %s cannot be blank", property)
	}

	switch property {
	case model.PropTimezone:
		if err := cal.SetTimezone(value); err != nil {
			return err
		}
		appLog.Info("calendar retimed", "name", name, "timezone", cal.Timezone(), "events", cal.Len())
		return nil
	case model.PropCalendarName:
		if value == name {
			return nil
		}
		if _, taken := r.calendars[value]; taken {
			return model.Conflictf("calendar %q already exists", value)
		}
		if err := cal.Rename(value); err != nil {
			return err
		}
		delete(r.calendars, name)
		r.calendars[value] = cal
		if r.current == name {
			r.current = value
		}
		return nil
	default:
		return model.Validationf("property %s cannot be changed on a calendar", property)
	}
}

// ListCalendarNames returns every calendar name in sorted order.
func (r *Registry) ListCalendarNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.calendars))
	for n := range r.calendars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ExportICS writes the named calendar as ICS.
func (r *Registry) ExportICS(name string, w io.Writer) error {
	cal, err := r.Calendar(name)
	if err != nil {
		return err
	}
	return ics.Encode(w, cal.Name(), cal.Timezone(), cal.Events())
}

// ImportICS decodes an ICS stream into the named calendar. Events grouped
// as one series in the feed become one new series; on any failure every
// event added by this call is removed again.
func (r *Registry) ImportICS(name string, src io.Reader) (int, error) {
	cal, err := r.Calendar(name)
	if err != nil {
		return 0, err
	}
	feed, err := ics.Decode(src)
	if err != nil {
		return 0, err
	}
	if err := recreate(cal, feed.Events); err != nil {
		return 0, err
	}
	appLog.Info("ics imported", "calendar", name, "events", len(feed.Events), "skipped", feed.Skipped)
	return len(feed.Events), nil
}

func (r *Registry) lookup(name string) (*calendar.Calendar, error) {
	cal, ok := r.calendars[name]
	if !ok {
		return nil, model.NotFoundf("calendar %q does not exist", name)
	}
	return cal, nil
}

func (r *Registry) currentLocked() (*calendar.Calendar, error) {
	if r.current == "" {
		return nil, model.ErrNoCalendar
	}
	return r.lookup(r.current)
}
