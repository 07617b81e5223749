package calendar

import (
	"time"

	"multical/internal/model"
)

// Querier is the read side of a calendar, enough for views and reports.
type Querier interface {
	Name() string
	Timezone() string
	OnDate(date time.Time) []model.Event
	Between(from, to time.Time) []model.Event
	StatusAt(t time.Time) string
	Events() []model.Event
	Upcoming(date time.Time, limit int) []model.Event
	Len() int
}

// Editor creates, edits and removes events.
type Editor interface {
	CreateEvent(ev model.Event) error
	CreateEvents(events []model.Event) (int64, error)
	CreateSeries(seed model.Event, pattern string, weeks int) (int64, error)
	CreateSeriesUntil(seed model.Event, pattern string, until time.Time) (int64, error)
	EditEvent(id model.Identifier, change model.PropertyChange) (model.Event, error)
	EditFollowing(subject string, anchorStart time.Time, change model.PropertyChange) ([]model.Event, error)
	EditSeries(seriesID int64, change model.PropertyChange) ([]model.Event, error)
	RemoveEvent(ev model.Event) error
	RemoveSeries(id int64) error
}

// Handle is everything a command layer needs from one calendar.
type Handle interface {
	Querier
	Editor
}

var _ Handle = (*Calendar)(nil)
