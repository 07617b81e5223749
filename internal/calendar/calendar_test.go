package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multical/internal/model"
)

func newCalendar(t *testing.T, zone string) *Calendar {
	t.Helper()
	c, err := New("work", zone)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New("", "UTC")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = New("work", "Atlantis/Capital")
	assert.ErrorIs(t, err, model.ErrValidation)

	c, err := New("work", "Europe/Paris")
	require.NoError(t, err)
	assert.Equal(t, "work", c.Name())
	assert.Equal(t, "Europe/Paris", c.Timezone())
}

func TestCreateEvent(t *testing.T) {
	t.Parallel()

	t.Run("all-day default", func(t *testing.T) {
		t.Parallel()
		c := newCalendar(t, "UTC")
		require.NoError(t, c.CreateEvent(model.Event{Subject: "holiday", Start: model.DateTime(2025, 12, 25, 0, 0)}))

		got := c.OnDate(model.Date(2025, 12, 25))
		require.Len(t, got, 1)
		assert.Equal(t, model.DateTime(2025, 12, 25, 8, 0), got[0].Start)
		assert.Equal(t, model.DateTime(2025, 12, 25, 17, 0), got[0].End)
		assert.Equal(t, "UTC", got[0].Zone)
	})

	t.Run("foreign zone is re-projected", func(t *testing.T) {
		t.Parallel()
		c := newCalendar(t, "America/Los_Angeles")
		require.NoError(t, c.CreateEvent(model.Event{
			Subject: "call",
			Start:   model.DateTime(2025, 6, 2, 14, 0),
			End:     model.DateTime(2025, 6, 2, 15, 0),
			Zone:    "America/New_York",
		}))

		got := c.OnDate(model.Date(2025, 6, 2))
		require.Len(t, got, 1)
		assert.Equal(t, model.DateTime(2025, 6, 2, 11, 0), got[0].Start)
		assert.Equal(t, "America/Los_Angeles", got[0].Zone)
	})

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()
		c := newCalendar(t, "UTC")
		ev := event("standup", [5]int{2025, 1, 1, 9, 0}, [5]int{2025, 1, 1, 10, 0})
		require.NoError(t, c.CreateEvent(ev))
		assert.ErrorIs(t, c.CreateEvent(ev), model.ErrConflict)
		assert.Len(t, c.OnDate(model.Date(2025, 1, 1)), 1)
	})

	t.Run("end before start", func(t *testing.T) {
		t.Parallel()
		c := newCalendar(t, "UTC")
		ev := event("oops", [5]int{2025, 1, 1, 10, 0}, [5]int{2025, 1, 1, 9, 0})
		assert.ErrorIs(t, c.CreateEvent(ev), model.ErrValidation)
		assert.Zero(t, c.Len())
	})
}

func TestCreateSeries(t *testing.T) {
	t.Parallel()

	c := newCalendar(t, "UTC")
	seed := event("sleep", [5]int{2025, 6, 2, 10, 0}, [5]int{2025, 6, 2, 11, 0})

	id, err := c.CreateSeries(seed, "MWF", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	for _, day := range []int{2, 4, 6, 9, 11, 13} {
		got := c.OnDate(model.Date(2025, 6, day))
		require.Len(t, got, 1, "2025-06-%02d", day)
		assert.Equal(t, id, got[0].SeriesID)
	}
	assert.Empty(t, c.OnDate(model.Date(2025, 6, 20)))
	assert.Len(t, c.Series(id), 6)
}

func TestCreateSeriesUntil(t *testing.T) {
	t.Parallel()

	c := newCalendar(t, "UTC")
	seed := event("gym", [5]int{2025, 6, 3, 18, 0}, [5]int{2025, 6, 3, 19, 0})

	id, err := c.CreateSeriesUntil(seed, "TR", model.Date(2025, 6, 17))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5, 10, 12}, seriesDays(c.Series(id)))
}

func TestCreateSeriesMidWeekSeed(t *testing.T) {
	t.Parallel()

	c := newCalendar(t, "UTC")
	seed := event("gym", [5]int{2025, 6, 4, 10, 0}, [5]int{2025, 6, 4, 11, 0})

	id, err := c.CreateSeries(seed, "MW", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2, 9, 11}, seriesDays(c.Series(id)))
	assert.Equal(t, 4, c.Len())
}

func seriesDays(events []model.Event) []int {
	out := make([]int, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Start.Day())
	}
	return out
}

func TestCreateEventsRollsBack(t *testing.T) {
	t.Parallel()

	c := newCalendar(t, "UTC")
	blocker := event("sleep", [5]int{2025, 6, 9, 10, 0}, [5]int{2025, 6, 9, 11, 0})
	require.NoError(t, c.CreateEvent(blocker))

	seed := event("sleep", [5]int{2025, 6, 2, 10, 0}, [5]int{2025, 6, 2, 11, 0})
	_, err := c.CreateSeries(seed, "MWF", 2)
	require.ErrorIs(t, err, model.ErrConflict)
	assert.Contains(t, err.Error(), "duplicate exists in series")

	assert.Equal(t, []model.Event{blocker}, c.Events())
	assert.Empty(t, c.OnDate(model.Date(2025, 6, 2)))
	assert.Empty(t, c.OnDate(model.Date(2025, 6, 4)))

	// The failed batch used up id 1.
	id, err := c.CreateEvents([]model.Event{seed})
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
}

func TestCreateEventsValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		events []model.Event
		msg    string
	}{
		{
			name:   "empty",
			events: nil,
			msg:    "cannot be empty",
		},
		{
			name: "spans days",
			events: []model.Event{
				event("x", [5]int{2025, 6, 2, 22, 0}, [5]int{2025, 6, 3, 1, 0}),
			},
			msg: "event spans multiple days",
		},
		{
			name: "different start times",
			events: []model.Event{
				event("x", [5]int{2025, 6, 2, 9, 0}, [5]int{2025, 6, 2, 10, 0}),
				event("x", [5]int{2025, 6, 3, 9, 30}, [5]int{2025, 6, 3, 10, 0}),
			},
			msg: "start times must all be the same",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newCalendar(t, "UTC")
			_, err := c.CreateEvents(tt.events)
			require.ErrorIs(t, err, model.ErrValidation)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Zero(t, c.Len())
		})
	}
}

func TestSetTimezone(t *testing.T) {
	t.Parallel()

	c := newCalendar(t, "America/New_York")
	call := event("call", [5]int{2025, 6, 2, 14, 0}, [5]int{2025, 6, 2, 15, 0})
	call.Zone = ""
	id, err := c.CreateEvents([]model.Event{call})
	require.NoError(t, err)

	require.NoError(t, c.SetTimezone("America/Los_Angeles"))
	assert.Equal(t, "America/Los_Angeles", c.Timezone())

	got := c.OnDate(model.Date(2025, 6, 2))
	require.Len(t, got, 1)
	assert.Equal(t, model.DateTime(2025, 6, 2, 11, 0), got[0].Start)
	assert.Equal(t, model.DateTime(2025, 6, 2, 12, 0), got[0].End)
	assert.Equal(t, got, c.Series(id))

	require.ErrorIs(t, c.SetTimezone("Nope/Nope"), model.ErrValidation)
	assert.Equal(t, "America/Los_Angeles", c.Timezone())
}

func TestStatusAt(t *testing.T) {
	t.Parallel()

	c := newCalendar(t, "UTC")
	require.NoError(t, c.CreateEvent(event("focus", [5]int{2025, 2, 3, 13, 0}, [5]int{2025, 2, 3, 15, 0})))

	assert.Equal(t, StatusBusy, c.StatusAt(model.DateTime(2025, 2, 3, 14, 0)))
	assert.Equal(t, StatusAvailable, c.StatusAt(model.DateTime(2025, 2, 3, 15, 30)))
}

func TestUpcomingAndSummaries(t *testing.T) {
	t.Parallel()

	c := newCalendar(t, "UTC")
	_, err := c.CreateSeries(event("sleep", [5]int{2025, 6, 2, 10, 0}, [5]int{2025, 6, 2, 11, 0}), "MWF", 1)
	require.NoError(t, err)

	got := c.Upcoming(model.Date(2025, 6, 3), 1)
	require.Len(t, got, 1)
	assert.Equal(t, model.DateTime(2025, 6, 4, 10, 0), got[0].Start)

	assert.Len(t, c.Upcoming(model.Date(2025, 6, 1), 10), 3)
	assert.Equal(t, []string{
		"sleep 2025-06-02T10:00",
		"sleep 2025-06-04T10:00",
		"sleep 2025-06-06T10:00",
	}, c.Summaries())

	ev, err := c.FindBySubject("sleep")
	require.NoError(t, err)
	assert.Equal(t, model.DateTime(2025, 6, 2, 10, 0), ev.Start)
	_, err = c.FindBySubject("wake")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	c := newCalendar(t, "UTC")
	id, err := c.CreateSeries(event("sleep", [5]int{2025, 6, 2, 10, 0}, [5]int{2025, 6, 2, 11, 0}), "MW", 1)
	require.NoError(t, err)
	single := event("lunch", [5]int{2025, 6, 2, 12, 0}, [5]int{2025, 6, 2, 13, 0})
	require.NoError(t, c.CreateEvent(single))

	require.NoError(t, c.RemoveEvent(single))
	assert.ErrorIs(t, c.RemoveEvent(single), model.ErrNotFound)

	require.NoError(t, c.RemoveSeries(id))
	assert.Zero(t, c.Len())
	assert.ErrorIs(t, c.RemoveSeries(id), model.ErrNotFound)
}
