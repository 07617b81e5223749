package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWall(t *testing.T) {
	t.Parallel()

	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	got := Wall(time.Date(2025, 6, 2, 10, 30, 0, 0, seoul))
	assert.Equal(t, DateTime(2025, 6, 2, 10, 30), got)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, Wall(time.Time{}).IsZero())
}

func TestEventSpan(t *testing.T) {
	t.Parallel()

	ev := Event{
		Subject: "retreat",
		Start:   DateTime(2025, 6, 30, 18, 0),
		End:     DateTime(2025, 7, 2, 9, 0),
	}
	assert.Equal(t, []time.Time{
		Date(2025, 6, 30), Date(2025, 7, 1), Date(2025, 7, 2),
	}, ev.Span())

	assert.True(t, ev.Covers(DateTime(2025, 7, 1, 23, 59)))
	assert.False(t, ev.Covers(Date(2025, 7, 3)))
	assert.False(t, ev.Covers(Date(2025, 6, 29)))
}

func TestWithAllDayDefault(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      Event
		want    Event
		wantErr bool
	}{
		{
			name: "start only",
			in:   Event{Subject: "a", Start: DateTime(2025, 1, 5, 13, 0)},
			want: Event{Subject: "a", Start: DateTime(2025, 1, 5, 8, 0), End: DateTime(2025, 1, 5, 17, 0)},
		},
		{
			name: "end only",
			in:   Event{Subject: "a", End: DateTime(2025, 1, 6, 1, 0)},
			want: Event{Subject: "a", Start: DateTime(2025, 1, 6, 8, 0), End: DateTime(2025, 1, 6, 17, 0)},
		},
		{
			name: "both set",
			in:   Event{Subject: "a", Start: DateTime(2025, 1, 5, 9, 0), End: DateTime(2025, 1, 5, 10, 0)},
			want: Event{Subject: "a", Start: DateTime(2025, 1, 5, 9, 0), End: DateTime(2025, 1, 5, 10, 0)},
		},
		{
			name:    "neither set",
			in:      Event{Subject: "a"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.in.WithAllDayDefault()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLocationAndStatus(t *testing.T) {
	t.Parallel()

	loc, err := ParseLocation("online")
	require.NoError(t, err)
	assert.Equal(t, LocationOnline, loc)

	loc, err = ParseLocation("")
	require.NoError(t, err)
	assert.Equal(t, LocationUnset, loc)

	_, err = ParseLocation("moon")
	assert.ErrorIs(t, err, ErrValidation)

	st, err := ParseStatus("Private")
	require.NoError(t, err)
	assert.Equal(t, StatusPrivate, st)

	_, err = ParseStatus("secret")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseDateTime(t *testing.T) {
	t.Parallel()

	got, err := ParseDateTime(" 2025-06-02T10:00 ")
	require.NoError(t, err)
	assert.Equal(t, DateTime(2025, 6, 2, 10, 0), got)

	_, err = ParseDateTime("2025/06/02 10:00")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAtClock(t *testing.T) {
	t.Parallel()

	got := AtClock(DateTime(2025, 3, 3, 22, 15), DateTime(1999, 1, 1, 7, 45))
	assert.Equal(t, DateTime(2025, 3, 3, 7, 45), got)
	assert.True(t, SameClock(got, DateTime(2000, 2, 2, 7, 45)))
}

func TestErrorClasses(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.Is(ErrNoCalendar, ErrNotFound))
	assert.ErrorIs(t, Conflictf("x %d", 1), ErrConflict)
	assert.EqualError(t, NotFoundf("event %q", "a"), `not found: event "a"`)
}
