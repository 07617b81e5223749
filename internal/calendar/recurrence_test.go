package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	"multical/internal/model"
)

func TestParsePattern(t *testing.T) {
	t.Parallel()

	days, err := ParsePattern("MWFW")
	require.NoError(t, err)
	assert.Equal(t, []rrule.Weekday{rrule.MO, rrule.WE, rrule.FR}, days)

	days, err = ParsePattern("RU")
	require.NoError(t, err)
	assert.Equal(t, []rrule.Weekday{rrule.TH, rrule.SU}, days)

	_, err = ParsePattern("MXF")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = ParsePattern("")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestWeeksUntil(t *testing.T) {
	t.Parallel()

	seed := model.DateTime(2025, 6, 2, 10, 0)
	tests := []struct {
		until time.Time
		want  int
	}{
		{model.Date(2025, 6, 2), 0},
		{model.Date(2025, 6, 8), 0},
		{model.Date(2025, 6, 9), 1},
		{model.Date(2025, 6, 22), 2},
		{model.Date(2025, 6, 23), 3},
	}
	for _, tt := range tests {
		got, err := WeeksUntil(seed, tt.until)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.until.Format(time.DateOnly))
	}

	_, err := WeeksUntil(seed, model.Date(2025, 6, 1))
	assert.ErrorIs(t, err, model.ErrValidation)
}

func starts(events []model.Event) []time.Time {
	out := make([]time.Time, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Start)
	}
	return out
}

func TestExpand(t *testing.T) {
	t.Parallel()

	seed := event("sleep", [5]int{2025, 6, 2, 10, 0}, [5]int{2025, 6, 2, 11, 0})
	seed.Description = "zzz"

	tests := []struct {
		name    string
		seed    model.Event
		pattern string
		weeks   int
		want    []time.Time
	}{
		{
			name:    "MWF over two weeks",
			seed:    seed,
			pattern: "MWF",
			weeks:   2,
			want: []time.Time{
				model.DateTime(2025, 6, 2, 10, 0),
				model.DateTime(2025, 6, 4, 10, 0),
				model.DateTime(2025, 6, 6, 10, 0),
				model.DateTime(2025, 6, 9, 10, 0),
				model.DateTime(2025, 6, 11, 10, 0),
				model.DateTime(2025, 6, 13, 10, 0),
			},
		},
		{
			name:    "zero weeks is the seed alone",
			seed:    seed,
			pattern: "MWF",
			weeks:   0,
			want:    []time.Time{model.DateTime(2025, 6, 2, 10, 0)},
		},
		{
			name:    "days before a mid-week seed are produced",
			seed:    event("sleep", [5]int{2025, 6, 4, 10, 0}, [5]int{2025, 6, 4, 11, 0}),
			pattern: "MW",
			weeks:   2,
			want: []time.Time{
				model.DateTime(2025, 6, 4, 10, 0),
				model.DateTime(2025, 6, 2, 10, 0),
				model.DateTime(2025, 6, 9, 10, 0),
				model.DateTime(2025, 6, 11, 10, 0),
			},
		},
		{
			name:    "seed outside the pattern",
			seed:    event("sleep", [5]int{2025, 6, 4, 10, 0}, [5]int{2025, 6, 4, 11, 0}),
			pattern: "MU",
			weeks:   1,
			want: []time.Time{
				model.DateTime(2025, 6, 4, 10, 0),
				model.DateTime(2025, 6, 2, 10, 0),
				model.DateTime(2025, 6, 8, 10, 0),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Expand(tt.seed, tt.pattern, tt.weeks)
			require.NoError(t, err)
			assert.Equal(t, tt.want, starts(got))
			for _, ev := range got {
				assert.Equal(t, time.Hour, ev.Duration())
				assert.Equal(t, tt.seed.Description, ev.Description)
				assert.Zero(t, ev.SeriesID)
			}
		})
	}
}

func TestExpandRejects(t *testing.T) {
	t.Parallel()

	seed := event("sleep", [5]int{2025, 6, 2, 10, 0}, [5]int{2025, 6, 2, 11, 0})

	_, err := Expand(seed, "MQ", 2)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = Expand(seed, "M", -1)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = Expand(model.Event{Subject: "sleep"}, "M", 1)
	assert.ErrorIs(t, err, model.ErrValidation)
}
