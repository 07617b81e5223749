package calendar

import (
	"time"

	"github.com/teambition/rrule-go"

	"multical/internal/model"
)

// weekdayLetters maps the pattern alphabet to rrule weekdays.
// R is Thursday and U is Sunday.
var weekdayLetters = map[rune]rrule.Weekday{
	'M': rrule.MO,
	'T': rrule.TU,
	'W': rrule.WE,
	'R': rrule.TH,
	'F': rrule.FR,
	'S': rrule.SA,
	'U': rrule.SU,
}

// ParsePattern turns a weekday pattern such as "MWF" into rrule weekdays.
// Repeated letters are folded. Any letter outside MTWRFSU is rejected.
func ParsePattern(pattern string) ([]rrule.Weekday, error) {
	if pattern == "" {
		return nil, model.Validationf("weekday pattern cannot be empty")
	}
	days := make([]rrule.Weekday, 0, len(pattern))
	seen := make(map[rune]bool, len(pattern))
	for _, r := range pattern {
		wd, ok := weekdayLetters[r]
		if !ok {
			return nil, model.Validationf("invalid day %q in pattern %q", r, pattern)
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		days = append(days, wd)
	}
	return days, nil
}

// WeeksUntil counts the whole weeks between the seed date and until.
func WeeksUntil(seedStart, until time.Time) (int, error) {
	days := int(model.DateOf(until).Sub(model.DateOf(seedStart)).Hours() / 24)
	if days < 0 {
		return 0, model.Validationf("until date %s is before the series start", model.DateOf(until).Format(time.DateOnly))
	}
	return days / 7, nil
}

// Expand returns the seed followed by every occurrence of pattern in the
// weeks Monday-anchored weeks starting with the seed's week, at the seed's
// time of day. Pattern days earlier in the seed's own week are produced
// too; only the occurrence landing exactly on the seed is skipped. Every
// occurrence keeps the seed's duration and properties; none carries a
// series id yet.
func Expand(seed model.Event, pattern string, weeks int) ([]model.Event, error) {
	days, err := ParsePattern(pattern)
	if err != nil {
		return nil, err
	}
	if weeks < 0 {
		return nil, model.Validationf("repeat count cannot be negative")
	}
	seed, err = seed.WithAllDayDefault()
	if err != nil {
		return nil, err
	}
	seed.SeriesID = 0

	out := []model.Event{seed}
	if weeks == 0 {
		return out, nil
	}

	start := model.Wall(seed.Start)
	weekStart := model.AtClock(mondayOf(start), start)
	until := mondayOf(start).AddDate(0, 0, 7*weeks).Add(-time.Second)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Wkst:      rrule.MO,
		Byweekday: days,
		Dtstart:   weekStart,
		Until:     until,
	})
	if err != nil {
		return nil, model.Validationf("build recurrence: %v", err)
	}

	dur := seed.Duration()
	for _, occ := range r.All() {
		occ = model.Wall(occ)
		if occ.Equal(start) {
			continue
		}
		inst := seed
		inst.Start = occ
		inst.End = occ.Add(dur)
		out = append(out, inst)
	}
	return out, nil
}

func mondayOf(t time.Time) time.Time {
	d := model.DateOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
