package ics

import (
	"github.com/teambition/rrule-go"

	appLog "multical/internal/log"
)

// MaxOccurrences caps the instances produced from one RRULE, so rules
// without COUNT or UNTIL still terminate.
const MaxOccurrences = 500

// expandRule turns a recurring VEVENT into its instances, honoring EXDATE
// and RECURRENCE-ID overrides. DTSTART is always the first instance. A rule
// that cannot be parsed yields the base event alone.
func expandRule(ev parsedEvent, overrides []parsedEvent) []parsedEvent {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("ics rrule ignored", "error", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return []parsedEvent{ev}
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex)
	}

	starts := make([]parsedEvent, 0)
	excluded := func(t parsedEvent) bool {
		for _, ex := range ev.ExDates {
			if ex.Equal(t.Start) {
				return true
			}
		}
		return false
	}
	if !excluded(ev) {
		starts = append(starts, withOverride(ev, overrides))
	}

	dur := ev.End.Sub(ev.Start)
	next := set.Iterator()
	for len(starts) < MaxOccurrences {
		t, ok := next()
		if !ok {
			break
		}
		if t.Equal(ev.Start) {
			continue
		}
		inst := ev
		inst.Start = t
		inst.End = t.Add(dur)
		starts = append(starts, withOverride(inst, overrides))
	}
	if len(starts) == MaxOccurrences {
		if _, more := next(); more {
			appLog.Warn("ics rrule truncated", "uid", ev.UID, "cap", MaxOccurrences)
		}
	}
	return starts
}

// withOverride swaps in the override whose RECURRENCE-ID matches inst.
func withOverride(inst parsedEvent, overrides []parsedEvent) parsedEvent {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(inst.Start) {
			ov.Recurrence = nil
			ov.RawRRule = ""
			return ov
		}
	}
	return inst
}
