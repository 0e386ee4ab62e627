package service

import (
	"time"

	"followup_backend/internal/followups/transport"
)

const (
	// defaultSeriesOccurrences is used when a recurring create names no
	// occurrence count and no end date.
	defaultSeriesOccurrences = 12
	// maxSeriesOccurrences hard-caps any series, whatever the bounds say.
	maxSeriesOccurrences = 52
)

// RecurrenceSpec describes how to expand a series from its first
// occurrence. Interval and Unit only apply to CUSTOM patterns.
type RecurrenceSpec struct {
	Pattern  transport.RecurrencePattern
	Interval int
	Unit     string
	EndAt    *time.Time
	Count    int
}

// ExpandRecurrence returns every occurrence of the series including
// the first one, computed on the wall clock of start's location so a
// 10:00 follow-up stays at 10:00 across DST changes. Expansion stops
// at the occurrence count, at EndAt (inclusive), or at the hard cap,
// whichever comes first.
func ExpandRecurrence(start time.Time, spec RecurrenceSpec) []time.Time {
	if spec.Pattern == transport.RecurrenceNone || spec.Pattern == "" {
		return []time.Time{start}
	}

	count := spec.Count
	if count <= 0 {
		count = defaultSeriesOccurrences
	}
	if count > maxSeriesOccurrences {
		count = maxSeriesOccurrences
	}

	occurrences := make([]time.Time, 0, count)
	current := start
	for len(occurrences) < count {
		if spec.EndAt != nil && current.After(*spec.EndAt) {
			break
		}
		occurrences = append(occurrences, current)
		current = nextOccurrence(current, spec)
	}
	return occurrences
}

func nextOccurrence(current time.Time, spec RecurrenceSpec) time.Time {
	switch spec.Pattern {
	case transport.RecurrenceDaily:
		return current.AddDate(0, 0, 1)
	case transport.RecurrenceWeekly:
		return current.AddDate(0, 0, 7)
	case transport.RecurrenceMonthly:
		return addMonthsClamped(current, 1)
	case transport.RecurrenceCustom:
		interval := spec.Interval
		if interval < 1 {
			interval = 1
		}
		switch spec.Unit {
		case transport.IntervalUnitWeeks:
			return current.AddDate(0, 0, 7*interval)
		case transport.IntervalUnitMonths:
			return addMonthsClamped(current, interval)
		default:
			return current.AddDate(0, 0, interval)
		}
	default:
		return current.AddDate(0, 0, 1)
	}
}

// addMonthsClamped advances by whole months, clamping the day of month
// to the last valid day of the target month instead of letting the
// date normalize into the following month (Jan 31 + 1 month is Feb 28,
// not Mar 3).
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
