package service

import (
	"fmt"
	"time"

	"followup_backend/platform/config"
)

const (
	// slotStepMinutes is the granularity used when probing for the next
	// bookable start time.
	slotStepMinutes = 15
	// searchHorizonDays bounds how far ahead slot probing looks.
	searchHorizonDays = 30
)

// BusinessHours holds the bookable windows per weekday, expressed as
// minutes since midnight in the follow-up's own timezone.
type BusinessHours struct {
	openMinute  int
	closeMinute int
	days        map[time.Weekday]bool
}

// NewBusinessHours parses the configured open/close times ("HH:MM") and
// working days into a validator.
func NewBusinessHours(cfg config.SchedulingConfig) (BusinessHours, error) {
	open, err := parseClockMinutes(cfg.GetBusinessOpenTime())
	if err != nil {
		return BusinessHours{}, fmt.Errorf("invalid business open time: %w", err)
	}
	close, err := parseClockMinutes(cfg.GetBusinessCloseTime())
	if err != nil {
		return BusinessHours{}, fmt.Errorf("invalid business close time: %w", err)
	}
	if close <= open {
		return BusinessHours{}, fmt.Errorf("business close time %q is not after open time %q", cfg.GetBusinessCloseTime(), cfg.GetBusinessOpenTime())
	}

	days := make(map[time.Weekday]bool, len(cfg.GetBusinessDays()))
	for _, d := range cfg.GetBusinessDays() {
		days[d] = true
	}
	if len(days) == 0 {
		return BusinessHours{}, fmt.Errorf("no business days configured")
	}

	return BusinessHours{openMinute: open, closeMinute: close, days: days}, nil
}

func parseClockMinutes(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Contains reports whether the start instant falls on a working day
// within the open window. Only the start is checked; an end running
// past closing is accepted.
func (h BusinessHours) Contains(start time.Time) bool {
	if !h.days[start.Weekday()] {
		return false
	}
	minute := start.Hour()*60 + start.Minute()
	return minute >= h.openMinute && minute < h.closeMinute
}

// NextSlot returns the earliest start at or after from, on a 15-minute
// boundary, where the whole duration fits inside a business window.
// The search is bounded; ok is false when no slot exists within the
// horizon.
func (h BusinessHours) NextSlot(from time.Time, duration time.Duration) (time.Time, bool) {
	durationMinutes := int(duration / time.Minute)
	candidate := roundUpToStep(from)

	for day := 0; day <= searchHorizonDays; day++ {
		if h.days[candidate.Weekday()] {
			minute := candidate.Hour()*60 + candidate.Minute()
			if minute < h.openMinute {
				minute = h.openMinute
			}
			for ; minute+durationMinutes <= h.closeMinute; minute += slotStepMinutes {
				slot := time.Date(candidate.Year(), candidate.Month(), candidate.Day(), minute/60, minute%60, 0, 0, candidate.Location())
				if !slot.Before(from) {
					return slot, true
				}
			}
		}
		next := candidate.AddDate(0, 0, 1)
		candidate = time.Date(next.Year(), next.Month(), next.Day(), h.openMinute/60, h.openMinute%60, 0, 0, next.Location())
	}

	return time.Time{}, false
}

// FitsWindow reports whether a start on a working day leaves room for
// the full duration before closing.
func (h BusinessHours) FitsWindow(start time.Time, duration time.Duration) bool {
	if !h.days[start.Weekday()] {
		return false
	}
	minute := start.Hour()*60 + start.Minute()
	return minute >= h.openMinute && minute+int(duration/time.Minute) <= h.closeMinute
}

// DayWindow returns the open and close instants of the business window
// on the day containing t, in t's location. ok is false on non-working
// days.
func (h BusinessHours) DayWindow(t time.Time) (open, close time.Time, ok bool) {
	if !h.days[t.Weekday()] {
		return time.Time{}, time.Time{}, false
	}
	open = time.Date(t.Year(), t.Month(), t.Day(), h.openMinute/60, h.openMinute%60, 0, 0, t.Location())
	close = time.Date(t.Year(), t.Month(), t.Day(), h.closeMinute/60, h.closeMinute%60, 0, 0, t.Location())
	return open, close, true
}

func roundUpToStep(t time.Time) time.Time {
	t = t.Truncate(time.Minute)
	minute := t.Hour()*60 + t.Minute()
	rem := minute % slotStepMinutes
	if rem != 0 {
		t = t.Add(time.Duration(slotStepMinutes-rem) * time.Minute)
	}
	return t
}
