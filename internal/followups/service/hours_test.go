package service

import (
	"testing"
	"time"
)

// schedCfg implements config.SchedulingConfig for tests.
type schedCfg struct {
	open         string
	close        string
	days         []time.Weekday
	timezone     string
	duration     int
	reminderDays []int
}

func (c schedCfg) GetBusinessOpenTime() string     { return c.open }
func (c schedCfg) GetBusinessCloseTime() string    { return c.close }
func (c schedCfg) GetBusinessDays() []time.Weekday { return c.days }
func (c schedCfg) GetDefaultTimezone() string      { return c.timezone }
func (c schedCfg) GetDefaultDurationMinutes() int  { return c.duration }
func (c schedCfg) GetDefaultReminderDays() []int   { return c.reminderDays }

func defaultSchedCfg() schedCfg {
	return schedCfg{
		open:         "09:00",
		close:        "17:00",
		days:         []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		timezone:     "America/Toronto",
		duration:     60,
		reminderDays: []int{7, 1},
	}
}

func mustHours(t *testing.T) BusinessHours {
	t.Helper()
	hours, err := NewBusinessHours(defaultSchedCfg())
	if err != nil {
		t.Fatalf("NewBusinessHours: %v", err)
	}
	return hours
}

func toronto(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Toronto")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return loc
}

func TestNewBusinessHoursRejectsBadConfig(t *testing.T) {
	cfg := defaultSchedCfg()
	cfg.open = "9am"
	if _, err := NewBusinessHours(cfg); err == nil {
		t.Fatal("expected error for malformed open time")
	}

	cfg = defaultSchedCfg()
	cfg.close = "08:00"
	if _, err := NewBusinessHours(cfg); err == nil {
		t.Fatal("expected error for close before open")
	}

	cfg = defaultSchedCfg()
	cfg.days = nil
	if _, err := NewBusinessHours(cfg); err == nil {
		t.Fatal("expected error for empty business days")
	}
}

func TestBusinessHoursContains(t *testing.T) {
	hours := mustHours(t)
	loc := toronto(t)

	// 2025-06-02 is a Monday.
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"opening bell", time.Date(2025, 6, 2, 9, 0, 0, 0, loc), true},
		{"one minute early", time.Date(2025, 6, 2, 8, 59, 0, 0, loc), false},
		{"last bookable minute", time.Date(2025, 6, 2, 16, 59, 0, 0, loc), true},
		{"at close", time.Date(2025, 6, 2, 17, 0, 0, 0, loc), false},
		{"midday", time.Date(2025, 6, 2, 13, 30, 0, 0, loc), true},
		{"saturday", time.Date(2025, 6, 7, 10, 0, 0, 0, loc), false},
		{"sunday", time.Date(2025, 6, 8, 10, 0, 0, 0, loc), false},
	}

	for _, tc := range cases {
		if got := hours.Contains(tc.at); got != tc.want {
			t.Errorf("%s: Contains(%v) = %v, want %v", tc.name, tc.at, got, tc.want)
		}
	}
}

func TestBusinessHoursNextSlot(t *testing.T) {
	hours := mustHours(t)
	loc := toronto(t)

	// Friday evening rolls to Monday morning.
	from := time.Date(2025, 6, 6, 18, 0, 0, 0, loc)
	slot, ok := hours.NextSlot(from, time.Hour)
	if !ok {
		t.Fatal("expected a slot within the horizon")
	}
	want := time.Date(2025, 6, 9, 9, 0, 0, 0, loc)
	if !slot.Equal(want) {
		t.Fatalf("NextSlot = %v, want %v", slot, want)
	}

	// Mid-day request rounds up to the next quarter hour.
	from = time.Date(2025, 6, 2, 10, 7, 0, 0, loc)
	slot, ok = hours.NextSlot(from, time.Hour)
	if !ok {
		t.Fatal("expected a slot")
	}
	want = time.Date(2025, 6, 2, 10, 15, 0, 0, loc)
	if !slot.Equal(want) {
		t.Fatalf("NextSlot = %v, want %v", slot, want)
	}

	// Too late in the day to fit the duration: next working day.
	from = time.Date(2025, 6, 2, 16, 30, 0, 0, loc)
	slot, ok = hours.NextSlot(from, time.Hour)
	if !ok {
		t.Fatal("expected a slot")
	}
	want = time.Date(2025, 6, 3, 9, 0, 0, 0, loc)
	if !slot.Equal(want) {
		t.Fatalf("NextSlot = %v, want %v", slot, want)
	}
}

func TestBusinessHoursFitsWindow(t *testing.T) {
	hours := mustHours(t)
	loc := toronto(t)

	start := time.Date(2025, 6, 2, 16, 0, 0, 0, loc)
	if !hours.FitsWindow(start, time.Hour) {
		t.Error("16:00 + 1h should fit a 17:00 close")
	}
	if hours.FitsWindow(start.Add(15*time.Minute), time.Hour) {
		t.Error("16:15 + 1h should not fit a 17:00 close")
	}
}
