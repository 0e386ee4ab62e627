package service

import (
	"time"

	"followup_backend/internal/followups/transport"
)

// Reminder is one computed send instant for a follow-up.
type Reminder struct {
	At   time.Time
	Type transport.NotificationType
}

// ReminderSchedule computes one reminder per offset, each offset days
// before the follow-up in its own timezone so the send keeps the same
// wall-clock time as the event. Every computed instant is kept, even
// ones already in the past: the task queue fires those immediately.
// Duplicate offsets collapse to one reminder.
func ReminderSchedule(eventStart time.Time, offsetsDays []int) []Reminder {
	seen := make(map[int]bool, len(offsetsDays))
	reminders := make([]Reminder, 0, len(offsetsDays))
	for _, offset := range offsetsDays {
		if offset <= 0 || seen[offset] {
			continue
		}
		seen[offset] = true
		reminders = append(reminders, Reminder{
			At:   eventStart.AddDate(0, 0, -offset),
			Type: reminderType(offset),
		})
	}
	return reminders
}

// reminderType labels the seven-day offset distinctly; every other
// offset carries the short-notice label.
func reminderType(offsetDays int) transport.NotificationType {
	if offsetDays == 7 {
		return transport.NotificationReminder7Days
	}
	return transport.NotificationReminder24Hours
}
