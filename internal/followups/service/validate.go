package service

import (
	"fmt"
	"time"

	"followup_backend/internal/followups/transport"

	"github.com/google/uuid"
)

const (
	maxDurationMinutes = 480
	maxReminderDays    = 365
)

// FieldError is one semantic validation failure. All failures on a
// request are collected before rejecting it.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// scheduledDateLayouts are accepted for date fields without a zone
// offset; they are interpreted in the request timezone.
var scheduledDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseScheduledDate parses an ISO 8601 instant. Values carrying an
// offset are converted into loc; naive values are interpreted in loc.
func ParseScheduledDate(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range scheduledDateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO 8601 date: %q", value)
}

// ValidateCreate runs the semantic checks a struct tag cannot express
// and returns every failure at once.
func ValidateCreate(req transport.CreateFollowUpRequest, loc *time.Location, now time.Time) (time.Time, []FieldError) {
	var errs []FieldError

	if req.ClientID == uuid.Nil {
		errs = append(errs, FieldError{Field: "clientId", Message: "client is required"})
	}

	var scheduledAt time.Time
	if req.ScheduledDate == "" {
		errs = append(errs, FieldError{Field: "scheduledDate", Message: "scheduled date is required"})
	} else {
		parsed, err := ParseScheduledDate(req.ScheduledDate, loc)
		if err != nil {
			errs = append(errs, FieldError{Field: "scheduledDate", Message: err.Error()})
		} else if parsed.Before(now) {
			errs = append(errs, FieldError{Field: "scheduledDate", Message: "scheduled date must not be in the past"})
		} else {
			scheduledAt = parsed
		}
	}

	if req.Duration != nil && (*req.Duration < 1 || *req.Duration > maxDurationMinutes) {
		errs = append(errs, FieldError{Field: "duration", Message: fmt.Sprintf("duration must be between 1 and %d minutes", maxDurationMinutes)})
	}

	if req.Priority != nil && !req.Priority.Valid() {
		errs = append(errs, FieldError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", *req.Priority)})
	}

	errs = append(errs, validateRecurrence(req.RecurrencePattern, req.RecurrenceData)...)

	for _, days := range req.ReminderDays {
		if days < 1 || days > maxReminderDays {
			errs = append(errs, FieldError{Field: "reminderDays", Message: fmt.Sprintf("reminder offset %d is out of range", days)})
		}
	}

	return scheduledAt, errs
}

func validateRecurrence(pattern *transport.RecurrencePattern, data *transport.RecurrenceData) []FieldError {
	if pattern == nil {
		return nil
	}

	var errs []FieldError
	if !pattern.Valid() {
		errs = append(errs, FieldError{Field: "recurrencePattern", Message: fmt.Sprintf("unknown recurrence pattern %q", *pattern)})
		return errs
	}

	if *pattern == transport.RecurrenceCustom {
		if data == nil {
			errs = append(errs, FieldError{Field: "recurrenceData", Message: "recurrence data is required for custom recurrence"})
			return errs
		}
		if data.Interval < 1 {
			errs = append(errs, FieldError{Field: "recurrenceData.interval", Message: "interval must be at least 1"})
		}
		if !transport.ValidIntervalUnit(data.Unit) {
			errs = append(errs, FieldError{Field: "recurrenceData.unit", Message: fmt.Sprintf("unknown interval unit %q", data.Unit)})
		}
	}

	if data != nil && data.Occurrences != nil && (*data.Occurrences < 1 || *data.Occurrences > maxSeriesOccurrences) {
		errs = append(errs, FieldError{Field: "recurrenceData.occurrences", Message: fmt.Sprintf("occurrences must be between 1 and %d", maxSeriesOccurrences)})
	}

	return errs
}

// ValidateUpdate collects the semantic failures on a patch. The
// scheduled date, when present, is parsed against loc.
func ValidateUpdate(req transport.UpdateFollowUpRequest, loc *time.Location, now time.Time) (time.Time, []FieldError) {
	var errs []FieldError

	if req.IsEmpty() {
		errs = append(errs, FieldError{Field: "", Message: "patch contains no changes"})
	}

	var scheduledAt time.Time
	if req.ScheduledDate != nil {
		parsed, err := ParseScheduledDate(*req.ScheduledDate, loc)
		if err != nil {
			errs = append(errs, FieldError{Field: "scheduledDate", Message: err.Error()})
		} else if parsed.Before(now) {
			errs = append(errs, FieldError{Field: "scheduledDate", Message: "scheduled date must not be in the past"})
		} else {
			scheduledAt = parsed
		}
	}

	if req.Duration != nil && (*req.Duration < 1 || *req.Duration > maxDurationMinutes) {
		errs = append(errs, FieldError{Field: "duration", Message: fmt.Sprintf("duration must be between 1 and %d minutes", maxDurationMinutes)})
	}

	if req.Priority != nil && !req.Priority.Valid() {
		errs = append(errs, FieldError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", *req.Priority)})
	}

	if req.Status != nil && !req.Status.Valid() {
		errs = append(errs, FieldError{Field: "status", Message: fmt.Sprintf("unknown status %q", *req.Status)})
	}

	return scheduledAt, errs
}
