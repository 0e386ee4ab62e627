package transport

import (
	"time"

	"github.com/google/uuid"
)

// FollowUpStatus tracks a follow-up through its lifecycle.
type FollowUpStatus string

const (
	StatusScheduled FollowUpStatus = "SCHEDULED"
	StatusConfirmed FollowUpStatus = "CONFIRMED"
	StatusCompleted FollowUpStatus = "COMPLETED"
	StatusCancelled FollowUpStatus = "CANCELLED"
	StatusMissed    FollowUpStatus = "MISSED"
)

func (s FollowUpStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusMissed:
		return true
	}
	return false
}

// Priority orders follow-ups for triage.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// RecurrencePattern selects how a follow-up series repeats.
type RecurrencePattern string

const (
	RecurrenceNone    RecurrencePattern = "NONE"
	RecurrenceDaily   RecurrencePattern = "DAILY"
	RecurrenceWeekly  RecurrencePattern = "WEEKLY"
	RecurrenceMonthly RecurrencePattern = "MONTHLY"
	RecurrenceCustom  RecurrencePattern = "CUSTOM"
)

func (r RecurrencePattern) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceCustom:
		return true
	}
	return false
}

// Interval units accepted for CUSTOM recurrence.
const (
	IntervalUnitDays   = "days"
	IntervalUnitWeeks  = "weeks"
	IntervalUnitMonths = "months"
)

func ValidIntervalUnit(unit string) bool {
	return unit == IntervalUnitDays || unit == IntervalUnitWeeks || unit == IntervalUnitMonths
}

// NotificationType identifies what a scheduled notification is for.
type NotificationType string

const (
	NotificationReminder7Days     NotificationType = "REMINDER_7_DAYS"
	NotificationReminder24Hours   NotificationType = "REMINDER_24_HOURS"
	NotificationOutcomeSummary    NotificationType = "OUTCOME_SUMMARY"
	NotificationRescheduleRequest NotificationType = "RESCHEDULE_REQUEST"
)

// NotificationChannel is the delivery medium.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelSMS   NotificationChannel = "SMS"
)

// NotificationStatus tracks delivery state.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "PENDING"
	NotificationSent      NotificationStatus = "SENT"
	NotificationDelivered NotificationStatus = "DELIVERED"
	NotificationFailed    NotificationStatus = "FAILED"
)

// Follow-up categories. Free-form values are allowed but these drive the
// default priority table.
const (
	CategoryGeneral     = "GENERAL"
	CategoryMaintenance = "MAINTENANCE"
	CategoryRenewal     = "RENEWAL"
	CategoryPayment     = "PAYMENT"
	CategoryComplaint   = "COMPLAINT"
)

// RecurrenceData carries the optional series bounds supplied on create.
type RecurrenceData struct {
	Interval    int        `json:"interval,omitempty"`
	Unit        string     `json:"unit,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Occurrences *int       `json:"occurrences,omitempty" validate:"omitempty,min=1,max=52"`
}

type CreateFollowUpRequest struct {
	ClientID          uuid.UUID          `json:"clientId" validate:"required"`
	ServiceID         *uuid.UUID         `json:"serviceId,omitempty"`
	ScheduledDate     string             `json:"scheduledDate" validate:"required"`
	Timezone          string             `json:"timezone,omitempty"`
	Duration          *int               `json:"duration,omitempty"`
	Title             string             `json:"title,omitempty" validate:"omitempty,max=200"`
	Notes             string             `json:"notes,omitempty" validate:"omitempty,max=5000"`
	Priority          *Priority          `json:"priority,omitempty"`
	Category          string             `json:"category,omitempty" validate:"omitempty,max=50"`
	RecurrencePattern *RecurrencePattern `json:"recurrencePattern,omitempty"`
	RecurrenceData    *RecurrenceData    `json:"recurrenceData,omitempty"`
	ReminderDays      []int              `json:"reminderDays,omitempty"`
}

type UpdateFollowUpRequest struct {
	ScheduledDate *string         `json:"scheduledDate,omitempty"`
	Timezone      *string         `json:"timezone,omitempty"`
	Duration      *int            `json:"duration,omitempty"`
	Title         *string         `json:"title,omitempty" validate:"omitempty,max=200"`
	Notes         OptionalString  `json:"notes,omitempty"`
	Priority      *Priority       `json:"priority,omitempty"`
	Category      *string         `json:"category,omitempty" validate:"omitempty,max=50"`
	Status        *FollowUpStatus `json:"status,omitempty"`
	ActionItems   *[]string       `json:"actionItems,omitempty"`
}

// IsEmpty reports whether the patch carries no changes at all.
func (r UpdateFollowUpRequest) IsEmpty() bool {
	return r.ScheduledDate == nil && r.Timezone == nil && r.Duration == nil &&
		r.Title == nil && !r.Notes.Set && r.Priority == nil && r.Category == nil &&
		r.Status == nil && r.ActionItems == nil
}

type CancelFollowUpRequest struct {
	Reason  string `json:"reason,omitempty" validate:"omitempty,max=1000"`
	Cascade bool   `json:"cascade,omitempty"`
}

type ScheduleNextRequest struct {
	ScheduledDate string `json:"scheduledDate" validate:"required"`
	Timezone      string `json:"timezone,omitempty"`
	Duration      *int   `json:"duration,omitempty"`
}

type CompleteFollowUpRequest struct {
	Outcome      string               `json:"outcome" validate:"required,max=5000"`
	ActionItems  []string             `json:"actionItems,omitempty"`
	ScheduleNext *ScheduleNextRequest `json:"scheduleNext,omitempty"`
}

type ListFollowUpsRequest struct {
	ClientID *uuid.UUID      `form:"clientId"`
	Status   *FollowUpStatus `form:"status"`
	Priority *Priority       `form:"priority"`
	Category *string         `form:"category"`
	From     *time.Time      `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To       *time.Time      `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page     int             `form:"page"`
	PageSize int             `form:"pageSize"`
}

type FollowUpResponse struct {
	ID                uuid.UUID         `json:"id"`
	ClientID          uuid.UUID         `json:"clientId"`
	ServiceID         *uuid.UUID        `json:"serviceId,omitempty"`
	ScheduledAt       time.Time         `json:"scheduledAt"`
	EndsAt            time.Time         `json:"endsAt"`
	Timezone          string            `json:"timezone"`
	Duration          int               `json:"duration"`
	Title             string            `json:"title,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	Outcome           string            `json:"outcome,omitempty"`
	ActionItems       []string          `json:"actionItems,omitempty"`
	Priority          Priority          `json:"priority"`
	Category          string            `json:"category"`
	Status            FollowUpStatus    `json:"status"`
	RecurrencePattern RecurrencePattern `json:"recurrencePattern"`
	RecurrenceData    *RecurrenceData   `json:"recurrenceData,omitempty"`
	ParentFollowUpID  *uuid.UUID        `json:"parentFollowUpId,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

type NotificationResponse struct {
	ID          uuid.UUID           `json:"id"`
	FollowUpID  uuid.UUID           `json:"followUpId"`
	Type        NotificationType    `json:"type"`
	Channel     NotificationChannel `json:"channel"`
	Recipient   string              `json:"recipient"`
	ScheduledAt time.Time           `json:"scheduledAt"`
	Content     string              `json:"content,omitempty"`
	Status      NotificationStatus  `json:"status"`
	Error       *string             `json:"error,omitempty"`
}

type CreateFollowUpResponse struct {
	FollowUp         FollowUpResponse       `json:"followUp"`
	Notifications    []NotificationResponse `json:"notifications"`
	CustomRecurrence *RecurrenceData        `json:"customRecurrence,omitempty"`
	SeriesCount      int                    `json:"seriesCount,omitempty"`
}

type FollowUpDetailResponse struct {
	FollowUp      FollowUpResponse       `json:"followUp"`
	Notifications []NotificationResponse `json:"notifications"`
}

type ListFollowUpsResponse struct {
	FollowUps  []FollowUpResponse `json:"followUps"`
	TotalCount int                `json:"totalCount"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
}
