// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"followup_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Follow-Up Domain Events
// =============================================================================

// FollowUpScheduled is published when a follow-up (or a recurring series) is created.
type FollowUpScheduled struct {
	BaseEvent
	FollowUpID     uuid.UUID `json:"followUpId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	ClientID       uuid.UUID `json:"clientId"`
	Title          string    `json:"title"`
	ScheduledAt    time.Time `json:"scheduledAt"`
	Occurrences    int       `json:"occurrences"`
}

func (e FollowUpScheduled) EventName() string { return "followups.scheduled" }

// FollowUpCancelled is published when a follow-up is cancelled, either
// directly through the cancel endpoint or by a status patch.
type FollowUpCancelled struct {
	BaseEvent
	FollowUpID     uuid.UUID `json:"followUpId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	ClientID       uuid.UUID `json:"clientId"`
	ClientEmail    string    `json:"clientEmail,omitempty"`
	ClientName     string    `json:"clientName,omitempty"`
	Title          string    `json:"title"`
	ScheduledAt    time.Time `json:"scheduledAt"`
	Reason         string    `json:"reason"`
	CascadedCount  int       `json:"cascadedCount"`
}

func (e FollowUpCancelled) EventName() string { return "followups.cancelled" }

// FollowUpCompleted is published when a follow-up is marked completed.
type FollowUpCompleted struct {
	BaseEvent
	FollowUpID     uuid.UUID `json:"followUpId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	ClientID       uuid.UUID `json:"clientId"`
	ClientEmail    string    `json:"clientEmail,omitempty"`
	ClientName     string    `json:"clientName,omitempty"`
	Title          string    `json:"title"`
	Outcome        string    `json:"outcome"`
	ActionItems    []string  `json:"actionItems,omitempty"`
}

func (e FollowUpCompleted) EventName() string { return "followups.completed" }
