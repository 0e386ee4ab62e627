package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FollowUp is the persistence model for a scheduled follow-up.
type FollowUp struct {
	ID                 uuid.UUID
	OrganizationID     uuid.UUID
	ClientID           uuid.UUID
	ServiceID          *uuid.UUID
	ScheduledAt        time.Time
	Timezone           string
	DurationMinutes    int
	Title              string
	Notes              string
	Outcome            string
	ActionItems        []string
	Priority           string
	Category           string
	Status             string
	RecurrencePattern  string
	RecurrenceInterval *int
	RecurrenceUnit     *string
	RecurrenceEndAt    *time.Time
	ParentFollowUpID   *uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// EndsAt is the exclusive end of the occupied window.
func (f *FollowUp) EndsAt() time.Time {
	return f.ScheduledAt.Add(time.Duration(f.DurationMinutes) * time.Minute)
}

// Notification is a scheduled outbound message tied to a follow-up.
type Notification struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	FollowUpID     uuid.UUID
	Type           string
	Channel        string
	Recipient      string
	ScheduledAt    time.Time
	Content        string
	Status         string
	ErrorMessage   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Client is the slice of the client record the scheduler needs.
type Client struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Timezone       string
}

func (c *Client) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// ListParams filters and paginates follow-up listings. All queries are
// scoped to an organization.
type ListParams struct {
	OrganizationID uuid.UUID
	ClientID       *uuid.UUID
	Status         *string
	Priority       *string
	Category       *string
	From           *time.Time
	To             *time.Time
	Page           int
	PageSize       int
}

// ListResult is one page of follow-ups plus the unpaginated total.
type ListResult struct {
	FollowUps  []FollowUp
	TotalCount int
}

// Store is the persistence boundary of the follow-up engine. The pgx
// implementation lives in this package; tests substitute an in-memory
// fake.
type Store interface {
	GetFollowUp(ctx context.Context, orgID, id uuid.UUID) (*FollowUp, error)
	CreateFollowUp(ctx context.Context, f *FollowUp) error
	UpdateFollowUp(ctx context.Context, f *FollowUp) error
	List(ctx context.Context, params ListParams) (*ListResult, error)

	// ListActiveInRange returns SCHEDULED and CONFIRMED follow-ups for a
	// client whose window overlaps [start, end). excludeID skips the
	// follow-up being rescheduled; pass uuid.Nil to include all.
	ListActiveInRange(ctx context.Context, orgID, clientID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]FollowUp, error)
	ListChildren(ctx context.Context, orgID, parentID uuid.UUID) ([]FollowUp, error)

	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, orgID, followUpID uuid.UUID) ([]Notification, error)

	// FailPendingNotifications marks every PENDING notification of a
	// follow-up as FAILED with the given reason and returns how many
	// rows changed.
	FailPendingNotifications(ctx context.Context, orgID, followUpID uuid.UUID, reason string) (int64, error)

	GetClient(ctx context.Context, orgID, clientID uuid.UUID) (*Client, error)

	// InTx runs fn against a transaction-scoped Store. Writes for the
	// same client are serialized with an advisory lock so concurrent
	// bookings cannot both pass conflict detection.
	InTx(ctx context.Context, clientID uuid.UUID, fn func(Store) error) error
}
