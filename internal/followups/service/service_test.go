package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"followup_backend/internal/events"
	"followup_backend/internal/followups/domain"
	"followup_backend/internal/followups/repository"
	"followup_backend/internal/followups/transport"
	"followup_backend/platform/apperr"
	"followup_backend/platform/logger"

	"github.com/google/uuid"
)

// memStore is an in-memory Store for exercising the orchestrator
// without a database.
type memStore struct {
	followUps     map[uuid.UUID]*repository.FollowUp
	notifications map[uuid.UUID]*repository.Notification
	clients       map[uuid.UUID]*repository.Client
}

func newMemStore() *memStore {
	return &memStore{
		followUps:     make(map[uuid.UUID]*repository.FollowUp),
		notifications: make(map[uuid.UUID]*repository.Notification),
		clients:       make(map[uuid.UUID]*repository.Client),
	}
}

var _ repository.Store = (*memStore)(nil)

func (m *memStore) GetFollowUp(_ context.Context, orgID, id uuid.UUID) (*repository.FollowUp, error) {
	f, ok := m.followUps[id]
	if !ok || f.OrganizationID != orgID {
		return nil, apperr.NotFound("follow-up not found")
	}
	clone := *f
	return &clone, nil
}

func (m *memStore) CreateFollowUp(_ context.Context, f *repository.FollowUp) error {
	clone := *f
	m.followUps[f.ID] = &clone
	return nil
}

func (m *memStore) UpdateFollowUp(_ context.Context, f *repository.FollowUp) error {
	if _, ok := m.followUps[f.ID]; !ok {
		return apperr.NotFound("follow-up not found")
	}
	clone := *f
	m.followUps[f.ID] = &clone
	return nil
}

func (m *memStore) List(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	var items []repository.FollowUp
	for _, f := range m.followUps {
		if f.OrganizationID != params.OrganizationID {
			continue
		}
		if params.ClientID != nil && f.ClientID != *params.ClientID {
			continue
		}
		if params.Status != nil && f.Status != *params.Status {
			continue
		}
		if params.Priority != nil && f.Priority != *params.Priority {
			continue
		}
		if params.Category != nil && f.Category != *params.Category {
			continue
		}
		if params.From != nil && f.ScheduledAt.Before(*params.From) {
			continue
		}
		if params.To != nil && !f.ScheduledAt.Before(*params.To) {
			continue
		}
		items = append(items, *f)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ScheduledAt.Before(items[j].ScheduledAt) })

	total := len(items)
	offset := (params.Page - 1) * params.PageSize
	if offset > total {
		offset = total
	}
	end := offset + params.PageSize
	if end > total {
		end = total
	}
	return &repository.ListResult{FollowUps: items[offset:end], TotalCount: total}, nil
}

func (m *memStore) ListActiveInRange(_ context.Context, orgID, clientID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]repository.FollowUp, error) {
	var items []repository.FollowUp
	for _, f := range m.followUps {
		if f.OrganizationID != orgID || f.ClientID != clientID || f.ID == excludeID {
			continue
		}
		if !domain.IsActive(f.Status) {
			continue
		}
		if f.ScheduledAt.Before(end) && f.EndsAt().After(start) {
			items = append(items, *f)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ScheduledAt.Before(items[j].ScheduledAt) })
	return items, nil
}

func (m *memStore) ListChildren(_ context.Context, orgID, parentID uuid.UUID) ([]repository.FollowUp, error) {
	var items []repository.FollowUp
	for _, f := range m.followUps {
		if f.OrganizationID != orgID || f.ParentFollowUpID == nil || *f.ParentFollowUpID != parentID {
			continue
		}
		items = append(items, *f)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ScheduledAt.Before(items[j].ScheduledAt) })
	return items, nil
}

func (m *memStore) CreateNotification(_ context.Context, n *repository.Notification) error {
	clone := *n
	m.notifications[n.ID] = &clone
	return nil
}

func (m *memStore) ListNotifications(_ context.Context, orgID, followUpID uuid.UUID) ([]repository.Notification, error) {
	var items []repository.Notification
	for _, n := range m.notifications {
		if n.OrganizationID != orgID || n.FollowUpID != followUpID {
			continue
		}
		items = append(items, *n)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ScheduledAt.Before(items[j].ScheduledAt) })
	return items, nil
}

func (m *memStore) FailPendingNotifications(_ context.Context, orgID, followUpID uuid.UUID, reason string) (int64, error) {
	var affected int64
	for _, n := range m.notifications {
		if n.OrganizationID != orgID || n.FollowUpID != followUpID {
			continue
		}
		if n.Status != string(transport.NotificationPending) {
			continue
		}
		n.Status = string(transport.NotificationFailed)
		msg := reason
		n.ErrorMessage = &msg
		affected++
	}
	return affected, nil
}

func (m *memStore) GetClient(_ context.Context, orgID, clientID uuid.UUID) (*repository.Client, error) {
	c, ok := m.clients[clientID]
	if !ok || c.OrganizationID != orgID {
		return nil, apperr.NotFound("client not found")
	}
	clone := *c
	return &clone, nil
}

func (m *memStore) InTx(_ context.Context, _ uuid.UUID, fn func(repository.Store) error) error {
	return fn(m)
}

// notificationsFor returns all stored notifications for a follow-up,
// regardless of status.
func (m *memStore) notificationsFor(followUpID uuid.UUID) []repository.Notification {
	var items []repository.Notification
	for _, n := range m.notifications {
		if n.FollowUpID == followUpID {
			items = append(items, *n)
		}
	}
	return items
}

type fixture struct {
	svc      *Service
	store    *memStore
	orgID    uuid.UUID
	clientID uuid.UUID
	loc      *time.Location
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	loc := toronto(t)
	store := newMemStore()
	log := logger.New("development")

	svc, err := New(store, defaultSchedCfg(), events.NewInMemoryBus(log), nil, log)
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, loc)
	svc.now = func() time.Time { return now }

	orgID := uuid.New()
	clientID := uuid.New()
	store.clients[clientID] = &repository.Client{
		ID:             clientID,
		OrganizationID: orgID,
		FirstName:      "Dana",
		LastName:       "Fraser",
		Email:          "dana@example.com",
		Phone:          "+14165550123",
		Timezone:       "America/Toronto",
	}

	return &fixture{svc: svc, store: store, orgID: orgID, clientID: clientID, loc: loc, now: now}
}

func conflictDetails(t *testing.T, err error) transport.ConflictDetails {
	t.Helper()
	domainErr, ok := err.(*apperr.Error)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	if domainErr.Kind != apperr.KindConflict {
		t.Fatalf("expected conflict kind, got %v", domainErr.Kind)
	}
	details, ok := domainErr.Details.(transport.ConflictDetails)
	if !ok {
		t.Fatalf("expected ConflictDetails, got %T", domainErr.Details)
	}
	return details
}

func TestCreateFollowUp(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// 2025-06-10 is a Tuesday.
	resp, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
		Title:         "annual review",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f := resp.FollowUp
	if f.Status != transport.StatusScheduled {
		t.Errorf("status = %s, want %s", f.Status, transport.StatusScheduled)
	}
	if f.Duration != 60 {
		t.Errorf("duration = %d, want default 60", f.Duration)
	}
	if f.Category != transport.CategoryGeneral {
		t.Errorf("category = %s, want %s", f.Category, transport.CategoryGeneral)
	}
	if f.Priority != transport.PriorityLow {
		t.Errorf("priority = %s, want %s (GENERAL default)", f.Priority, transport.PriorityLow)
	}
	want := time.Date(2025, 6, 10, 10, 0, 0, 0, fx.loc)
	if !f.ScheduledAt.Equal(want) {
		t.Errorf("scheduledAt = %v, want %v", f.ScheduledAt, want)
	}

	// Two reminder offsets, email and SMS both reachable.
	if len(resp.Notifications) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(resp.Notifications))
	}
	types := make(map[transport.NotificationType]int)
	channels := make(map[transport.NotificationChannel]int)
	for _, n := range resp.Notifications {
		types[n.Type]++
		channels[n.Channel]++
		if n.Status != transport.NotificationPending {
			t.Errorf("notification status = %s, want %s", n.Status, transport.NotificationPending)
		}
	}
	if types[transport.NotificationReminder7Days] != 2 || types[transport.NotificationReminder24Hours] != 2 {
		t.Errorf("reminder type split = %v", types)
	}
	if channels[transport.ChannelEmail] != 2 || channels[transport.ChannelSMS] != 2 {
		t.Errorf("channel split = %v", channels)
	}

	// Reminders land 7 and 1 days before, same wall-clock time.
	sevenDays := time.Date(2025, 6, 3, 10, 0, 0, 0, fx.loc)
	oneDay := time.Date(2025, 6, 9, 10, 0, 0, 0, fx.loc)
	for _, n := range resp.Notifications {
		switch n.Type {
		case transport.NotificationReminder7Days:
			if !n.ScheduledAt.Equal(sevenDays) {
				t.Errorf("7-day reminder at %v, want %v", n.ScheduledAt, sevenDays)
			}
		case transport.NotificationReminder24Hours:
			if !n.ScheduledAt.Equal(oneDay) {
				t.Errorf("1-day reminder at %v, want %v", n.ScheduledAt, oneDay)
			}
		}
	}
}

func TestCreateFollowUpCustomReminderOffsets(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	resp, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
		ReminderDays:  []int{3},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// One offset, two channels.
	if len(resp.Notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(resp.Notifications))
	}
	want := time.Date(2025, 6, 7, 10, 0, 0, 0, fx.loc)
	for _, n := range resp.Notifications {
		if !n.ScheduledAt.Equal(want) {
			t.Errorf("reminder at %v, want %v", n.ScheduledAt, want)
		}
	}
}

func TestCreateFollowUpSkipsUnreachableChannels(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.store.clients[fx.clientID].Phone = "not a number"

	resp, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(resp.Notifications) != 2 {
		t.Fatalf("expected email-only notifications, got %d", len(resp.Notifications))
	}
	for _, n := range resp.Notifications {
		if n.Channel != transport.ChannelEmail {
			t.Errorf("unexpected channel %s", n.Channel)
		}
	}
}

func TestCreateFollowUpRejectsPastDate(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Create(context.Background(), fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-05-01T10:00:00",
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateFollowUpUnknownClient(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Create(context.Background(), fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      uuid.New(),
		ScheduledDate: "2025-06-10T10:00:00",
	})
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateFollowUpOutsideBusinessHours(t *testing.T) {
	fx := newFixture(t)

	// Saturday.
	_, err := fx.svc.Create(context.Background(), fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-07T10:00:00",
	})
	details := conflictDetails(t, err)

	if len(details.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(details.Conflicts))
	}
	if details.Conflicts[0].Severity != transport.SeverityHigh {
		t.Errorf("severity = %s, want %s", details.Conflicts[0].Severity, transport.SeverityHigh)
	}
	if len(details.Alternatives) == 0 {
		t.Fatal("expected a next-business-slot alternative")
	}
	// Monday 09:00 is the next business slot after Saturday 10:00.
	want := time.Date(2025, 6, 9, 9, 0, 0, 0, fx.loc)
	if !details.Alternatives[0].StartTime.Equal(want) {
		t.Errorf("alternative = %v, want %v", details.Alternatives[0].StartTime, want)
	}
}

func TestCreateFollowUpDoubleBooking(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	first, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
		Title:         "first booking",
	})
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}

	_, err = fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:30:00",
	})
	details := conflictDetails(t, err)

	if len(details.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(details.Conflicts))
	}
	conflict := details.Conflicts[0]
	if conflict.FollowUpID == nil || *conflict.FollowUpID != first.FollowUp.ID {
		t.Error("conflict should reference the existing follow-up")
	}
	if conflict.Severity != transport.SeverityMedium {
		t.Errorf("severity = %s, want %s", conflict.Severity, transport.SeverityMedium)
	}

	if len(details.Alternatives) == 0 || len(details.Alternatives) > 3 {
		t.Fatalf("expected 1..3 alternatives, got %d", len(details.Alternatives))
	}
	desired := time.Date(2025, 6, 10, 10, 30, 0, 0, fx.loc)
	window := time.Hour
	for _, alt := range details.Alternatives {
		if !fx.svc.hours.FitsWindow(alt.StartTime, window) {
			t.Errorf("alternative %v falls outside business hours", alt.StartTime)
		}
		if alt.StartTime.Before(first.FollowUp.EndsAt) && alt.EndTime.After(first.FollowUp.ScheduledAt) {
			t.Errorf("alternative %v collides with the existing booking", alt.StartTime)
		}
		if alt.StartTime.Equal(desired) {
			t.Error("alternative must not repeat the rejected time")
		}
	}
	// Ranked closest first.
	for i := 1; i < len(details.Alternatives); i++ {
		if details.Alternatives[i-1].Score < details.Alternatives[i].Score {
			t.Error("alternatives are not ranked by closeness")
		}
	}
}

func TestCreateRecurringWeeklySeries(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	weekly := transport.RecurrenceWeekly
	count := 5
	resp, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:          fx.clientID,
		ScheduledDate:     "2025-06-02T10:00:00",
		RecurrencePattern: &weekly,
		RecurrenceData:    &transport.RecurrenceData{Occurrences: &count},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if resp.SeriesCount != 5 {
		t.Fatalf("series count = %d, want 5", resp.SeriesCount)
	}
	if len(fx.store.followUps) != 5 {
		t.Fatalf("stored %d follow-ups, want 5", len(fx.store.followUps))
	}

	children, err := fx.store.ListChildren(ctx, fx.orgID, resp.FollowUp.ID)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(children) != 4 {
		t.Fatalf("expected 4 children, got %d", len(children))
	}
	for i, child := range children {
		if child.RecurrencePattern != string(transport.RecurrenceNone) {
			t.Errorf("child %d pattern = %s, want NONE", i, child.RecurrencePattern)
		}
		wantAt := time.Date(2025, 6, 9+7*i, 10, 0, 0, 0, fx.loc)
		if !child.ScheduledAt.Equal(wantAt) {
			t.Errorf("child %d at %v, want %v", i, child.ScheduledAt, wantAt)
		}
		if len(fx.store.notificationsFor(child.ID)) == 0 {
			t.Errorf("child %d has no notifications", i)
		}
	}
	if resp.FollowUp.RecurrencePattern != transport.RecurrenceWeekly {
		t.Errorf("parent pattern = %s", resp.FollowUp.RecurrencePattern)
	}
}

func TestCreateFollowUpKeepsElapsedReminderInstants(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// Four days out: the seven-day reminder instant has already passed
	// but its row is still created; the queue fires it immediately.
	resp, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-05T10:00:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(resp.Notifications) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(resp.Notifications))
	}
	elapsed := time.Date(2025, 5, 29, 10, 0, 0, 0, fx.loc)
	var sevenDay int
	for _, n := range resp.Notifications {
		if n.Type == transport.NotificationReminder7Days {
			sevenDay++
			if !n.ScheduledAt.Equal(elapsed) {
				t.Errorf("7-day reminder at %v, want %v", n.ScheduledAt, elapsed)
			}
		}
	}
	if sevenDay != 2 {
		t.Errorf("expected 2 seven-day reminders, got %d", sevenDay)
	}
}

func TestCreateRecurringSeriesRejectsChildOverlap(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	existing, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-09T10:00:00",
		Title:         "standing booking",
	})
	if err != nil {
		t.Fatalf("existing Create: %v", err)
	}

	// Weekly from 06-02: the second occurrence lands on the existing
	// 06-09 booking and must fail the whole create.
	weekly := transport.RecurrenceWeekly
	count := 3
	_, err = fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:          fx.clientID,
		ScheduledDate:     "2025-06-02T10:00:00",
		RecurrencePattern: &weekly,
		RecurrenceData:    &transport.RecurrenceData{Occurrences: &count},
	})
	details := conflictDetails(t, err)

	if len(details.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(details.Conflicts))
	}
	conflict := details.Conflicts[0]
	if conflict.FollowUpID == nil || *conflict.FollowUpID != existing.FollowUp.ID {
		t.Error("conflict should reference the existing booking")
	}
	if conflict.Severity != transport.SeverityMedium {
		t.Errorf("severity = %s, want %s", conflict.Severity, transport.SeverityMedium)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := created.FollowUp.ID

	confirmed := transport.StatusConfirmed
	resp, err := fx.svc.Update(ctx, fx.orgID, id, transport.UpdateFollowUpRequest{Status: &confirmed})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if resp.FollowUp.Status != transport.StatusConfirmed {
		t.Fatalf("status = %s", resp.FollowUp.Status)
	}

	// CONFIRMED cannot go back to SCHEDULED.
	scheduled := transport.StatusScheduled
	_, err = fx.svc.Update(ctx, fx.orgID, id, transport.UpdateFollowUpRequest{Status: &scheduled})
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request for illegal transition, got %v", err)
	}
}

func TestUpdateCancelledFailsPendingNotifications(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cancelled := transport.StatusCancelled
	_, err = fx.svc.Update(ctx, fx.orgID, created.FollowUp.ID, transport.UpdateFollowUpRequest{Status: &cancelled})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	for _, n := range fx.store.notificationsFor(created.FollowUp.ID) {
		if n.Status != string(transport.NotificationFailed) {
			t.Errorf("notification %s status = %s, want FAILED", n.ID, n.Status)
		}
	}
}

func TestUpdateCompletedCreatesOutcomeSummary(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	completed := transport.StatusCompleted
	resp, err := fx.svc.Update(ctx, fx.orgID, created.FollowUp.ID, transport.UpdateFollowUpRequest{Status: &completed})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.FollowUp.Status != transport.StatusCompleted {
		t.Fatalf("status = %s", resp.FollowUp.Status)
	}

	var summaries int
	for _, n := range fx.store.notificationsFor(created.FollowUp.ID) {
		switch n.Type {
		case string(transport.NotificationOutcomeSummary):
			summaries++
			if n.Channel != string(transport.ChannelEmail) {
				t.Errorf("summary channel = %s", n.Channel)
			}
			if n.Status != string(transport.NotificationPending) {
				t.Errorf("summary status = %s, want PENDING", n.Status)
			}
		default:
			if n.Status != string(transport.NotificationFailed) {
				t.Errorf("reminder status = %s, want FAILED", n.Status)
			}
		}
	}
	if summaries != 1 {
		t.Fatalf("expected 1 outcome summary, got %d", summaries)
	}
}

func TestUpdateRescheduleExcludesSelf(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Shifting within its own occupied window must not self-conflict.
	newDate := "2025-06-10T10:30:00"
	resp, err := fx.svc.Update(ctx, fx.orgID, created.FollowUp.ID, transport.UpdateFollowUpRequest{ScheduledDate: &newDate})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := time.Date(2025, 6, 10, 10, 30, 0, 0, fx.loc)
	if !resp.FollowUp.ScheduledAt.Equal(want) {
		t.Fatalf("scheduledAt = %v, want %v", resp.FollowUp.ScheduledAt, want)
	}
}

func TestUpdateRescheduleOutsideHoursRejected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newDate := "2025-06-10T20:00:00"
	_, err = fx.svc.Update(ctx, fx.orgID, created.FollowUp.ID, transport.UpdateFollowUpRequest{ScheduledDate: &newDate})
	details := conflictDetails(t, err)
	if details.Conflicts[0].Severity != transport.SeverityHigh {
		t.Fatalf("severity = %s", details.Conflicts[0].Severity)
	}
}

func TestCancelCascade(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	weekly := transport.RecurrenceWeekly
	count := 4
	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:          fx.clientID,
		ScheduledDate:     "2025-06-02T10:00:00",
		RecurrencePattern: &weekly,
		RecurrenceData:    &transport.RecurrenceData{Occurrences: &count},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	resp, err := fx.svc.Cancel(ctx, fx.orgID, created.FollowUp.ID, transport.CancelFollowUpRequest{
		Reason:  "client moved away",
		Cascade: true,
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if resp.FollowUp.Status != transport.StatusCancelled {
		t.Fatalf("status = %s", resp.FollowUp.Status)
	}
	if !strings.Contains(resp.FollowUp.Notes, "client moved away") {
		t.Error("cancellation reason should be recorded in notes")
	}

	children, _ := fx.store.ListChildren(ctx, fx.orgID, created.FollowUp.ID)
	for _, child := range children {
		if child.Status != string(transport.StatusCancelled) {
			t.Errorf("child at %v status = %s, want CANCELLED", child.ScheduledAt, child.Status)
		}
		for _, n := range fx.store.notificationsFor(child.ID) {
			if n.Status != string(transport.NotificationFailed) {
				t.Errorf("child notification status = %s, want FAILED", n.Status)
			}
		}
	}
}

func TestCancelPersistsRescheduleNotice(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := fx.svc.Cancel(ctx, fx.orgID, created.FollowUp.ID, transport.CancelFollowUpRequest{Reason: "illness"}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	var notices int
	for _, n := range fx.store.notificationsFor(created.FollowUp.ID) {
		switch n.Type {
		case string(transport.NotificationRescheduleRequest):
			notices++
			if n.Channel != string(transport.ChannelEmail) {
				t.Errorf("notice channel = %s, want EMAIL preferred", n.Channel)
			}
			if n.Status != string(transport.NotificationPending) {
				t.Errorf("notice status = %s, want PENDING", n.Status)
			}
		default:
			if n.Status != string(transport.NotificationFailed) {
				t.Errorf("reminder status = %s, want FAILED", n.Status)
			}
		}
	}
	if notices != 1 {
		t.Fatalf("expected 1 reschedule notice, got %d", notices)
	}
}

func TestCancelRescheduleNoticeFallsBackToSMS(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.store.clients[fx.clientID].Email = ""

	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := fx.svc.Cancel(ctx, fx.orgID, created.FollowUp.ID, transport.CancelFollowUpRequest{}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	for _, n := range fx.store.notificationsFor(created.FollowUp.ID) {
		if n.Type == string(transport.NotificationRescheduleRequest) && n.Channel != string(transport.ChannelSMS) {
			t.Errorf("notice channel = %s, want SMS fallback", n.Channel)
		}
	}
}

func TestCancelCascadeSkipsConfirmedChildren(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	weekly := transport.RecurrenceWeekly
	count := 3
	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:          fx.clientID,
		ScheduledDate:     "2025-06-02T10:00:00",
		RecurrencePattern: &weekly,
		RecurrenceData:    &transport.RecurrenceData{Occurrences: &count},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	children, _ := fx.store.ListChildren(ctx, fx.orgID, created.FollowUp.ID)
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}

	// Cascade covers SCHEDULED occurrences only; a child the client
	// already confirmed stays on the calendar.
	confirmed := transport.StatusConfirmed
	if _, err := fx.svc.Update(ctx, fx.orgID, children[0].ID, transport.UpdateFollowUpRequest{Status: &confirmed}); err != nil {
		t.Fatalf("confirm child: %v", err)
	}

	if _, err := fx.svc.Cancel(ctx, fx.orgID, created.FollowUp.ID, transport.CancelFollowUpRequest{Cascade: true}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	after, _ := fx.store.ListChildren(ctx, fx.orgID, created.FollowUp.ID)
	for _, child := range after {
		switch child.ID {
		case children[0].ID:
			if child.Status != string(transport.StatusConfirmed) {
				t.Errorf("confirmed child status = %s, want CONFIRMED", child.Status)
			}
		default:
			if child.Status != string(transport.StatusCancelled) {
				t.Errorf("scheduled child status = %s, want CANCELLED", child.Status)
			}
		}
	}
}

func TestCancelWithoutCascadeLeavesChildren(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	weekly := transport.RecurrenceWeekly
	count := 3
	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:          fx.clientID,
		ScheduledDate:     "2025-06-02T10:00:00",
		RecurrencePattern: &weekly,
		RecurrenceData:    &transport.RecurrenceData{Occurrences: &count},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := fx.svc.Cancel(ctx, fx.orgID, created.FollowUp.ID, transport.CancelFollowUpRequest{}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	children, _ := fx.store.ListChildren(ctx, fx.orgID, created.FollowUp.ID)
	for _, child := range children {
		if child.Status != string(transport.StatusScheduled) {
			t.Errorf("child status = %s, want SCHEDULED", child.Status)
		}
	}
}

func TestCancelTerminalRejected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := fx.svc.Cancel(ctx, fx.orgID, created.FollowUp.ID, transport.CancelFollowUpRequest{}); err != nil {
		t.Fatalf("first Cancel: %v", err)
	}
	_, err = fx.svc.Cancel(ctx, fx.orgID, created.FollowUp.ID, transport.CancelFollowUpRequest{})
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request cancelling twice, got %v", err)
	}
}

func TestComplete(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	resp, err := fx.svc.Complete(ctx, fx.orgID, created.FollowUp.ID, transport.CompleteFollowUpRequest{
		Outcome:     "renewed contract for 12 months",
		ActionItems: []string{"send signed copy"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.FollowUp.Status != transport.StatusCompleted {
		t.Fatalf("status = %s", resp.FollowUp.Status)
	}
	if resp.FollowUp.Outcome != "renewed contract for 12 months" {
		t.Errorf("outcome = %q", resp.FollowUp.Outcome)
	}

	var summaries int
	for _, n := range resp.Notifications {
		if n.Type == transport.NotificationOutcomeSummary {
			summaries++
			if n.Channel != transport.ChannelEmail {
				t.Errorf("summary channel = %s", n.Channel)
			}
		}
	}
	if summaries != 1 {
		t.Fatalf("expected 1 outcome summary, got %d", summaries)
	}

	// Completing twice is rejected.
	_, err = fx.svc.Complete(ctx, fx.orgID, created.FollowUp.ID, transport.CompleteFollowUpRequest{Outcome: "again"})
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestCompleteRequiresOutcome(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Complete(context.Background(), fx.orgID, uuid.New(), transport.CompleteFollowUpRequest{Outcome: "   "})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCompleteScheduleNext(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
		Category:      transport.CategoryRenewal,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = fx.svc.Complete(ctx, fx.orgID, created.FollowUp.ID, transport.CompleteFollowUpRequest{
		Outcome:      "renewed",
		ScheduleNext: &transport.ScheduleNextRequest{ScheduledDate: "2025-07-10T10:00:00"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// One completed plus one freshly scheduled.
	var next *repository.FollowUp
	for _, f := range fx.store.followUps {
		if f.ID != created.FollowUp.ID {
			next = f
		}
	}
	if next == nil {
		t.Fatal("expected a next follow-up to be created")
	}
	if next.Status != string(transport.StatusScheduled) {
		t.Errorf("next status = %s", next.Status)
	}
	if next.RecurrencePattern != string(transport.RecurrenceNone) {
		t.Errorf("next pattern = %s, want NONE", next.RecurrencePattern)
	}
	if next.Category != transport.CategoryRenewal {
		t.Errorf("next category = %s, carried over from completed", next.Category)
	}
	want := time.Date(2025, 7, 10, 10, 0, 0, 0, fx.loc)
	if !next.ScheduledAt.Equal(want) {
		t.Errorf("next at %v, want %v", next.ScheduledAt, want)
	}
}

func TestGetAndList(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, fx.orgID, transport.CreateFollowUpRequest{
		ClientID:      fx.clientID,
		ScheduledDate: "2025-06-10T10:00:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	detail, err := fx.svc.Get(ctx, fx.orgID, created.FollowUp.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(detail.Notifications) != len(created.Notifications) {
		t.Errorf("Get returned %d notifications, create returned %d", len(detail.Notifications), len(created.Notifications))
	}

	// Tenant isolation: another organization cannot see it.
	if _, err := fx.svc.Get(ctx, uuid.New(), created.FollowUp.ID); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found across tenants, got %v", err)
	}

	listed, err := fx.svc.List(ctx, fx.orgID, transport.ListFollowUpsRequest{ClientID: &fx.clientID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if listed.TotalCount != 1 || len(listed.FollowUps) != 1 {
		t.Fatalf("list = %d/%d, want 1/1", len(listed.FollowUps), listed.TotalCount)
	}
}
