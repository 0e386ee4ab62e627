package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"followup_backend/internal/events"
	"followup_backend/internal/followups/domain"
	"followup_backend/internal/followups/repository"
	"followup_backend/internal/followups/transport"
	"followup_backend/internal/scheduler"
	"followup_backend/platform/apperr"
	"followup_backend/platform/config"
	"followup_backend/platform/logger"
	"followup_backend/platform/phone"

	"github.com/google/uuid"
)

// Defaults are applied to create requests that leave the corresponding
// fields blank.
type Defaults struct {
	Timezone        string
	DurationMinutes int
	ReminderDays    []int
}

// Service orchestrates follow-up scheduling: validation, business
// hours, conflict detection, recurrence expansion and notification
// planning, all inside one transaction per request.
type Service struct {
	store             repository.Store
	hours             BusinessHours
	defaults          Defaults
	eventBus          events.Bus
	reminderScheduler scheduler.ReminderScheduler
	log               *logger.Logger

	// now is swapped out in tests.
	now func() time.Time
}

// New creates the follow-up service. reminderScheduler may be nil when
// no task queue is configured.
func New(store repository.Store, cfg config.SchedulingConfig, eventBus events.Bus, reminderScheduler scheduler.ReminderScheduler, log *logger.Logger) (*Service, error) {
	hours, err := NewBusinessHours(cfg)
	if err != nil {
		return nil, err
	}

	return &Service{
		store: store,
		hours: hours,
		defaults: Defaults{
			Timezone:        cfg.GetDefaultTimezone(),
			DurationMinutes: cfg.GetDefaultDurationMinutes(),
			ReminderDays:    cfg.GetDefaultReminderDays(),
		},
		eventBus:          eventBus,
		reminderScheduler: reminderScheduler,
		log:               log,
		now:               time.Now,
	}, nil
}

func validationError(errs []FieldError) error {
	return apperr.Validation("validation failed").WithDetails(errs)
}

func (s *Service) loadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = s.defaults.Timezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperr.Validation("validation failed").WithDetails([]FieldError{
			{Field: "timezone", Message: fmt.Sprintf("unknown timezone %q", name)},
		})
	}
	return loc, nil
}

// Create schedules a follow-up, expanding recurring series and
// planning its reminder notifications. The whole write path runs in
// one transaction serialized per client.
func (s *Service) Create(ctx context.Context, organizationID uuid.UUID, req transport.CreateFollowUpRequest) (*transport.CreateFollowUpResponse, error) {
	loc, err := s.loadLocation(req.Timezone)
	if err != nil {
		return nil, err
	}

	scheduledAt, errs := ValidateCreate(req, loc, s.now())
	if len(errs) > 0 {
		return nil, validationError(errs)
	}

	client, err := s.store.GetClient(ctx, organizationID, req.ClientID)
	if err != nil {
		return nil, err
	}

	duration := s.defaults.DurationMinutes
	if req.Duration != nil {
		duration = *req.Duration
	}
	window := time.Duration(duration) * time.Minute

	pattern := transport.RecurrenceNone
	if req.RecurrencePattern != nil {
		pattern = *req.RecurrencePattern
	}

	var parent *repository.FollowUp
	var notifications []repository.Notification
	var seriesCount int

	err = s.store.InTx(ctx, req.ClientID, func(store repository.Store) error {
		notifications = notifications[:0]

		if conflictErr := s.checkSchedulable(ctx, store, organizationID, req.ClientID, scheduledAt, window, uuid.Nil); conflictErr != nil {
			return conflictErr
		}

		now := s.now()
		parent = s.buildFollowUp(organizationID, client, req, scheduledAt, loc.String(), duration, pattern, now)
		if err := store.CreateFollowUp(ctx, parent); err != nil {
			return err
		}

		ns, err := s.planNotifications(ctx, store, parent, client, req.ReminderDays, now)
		if err != nil {
			return err
		}
		notifications = append(notifications, ns...)

		occurrences := s.expandSeries(parent, req, pattern)
		seriesCount = len(occurrences)
		for _, occurrence := range occurrences[1:] {
			if conflictErr := s.checkOverlap(ctx, store, organizationID, req.ClientID, occurrence, window, uuid.Nil); conflictErr != nil {
				return conflictErr
			}
			child := s.buildChild(parent, occurrence, now)
			if err := store.CreateFollowUp(ctx, child); err != nil {
				return err
			}
			childNotifs, err := s.planNotifications(ctx, store, child, client, req.ReminderDays, now)
			if err != nil {
				return err
			}
			notifications = append(notifications, childNotifs...)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueueReminders(ctx, notifications)

	s.eventBus.Publish(ctx, events.FollowUpScheduled{
		BaseEvent:      events.NewBaseEvent(),
		FollowUpID:     parent.ID,
		OrganizationID: organizationID,
		ClientID:       client.ID,
		Title:          parent.Title,
		ScheduledAt:    parent.ScheduledAt,
		Occurrences:    seriesCount,
	})

	resp := &transport.CreateFollowUpResponse{
		FollowUp:      toFollowUpResponse(parent),
		Notifications: toNotificationResponses(notifications),
		SeriesCount:   seriesCount,
	}
	if pattern == transport.RecurrenceCustom && req.RecurrenceData != nil {
		resp.CustomRecurrence = req.RecurrenceData
	}
	return resp, nil
}

// checkSchedulable rejects starts outside business hours or colliding
// with an active follow-up for the same client. Both failures carry
// the conflict body with ranked alternatives.
func (s *Service) checkSchedulable(ctx context.Context, store repository.Store, orgID, clientID uuid.UUID, start time.Time, window time.Duration, excludeID uuid.UUID) error {
	if !s.hours.Contains(start) {
		details := transport.ConflictDetails{
			Conflicts: []transport.ConflictInfo{HoursConflict(start)},
		}
		if slot, ok := s.hours.NextSlot(start, window); ok {
			details.Alternatives = []transport.SlotInfo{{
				StartTime: slot,
				EndTime:   slot.Add(window),
				Score:     closenessScore(slot, start),
			}}
		}
		return apperr.Conflict("outside business hours").WithDetails(details)
	}

	return s.checkOverlap(ctx, store, orgID, clientID, start, window, excludeID)
}

// checkOverlap is the overlap half of checkSchedulable. Series
// occurrences run through it alone: they inherit the parent's
// wall-clock time, but must not collide with existing bookings.
func (s *Service) checkOverlap(ctx context.Context, store repository.Store, orgID, clientID uuid.UUID, start time.Time, window time.Duration, excludeID uuid.UUID) error {
	existing, err := store.ListActiveInRange(ctx, orgID, clientID, start, start.Add(window), excludeID)
	if err != nil {
		return err
	}
	conflicts := OverlapConflicts(existing, start, start.Add(window))
	if len(conflicts) == 0 {
		return nil
	}

	details := transport.ConflictDetails{
		Conflicts:    conflicts,
		Alternatives: s.generateAlternatives(ctx, store, orgID, clientID, start, window, excludeID),
	}
	return apperr.Conflict("scheduling conflict").WithDetails(details)
}

func (s *Service) buildFollowUp(orgID uuid.UUID, client *repository.Client, req transport.CreateFollowUpRequest, scheduledAt time.Time, timezone string, duration int, pattern transport.RecurrencePattern, now time.Time) *repository.FollowUp {
	category := req.Category
	if category == "" {
		category = SuggestCategory(req.ServiceID != nil)
	}

	priority := transport.Priority("")
	if req.Priority != nil {
		priority = *req.Priority
	} else {
		priority = DeterminePriority(category, 0)
	}

	f := &repository.FollowUp{
		ID:                uuid.New(),
		OrganizationID:    orgID,
		ClientID:          client.ID,
		ServiceID:         req.ServiceID,
		ScheduledAt:       scheduledAt,
		Timezone:          timezone,
		DurationMinutes:   duration,
		Title:             req.Title,
		Notes:             req.Notes,
		Priority:          string(priority),
		Category:          category,
		Status:            string(transport.StatusScheduled),
		RecurrencePattern: string(pattern),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if pattern == transport.RecurrenceCustom && req.RecurrenceData != nil {
		interval := req.RecurrenceData.Interval
		unit := req.RecurrenceData.Unit
		f.RecurrenceInterval = &interval
		f.RecurrenceUnit = &unit
	}
	if req.RecurrenceData != nil {
		f.RecurrenceEndAt = req.RecurrenceData.EndDate
	}

	return f
}

// expandSeries returns all occurrences including the first. A
// non-recurring follow-up expands to itself only.
func (s *Service) expandSeries(parent *repository.FollowUp, req transport.CreateFollowUpRequest, pattern transport.RecurrencePattern) []time.Time {
	spec := RecurrenceSpec{Pattern: pattern}
	if req.RecurrenceData != nil {
		spec.Interval = req.RecurrenceData.Interval
		spec.Unit = req.RecurrenceData.Unit
		spec.EndAt = req.RecurrenceData.EndDate
		if req.RecurrenceData.Occurrences != nil {
			spec.Count = *req.RecurrenceData.Occurrences
		}
	}
	return ExpandRecurrence(parent.ScheduledAt, spec)
}

// buildChild derives one series occurrence from its parent. Children
// are plain follow-ups pointing back to the parent; only the parent
// carries the recurrence definition.
func (s *Service) buildChild(parent *repository.FollowUp, scheduledAt time.Time, now time.Time) *repository.FollowUp {
	parentID := parent.ID
	return &repository.FollowUp{
		ID:                uuid.New(),
		OrganizationID:    parent.OrganizationID,
		ClientID:          parent.ClientID,
		ServiceID:         parent.ServiceID,
		ScheduledAt:       scheduledAt,
		Timezone:          parent.Timezone,
		DurationMinutes:   parent.DurationMinutes,
		Title:             parent.Title,
		Notes:             parent.Notes,
		Priority:          parent.Priority,
		Category:          parent.Category,
		Status:            string(transport.StatusScheduled),
		RecurrencePattern: string(transport.RecurrenceNone),
		ParentFollowUpID:  &parentID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// planNotifications persists one PENDING notification per computed
// reminder instant and reachable channel. A client without a valid
// address on a channel simply gets no notification there.
func (s *Service) planNotifications(ctx context.Context, store repository.Store, f *repository.FollowUp, client *repository.Client, offsets []int, now time.Time) ([]repository.Notification, error) {
	if len(offsets) == 0 {
		offsets = s.defaults.ReminderDays
	}
	reminders := ReminderSchedule(f.ScheduledAt, offsets)

	recipients := s.recipients(client)
	channels := []string{string(transport.ChannelEmail), string(transport.ChannelSMS)}

	var created []repository.Notification
	for _, reminder := range reminders {
		for _, channel := range channels {
			recipient, ok := recipients[channel]
			if !ok {
				continue
			}
			n := repository.Notification{
				ID:             uuid.New(),
				OrganizationID: f.OrganizationID,
				FollowUpID:     f.ID,
				Type:           string(reminder.Type),
				Channel:        channel,
				Recipient:      recipient,
				ScheduledAt:    reminder.At,
				Content:        reminderContent(f, client, reminder),
				Status:         string(transport.NotificationPending),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := store.CreateNotification(ctx, &n); err != nil {
				return nil, err
			}
			created = append(created, n)
		}
	}
	return created, nil
}

// createOutcomeSummary persists the single OUTCOME_SUMMARY notification
// for a follow-up that just reached COMPLETED. A client without an
// email address gets none.
func (s *Service) createOutcomeSummary(ctx context.Context, store repository.Store, f *repository.FollowUp, client *repository.Client, now time.Time) error {
	recipient, ok := s.recipients(client)[string(transport.ChannelEmail)]
	if !ok {
		return nil
	}
	content := f.Outcome
	if content == "" {
		content = "Follow-up completed."
	}
	n := repository.Notification{
		ID:             uuid.New(),
		OrganizationID: f.OrganizationID,
		FollowUpID:     f.ID,
		Type:           string(transport.NotificationOutcomeSummary),
		Channel:        string(transport.ChannelEmail),
		Recipient:      recipient,
		ScheduledAt:    now,
		Content:        content,
		Status:         string(transport.NotificationPending),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return store.CreateNotification(ctx, &n)
}

// createRescheduleNotice persists the single RESCHEDULE_REQUEST
// cancellation notice, preferring email over SMS when both are
// reachable. A client with neither gets none.
func (s *Service) createRescheduleNotice(ctx context.Context, store repository.Store, f *repository.FollowUp, client *repository.Client, now time.Time) error {
	recipients := s.recipients(client)
	channel := string(transport.ChannelEmail)
	recipient, ok := recipients[channel]
	if !ok {
		channel = string(transport.ChannelSMS)
		if recipient, ok = recipients[channel]; !ok {
			return nil
		}
	}

	n := repository.Notification{
		ID:             uuid.New(),
		OrganizationID: f.OrganizationID,
		FollowUpID:     f.ID,
		Type:           string(transport.NotificationRescheduleRequest),
		Channel:        channel,
		Recipient:      recipient,
		ScheduledAt:    now,
		Content: fmt.Sprintf("Hi %s, your follow-up on %s was cancelled. Please contact us to reschedule.",
			client.FirstName, f.ScheduledAt.Format("Monday, January 2 2006 at 15:04")),
		Status:    string(transport.NotificationPending),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return store.CreateNotification(ctx, &n)
}

// recipients maps each enabled channel to a validated address.
func (s *Service) recipients(client *repository.Client) map[string]string {
	out := make(map[string]string, 2)
	if email := strings.TrimSpace(client.Email); email != "" && strings.Contains(email, "@") {
		out[string(transport.ChannelEmail)] = email
	}
	if phone.IsDeliverable(client.Phone) {
		out[string(transport.ChannelSMS)] = phone.NormalizeE164(client.Phone)
	}
	return out
}

func reminderContent(f *repository.FollowUp, client *repository.Client, reminder Reminder) string {
	title := f.Title
	if title == "" {
		title = "your follow-up"
	}
	return fmt.Sprintf("Hi %s, this is a reminder about %s on %s.",
		client.FirstName, title, f.ScheduledAt.Format("Monday, January 2 2006 at 15:04"))
}

// enqueueReminders hands the persisted notifications to the task queue
// so they fire at their send instants. Enqueue failures are logged,
// not returned: the notification rows remain the source of truth.
func (s *Service) enqueueReminders(ctx context.Context, notifications []repository.Notification) {
	if s.reminderScheduler == nil {
		return
	}
	for i := range notifications {
		n := &notifications[i]
		err := s.reminderScheduler.ScheduleFollowUpReminder(ctx, scheduler.FollowUpReminderPayload{
			NotificationID: n.ID.String(),
			FollowUpID:     n.FollowUpID.String(),
			OrganizationID: n.OrganizationID.String(),
			Channel:        n.Channel,
			Recipient:      n.Recipient,
		}, n.ScheduledAt)
		if err != nil {
			s.log.SchedulerEvent("enqueue reminder", n.FollowUpID.String(), err)
		}
	}
}

// Get returns a follow-up with its notifications.
func (s *Service) Get(ctx context.Context, organizationID, id uuid.UUID) (*transport.FollowUpDetailResponse, error) {
	f, err := s.store.GetFollowUp(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	notifications, err := s.store.ListNotifications(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	return &transport.FollowUpDetailResponse{
		FollowUp:      toFollowUpResponse(f),
		Notifications: toNotificationResponses(notifications),
	}, nil
}

// List returns a filtered page of follow-ups.
func (s *Service) List(ctx context.Context, organizationID uuid.UUID, req transport.ListFollowUpsRequest) (*transport.ListFollowUpsResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	params := repository.ListParams{
		OrganizationID: organizationID,
		ClientID:       req.ClientID,
		From:           req.From,
		To:             req.To,
		Page:           page,
		PageSize:       pageSize,
	}
	if req.Status != nil {
		status := string(*req.Status)
		params.Status = &status
	}
	if req.Priority != nil {
		priority := string(*req.Priority)
		params.Priority = &priority
	}
	params.Category = req.Category

	result, err := s.store.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]transport.FollowUpResponse, 0, len(result.FollowUps))
	for i := range result.FollowUps {
		items = append(items, toFollowUpResponse(&result.FollowUps[i]))
	}

	return &transport.ListFollowUpsResponse{
		FollowUps:  items,
		TotalCount: result.TotalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// Update applies a partial update. Status changes go through the state
// machine; reschedules re-run business hours and conflict checks with
// the follow-up itself excluded.
func (s *Service) Update(ctx context.Context, organizationID, id uuid.UUID, req transport.UpdateFollowUpRequest) (*transport.FollowUpDetailResponse, error) {
	current, err := s.store.GetFollowUp(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	timezone := current.Timezone
	if req.Timezone != nil {
		timezone = *req.Timezone
	}
	loc, err := s.loadLocation(timezone)
	if err != nil {
		return nil, err
	}

	scheduledAt, errs := ValidateUpdate(req, loc, s.now())
	if len(errs) > 0 {
		return nil, validationError(errs)
	}

	var client *repository.Client
	if req.Status != nil {
		client, err = s.store.GetClient(ctx, organizationID, current.ClientID)
		if err != nil {
			return nil, err
		}
	}

	var updated *repository.FollowUp
	var completedNow, cancelledNow bool

	err = s.store.InTx(ctx, current.ClientID, func(store repository.Store) error {
		completedNow, cancelledNow = false, false

		f, err := store.GetFollowUp(ctx, organizationID, id)
		if err != nil {
			return err
		}

		if req.Status != nil && string(*req.Status) != f.Status {
			if !domain.CanTransition(f.Status, string(*req.Status)) {
				return apperr.BadRequest(fmt.Sprintf("cannot transition from %s to %s", f.Status, *req.Status))
			}
		}

		duration := f.DurationMinutes
		if req.Duration != nil {
			duration = *req.Duration
		}

		if req.ScheduledDate != nil {
			window := time.Duration(duration) * time.Minute
			if err := s.checkSchedulable(ctx, store, organizationID, f.ClientID, scheduledAt, window, f.ID); err != nil {
				return err
			}
			f.ScheduledAt = scheduledAt
		}

		f.Timezone = loc.String()
		f.DurationMinutes = duration
		if req.Title != nil {
			f.Title = *req.Title
		}
		if req.Notes.Set {
			if req.Notes.Value != nil {
				f.Notes = *req.Notes.Value
			} else {
				f.Notes = ""
			}
		}
		if req.Priority != nil {
			f.Priority = string(*req.Priority)
		}
		if req.Category != nil {
			f.Category = *req.Category
		}
		if req.ActionItems != nil {
			f.ActionItems = *req.ActionItems
		}

		if req.Status != nil && string(*req.Status) != f.Status {
			f.Status = string(*req.Status)

			switch f.Status {
			case string(transport.StatusCancelled):
				if _, err := store.FailPendingNotifications(ctx, organizationID, f.ID, "follow-up cancelled"); err != nil {
					return err
				}
				cancelledNow = true
			case string(transport.StatusCompleted):
				if _, err := store.FailPendingNotifications(ctx, organizationID, f.ID, "follow-up completed"); err != nil {
					return err
				}
				if err := s.createOutcomeSummary(ctx, store, f, client, s.now()); err != nil {
					return err
				}
				completedNow = true
			}
		}

		f.UpdatedAt = s.now()
		if err := store.UpdateFollowUp(ctx, f); err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case completedNow:
		s.eventBus.Publish(ctx, events.FollowUpCompleted{
			BaseEvent:      events.NewBaseEvent(),
			FollowUpID:     updated.ID,
			OrganizationID: organizationID,
			ClientID:       updated.ClientID,
			ClientEmail:    client.Email,
			ClientName:     client.FullName(),
			Title:          updated.Title,
			Outcome:        updated.Outcome,
			ActionItems:    updated.ActionItems,
		})
	case cancelledNow:
		s.eventBus.Publish(ctx, events.FollowUpCancelled{
			BaseEvent:      events.NewBaseEvent(),
			FollowUpID:     updated.ID,
			OrganizationID: organizationID,
			ClientID:       updated.ClientID,
			ClientEmail:    client.Email,
			ClientName:     client.FullName(),
			Title:          updated.Title,
			ScheduledAt:    updated.ScheduledAt,
		})
	}

	notifications, err := s.store.ListNotifications(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	return &transport.FollowUpDetailResponse{
		FollowUp:      toFollowUpResponse(updated),
		Notifications: toNotificationResponses(notifications),
	}, nil
}

// Cancel cancels a follow-up, fails its pending notifications and,
// when cascade is set on a recurring parent, cancels every future
// scheduled occurrence of the series.
func (s *Service) Cancel(ctx context.Context, organizationID, id uuid.UUID, req transport.CancelFollowUpRequest) (*transport.FollowUpDetailResponse, error) {
	current, err := s.store.GetFollowUp(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	client, err := s.store.GetClient(ctx, organizationID, current.ClientID)
	if err != nil {
		return nil, err
	}

	var cancelled *repository.FollowUp
	var cascadedCount int

	err = s.store.InTx(ctx, current.ClientID, func(store repository.Store) error {
		cascadedCount = 0

		f, err := store.GetFollowUp(ctx, organizationID, id)
		if err != nil {
			return err
		}

		if err := s.cancelOne(ctx, store, f, req.Reason); err != nil {
			return err
		}

		if req.Cascade && f.RecurrencePattern != string(transport.RecurrenceNone) {
			children, err := store.ListChildren(ctx, organizationID, f.ID)
			if err != nil {
				return err
			}
			now := s.now()
			for i := range children {
				child := &children[i]
				if child.Status != string(transport.StatusScheduled) || !child.ScheduledAt.After(now) {
					continue
				}
				if err := s.cancelOne(ctx, store, child, req.Reason); err != nil {
					return err
				}
				cascadedCount++
			}
		}

		if err := s.createRescheduleNotice(ctx, store, f, client, s.now()); err != nil {
			return err
		}

		cancelled = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, events.FollowUpCancelled{
		BaseEvent:      events.NewBaseEvent(),
		FollowUpID:     cancelled.ID,
		OrganizationID: organizationID,
		ClientID:       client.ID,
		ClientEmail:    client.Email,
		ClientName:     client.FullName(),
		Title:          cancelled.Title,
		ScheduledAt:    cancelled.ScheduledAt,
		Reason:         req.Reason,
		CascadedCount:  cascadedCount,
	})

	notifications, err := s.store.ListNotifications(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	return &transport.FollowUpDetailResponse{
		FollowUp:      toFollowUpResponse(cancelled),
		Notifications: toNotificationResponses(notifications),
	}, nil
}

func (s *Service) cancelOne(ctx context.Context, store repository.Store, f *repository.FollowUp, reason string) error {
	if !domain.CanTransition(f.Status, string(transport.StatusCancelled)) {
		return apperr.BadRequest(fmt.Sprintf("cannot cancel a %s follow-up", f.Status))
	}

	f.Status = string(transport.StatusCancelled)
	if reason != "" {
		if f.Notes != "" {
			f.Notes += "\n"
		}
		f.Notes += "Cancelled: " + reason
	}
	f.UpdatedAt = s.now()

	if err := store.UpdateFollowUp(ctx, f); err != nil {
		return err
	}
	_, err := store.FailPendingNotifications(ctx, f.OrganizationID, f.ID, "follow-up cancelled")
	return err
}

// Complete marks a follow-up done, records its outcome and schedules
// the optional next touchpoint as a fresh, non-recurring follow-up
// that passes the same checks as any other booking.
func (s *Service) Complete(ctx context.Context, organizationID, id uuid.UUID, req transport.CompleteFollowUpRequest) (*transport.FollowUpDetailResponse, error) {
	if strings.TrimSpace(req.Outcome) == "" {
		return nil, validationError([]FieldError{{Field: "outcome", Message: "outcome is required"}})
	}

	current, err := s.store.GetFollowUp(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	client, err := s.store.GetClient(ctx, organizationID, current.ClientID)
	if err != nil {
		return nil, err
	}

	var nextScheduledAt time.Time
	var nextDuration int
	if req.ScheduleNext != nil {
		loc, err := s.loadLocation(req.ScheduleNext.Timezone)
		if err != nil {
			return nil, err
		}
		parsed, err := ParseScheduledDate(req.ScheduleNext.ScheduledDate, loc)
		if err != nil {
			return nil, validationError([]FieldError{{Field: "scheduleNext.scheduledDate", Message: err.Error()}})
		}
		if parsed.Before(s.now()) {
			return nil, validationError([]FieldError{{Field: "scheduleNext.scheduledDate", Message: "scheduled date must not be in the past"}})
		}
		nextScheduledAt = parsed
		nextDuration = current.DurationMinutes
		if req.ScheduleNext.Duration != nil {
			nextDuration = *req.ScheduleNext.Duration
		}
	}

	var completed *repository.FollowUp
	var nextNotifications []repository.Notification

	err = s.store.InTx(ctx, current.ClientID, func(store repository.Store) error {
		nextNotifications = nil

		f, err := store.GetFollowUp(ctx, organizationID, id)
		if err != nil {
			return err
		}

		if !domain.CanTransition(f.Status, string(transport.StatusCompleted)) {
			return apperr.BadRequest(fmt.Sprintf("cannot complete a %s follow-up", f.Status))
		}

		now := s.now()
		f.Status = string(transport.StatusCompleted)
		f.Outcome = req.Outcome
		if req.ActionItems != nil {
			f.ActionItems = req.ActionItems
		}
		f.UpdatedAt = now
		if err := store.UpdateFollowUp(ctx, f); err != nil {
			return err
		}

		if _, err := store.FailPendingNotifications(ctx, organizationID, f.ID, "follow-up completed"); err != nil {
			return err
		}

		if err := s.createOutcomeSummary(ctx, store, f, client, now); err != nil {
			return err
		}

		if req.ScheduleNext != nil {
			window := time.Duration(nextDuration) * time.Minute
			if err := s.checkSchedulable(ctx, store, organizationID, f.ClientID, nextScheduledAt, window, uuid.Nil); err != nil {
				return err
			}
			next := &repository.FollowUp{
				ID:                uuid.New(),
				OrganizationID:    organizationID,
				ClientID:          f.ClientID,
				ServiceID:         f.ServiceID,
				ScheduledAt:       nextScheduledAt,
				Timezone:          f.Timezone,
				DurationMinutes:   nextDuration,
				Title:             f.Title,
				Priority:          f.Priority,
				Category:          f.Category,
				Status:            string(transport.StatusScheduled),
				RecurrencePattern: string(transport.RecurrenceNone),
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := store.CreateFollowUp(ctx, next); err != nil {
				return err
			}
			ns, err := s.planNotifications(ctx, store, next, client, nil, now)
			if err != nil {
				return err
			}
			nextNotifications = ns
		}

		completed = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueueReminders(ctx, nextNotifications)

	s.eventBus.Publish(ctx, events.FollowUpCompleted{
		BaseEvent:      events.NewBaseEvent(),
		FollowUpID:     completed.ID,
		OrganizationID: organizationID,
		ClientID:       client.ID,
		ClientEmail:    client.Email,
		ClientName:     client.FullName(),
		Title:          completed.Title,
		Outcome:        completed.Outcome,
		ActionItems:    completed.ActionItems,
	})

	notifications, err := s.store.ListNotifications(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	return &transport.FollowUpDetailResponse{
		FollowUp:      toFollowUpResponse(completed),
		Notifications: toNotificationResponses(notifications),
	}, nil
}

func toFollowUpResponse(f *repository.FollowUp) transport.FollowUpResponse {
	resp := transport.FollowUpResponse{
		ID:                f.ID,
		ClientID:          f.ClientID,
		ServiceID:         f.ServiceID,
		ScheduledAt:       f.ScheduledAt,
		EndsAt:            f.EndsAt(),
		Timezone:          f.Timezone,
		Duration:          f.DurationMinutes,
		Title:             f.Title,
		Notes:             f.Notes,
		Outcome:           f.Outcome,
		ActionItems:       f.ActionItems,
		Priority:          transport.Priority(f.Priority),
		Category:          f.Category,
		Status:            transport.FollowUpStatus(f.Status),
		RecurrencePattern: transport.RecurrencePattern(f.RecurrencePattern),
		ParentFollowUpID:  f.ParentFollowUpID,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
	}

	if f.RecurrenceInterval != nil || f.RecurrenceEndAt != nil {
		data := &transport.RecurrenceData{EndDate: f.RecurrenceEndAt}
		if f.RecurrenceInterval != nil {
			data.Interval = *f.RecurrenceInterval
		}
		if f.RecurrenceUnit != nil {
			data.Unit = *f.RecurrenceUnit
		}
		resp.RecurrenceData = data
	}

	return resp
}

func toNotificationResponses(notifications []repository.Notification) []transport.NotificationResponse {
	out := make([]transport.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		n := &notifications[i]
		out = append(out, transport.NotificationResponse{
			ID:          n.ID,
			FollowUpID:  n.FollowUpID,
			Type:        transport.NotificationType(n.Type),
			Channel:     transport.NotificationChannel(n.Channel),
			Recipient:   n.Recipient,
			ScheduledAt: n.ScheduledAt,
			Content:     n.Content,
			Status:      transport.NotificationStatus(n.Status),
			Error:       n.ErrorMessage,
		})
	}
	return out
}
