// Package notification bridges follow-up domain events to outbound
// email. Sends are best effort: a delivery failure is logged and never
// fails the operation that raised the event.
package notification

import (
	"context"
	"fmt"

	"followup_backend/internal/email"
	"followup_backend/internal/events"
	"followup_backend/platform/logger"
)

type Module struct {
	sender email.Sender
	log    *logger.Logger
}

func NewModule(sender email.Sender, log *logger.Logger) *Module {
	return &Module{sender: sender, log: log}
}

// RegisterHandlers subscribes the module to the events it turns into
// client-facing email.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe("followups.cancelled", events.HandlerFunc(m.handleCancelled))
	bus.Subscribe("followups.completed", events.HandlerFunc(m.handleCompleted))
}

func (m *Module) handleCancelled(ctx context.Context, event events.Event) error {
	e, ok := event.(events.FollowUpCancelled)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	if e.ClientEmail == "" {
		return nil
	}

	err := m.sender.SendCancellationNotice(ctx, e.ClientEmail, e.ClientName, e.Title,
		e.ScheduledAt.Format("Monday, January 2 2006 at 15:04"), e.Reason)
	if err != nil {
		m.log.Error("failed to send cancellation notice",
			"follow_up_id", e.FollowUpID.String(),
			"error", err.Error(),
		)
	}
	return err
}

func (m *Module) handleCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.FollowUpCompleted)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	if e.ClientEmail == "" {
		return nil
	}

	err := m.sender.SendOutcomeSummary(ctx, e.ClientEmail, e.ClientName, e.Title, e.Outcome, e.ActionItems)
	if err != nil {
		m.log.Error("failed to send outcome summary",
			"follow_up_id", e.FollowUpID.String(),
			"error", err.Error(),
		)
	}
	return err
}
