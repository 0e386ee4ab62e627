// Package followups provides the follow-up scheduling domain module.
package followups

import (
	"followup_backend/internal/events"
	"followup_backend/internal/followups/handler"
	"followup_backend/internal/followups/repository"
	"followup_backend/internal/followups/service"
	apphttp "followup_backend/internal/http"
	"followup_backend/internal/scheduler"
	"followup_backend/platform/config"
	"followup_backend/platform/logger"
	"followup_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig combines the config interfaces the module needs.
type ModuleConfig interface {
	config.StoreConfig
	config.SchedulingConfig
}

// Module represents the follow-ups domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new follow-ups module with all dependencies wired.
// reminderScheduler may be nil when no task queue is configured.
func NewModule(pool *pgxpool.Pool, cfg ModuleConfig, val *validator.Validator, eventBus events.Bus, reminderScheduler scheduler.ReminderScheduler, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool, cfg)
	svc, err := service.New(repo, cfg, eventBus, reminderScheduler, log)
	if err != nil {
		return nil, err
	}
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}, nil
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "followups"
}

// RegisterRoutes registers the module's routes under /api/v1/follow-ups
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	followUps := ctx.Protected.Group("/follow-ups")
	m.handler.RegisterRoutes(followUps)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
