package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"followup_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	followUpNotFoundMsg = "follow-up not found"
	clientNotFoundMsg   = "client not found"

	storeUnavailableMsg = "datastore unavailable"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so every query
// method works inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides database operations for follow-ups. A zero pool
// means the repository is transaction-scoped and must not be retried.
type Repository struct {
	pool    *pgxpool.Pool
	q       querier
	timeout time.Duration
	retries int
}

// Config carries the operation timeout and retry budget for the store.
type Config interface {
	GetStoreTimeout() time.Duration
	GetStoreRetryAttempts() int
}

// New creates a new follow-ups repository backed by a pgx pool.
func New(pool *pgxpool.Pool, cfg Config) *Repository {
	retries := cfg.GetStoreRetryAttempts()
	if retries < 1 {
		retries = 1
	}
	return &Repository{
		pool:    pool,
		q:       pool,
		timeout: cfg.GetStoreTimeout(),
		retries: retries,
	}
}

var _ Store = (*Repository)(nil)

// isTransient reports whether an error is a connectivity failure worth
// retrying. Constraint violations and other business errors are not.
func isTransient(err error) bool {
	if pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") { // connection exceptions
			return true
		}
		switch pgErr.Code {
		case "53300", "57P01", "57P02", "57P03":
			return true
		}
	}
	return false
}

// run executes op with the configured timeout, retrying transient
// failures up to the retry budget. Exhausted retries surface as an
// unavailability error so the HTTP layer answers 503 instead of 500.
func (r *Repository) run(ctx context.Context, name string, op func(context.Context) error) error {
	if r.pool == nil {
		// Transaction-scoped: the enclosing InTx owns timeout and retry.
		return op(ctx)
	}

	var lastErr error
	for attempt := 1; attempt <= r.retries; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := op(opCtx)
		cancel()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}

	return apperr.Wrap(apperr.KindUnavailable, storeUnavailableMsg, lastErr).
		WithDetails(map[string]string{"operation": name, "cause": lastErr.Error()})
}

// InTx runs fn against a transaction-scoped Store. An advisory lock on
// the client serializes concurrent bookings so two requests cannot both
// pass conflict detection for the same client. The whole transaction is
// retried on transient failure; fn must therefore be side-effect free
// outside the store.
func (r *Repository) InTx(ctx context.Context, clientID uuid.UUID, fn func(Store) error) error {
	if r.pool == nil {
		return fn(r)
	}

	return r.run(ctx, "transaction", func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if clientID != uuid.Nil {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, clientID); err != nil {
				return fmt.Errorf("failed to acquire client lock: %w", err)
			}
		}

		scoped := &Repository{q: tx, timeout: r.timeout, retries: r.retries}
		if err := fn(scoped); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

const followUpColumns = `id, organization_id, client_id, service_id, scheduled_at, timezone, duration_minutes,
	title, notes, outcome, action_items, priority, category, status,
	recurrence_pattern, recurrence_interval, recurrence_unit, recurrence_end_at,
	parent_follow_up_id, created_at, updated_at`

func scanFollowUp(row pgx.Row) (*FollowUp, error) {
	var f FollowUp
	err := row.Scan(
		&f.ID, &f.OrganizationID, &f.ClientID, &f.ServiceID, &f.ScheduledAt, &f.Timezone, &f.DurationMinutes,
		&f.Title, &f.Notes, &f.Outcome, &f.ActionItems, &f.Priority, &f.Category, &f.Status,
		&f.RecurrencePattern, &f.RecurrenceInterval, &f.RecurrenceUnit, &f.RecurrenceEndAt,
		&f.ParentFollowUpID, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFollowUp retrieves a follow-up by ID within an organization.
func (r *Repository) GetFollowUp(ctx context.Context, orgID, id uuid.UUID) (*FollowUp, error) {
	var result *FollowUp
	err := r.run(ctx, "get follow-up", func(ctx context.Context) error {
		query := `SELECT ` + followUpColumns + ` FROM follow_ups WHERE id = $1 AND organization_id = $2`
		f, err := scanFollowUp(r.q.QueryRow(ctx, query, id, orgID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound(followUpNotFoundMsg)
			}
			return fmt.Errorf("failed to get follow-up: %w", err)
		}
		result = f
		return nil
	})
	return result, err
}

// CreateFollowUp inserts a new follow-up.
func (r *Repository) CreateFollowUp(ctx context.Context, f *FollowUp) error {
	return r.run(ctx, "create follow-up", func(ctx context.Context) error {
		query := `
			INSERT INTO follow_ups (
				id, organization_id, client_id, service_id, scheduled_at, timezone, duration_minutes,
				title, notes, outcome, action_items, priority, category, status,
				recurrence_pattern, recurrence_interval, recurrence_unit, recurrence_end_at,
				parent_follow_up_id, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
			)`

		_, err := r.q.Exec(ctx, query,
			f.ID, f.OrganizationID, f.ClientID, f.ServiceID, f.ScheduledAt, f.Timezone, f.DurationMinutes,
			f.Title, f.Notes, f.Outcome, f.ActionItems, f.Priority, f.Category, f.Status,
			f.RecurrencePattern, f.RecurrenceInterval, f.RecurrenceUnit, f.RecurrenceEndAt,
			f.ParentFollowUpID, f.CreatedAt, f.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create follow-up: %w", err)
		}
		return nil
	})
}

// UpdateFollowUp writes all mutable fields of an existing follow-up.
func (r *Repository) UpdateFollowUp(ctx context.Context, f *FollowUp) error {
	return r.run(ctx, "update follow-up", func(ctx context.Context) error {
		query := `
			UPDATE follow_ups SET
				scheduled_at = $2,
				timezone = $3,
				duration_minutes = $4,
				title = $5,
				notes = $6,
				outcome = $7,
				action_items = $8,
				priority = $9,
				category = $10,
				status = $11,
				updated_at = $12
			WHERE id = $1 AND organization_id = $13`

		result, err := r.q.Exec(ctx, query,
			f.ID, f.ScheduledAt, f.Timezone, f.DurationMinutes, f.Title, f.Notes,
			f.Outcome, f.ActionItems, f.Priority, f.Category, f.Status, f.UpdatedAt,
			f.OrganizationID,
		)
		if err != nil {
			return fmt.Errorf("failed to update follow-up: %w", err)
		}
		if result.RowsAffected() == 0 {
			return apperr.NotFound(followUpNotFoundMsg)
		}
		return nil
	})
}

// List retrieves follow-ups with optional filtering and pagination.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var result *ListResult
	err := r.run(ctx, "list follow-ups", func(ctx context.Context) error {
		baseQuery := `FROM follow_ups WHERE organization_id = $1`
		args := []interface{}{params.OrganizationID}
		argIndex := 2

		addFilter(&baseQuery, &args, &argIndex, params.ClientID != nil, " AND client_id = $%d", derefUUID(params.ClientID))
		addFilter(&baseQuery, &args, &argIndex, params.Status != nil, " AND status = $%d", derefString(params.Status))
		addFilter(&baseQuery, &args, &argIndex, params.Priority != nil, " AND priority = $%d", derefString(params.Priority))
		addFilter(&baseQuery, &args, &argIndex, params.Category != nil, " AND category = $%d", derefString(params.Category))
		addFilter(&baseQuery, &args, &argIndex, params.From != nil, " AND scheduled_at >= $%d", derefTime(params.From))
		addFilter(&baseQuery, &args, &argIndex, params.To != nil, " AND scheduled_at < $%d", derefTime(params.To))

		var total int
		countQuery := "SELECT COUNT(*) " + baseQuery
		if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("failed to count follow-ups: %w", err)
		}

		offset := (params.Page - 1) * params.PageSize
		selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY scheduled_at ASC LIMIT $%d OFFSET $%d`,
			followUpColumns, baseQuery, argIndex, argIndex+1)
		args = append(args, params.PageSize, offset)

		rows, err := r.q.Query(ctx, selectQuery, args...)
		if err != nil {
			return fmt.Errorf("failed to list follow-ups: %w", err)
		}
		defer rows.Close()

		items, err := collectFollowUps(rows)
		if err != nil {
			return err
		}

		result = &ListResult{FollowUps: items, TotalCount: total}
		return nil
	})
	return result, err
}

// ListActiveInRange retrieves SCHEDULED and CONFIRMED follow-ups for a
// client whose occupied window overlaps [start, end). Overlap test: an
// entry conflicts if it starts before the window ends AND ends after
// the window starts.
func (r *Repository) ListActiveInRange(ctx context.Context, orgID, clientID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]FollowUp, error) {
	var result []FollowUp
	err := r.run(ctx, "list active follow-ups", func(ctx context.Context) error {
		query := `SELECT ` + followUpColumns + `
			FROM follow_ups
			WHERE organization_id = $1 AND client_id = $2
			AND status IN ('SCHEDULED', 'CONFIRMED')
			AND scheduled_at < $4
			AND scheduled_at + make_interval(mins => duration_minutes) > $3
			AND id != $5
			ORDER BY scheduled_at ASC`

		rows, err := r.q.Query(ctx, query, orgID, clientID, start, end, excludeID)
		if err != nil {
			return fmt.Errorf("failed to list active follow-ups: %w", err)
		}
		defer rows.Close()

		items, err := collectFollowUps(rows)
		if err != nil {
			return err
		}
		result = items
		return nil
	})
	return result, err
}

// ListChildren retrieves occurrences generated from a recurring parent.
func (r *Repository) ListChildren(ctx context.Context, orgID, parentID uuid.UUID) ([]FollowUp, error) {
	var result []FollowUp
	err := r.run(ctx, "list child follow-ups", func(ctx context.Context) error {
		query := `SELECT ` + followUpColumns + `
			FROM follow_ups
			WHERE organization_id = $1 AND parent_follow_up_id = $2
			ORDER BY scheduled_at ASC`

		rows, err := r.q.Query(ctx, query, orgID, parentID)
		if err != nil {
			return fmt.Errorf("failed to list child follow-ups: %w", err)
		}
		defer rows.Close()

		items, err := collectFollowUps(rows)
		if err != nil {
			return err
		}
		result = items
		return nil
	})
	return result, err
}

// CreateNotification inserts a scheduled notification.
func (r *Repository) CreateNotification(ctx context.Context, n *Notification) error {
	return r.run(ctx, "create notification", func(ctx context.Context) error {
		query := `
			INSERT INTO follow_up_notifications (
				id, organization_id, follow_up_id, type, channel, recipient,
				scheduled_at, content, status, error_message, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

		_, err := r.q.Exec(ctx, query,
			n.ID, n.OrganizationID, n.FollowUpID, n.Type, n.Channel, n.Recipient,
			n.ScheduledAt, n.Content, n.Status, n.ErrorMessage, n.CreatedAt, n.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
		return nil
	})
}

// ListNotifications retrieves all notifications for a follow-up.
func (r *Repository) ListNotifications(ctx context.Context, orgID, followUpID uuid.UUID) ([]Notification, error) {
	var result []Notification
	err := r.run(ctx, "list notifications", func(ctx context.Context) error {
		query := `SELECT id, organization_id, follow_up_id, type, channel, recipient,
			scheduled_at, content, status, error_message, created_at, updated_at
			FROM follow_up_notifications
			WHERE organization_id = $1 AND follow_up_id = $2
			ORDER BY scheduled_at ASC`

		rows, err := r.q.Query(ctx, query, orgID, followUpID)
		if err != nil {
			return fmt.Errorf("failed to list notifications: %w", err)
		}
		defer rows.Close()

		var items []Notification
		for rows.Next() {
			var n Notification
			if err := rows.Scan(
				&n.ID, &n.OrganizationID, &n.FollowUpID, &n.Type, &n.Channel, &n.Recipient,
				&n.ScheduledAt, &n.Content, &n.Status, &n.ErrorMessage, &n.CreatedAt, &n.UpdatedAt,
			); err != nil {
				return fmt.Errorf("failed to scan notification: %w", err)
			}
			items = append(items, n)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate notifications: %w", err)
		}
		result = items
		return nil
	})
	return result, err
}

// FailPendingNotifications marks every PENDING notification of a
// follow-up as FAILED with the given reason.
func (r *Repository) FailPendingNotifications(ctx context.Context, orgID, followUpID uuid.UUID, reason string) (int64, error) {
	var affected int64
	err := r.run(ctx, "fail pending notifications", func(ctx context.Context) error {
		query := `UPDATE follow_up_notifications
			SET status = 'FAILED', error_message = $3, updated_at = $4
			WHERE organization_id = $1 AND follow_up_id = $2 AND status = 'PENDING'`

		result, err := r.q.Exec(ctx, query, orgID, followUpID, reason, time.Now())
		if err != nil {
			return fmt.Errorf("failed to fail pending notifications: %w", err)
		}
		affected = result.RowsAffected()
		return nil
	})
	return affected, err
}

// GetClient retrieves the client record the scheduler needs for
// recipient resolution and timezone defaults.
func (r *Repository) GetClient(ctx context.Context, orgID, clientID uuid.UUID) (*Client, error) {
	var result *Client
	err := r.run(ctx, "get client", func(ctx context.Context) error {
		query := `SELECT id, organization_id, first_name, last_name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(timezone, '')
			FROM clients WHERE id = $1 AND organization_id = $2`

		var c Client
		err := r.q.QueryRow(ctx, query, clientID, orgID).Scan(
			&c.ID, &c.OrganizationID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Timezone,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound(clientNotFoundMsg)
			}
			return fmt.Errorf("failed to get client: %w", err)
		}
		result = &c
		return nil
	})
	return result, err
}

func collectFollowUps(rows pgx.Rows) ([]FollowUp, error) {
	var items []FollowUp
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan follow-up: %w", err)
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follow-ups: %w", err)
	}
	return items, nil
}

func addFilter(query *string, args *[]interface{}, argIndex *int, condition bool, clause string, value interface{}) {
	if !condition {
		return
	}
	*query += fmt.Sprintf(clause, *argIndex)
	*args = append(*args, value)
	*argIndex++
}

func derefUUID(v *uuid.UUID) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func derefString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func derefTime(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
