package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
)

const templateColumns = `r.id, r.user_id, r.family_id, r.description, r.amount, r.direction,
	r.frequency, r.start_date, r.end_date, r.due_day, r.account_id, r.category_id,
	r.is_active, r.last_processed_at, r.next_run_scheduled_at, r.created_at, r.updated_at,
	c.name`

const templateFrom = `FROM recurring_templates r LEFT JOIN categories c ON c.id = r.category_id`

type RecurringRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewRecurringRepository(db *sql.DB, logger *logrus.Logger) *RecurringRepository {
	return &RecurringRepository{db: db, logger: logger}
}

func scanTemplate(row rowScanner) (*model.RecurringTemplate, error) {
	var t model.RecurringTemplate
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.FamilyID,
		&t.Description,
		&t.Amount,
		&t.Direction,
		&t.Frequency,
		&t.StartDate,
		&t.EndDate,
		&t.DueDay,
		&t.AccountID,
		&t.CategoryID,
		&t.IsActive,
		&t.LastProcessedAt,
		&t.NextRunScheduledAt,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CategoryName,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *RecurringRepository) list(ctx context.Context, query string, args ...any) ([]model.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring templates: %w", err)
	}
	defer rows.Close()

	var templates []model.RecurringTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring template: %w", err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recurring templates: %w", err)
	}
	return templates, nil
}

func (r *RecurringRepository) Create(ctx context.Context, t *model.RecurringTemplate) error {
	query := `
		INSERT INTO recurring_templates (id, user_id, family_id, description, amount, direction,
			frequency, start_date, end_date, due_day, account_id, category_id,
			is_active, last_processed_at, next_run_scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		t.ID,
		t.UserID,
		t.FamilyID,
		t.Description,
		t.Amount,
		t.Direction,
		t.Frequency,
		t.StartDate,
		t.EndDate,
		t.DueDay,
		t.AccountID,
		t.CategoryID,
		t.IsActive,
		t.LastProcessedAt,
		t.NextRunScheduledAt,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "create recurring template")
	}
	return nil
}

func (r *RecurringRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RecurringTemplate, error) {
	query := `SELECT ` + templateColumns + ` ` + templateFrom + ` WHERE r.id = $1`

	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recurring template: %w", err)
	}
	return t, nil
}

func (r *RecurringRepository) ListByFamily(ctx context.Context, familyID uuid.UUID, activeOnly bool) ([]model.RecurringTemplate, error) {
	query := `SELECT ` + templateColumns + ` ` + templateFrom + `
		WHERE r.family_id = $1 AND ($2 = FALSE OR r.is_active = TRUE)
		ORDER BY r.next_run_scheduled_at`

	return r.list(ctx, query, familyID, activeOnly)
}

// Update writes the user-editable fields. The schedule fields are owned by the
// generator and are not touched here.
func (r *RecurringRepository) Update(ctx context.Context, t *model.RecurringTemplate) error {
	query := `
		UPDATE recurring_templates
		SET description = $1,
			amount = $2,
			direction = $3,
			frequency = $4,
			end_date = $5,
			due_day = $6,
			account_id = $7,
			category_id = $8,
			is_active = $9,
			updated_at = NOW()
		WHERE id = $10
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		t.Description,
		t.Amount,
		t.Direction,
		t.Frequency,
		t.EndDate,
		t.DueDay,
		t.AccountID,
		t.CategoryID,
		t.IsActive,
		t.ID,
	)
	if err != nil {
		return mapWriteError(err, "update recurring template")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDue selects active templates scheduled on or before tomorrow whose end
// date, if any, has not passed.
func (r *RecurringRepository) ListDue(ctx context.Context, today, tomorrow time.Time) ([]model.RecurringTemplate, error) {
	query := `SELECT ` + templateColumns + ` ` + templateFrom + `
		WHERE r.is_active = TRUE
			AND r.next_run_scheduled_at <= $1
			AND (r.end_date IS NULL OR r.end_date >= $2)
		ORDER BY r.next_run_scheduled_at`

	return r.list(ctx, query, tomorrow, today)
}

// ListActiveInWindow selects the family's active templates whose effective
// window overlaps [start, end].
func (r *RecurringRepository) ListActiveInWindow(ctx context.Context, familyID uuid.UUID, start, end time.Time) ([]model.RecurringTemplate, error) {
	query := `SELECT ` + templateColumns + ` ` + templateFrom + `
		WHERE r.family_id = $1
			AND r.is_active = TRUE
			AND r.start_date <= $2
			AND (r.end_date IS NULL OR r.end_date >= $3)
		ORDER BY r.created_at`

	return r.list(ctx, query, familyID, end, start)
}

func (t *sqlTx) LockTemplate(ctx context.Context, id uuid.UUID) (*model.RecurringTemplate, error) {
	query := `SELECT ` + templateColumns + ` ` + templateFrom + ` WHERE r.id = $1 FOR UPDATE OF r`

	tmpl, err := scanTemplate(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock recurring template: %w", err)
	}
	return tmpl, nil
}

func (t *sqlTx) AdvanceTemplate(ctx context.Context, id uuid.UUID, nextRun, processedAt time.Time) error {
	query := `
		UPDATE recurring_templates
		SET next_run_scheduled_at = $1,
			last_processed_at = $2,
			updated_at = NOW()
		WHERE id = $3 AND next_run_scheduled_at < $1
	`

	result, err := t.tx.ExecContext(ctx, query, nextRun, processedAt, id)
	if err != nil {
		return fmt.Errorf("failed to advance recurring template: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("recurring template %s not advanced to %s: %w", id, nextRun.Format(model.DateLayout), ErrNotFound)
	}
	return nil
}
