package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
)

const installmentColumns = `id, user_id, family_id, card_id, description, total_amount,
	total_installments, start_date, created_at`

type InstallmentRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewInstallmentRepository(db *sql.DB, logger *logrus.Logger) *InstallmentRepository {
	return &InstallmentRepository{db: db, logger: logger}
}

func scanInstallmentPlan(row rowScanner) (*model.InstallmentPlan, error) {
	var plan model.InstallmentPlan
	err := row.Scan(
		&plan.ID,
		&plan.UserID,
		&plan.FamilyID,
		&plan.CardID,
		&plan.Description,
		&plan.TotalAmount,
		&plan.TotalInstallments,
		&plan.StartDate,
		&plan.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *InstallmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.InstallmentPlan, error) {
	query := `SELECT ` + installmentColumns + ` FROM installment_plans WHERE id = $1`

	plan, err := scanInstallmentPlan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get installment plan: %w", err)
	}
	return plan, nil
}

// ListByFamily returns the family's plans, newest purchase first.
func (r *InstallmentRepository) ListByFamily(ctx context.Context, familyID uuid.UUID) ([]model.InstallmentPlan, error) {
	query := `SELECT ` + installmentColumns + ` FROM installment_plans
		WHERE family_id = $1
		ORDER BY start_date DESC`

	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query installment plans: %w", err)
	}
	defer rows.Close()

	var plans []model.InstallmentPlan
	for rows.Next() {
		plan, err := scanInstallmentPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate installment plans: %w", err)
	}
	return plans, nil
}

func (t *sqlTx) CreateInstallmentPlan(ctx context.Context, plan *model.InstallmentPlan) error {
	query := `
		INSERT INTO installment_plans (id, user_id, family_id, card_id, description, total_amount,
			total_installments, start_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := t.tx.ExecContext(
		ctx,
		query,
		plan.ID,
		plan.UserID,
		plan.FamilyID,
		plan.CardID,
		plan.Description,
		plan.TotalAmount,
		plan.TotalInstallments,
		plan.StartDate,
		plan.CreatedAt,
	)
	if err != nil {
		return mapWriteError(err, "create installment plan")
	}
	return nil
}
