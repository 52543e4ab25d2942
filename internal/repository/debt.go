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

const debtColumns = `id, user_id, family_id, name, total_amount, monthly_interest_rate,
	total_installments, paid_installments, amortization_type, start_date, due_day, notes,
	created_at, updated_at`

type DebtRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewDebtRepository(db *sql.DB, logger *logrus.Logger) *DebtRepository {
	return &DebtRepository{db: db, logger: logger}
}

func scanDebt(row rowScanner) (*model.Debt, error) {
	var debt model.Debt
	err := row.Scan(
		&debt.ID,
		&debt.UserID,
		&debt.FamilyID,
		&debt.Name,
		&debt.TotalAmount,
		&debt.MonthlyInterestRate,
		&debt.TotalInstallments,
		&debt.PaidInstallments,
		&debt.AmortizationType,
		&debt.StartDate,
		&debt.DueDay,
		&debt.Notes,
		&debt.CreatedAt,
		&debt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &debt, nil
}

func (r *DebtRepository) Create(ctx context.Context, debt *model.Debt) error {
	query := `
		INSERT INTO debts (id, user_id, family_id, name, total_amount, monthly_interest_rate,
			total_installments, paid_installments, amortization_type, start_date, due_day, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		debt.ID,
		debt.UserID,
		debt.FamilyID,
		debt.Name,
		debt.TotalAmount,
		debt.MonthlyInterestRate,
		debt.TotalInstallments,
		debt.PaidInstallments,
		debt.AmortizationType,
		debt.StartDate,
		debt.DueDay,
		debt.Notes,
		debt.CreatedAt,
		debt.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "create debt")
	}
	return nil
}

func (r *DebtRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts WHERE id = $1`

	debt, err := scanDebt(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	return debt, nil
}

func (r *DebtRepository) ListByFamily(ctx context.Context, familyID uuid.UUID) ([]model.Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts WHERE family_id = $1 ORDER BY start_date`

	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query debts: %w", err)
	}
	defer rows.Close()

	var debts []model.Debt
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, *debt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debts: %w", err)
	}
	return debts, nil
}

func (t *sqlTx) LockDebt(ctx context.Context, id uuid.UUID) (*model.Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts WHERE id = $1 FOR UPDATE`

	debt, err := scanDebt(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock debt: %w", err)
	}
	return debt, nil
}

// IncrementPaidInstallments advances the paid counter by one, never past the
// installment total, and returns the updated debt.
func (t *sqlTx) IncrementPaidInstallments(ctx context.Context, id uuid.UUID) (*model.Debt, error) {
	query := `
		UPDATE debts
		SET paid_installments = paid_installments + 1,
			updated_at = NOW()
		WHERE id = $1 AND paid_installments < total_installments
		RETURNING ` + debtColumns

	debt, err := scanDebt(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("debt %s has no pending installment: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to increment paid installments: %w", err)
	}
	return debt, nil
}
