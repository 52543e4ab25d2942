package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/amortization"
	"github.com/devgenerative/controlefinanciero/internal/model"
	"github.com/devgenerative/controlefinanciero/internal/repository"
	"github.com/devgenerative/controlefinanciero/internal/schedule"
)

type DebtService struct {
	debts    DebtStore
	users    UserLookup
	store    TxRunner
	notifier Notifier
	logger   *logrus.Logger
}

func NewDebtService(
	debts DebtStore,
	users UserLookup,
	store TxRunner,
	notifier Notifier,
	logger *logrus.Logger,
) *DebtService {
	return &DebtService{
		debts:    debts,
		users:    users,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *DebtService) CreateDebt(ctx context.Context, scope model.Scope, req model.CreateDebtRequest) (*model.Debt, error) {
	s.logger.WithFields(logrus.Fields{
		"user_id":      scope.UserID,
		"amount":       req.TotalAmount.String(),
		"installments": req.TotalInstallments,
		"method":       req.AmortizationType,
	}).Info("Creating debt")

	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if req.DueDay < 1 || req.DueDay > 31 {
		return nil, fmt.Errorf("%w: due day must be between 1 and 31", ErrInvalidDebtParameters)
	}

	method := req.AmortizationType
	if method == "" {
		method = amortization.MethodSAC
	}

	now := time.Now()
	debt := &model.Debt{
		ID:                  uuid.New(),
		UserID:              scope.UserID,
		FamilyID:            scope.FamilyID,
		Name:                req.Name,
		TotalAmount:         req.TotalAmount.Round(2),
		MonthlyInterestRate: req.MonthlyInterestRate,
		TotalInstallments:   req.TotalInstallments,
		PaidInstallments:    req.PaidInstallments,
		AmortizationType:    method,
		StartDate:           req.StartDate.Time,
		DueDay:              req.DueDay,
		Notes:               req.Notes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := amortization.Validate(debt.AmortizationParams()); err != nil {
		return nil, err
	}

	if err := s.debts.Create(ctx, debt); err != nil {
		s.logger.WithError(err).Error("Failed to create debt")
		return nil, fmt.Errorf("failed to create debt: %w", err)
	}

	s.logger.WithField("debt_id", debt.ID).Info("Debt created")
	return debt, nil
}

func (s *DebtService) ListDebts(ctx context.Context, scope model.Scope) ([]model.Debt, error) {
	debts, err := s.debts.ListByFamily(ctx, scope.FamilyID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list debts")
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	return debts, nil
}

// GetDebt returns the debt with its computed schedule. Nothing here is persisted.
func (s *DebtService) GetDebt(ctx context.Context, scope model.Scope, id uuid.UUID) (*model.DebtDetails, error) {
	debt, err := s.ownedDebt(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	sched, err := amortization.Calculate(debt.AmortizationParams())
	if err != nil {
		s.logger.WithError(err).WithField("debt_id", id).Error("Stored debt has invalid parameters")
		return nil, err
	}

	details := &model.DebtDetails{
		Debt:            *debt,
		RemainingAmount: sched.Totals.RemainingPrincipal,
		Schedule:        sched.Entries,
		Totals:          sched.Totals,
	}
	if next := sched.NextPayment; next != nil {
		details.NextPayment = &model.NextPayment{
			Installment: next.Installment,
			Date:        next.Date,
			Amount:      next.Payment,
		}
	}
	return details, nil
}

// SimulateAnticipation compares keeping the schedule with paying the remaining
// principal today.
func (s *DebtService) SimulateAnticipation(ctx context.Context, scope model.Scope, id uuid.UUID) (*amortization.Anticipation, error) {
	debt, err := s.ownedDebt(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	sched, err := amortization.Calculate(debt.AmortizationParams())
	if err != nil {
		return nil, err
	}

	anticipation := amortization.Anticipate(sched)
	return &anticipation, nil
}

// RegisterPayment records one installment payment: an expense transaction on
// the settlement account, the balance debit, and the paid counter increment
// commit together or not at all.
func (s *DebtService) RegisterPayment(ctx context.Context, scope model.Scope, id uuid.UUID, req model.RegisterPaymentRequest) (*model.Debt, error) {
	s.logger.WithFields(logrus.Fields{
		"debt_id": id,
		"user_id": scope.UserID,
		"amount":  req.Amount.String(),
	}).Info("Registering debt payment")

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	amount := req.Amount.Round(2)
	date := req.Date.Time
	if date.IsZero() {
		date = schedule.CalendarDay(time.Now())
	}

	var updated *model.Debt
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		debt, err := tx.LockDebt(ctx, id)
		if err != nil {
			return err
		}
		if debt.FamilyID != scope.FamilyID {
			return ErrForbidden
		}
		if debt.PaidInstallments >= debt.TotalInstallments {
			return ErrDebtFullyPaid
		}

		account, err := settlementAccount(ctx, tx, scope, req.AccountID)
		if err != nil {
			return err
		}

		notes := "Debt payment"
		label := fmt.Sprintf("%d/%d", debt.PaidInstallments+1, debt.TotalInstallments)
		transaction := &model.Transaction{
			ID:               uuid.New(),
			UserID:           scope.UserID,
			FamilyID:         scope.FamilyID,
			AccountID:        account.ID,
			Description:      fmt.Sprintf("Payment for debt: %s", debt.Name),
			Amount:           amount,
			Direction:        model.DirectionExpense,
			Status:           model.TransactionStatusPaid,
			PaymentMethod:    model.PaymentMethodDebit,
			Date:             date,
			InstallmentLabel: &label,
			Notes:            &notes,
			CreatedAt:        time.Now(),
		}
		if err := tx.CreateTransaction(ctx, transaction); err != nil {
			return err
		}
		if err := tx.UpdateAccountBalance(ctx, account.ID, amount.Neg()); err != nil {
			return err
		}

		updated, err = tx.IncrementPaidInstallments(ctx, id)
		return err
	})
	if err != nil {
		s.logger.WithError(err).WithField("debt_id", id).Error("Failed to register debt payment")
		return nil, fmt.Errorf("failed to register payment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"debt_id": id,
		"paid":    updated.PaidInstallments,
		"total":   updated.TotalInstallments,
	}).Info("Debt payment registered")

	s.notifyPayment(ctx, updated, amount)
	return updated, nil
}

func (s *DebtService) notifyPayment(ctx context.Context, debt *model.Debt, amount decimal.Decimal) {
	user, err := s.users.GetByID(ctx, debt.UserID)
	if err != nil || user.Email == "" {
		return
	}
	go func() {
		if err := s.notifier.SendDebtPaymentNotification(
			user.Email,
			debt.Name,
			debt.PaidInstallments,
			debt.TotalInstallments,
			amount,
		); err != nil {
			s.logger.WithError(err).Warn("Failed to send debt payment email")
		}
	}()
}

func (s *DebtService) ownedDebt(ctx context.Context, scope model.Scope, id uuid.UUID) (*model.Debt, error) {
	debt, err := s.debts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	if debt.FamilyID != scope.FamilyID {
		s.logger.WithFields(logrus.Fields{
			"debt_id": id,
			"user_id": scope.UserID,
		}).Warn("Attempt to access debt of another family")
		return nil, ErrForbidden
	}
	return debt, nil
}

// settlementAccount resolves the account a payment is drawn from: the one the
// caller named, or else the user's first active account.
func settlementAccount(ctx context.Context, tx repository.Tx, scope model.Scope, accountID *uuid.UUID) (*model.Account, error) {
	var (
		account *model.Account
		err     error
	)
	if accountID != nil {
		account, err = tx.GetAccountForUpdate(ctx, *accountID)
	} else {
		account, err = tx.FirstActiveAccount(ctx, scope.UserID)
	}
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrNoSettlementAccount
		}
		return nil, err
	}
	if account.FamilyID != scope.FamilyID {
		return nil, ErrForbidden
	}
	return account, nil
}
