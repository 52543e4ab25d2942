package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
	"github.com/devgenerative/controlefinanciero/internal/repository"
	"github.com/devgenerative/controlefinanciero/internal/schedule"
)

// anticipationDiscount is the per-month discount offered for paying a future
// installment early.
var anticipationDiscount = decimal.RequireFromString("0.005")

type InstallmentService struct {
	plans        InstallmentStore
	transactions TransactionReader
	store        TxRunner
	logger       *logrus.Logger
}

func NewInstallmentService(
	plans InstallmentStore,
	transactions TransactionReader,
	store TxRunner,
	logger *logrus.Logger,
) *InstallmentService {
	return &InstallmentService{
		plans:        plans,
		transactions: transactions,
		store:        store,
		logger:       logger,
	}
}

// SplitIntoInstallments replaces a credit purchase with a plan header and n
// monthly child transactions, all written in one atomic unit.
func (s *InstallmentService) SplitIntoInstallments(ctx context.Context, purchase model.Purchase, n int) (*model.InstallmentPlanDetails, error) {
	var details *model.InstallmentPlanDetails
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		details, err = s.split(ctx, tx, purchase, n)
		return err
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to split purchase into installments")
		return nil, fmt.Errorf("failed to split purchase: %w", err)
	}
	return details, nil
}

func (s *InstallmentService) split(ctx context.Context, tx repository.Tx, purchase model.Purchase, n int) (*model.InstallmentPlanDetails, error) {
	plan, children, err := buildInstallmentPlan(purchase, n, time.Now())
	if err != nil {
		return nil, err
	}

	if err := tx.CreateInstallmentPlan(ctx, plan); err != nil {
		return nil, err
	}
	for i := range children {
		if err := tx.CreateTransaction(ctx, &children[i]); err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"installment_id": plan.ID,
		"card_id":        plan.CardID,
		"total":          plan.TotalAmount.String(),
		"installments":   n,
	}).Info("Purchase split into installments")
	return &model.InstallmentPlanDetails{InstallmentPlan: *plan, Transactions: children}, nil
}

// buildInstallmentPlan computes the header and children without touching
// storage. Every installment is total/n truncated to cents; the last one also
// carries the remainder so the children always sum to the total.
func buildInstallmentPlan(purchase model.Purchase, n int, now time.Time) (*model.InstallmentPlan, []model.Transaction, error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("%w: installments must be at least 1", ErrInvalidInput)
	}
	total := purchase.TotalAmount.Round(2)
	if !total.IsPositive() {
		return nil, nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	plan := &model.InstallmentPlan{
		ID:                uuid.New(),
		UserID:            purchase.UserID,
		FamilyID:          purchase.FamilyID,
		CardID:            purchase.CardID,
		Description:       purchase.Description,
		TotalAmount:       total,
		TotalInstallments: n,
		StartDate:         purchase.Date,
		CreatedAt:         now,
	}

	value := total.Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	last := total.Sub(value.Mul(decimal.NewFromInt(int64(n - 1))))

	children := make([]model.Transaction, n)
	for i := 1; i <= n; i++ {
		amount := value
		if i == n {
			amount = last
		}
		planID, cardID := plan.ID, purchase.CardID
		label := fmt.Sprintf("%d/%d", i, n)
		children[i-1] = model.Transaction{
			ID:               uuid.New(),
			UserID:           purchase.UserID,
			FamilyID:         purchase.FamilyID,
			AccountID:        purchase.AccountID,
			CategoryID:       purchase.CategoryID,
			CardID:           &cardID,
			Description:      fmt.Sprintf("%s (%s)", purchase.Description, label),
			Amount:           amount,
			Direction:        model.DirectionExpense,
			Status:           model.TransactionStatusPaid,
			PaymentMethod:    model.PaymentMethodCredit,
			Date:             schedule.AddMonthsOnDay(purchase.Date, i-1, purchase.Date.Day()),
			InstallmentID:    &planID,
			InstallmentLabel: &label,
			Notes:            purchase.Notes,
			CreatedAt:        now,
		}
	}
	return plan, children, nil
}

func (s *InstallmentService) ListPlans(ctx context.Context, scope model.Scope) ([]model.InstallmentPlan, error) {
	plans, err := s.plans.ListByFamily(ctx, scope.FamilyID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list installment plans")
		return nil, fmt.Errorf("failed to list installment plans: %w", err)
	}
	return plans, nil
}

func (s *InstallmentService) GetPlan(ctx context.Context, scope model.Scope, id uuid.UUID) (*model.InstallmentPlanDetails, error) {
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get installment plan: %w", err)
	}
	if plan.FamilyID != scope.FamilyID {
		return nil, ErrForbidden
	}

	children, err := s.transactions.ListByInstallment(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("installment_id", id).Error("Failed to load installments")
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}
	return &model.InstallmentPlanDetails{InstallmentPlan: *plan, Transactions: children}, nil
}

// SimulateAnticipation prices paying every installment dated after now today,
// discounting each by 0.5% per whole calendar month it is brought forward.
func (s *InstallmentService) SimulateAnticipation(ctx context.Context, scope model.Scope, id uuid.UUID, now time.Time) (*model.InstallmentAnticipation, error) {
	details, err := s.GetPlan(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return anticipateInstallments(details.Transactions, now), nil
}

func anticipateInstallments(children []model.Transaction, now time.Time) *model.InstallmentAnticipation {
	result := &model.InstallmentAnticipation{DiscountRate: anticipationDiscount}

	one := decimal.NewFromInt(1)
	for _, t := range children {
		if !t.Date.After(now) {
			continue
		}
		result.RemainingInstallments++
		result.OriginalTotal = result.OriginalTotal.Add(t.Amount)

		months := schedule.MonthsBetween(now, t.Date)
		factor := one.Sub(anticipationDiscount.Mul(decimal.NewFromInt(int64(months))))
		if factor.IsNegative() {
			factor = decimal.Zero
		}
		result.DiscountedTotal = result.DiscountedTotal.Add(t.Amount.Mul(factor))
	}

	result.DiscountedTotal = result.DiscountedTotal.Round(2)
	result.Savings = result.OriginalTotal.Sub(result.DiscountedTotal).Round(2)
	return result
}
