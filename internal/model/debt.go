package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/devgenerative/controlefinanciero/internal/amortization"
)

// Debt is a loan or financing. The remaining balance is never stored; it is
// derived from the schedule and PaidInstallments.
type Debt struct {
	ID                  uuid.UUID           `json:"id" db:"id"`
	UserID              uuid.UUID           `json:"user_id" db:"user_id"`
	FamilyID            uuid.UUID           `json:"family_id" db:"family_id"`
	Name                string              `json:"name" db:"name"`
	TotalAmount         decimal.Decimal     `json:"total_amount" db:"total_amount"`
	MonthlyInterestRate decimal.Decimal     `json:"monthly_interest_rate" db:"monthly_interest_rate"` // percent, 1.5 = 1.5% a month
	TotalInstallments   int                 `json:"total_installments" db:"total_installments"`
	PaidInstallments    int                 `json:"paid_installments" db:"paid_installments"`
	AmortizationType    amortization.Method `json:"amortization_type" db:"amortization_type"`
	StartDate           time.Time           `json:"start_date" db:"start_date"`
	DueDay              int                 `json:"due_day" db:"due_day"`
	Notes               *string             `json:"notes,omitempty" db:"notes"`
	CreatedAt           time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at" db:"updated_at"`
}

// AmortizationParams maps the stored debt onto calculator input.
func (d *Debt) AmortizationParams() amortization.Params {
	return amortization.Params{
		Principal:    d.TotalAmount,
		MonthlyRate:  amortization.RateFromPercent(d.MonthlyInterestRate),
		Installments: d.TotalInstallments,
		Paid:         d.PaidInstallments,
		Method:       d.AmortizationType,
		StartDate:    d.StartDate,
		DueDay:       d.DueDay,
	}
}

type CreateDebtRequest struct {
	Name                string              `json:"name" validate:"required"`
	TotalAmount         decimal.Decimal     `json:"total_amount" validate:"required,gt=0"`
	MonthlyInterestRate decimal.Decimal     `json:"interest_rate" validate:"gte=0"`
	TotalInstallments   int                 `json:"total_installments" validate:"required,gte=1"`
	PaidInstallments    int                 `json:"paid_installments" validate:"gte=0"`
	AmortizationType    amortization.Method `json:"amortization_type" validate:"omitempty,oneof=SAC PRICE"`
	StartDate           Date                `json:"start_date" validate:"required"`
	DueDay              int                 `json:"due_day" validate:"required,min=1,max=31"`
	Notes               *string             `json:"notes"`
}

type RegisterPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Date      Date            `json:"date" validate:"required"`
	AccountID *uuid.UUID      `json:"account_id"`
}

type NextPayment struct {
	Installment int             `json:"installment"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
}

// DebtDetails is the schedule query result for one debt.
type DebtDetails struct {
	Debt
	RemainingAmount decimal.Decimal      `json:"remaining_amount"`
	NextPayment     *NextPayment         `json:"next_payment"`
	Schedule        []amortization.Entry `json:"schedule"`
	Totals          amortization.Totals  `json:"totals"`
}
