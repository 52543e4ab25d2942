package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentPlan is the header of a credit purchase split into monthly
// installments. It exists together with all of its child transactions or not at all.
type InstallmentPlan struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	UserID            uuid.UUID       `json:"user_id" db:"user_id"`
	FamilyID          uuid.UUID       `json:"family_id" db:"family_id"`
	CardID            uuid.UUID       `json:"card_id" db:"card_id"`
	Description       string          `json:"description" db:"description"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	TotalInstallments int             `json:"total_installments" db:"total_installments"`
	StartDate         time.Time       `json:"start_date" db:"start_date"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

type InstallmentPlanDetails struct {
	InstallmentPlan
	Transactions []Transaction `json:"transactions"`
}

// Purchase is a credit purchase about to be split.
type Purchase struct {
	UserID      uuid.UUID
	FamilyID    uuid.UUID
	Description string
	TotalAmount decimal.Decimal
	Date        time.Time
	CardID      uuid.UUID
	AccountID   uuid.UUID
	CategoryID  *uuid.UUID
	Notes       *string
}

type InstallmentAnticipation struct {
	OriginalTotal         decimal.Decimal `json:"original_total"`
	RemainingInstallments int             `json:"remaining_installments"`
	DiscountRate          decimal.Decimal `json:"discount_rate"` // per month, fraction
	DiscountedTotal       decimal.Decimal `json:"discounted_total"`
	Savings               decimal.Decimal `json:"savings"`
}
