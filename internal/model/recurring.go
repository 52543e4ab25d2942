package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/devgenerative/controlefinanciero/internal/schedule"
)

// RecurringTemplate is a recurring obligation. NextRunScheduledAt is the earliest
// occurrence that has no generated transaction yet and only ever moves forward.
type RecurringTemplate struct {
	ID                 uuid.UUID          `json:"id" db:"id"`
	UserID             uuid.UUID          `json:"user_id" db:"user_id"`
	FamilyID           uuid.UUID          `json:"family_id" db:"family_id"`
	Description        string             `json:"description" db:"description"`
	Amount             decimal.Decimal    `json:"amount" db:"amount"`
	Direction          Direction          `json:"direction" db:"direction"`
	Frequency          schedule.Frequency `json:"frequency" db:"frequency"`
	StartDate          time.Time          `json:"start_date" db:"start_date"`
	EndDate            *time.Time         `json:"end_date,omitempty" db:"end_date"`
	DueDay             *int               `json:"due_day,omitempty" db:"due_day"`
	AccountID          uuid.UUID          `json:"account_id" db:"account_id"`
	CategoryID         *uuid.UUID         `json:"category_id,omitempty" db:"category_id"`
	IsActive           bool               `json:"is_active" db:"is_active"`
	LastProcessedAt    *time.Time         `json:"last_processed_at,omitempty" db:"last_processed_at"`
	NextRunScheduledAt time.Time          `json:"next_run_scheduled_at" db:"next_run_scheduled_at"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`

	CategoryName *string `json:"category_name,omitempty" db:"-"`
}

// EndsBefore reports whether the template's end date falls before day.
func (t *RecurringTemplate) EndsBefore(day time.Time) bool {
	return t.EndDate != nil && t.EndDate.Before(day)
}

type CreateRecurringRequest struct {
	Description string             `json:"description" validate:"required"`
	Amount      decimal.Decimal    `json:"amount" validate:"required,gt=0"`
	Direction   Direction          `json:"direction" validate:"required,oneof=INCOME EXPENSE"`
	Frequency   schedule.Frequency `json:"frequency" validate:"required,oneof=WEEKLY MONTHLY YEARLY CUSTOM"`
	StartDate   Date               `json:"start_date" validate:"required"`
	EndDate     *Date              `json:"end_date"`
	DueDay      *int               `json:"due_day" validate:"omitempty,min=1,max=31"`
	AccountID   uuid.UUID          `json:"account_id" validate:"required"`
	CategoryID  *uuid.UUID         `json:"category_id"`
}

type UpdateRecurringRequest struct {
	Description *string             `json:"description"`
	Amount      *decimal.Decimal    `json:"amount"`
	Direction   *Direction          `json:"direction"`
	Frequency   *schedule.Frequency `json:"frequency"`
	EndDate     *Date               `json:"end_date"`
	DueDay      *int                `json:"due_day"`
	AccountID   *uuid.UUID          `json:"account_id"`
	CategoryID  *uuid.UUID          `json:"category_id"`
}

// GenerationReport summarises one Recurring Generator run.
type GenerationReport struct {
	RunAt            time.Time `json:"run_at"`
	Candidates       int       `json:"candidates"`
	Created          int       `json:"created"`
	AlreadyGenerated int       `json:"already_generated"`
	Skipped          int       `json:"skipped"`
	Failed           int       `json:"failed"`
}
