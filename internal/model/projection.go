package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProjectionSource string

const (
	SourceReal      ProjectionSource = "REAL"
	SourceProjected ProjectionSource = "PROJECTED"
)

// StatusProjected marks virtual occurrences, which have no transaction status.
const StatusProjected TransactionStatus = "PROJECTED"

type ProjectionEntry struct {
	Date                time.Time         `json:"date"`
	Description         string            `json:"description"`
	Amount              decimal.Decimal   `json:"amount"`
	Direction           Direction         `json:"direction"`
	Source              ProjectionSource  `json:"source"`
	Status              TransactionStatus `json:"status"`
	CategoryName        *string           `json:"category_name,omitempty"`
	RecurringTemplateID *uuid.UUID        `json:"recurring_template_id,omitempty"`
	RunningBalance      decimal.Decimal   `json:"running_balance"`
}

type ProjectionSummary struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	FinalBalance  decimal.Decimal `json:"final_balance"`
}

type Projection struct {
	Start          time.Time         `json:"start"`
	End            time.Time         `json:"end"`
	InitialBalance decimal.Decimal   `json:"initial_balance"`
	Projections    []ProjectionEntry `json:"projections"`
	Summary        ProjectionSummary `json:"summary"`
}
