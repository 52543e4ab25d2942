// Package amortization computes debt payment schedules under the SAC (constant
// amortization) and PRICE (constant payment) methods.
package amortization

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/devgenerative/controlefinanciero/internal/schedule"
)

type Method string

const (
	MethodSAC   Method = "SAC"
	MethodPrice Method = "PRICE"
)

func (m Method) Valid() bool {
	return m == MethodSAC || m == MethodPrice
}

type Status string

const (
	StatusPaid    Status = "PAID"
	StatusPending Status = "PENDING"
)

var ErrInvalidDebtParameters = errors.New("invalid debt parameters")

var hundred = decimal.NewFromInt(100)

// Params describes a debt. MonthlyRate is a fraction (0.01 for 1% a month).
type Params struct {
	Principal    decimal.Decimal
	MonthlyRate  decimal.Decimal
	Installments int
	Paid         int
	Method       Method
	StartDate    time.Time
	DueDay       int
}

// RateFromPercent converts a stored percentage (1.5) into the fraction Params expects.
func RateFromPercent(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(hundred)
}

type Entry struct {
	Installment      int             `json:"installment"`
	Date             time.Time       `json:"date"`
	Payment          decimal.Decimal `json:"payment"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	RemainingBalance decimal.Decimal `json:"balance"`
	Status           Status          `json:"status"`
}

type Totals struct {
	TotalPaid          decimal.Decimal `json:"total_paid"`
	TotalInterestPaid  decimal.Decimal `json:"total_interest_paid"`
	RemainingPrincipal decimal.Decimal `json:"remaining_principal"`
	RemainingInterest  decimal.Decimal `json:"remaining_interest"`
}

type Schedule struct {
	Entries     []Entry `json:"schedule"`
	Totals      Totals  `json:"totals"`
	NextPayment *Entry  `json:"next_payment"`
}

// PendingCount is the number of installments not yet paid.
func (s *Schedule) PendingCount() int {
	n := 0
	for _, e := range s.Entries {
		if e.Status == StatusPending {
			n++
		}
	}
	return n
}

// Validate checks the parameters before any schedule is computed.
func Validate(p Params) error {
	switch {
	case p.Installments <= 0:
		return fmt.Errorf("%w: installments must be at least 1", ErrInvalidDebtParameters)
	case p.Principal.IsNegative():
		return fmt.Errorf("%w: principal must not be negative", ErrInvalidDebtParameters)
	case p.MonthlyRate.IsNegative():
		return fmt.Errorf("%w: interest rate must not be negative", ErrInvalidDebtParameters)
	case p.Paid < 0 || p.Paid > p.Installments:
		return fmt.Errorf("%w: paid installments must be between 0 and %d", ErrInvalidDebtParameters, p.Installments)
	case !p.Method.Valid():
		return fmt.Errorf("%w: unknown amortization method %q", ErrInvalidDebtParameters, p.Method)
	}
	return nil
}

// Calculate builds the full schedule. Status comes from the paid counter only,
// never from the entry dates.
func Calculate(p Params) (*Schedule, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	n := decimal.NewFromInt(int64(p.Installments))
	balance := p.Principal
	constantAmortization := p.Principal.Div(n)
	pricePayment := PricePayment(p.Principal, p.MonthlyRate, p.Installments)

	entries := make([]Entry, 0, p.Installments)
	for k := 1; k <= p.Installments; k++ {
		interest := balance.Mul(p.MonthlyRate)

		var amortization, payment decimal.Decimal
		if p.Method == MethodSAC {
			amortization = constantAmortization
			payment = amortization.Add(interest)
		} else {
			payment = pricePayment
			amortization = payment.Sub(interest)
		}

		balance = balance.Sub(amortization)
		if balance.IsNegative() {
			balance = decimal.Zero
		}

		status := StatusPending
		if k <= p.Paid {
			status = StatusPaid
		}

		entries = append(entries, Entry{
			Installment:      k,
			Date:             installmentDate(p.StartDate, k, p.DueDay),
			Payment:          payment.Round(2),
			Principal:        amortization.Round(2),
			Interest:         interest.Round(2),
			RemainingBalance: balance.Round(2),
			Status:           status,
		})
	}

	return summarize(entries), nil
}

// PricePayment is the constant French-system payment P*i*(1+i)^n / ((1+i)^n - 1).
// A zero rate degenerates to P/n.
func PricePayment(principal, rate decimal.Decimal, installments int) decimal.Decimal {
	n := decimal.NewFromInt(int64(installments))
	if rate.IsZero() {
		return principal.Div(n)
	}
	factor := decimal.NewFromInt(1)
	onePlusRate := rate.Add(factor)
	for k := 0; k < installments; k++ {
		factor = factor.Mul(onePlusRate)
	}
	return principal.Mul(rate.Mul(factor)).Div(factor.Sub(decimal.NewFromInt(1)))
}

func summarize(entries []Entry) *Schedule {
	s := &Schedule{Entries: entries}
	for i := range entries {
		e := entries[i]
		if e.Status == StatusPaid {
			s.Totals.TotalPaid = s.Totals.TotalPaid.Add(e.Payment)
			s.Totals.TotalInterestPaid = s.Totals.TotalInterestPaid.Add(e.Interest)
			continue
		}
		s.Totals.RemainingPrincipal = s.Totals.RemainingPrincipal.Add(e.Principal)
		s.Totals.RemainingInterest = s.Totals.RemainingInterest.Add(e.Interest)
		if s.NextPayment == nil {
			s.NextPayment = &entries[i]
		}
	}
	return s
}

func installmentDate(start time.Time, k, dueDay int) time.Time {
	if start.IsZero() {
		return time.Time{}
	}
	day := dueDay
	if day <= 0 {
		day = start.Day()
	}
	return schedule.AddMonthsOnDay(start, k-1, day)
}
