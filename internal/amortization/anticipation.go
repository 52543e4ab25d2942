package amortization

import "github.com/shopspring/decimal"

type CurrentScenario struct {
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	MonthsLeft     int             `json:"months_left"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
}

type AnticipatedScenario struct {
	PaymentAmount     decimal.Decimal `json:"payment_amount"`
	NewTotalRemaining decimal.Decimal `json:"new_total_remaining"`
	MonthsSaved       int             `json:"months_saved"`
	InterestSaved     decimal.Decimal `json:"interest_saved"`
}

type Anticipation struct {
	Current     CurrentScenario     `json:"current"`
	Anticipated AnticipatedScenario `json:"anticipated"`
}

// Anticipate assumes the remaining principal is paid today and that doing so
// cancels every pending interest portion.
func Anticipate(s *Schedule) Anticipation {
	pending := s.PendingCount()
	return Anticipation{
		Current: CurrentScenario{
			TotalRemaining: s.Totals.RemainingPrincipal.Add(s.Totals.RemainingInterest),
			MonthsLeft:     pending,
			TotalInterest:  s.Totals.RemainingInterest,
		},
		Anticipated: AnticipatedScenario{
			PaymentAmount:     s.Totals.RemainingPrincipal,
			NewTotalRemaining: decimal.Zero,
			MonthsSaved:       pending,
			InterestSaved:     s.Totals.RemainingInterest,
		},
	}
}
