package amortization

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sacParams() Params {
	return Params{
		Principal:    dec("12000"),
		MonthlyRate:  dec("0.01"),
		Installments: 12,
		Method:       MethodSAC,
		StartDate:    time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
		DueDay:       31,
	}
}

func TestCalculateSAC(t *testing.T) {
	t.Parallel()

	s, err := Calculate(sacParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Entries) != 12 {
		t.Fatalf("expected 12 entries, got %d", len(s.Entries))
	}

	first := s.Entries[0]
	if !first.Principal.Equal(dec("1000")) || !first.Interest.Equal(dec("120")) || !first.Payment.Equal(dec("1120")) {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	last := s.Entries[11]
	if !last.Principal.Equal(dec("1000")) || !last.Interest.Equal(dec("10")) || !last.Payment.Equal(dec("1010")) {
		t.Fatalf("unexpected last entry: %+v", last)
	}
	if !last.RemainingBalance.IsZero() {
		t.Fatalf("expected zero final balance, got %s", last.RemainingBalance)
	}

	for i := 1; i < len(s.Entries); i++ {
		if !s.Entries[i].Payment.LessThan(s.Entries[i-1].Payment) {
			t.Fatalf("SAC payments must decrease: %s then %s", s.Entries[i-1].Payment, s.Entries[i].Payment)
		}
	}
}

func TestCalculateSACConservesPrincipal(t *testing.T) {
	t.Parallel()

	p := Params{
		Principal:    dec("10000"),
		MonthlyRate:  dec("0.0175"),
		Installments: 7,
		Method:       MethodSAC,
	}
	s, err := Calculate(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := decimal.Zero
	for _, e := range s.Entries {
		sum = sum.Add(e.Principal)
	}
	tolerance := dec("0.01").Mul(decimal.NewFromInt(int64(p.Installments)))
	if sum.Sub(p.Principal).Abs().GreaterThan(tolerance) {
		t.Fatalf("principal sum %s drifted from %s", sum, p.Principal)
	}
}

func TestCalculatePrice(t *testing.T) {
	t.Parallel()

	p := Params{
		Principal:    dec("10000"),
		MonthlyRate:  dec("0.02"),
		Installments: 12,
		Method:       MethodPrice,
	}
	s, err := Calculate(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, e := range s.Entries {
		if !e.Payment.Equal(dec("945.60")) {
			t.Fatalf("installment %d: expected constant payment 945.60, got %s", e.Installment, e.Payment)
		}
	}
	for i := 1; i < len(s.Entries); i++ {
		if !s.Entries[i].Interest.LessThanOrEqual(s.Entries[i-1].Interest) {
			t.Fatalf("PRICE interest must not grow: %s then %s", s.Entries[i-1].Interest, s.Entries[i].Interest)
		}
	}
	if final := s.Entries[len(s.Entries)-1].RemainingBalance; !final.IsZero() {
		t.Fatalf("expected zero final balance, got %s", final)
	}
}

func TestCalculateZeroRate(t *testing.T) {
	t.Parallel()

	for _, method := range []Method{MethodSAC, MethodPrice} {
		s, err := Calculate(Params{
			Principal:    dec("1200"),
			MonthlyRate:  decimal.Zero,
			Installments: 12,
			Method:       method,
		})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", method, err)
		}
		for _, e := range s.Entries {
			if !e.Payment.Equal(dec("100")) || !e.Interest.IsZero() {
				t.Fatalf("%s installment %d: expected 100 with no interest, got %s/%s", method, e.Installment, e.Payment, e.Interest)
			}
		}
	}
}

func TestCalculateStatusFollowsPaidCount(t *testing.T) {
	t.Parallel()

	p := sacParams()
	p.Paid = 3
	// Dates far in the past must not mark anything paid.
	p.StartDate = time.Date(2000, time.January, 31, 0, 0, 0, 0, time.UTC)

	s, err := Calculate(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, e := range s.Entries {
		want := StatusPending
		if e.Installment <= 3 {
			want = StatusPaid
		}
		if e.Status != want {
			t.Fatalf("installment %d: expected %s, got %s", e.Installment, want, e.Status)
		}
	}

	if s.NextPayment == nil || s.NextPayment.Installment != 4 {
		t.Fatalf("expected next payment to be installment 4, got %+v", s.NextPayment)
	}
	// 1120 + 1110 + 1100
	if !s.Totals.TotalPaid.Equal(dec("3330")) {
		t.Fatalf("expected total paid 3330, got %s", s.Totals.TotalPaid)
	}
	if !s.Totals.TotalInterestPaid.Equal(dec("330")) {
		t.Fatalf("expected interest paid 330, got %s", s.Totals.TotalInterestPaid)
	}
	if !s.Totals.RemainingPrincipal.Equal(dec("9000")) {
		t.Fatalf("expected remaining principal 9000, got %s", s.Totals.RemainingPrincipal)
	}
	if s.PendingCount() != 9 {
		t.Fatalf("expected 9 pending installments, got %d", s.PendingCount())
	}
}

func TestCalculateFullyPaid(t *testing.T) {
	t.Parallel()

	p := sacParams()
	p.Paid = p.Installments
	s, err := Calculate(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.NextPayment != nil {
		t.Fatalf("expected no next payment, got %+v", s.NextPayment)
	}
	if !s.Totals.RemainingPrincipal.IsZero() {
		t.Fatalf("expected nothing remaining, got %s", s.Totals.RemainingPrincipal)
	}
}

func TestCalculateDatesClampToMonthEnd(t *testing.T) {
	t.Parallel()

	s, err := Calculate(sacParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Time{
		time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
	}
	for i, w := range want {
		if !s.Entries[i].Date.Equal(w) {
			t.Fatalf("installment %d: expected %s, got %s", i+1, w.Format("2006-01-02"), s.Entries[i].Date.Format("2006-01-02"))
		}
	}
}

func TestCalculateRejectsInvalidParameters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"zero installments", func(p *Params) { p.Installments = 0 }},
		{"negative principal", func(p *Params) { p.Principal = dec("-1") }},
		{"negative rate", func(p *Params) { p.MonthlyRate = dec("-0.01") }},
		{"paid above total", func(p *Params) { p.Paid = 13 }},
		{"negative paid", func(p *Params) { p.Paid = -1 }},
		{"unknown method", func(p *Params) { p.Method = "GERMAN" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := sacParams()
			tt.mutate(&p)
			if _, err := Calculate(p); !errors.Is(err, ErrInvalidDebtParameters) {
				t.Fatalf("expected ErrInvalidDebtParameters, got %v", err)
			}
		})
	}
}

func TestRateFromPercent(t *testing.T) {
	t.Parallel()

	if got := RateFromPercent(dec("1.5")); !got.Equal(dec("0.015")) {
		t.Fatalf("expected 0.015, got %s", got)
	}
}

func TestAnticipate(t *testing.T) {
	t.Parallel()

	s, err := Calculate(sacParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := Anticipate(s)

	// 120 + 110 + ... + 10
	if !a.Current.TotalInterest.Equal(dec("780")) {
		t.Fatalf("expected remaining interest 780, got %s", a.Current.TotalInterest)
	}
	if !a.Current.TotalRemaining.Equal(dec("12780")) {
		t.Fatalf("expected 12780 remaining, got %s", a.Current.TotalRemaining)
	}
	if a.Current.MonthsLeft != 12 || a.Anticipated.MonthsSaved != 12 {
		t.Fatalf("expected 12 months, got %d/%d", a.Current.MonthsLeft, a.Anticipated.MonthsSaved)
	}
	if !a.Anticipated.PaymentAmount.Equal(dec("12000")) {
		t.Fatalf("expected payoff 12000, got %s", a.Anticipated.PaymentAmount)
	}
	if !a.Anticipated.InterestSaved.Equal(a.Current.TotalInterest) {
		t.Fatalf("expected all pending interest saved, got %s", a.Anticipated.InterestSaved)
	}
	if !a.Anticipated.NewTotalRemaining.IsZero() {
		t.Fatalf("expected nothing left after payoff, got %s", a.Anticipated.NewTotalRemaining)
	}
}
