package money

import (
	"time"

	"github.com/shopspring/decimal"
)

// amortization division precision before final currency rounding
const divPrecision = 12

var (
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

// Round2 rounds a monetary value to 2 decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// EqualSplit divides total into n equal installment amounts rounded down
// to cents. The last installment absorbs the rounding remainder so the
// parts always sum back to total exactly. Rounding down keeps the
// remainder non-negative even when total/n lands below a cent.
func EqualSplit(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}

	per := total.DivRound(decimal.NewFromInt(int64(n)), divPrecision).RoundDown(2)

	parts := make([]decimal.Decimal, n)
	running := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = per
		running = running.Add(per)
	}
	parts[n-1] = total.Sub(running)

	return parts
}

// MonthlyRate converts an annual interest rate (e.g. 0.12) to a monthly rate.
func MonthlyRate(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.DivRound(twelve, divPrecision)
}

// AmortizedPayment computes the fixed monthly payment for a loan of the
// given principal over n months at the given monthly rate, using the
// standard annuity formula: P * r / (1 - (1+r)^-n).
func AmortizedPayment(principal, monthlyRate decimal.Decimal, n int) decimal.Decimal {
	if monthlyRate.IsZero() {
		return principal.DivRound(decimal.NewFromInt(int64(n)), 2)
	}

	onePlusR := decimal.NewFromInt(1).Add(monthlyRate)
	compound := onePlusR.Pow(decimal.NewFromInt(int64(n)))
	denominator := decimal.NewFromInt(1).Sub(decimal.NewFromInt(1).DivRound(compound, divPrecision))

	payment := principal.Mul(monthlyRate).DivRound(denominator, divPrecision)
	return payment.Round(2)
}

// InterestPortion computes the interest accrued on the outstanding balance
// for one period, rounded to cents.
func InterestPortion(balance, monthlyRate decimal.Decimal) decimal.Decimal {
	return balance.Mul(monthlyRate).Round(2)
}

// PercentOf returns rate percent of amount, rounded to cents. The rate is
// expressed in percentage points (2 means 2%).
func PercentOf(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).DivRound(hundred, 2)
}

// AddMonths advances a due date by n calendar months.
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// IsOverdue reports whether a due date has passed relative to now.
func IsOverdue(dueDate, now time.Time) bool {
	return now.After(dueDate)
}
