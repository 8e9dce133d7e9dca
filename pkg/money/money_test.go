package money

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualSplit(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		n        int
		expected []string
	}{
		{
			name:     "divides evenly",
			total:    "972.00",
			n:        6,
			expected: []string{"162.00", "162.00", "162.00", "162.00", "162.00", "162.00"},
		},
		{
			name:     "remainder absorbed by last part",
			total:    "100.00",
			n:        3,
			expected: []string{"33.33", "33.33", "33.34"},
		},
		{
			name:     "single part",
			total:    "55.55",
			n:        1,
			expected: []string{"55.55"},
		},
		{
			name:     "rounding down leaves larger last part",
			total:    "0.10",
			n:        3,
			expected: []string{"0.03", "0.03", "0.04"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := decimal.RequireFromString(tt.total)
			parts := EqualSplit(total, tt.n)

			require.Len(t, parts, tt.n)

			sum := decimal.Zero
			for i, part := range parts {
				assert.True(t, part.Equal(decimal.RequireFromString(tt.expected[i])),
					"part %d was %s", i, part)
				sum = sum.Add(part)
			}
			assert.True(t, sum.Equal(total), "parts must sum to total, got %s", sum)
		})
	}
}

func TestEqualSplit_SubCentQuotient(t *testing.T) {
	// 0.30 over 60 parts is half a cent each; rounding the quotient down
	// keeps every part non-negative and the sum exact.
	total := decimal.RequireFromString("0.30")
	parts := EqualSplit(total, 60)

	require.Len(t, parts, 60)

	sum := decimal.Zero
	for i, part := range parts {
		assert.False(t, part.IsNegative(), "part %d was %s", i, part)
		sum = sum.Add(part)
	}
	assert.True(t, sum.Equal(total), "parts must sum to total, got %s", sum)
}

func TestEqualSplit_InvalidCount(t *testing.T) {
	assert.Nil(t, EqualSplit(decimal.RequireFromString("10.00"), 0))
	assert.Nil(t, EqualSplit(decimal.RequireFromString("10.00"), -1))
}

func TestAmortizedPayment(t *testing.T) {
	// 1000 at 1% monthly over 12 months: the textbook annuity payment is 88.85
	principal := decimal.RequireFromString("1000.00")
	rate := decimal.RequireFromString("0.01")

	payment := AmortizedPayment(principal, rate, 12)

	assert.True(t, payment.Equal(decimal.RequireFromString("88.85")), "payment was %s", payment)
}

func TestAmortizedPayment_ZeroRate(t *testing.T) {
	payment := AmortizedPayment(decimal.RequireFromString("1200.00"), decimal.Zero, 12)
	assert.True(t, payment.Equal(decimal.RequireFromString("100.00")))
}

func TestMonthlyRate(t *testing.T) {
	rate := MonthlyRate(decimal.RequireFromString("0.12"))
	assert.True(t, rate.Equal(decimal.RequireFromString("0.01")), "rate was %s", rate)
}

func TestPercentOf(t *testing.T) {
	fee := PercentOf(decimal.RequireFromString("182.25"), decimal.NewFromInt(2))
	assert.True(t, fee.Equal(decimal.RequireFromString("3.65")), "fee was %s", fee)

	zero := PercentOf(decimal.RequireFromString("100.00"), decimal.Zero)
	assert.True(t, zero.IsZero())
}

func TestAddMonths(t *testing.T) {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), AddMonths(start, 1))
	assert.Equal(t, time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC), AddMonths(start, 12))
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsOverdue(now.Add(-time.Minute), now))
	assert.False(t, IsOverdue(now.Add(time.Minute), now))
	assert.False(t, IsOverdue(now, now))
}
