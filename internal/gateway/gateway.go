package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Clock returns the current time; injectable for deterministic tests.
type Clock func() time.Time

// RandomSource supplies the randomness behind simulated gateway behavior.
// Tests substitute a fixed sequence to make outcomes deterministic.
type RandomSource interface {
	Float64() float64
	Intn(n int) int
}

type AuthorizationResult struct {
	TransactionID     string
	AuthorizationCode string
}

type CaptureResult struct {
	TransactionID string
	CapturedAt    time.Time
}

type RefundResult struct {
	RefundID    string
	ProcessedAt time.Time
}

// Gateway abstracts the upstream card processor so a real provider can be
// substituted without touching calling code.
type Gateway interface {
	Authorize(ctx context.Context, amount decimal.Decimal, currency string) (*AuthorizationResult, error)
	Capture(ctx context.Context, transactionID string) (*CaptureResult, error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (*RefundResult, error)
}
