package gateway

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/clinicpay/payment-engine/pkg/errors"
)

type stubRand struct {
	value float64
}

func (r stubRand) Float64() float64 { return r.value }
func (r stubRand) Intn(n int) int   { return int(r.value * float64(n)) }

func TestSimulator_Authorize(t *testing.T) {
	sim := NewSimulator("simulated", 0, 0, 1)

	result, err := sim.Authorize(context.Background(), decimal.RequireFromString("100.00"), "USD")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.TransactionID, "txn_"))
	assert.Len(t, result.TransactionID, len("txn_")+24)
	assert.Len(t, result.AuthorizationCode, 6)
	for _, c := range result.AuthorizationCode {
		assert.Contains(t, "ABCDEFGHJKLMNPQRSTUVWXYZ23456789", string(c))
	}
}

func TestSimulator_FailureRate(t *testing.T) {
	// Roll below the failure rate: the call fails with a transient error
	sim := NewSimulator("simulated", 0, 0.5, 1).WithRandomSource(stubRand{value: 0.2})

	_, err := sim.Authorize(context.Background(), decimal.RequireFromString("100.00"), "USD")
	assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)

	_, err = sim.Capture(context.Background(), "txn_abc")
	assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)

	_, err = sim.Refund(context.Background(), "txn_abc", decimal.RequireFromString("50.00"))
	assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
}

func TestSimulator_NeverFailsAtZeroRate(t *testing.T) {
	sim := NewSimulator("simulated", 0, 0, 7)

	for i := 0; i < 100; i++ {
		_, err := sim.Capture(context.Background(), "txn_abc")
		require.NoError(t, err)
	}
}

func TestSimulator_AlwaysFailsAtFullRate(t *testing.T) {
	sim := NewSimulator("simulated", 0, 1, 7)

	for i := 0; i < 100; i++ {
		_, err := sim.Capture(context.Background(), "txn_abc")
		require.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
	}
}

func TestSimulator_ContextCancellation(t *testing.T) {
	sim := NewSimulator("simulated", time.Minute, 0, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := sim.Authorize(ctx, decimal.RequireFromString("100.00"), "USD")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSimulator_Capture(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	sim := NewSimulator("simulated", 0, 0, 1).WithClock(func() time.Time { return fixed })

	result, err := sim.Capture(context.Background(), "txn_abc123")

	require.NoError(t, err)
	assert.Equal(t, "txn_abc123", result.TransactionID)
	assert.Equal(t, fixed, result.CapturedAt)
}

func TestSimulator_Refund(t *testing.T) {
	sim := NewSimulator("simulated", 0, 0, 1)

	result, err := sim.Refund(context.Background(), "txn_abc123", decimal.RequireFromString("25.00"))

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.RefundID, "re_"))
	assert.False(t, result.ProcessedAt.IsZero())
}
