package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/clinicpay/payment-engine/internal/gateway"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Authorize(ctx context.Context, amount decimal.Decimal, currency string) (*gateway.AuthorizationResult, error) {
	args := m.Called(ctx, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.AuthorizationResult), args.Error(1)
}

func (m *MockGateway) Capture(ctx context.Context, transactionID string) (*gateway.CaptureResult, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CaptureResult), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (*gateway.RefundResult, error) {
	args := m.Called(ctx, transactionID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RefundResult), args.Error(1)
}

// fixedRand returns the same roll every time, pinning the scorer's base score.
type fixedRand struct {
	value float64
}

func (r fixedRand) Float64() float64 {
	return r.value
}

func (r fixedRand) Intn(n int) int {
	return int(r.value * float64(n))
}
