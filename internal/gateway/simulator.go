package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/clinicpay/payment-engine/pkg/errors"
)

// Simulator imitates a payment processor: each call sleeps for a configured
// latency and fails with a transient error at the configured rate. It is
// safe for concurrent use.
type Simulator struct {
	provider    string
	latency     time.Duration
	failureRate float64
	now         Clock

	mu  sync.Mutex
	rng RandomSource
}

// NewSimulator creates a gateway simulator. A zero seed derives one from the
// wall clock.
func NewSimulator(provider string, latency time.Duration, failureRate float64, seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		provider:    provider,
		latency:     latency,
		failureRate: failureRate,
		now:         time.Now,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// WithRandomSource replaces the randomness source, for deterministic tests.
func (s *Simulator) WithRandomSource(rng RandomSource) *Simulator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rng
	return s
}

// WithClock replaces the time source.
func (s *Simulator) WithClock(now Clock) *Simulator {
	s.now = now
	return s
}

// Provider returns the configured provider name.
func (s *Simulator) Provider() string {
	return s.provider
}

func (s *Simulator) Authorize(ctx context.Context, amount decimal.Decimal, currency string) (*AuthorizationResult, error) {
	if err := s.simulateCall(ctx); err != nil {
		return nil, err
	}

	return &AuthorizationResult{
		TransactionID:     s.newTransactionID("txn"),
		AuthorizationCode: s.newAuthCode(),
	}, nil
}

func (s *Simulator) Capture(ctx context.Context, transactionID string) (*CaptureResult, error) {
	if err := s.simulateCall(ctx); err != nil {
		return nil, err
	}

	return &CaptureResult{
		TransactionID: transactionID,
		CapturedAt:    s.now(),
	}, nil
}

func (s *Simulator) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (*RefundResult, error) {
	if err := s.simulateCall(ctx); err != nil {
		return nil, err
	}

	return &RefundResult{
		RefundID:    s.newTransactionID("re"),
		ProcessedAt: s.now(),
	}, nil
}

// simulateCall models network latency and random upstream failure. The
// latency sleep respects context cancellation; the failure roll happens
// after the delay, matching how a real processor times out.
func (s *Simulator) simulateCall(ctx context.Context) error {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()

	if roll < s.failureRate {
		return apperrors.ErrGatewayUnavailable
	}

	return nil
}

func (s *Simulator) newTransactionID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(uuid.New().String(), "-", "")[:24])
}

func (s *Simulator) newAuthCode() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	s.mu.Lock()
	defer s.mu.Unlock()

	code := make([]byte, 6)
	for i := range code {
		code[i] = alphabet[s.rng.Intn(len(alphabet))]
	}
	return string(code)
}
