package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/clinicpay/payment-engine/internal/config"
	"github.com/clinicpay/payment-engine/internal/domain"
	"github.com/clinicpay/payment-engine/internal/gateway"
	"github.com/clinicpay/payment-engine/internal/metrics"
	"github.com/clinicpay/payment-engine/internal/repository"
	apperrors "github.com/clinicpay/payment-engine/pkg/errors"
	"github.com/clinicpay/payment-engine/pkg/money"
)

const statsCacheKey = "payment_engine:stats"

// PaymentService implements the payment transaction lifecycle: building and
// scoring transactions, resolving their status through the gateway, refunds,
// installment plans and aggregate stats.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	planRepo    repository.PlanRepository
	gateway     gateway.Gateway
	scorer      *RiskScorer
	redis       *redis.Client
	config      *config.Config
	metrics     metrics.PaymentMetrics
	now         gateway.Clock
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	planRepo repository.PlanRepository,
	gw gateway.Gateway,
	scorer *RiskScorer,
	redisClient *redis.Client,
	cfg *config.Config,
	m metrics.PaymentMetrics,
) *PaymentService {
	if m == nil {
		m = metrics.Nop()
	}
	return &PaymentService{
		paymentRepo: paymentRepo,
		planRepo:    planRepo,
		gateway:     gw,
		scorer:      scorer,
		redis:       redisClient,
		config:      cfg,
		metrics:     m,
		now:         time.Now,
	}
}

// WithClock replaces the time source, for deterministic tests.
func (s *PaymentService) WithClock(now gateway.Clock) *PaymentService {
	s.now = now
	return s
}

// ProcessPayment builds a payment from request input, scores it, and
// resolves its status through the gateway. A request carrying a previously
// seen idempotency key returns the original payment without charging again.
func (s *PaymentService) ProcessPayment(ctx context.Context, request *domain.CreatePaymentRequest) (*domain.Payment, error) {
	if request.IdempotencyKey != "" {
		existing, err := s.paymentRepo.GetByIdempotencyKey(ctx, request.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, apperrors.ErrPaymentNotFound) {
			return nil, apperrors.WrapDatabaseError(err)
		}
	}

	payment, err := s.buildPayment(request)
	if err != nil {
		return nil, err
	}

	score, _ := s.scorer.Score(payment.Amount.Total, payment.Method.Type, payment.Method.SaveMethod)
	payment.FraudScore = score
	payment.RiskLevel = s.scorer.Level(score)

	if s.scorer.Blocked(score) {
		payment.Status = domain.PaymentStatusFailed
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			return nil, apperrors.WrapDatabaseError(err)
		}
		s.metrics.IncFraudBlocked()
		s.metrics.IncPaymentProcessed(string(payment.Status), payment.Amount.Currency)
		s.invalidateStatsCache(ctx)
		return nil, apperrors.WrapFraudBlocked(score)
	}

	auth, err := s.gateway.Authorize(ctx, payment.Amount.Total, payment.Amount.Currency)
	if err != nil {
		return nil, apperrors.WrapGatewayUnavailable(err)
	}

	payment.Gateway = domain.GatewayInfo{
		Provider:          s.config.Gateway.Provider,
		TransactionID:     auth.TransactionID,
		AuthorizationCode: auth.AuthorizationCode,
	}

	if score > s.config.Business.HoldThreshold {
		// Authorized but held for manual review; capture happens later.
		payment.Status = domain.PaymentStatusProcessing
	} else {
		capture, err := s.gateway.Capture(ctx, auth.TransactionID)
		if err != nil {
			return nil, apperrors.WrapGatewayUnavailable(err)
		}
		payment.Status = domain.PaymentStatusCaptured
		capturedAt := capture.CapturedAt
		payment.ProcessedAt = &capturedAt
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	s.metrics.IncPaymentProcessed(string(payment.Status), payment.Amount.Currency)
	s.metrics.ObservePaymentAmount(payment.Amount.Total.InexactFloat64(), payment.Amount.Currency)
	s.invalidateStatsCache(ctx)

	return payment, nil
}

// buildPayment validates request input and assembles a pre-scored payment.
func (s *PaymentService) buildPayment(request *domain.CreatePaymentRequest) (*domain.Payment, error) {
	min, max := s.config.MinAmount(), s.config.MaxAmount()
	if request.Amount.LessThan(min) || request.Amount.GreaterThan(max) {
		return nil, apperrors.WrapAmountOutOfRange(request.Amount.String(), min.String(), max.String())
	}

	if request.Taxes.IsNegative() || request.Discounts.IsNegative() ||
		request.Fees.IsNegative() || request.InsuranceCovered.IsNegative() {
		return nil, apperrors.WrapValidation(
			"Taxes, discounts, fees and insurance coverage must not be negative", nil)
	}

	if !request.TermsAccepted {
		return nil, apperrors.WrapValidation("Payment terms must be accepted", apperrors.ErrTermsNotAccepted)
	}

	if err := validateMethodDetails(request); err != nil {
		return nil, err
	}

	currency := request.Currency
	if currency == "" {
		currency = s.config.Business.DefaultCurrency
	}

	subtotal := money.Round2(request.Amount)
	taxes := money.Round2(request.Taxes)
	discounts := money.Round2(request.Discounts)
	fees := money.Round2(request.Fees)
	insurance := money.Round2(request.InsuranceCovered)

	total := subtotal.Add(taxes).Sub(discounts).Add(fees)
	responsibility := total.Sub(insurance)
	if responsibility.IsNegative() {
		return nil, apperrors.WrapValidation(
			"Insurance coverage exceeds the payment total", nil)
	}

	now := s.now()
	id := uuid.New()

	return &domain.Payment{
		ID:            id,
		PaymentNumber: paymentNumber(now, id),
		PatientID:     request.PatientID,
		Amount: domain.Amount{
			Subtotal:              subtotal,
			Taxes:                 taxes,
			Discounts:             discounts,
			Fees:                  fees,
			Total:                 total,
			InsuranceCovered:      insurance,
			PatientResponsibility: responsibility,
			Currency:              currency,
		},
		Method: domain.PaymentMethod{
			Type:              request.PaymentMethod,
			CardBrand:         request.CardBrand,
			CardLast4:         request.CardLast4,
			BankCode:          request.BankCode,
			InsuranceMemberID: request.InsuranceMemberID,
			SaveMethod:        request.SaveMethod,
		},
		Status:           domain.PaymentStatusPending,
		RefundableAmount: total,
		IdempotencyKey:   request.IdempotencyKey,
		Version:          1,
		CreatedAt:        now,
	}, nil
}

func validateMethodDetails(request *domain.CreatePaymentRequest) error {
	switch request.PaymentMethod {
	case domain.MethodCreditCard, domain.MethodDebitCard:
		if request.CardLast4 == "" || request.CardBrand == "" {
			return apperrors.WrapValidation(
				"Card payments require card_brand and card_last4", apperrors.ErrMissingMethodDetails)
		}
	case domain.MethodBankTransfer:
		if request.BankCode == "" {
			return apperrors.WrapValidation(
				"Bank transfers require bank_code", apperrors.ErrMissingMethodDetails)
		}
	case domain.MethodInsurance:
		if request.InsuranceMemberID == "" {
			return apperrors.WrapValidation(
				"Insurance payments require insurance_member_id", apperrors.ErrMissingMethodDetails)
		}
	}
	return nil
}

func paymentNumber(now time.Time, id uuid.UUID) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:6])
	return fmt.Sprintf("PAY-%s-%s", now.Format("200601"), suffix)
}

// GetPayment returns a payment by id
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrPaymentNotFound) {
			return nil, apperrors.WrapPaymentNotFound(id.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}
	return payment, nil
}

// ListPayments returns payments, optionally filtered by status
func (s *PaymentService) ListPayments(ctx context.Context, status domain.PaymentStatus) ([]*domain.Payment, error) {
	payments, err := s.paymentRepo.List(ctx, status)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return payments, nil
}

// RefundPayment takes a refund against a captured or settled payment. The
// gross amount is deducted from the refundable balance; the patient receives
// the amount net of the processing fee.
func (s *PaymentService) RefundPayment(ctx context.Context, paymentID uuid.UUID, request *domain.RefundRequest) (*domain.RefundPaymentResponse, error) {
	payment, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if !payment.Status.Refundable() {
		return nil, apperrors.WrapRefundNotAllowed(string(payment.Status))
	}

	amount := money.Round2(request.Amount)
	if !amount.IsPositive() {
		return nil, apperrors.WrapInvalidRefundAmount(amount.String())
	}

	if amount.GreaterThan(payment.RefundableAmount) {
		return nil, apperrors.WrapRefundExceedsBalance(amount.String(), payment.RefundableAmount.String())
	}

	refundType := domain.RefundTypePartial
	if amount.Equal(payment.RefundableAmount) {
		refundType = domain.RefundTypeFull
	}

	fee := money.PercentOf(amount, s.config.RefundFeeRate())
	net := amount.Sub(fee)

	result, err := s.gateway.Refund(ctx, payment.Gateway.TransactionID, net)
	if err != nil {
		return nil, apperrors.WrapGatewayUnavailable(err)
	}

	processedAt := result.ProcessedAt
	refund := &domain.Refund{
		ID:              uuid.New(),
		PaymentID:       payment.ID,
		Amount:          amount,
		Fee:             fee,
		NetAmount:       net,
		Reason:          request.Reason,
		Type:            refundType,
		Status:          domain.RefundStatusCompleted,
		GatewayRefundID: result.RefundID,
		RequestedAt:     s.now(),
		ProcessedAt:     &processedAt,
	}

	payment.Refunds = append(payment.Refunds, refund)
	payment.RefundableAmount = payment.RefundableAmount.Sub(amount)
	if refundType == domain.RefundTypeFull {
		payment.Status = domain.PaymentStatusRefunded
	} else {
		payment.Status = domain.PaymentStatusPartiallyRefunded
	}

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		if errors.Is(err, apperrors.ErrVersionConflict) {
			return nil, apperrors.WrapVersionConflict(payment.ID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	s.metrics.IncRefund(string(refundType))
	s.invalidateStatsCache(ctx)

	return &domain.RefundPaymentResponse{Payment: payment, Refund: refund}, nil
}

// DetectFraud runs a standalone risk analysis without creating a payment
func (s *PaymentService) DetectFraud(ctx context.Context, request *domain.FraudCheckRequest) (*domain.FraudCheckResponse, error) {
	return s.scorer.Check(request), nil
}

// GetPaymentStats computes read-only aggregates over all payments. Results
// are cached in redis for a short TTL when a client is configured; cache
// failures fall back to a direct computation.
func (s *PaymentService) GetPaymentStats(ctx context.Context) (*domain.PaymentStats, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, statsCacheKey).Result()
		if err == nil {
			var stats domain.PaymentStats
			if err := json.Unmarshal([]byte(cached), &stats); err == nil {
				return &stats, nil
			}
		}
	}

	payments, err := s.paymentRepo.List(ctx, "")
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	stats := computeStats(payments)

	if s.redis != nil {
		if encoded, err := json.Marshal(stats); err == nil {
			if err := s.redis.Set(ctx, statsCacheKey, encoded, s.config.Redis.StatsTTL).Err(); err != nil {
				log.Printf("stats cache write failed: %v", err)
			}
		}
	}

	return stats, nil
}

func computeStats(payments []*domain.Payment) *domain.PaymentStats {
	stats := &domain.PaymentStats{
		TotalCount:     len(payments),
		CountsByStatus: make(map[domain.PaymentStatus]int),
		CapturedVolume: decimal.Zero,
		RefundedVolume: decimal.Zero,
	}

	captured := 0
	scoreSum := 0
	for _, payment := range payments {
		stats.CountsByStatus[payment.Status]++
		scoreSum += payment.FraudScore

		switch payment.Status {
		case domain.PaymentStatusCaptured, domain.PaymentStatusSettled,
			domain.PaymentStatusRefunded, domain.PaymentStatusPartiallyRefunded,
			domain.PaymentStatusDisputed:
			captured++
			stats.CapturedVolume = stats.CapturedVolume.Add(payment.Amount.Total)
		}

		for _, refund := range payment.Refunds {
			stats.RefundedVolume = stats.RefundedVolume.Add(refund.Amount)
		}
	}

	if len(payments) > 0 {
		stats.AverageFraudScore = decimal.NewFromInt(int64(scoreSum)).
			DivRound(decimal.NewFromInt(int64(len(payments))), 2)
		stats.CaptureRate = decimal.NewFromInt(int64(captured)).
			DivRound(decimal.NewFromInt(int64(len(payments))), 4)
	} else {
		stats.AverageFraudScore = decimal.Zero
		stats.CaptureRate = decimal.Zero
	}

	return stats
}

// ExpireStalePayments moves pending and processing payments older than the
// configured TTL to expired. Called by the scheduler; returns the number of
// payments expired.
func (s *PaymentService) ExpireStalePayments(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.config.Business.PendingTTL)

	stale, err := s.paymentRepo.ListExpirable(ctx, cutoff)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err)
	}

	expired := 0
	for _, payment := range stale {
		payment.Status = domain.PaymentStatusExpired
		if err := s.paymentRepo.Update(ctx, payment); err != nil {
			// A conflict means someone else just touched this payment; skip it.
			if errors.Is(err, apperrors.ErrVersionConflict) {
				continue
			}
			return expired, apperrors.WrapDatabaseError(err)
		}
		expired++
	}

	if expired > 0 {
		s.invalidateStatsCache(ctx)
	}

	return expired, nil
}

func (s *PaymentService) invalidateStatsCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, statsCacheKey).Err(); err != nil {
		log.Printf("stats cache invalidation failed: %v", err)
	}
}
