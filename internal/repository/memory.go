package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicpay/payment-engine/internal/domain"
	apperrors "github.com/clinicpay/payment-engine/pkg/errors"
)

// MemoryPaymentRepository is an in-memory PaymentRepository. It is the
// default backend and the substitute used by tests; it enforces the same
// optimistic-locking contract as the postgres implementation.
type MemoryPaymentRepository struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment
	byKey    map[string]uuid.UUID
}

func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{
		payments: make(map[uuid.UUID]*domain.Payment),
		byKey:    make(map[string]uuid.UUID),
	}
}

func (r *MemoryPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payments[payment.ID] = clonePayment(payment)
	if payment.IdempotencyKey != "" {
		r.byKey[payment.IdempotencyKey] = payment.ID
	}
	return nil
}

func (r *MemoryPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, apperrors.ErrPaymentNotFound
	}
	return clonePayment(payment), nil
}

func (r *MemoryPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[key]
	if !ok {
		return nil, apperrors.ErrPaymentNotFound
	}
	return clonePayment(r.payments[id]), nil
}

func (r *MemoryPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.payments[payment.ID]
	if !ok {
		return apperrors.ErrPaymentNotFound
	}

	if stored.Version != payment.Version {
		return apperrors.ErrVersionConflict
	}

	payment.Version++
	r.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (r *MemoryPaymentRepository) List(ctx context.Context, status domain.PaymentStatus) ([]*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payments := make([]*domain.Payment, 0, len(r.payments))
	for _, payment := range r.payments {
		if status != "" && payment.Status != status {
			continue
		}
		payments = append(payments, clonePayment(payment))
	}

	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.Before(payments[j].CreatedAt)
	})

	return payments, nil
}

func (r *MemoryPaymentRepository) ListExpirable(ctx context.Context, before time.Time) ([]*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var payments []*domain.Payment
	for _, payment := range r.payments {
		if payment.Status.Expirable() && payment.CreatedAt.Before(before) {
			payments = append(payments, clonePayment(payment))
		}
	}

	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.Before(payments[j].CreatedAt)
	})

	return payments, nil
}

// clonePayment deep-copies a payment so callers never alias stored state.
func clonePayment(p *domain.Payment) *domain.Payment {
	clone := *p

	if p.Refunds != nil {
		clone.Refunds = make([]*domain.Refund, len(p.Refunds))
		for i, refund := range p.Refunds {
			refundCopy := *refund
			if refund.ProcessedAt != nil {
				processedAt := *refund.ProcessedAt
				refundCopy.ProcessedAt = &processedAt
			}
			clone.Refunds[i] = &refundCopy
		}
	}

	if p.InstallmentPlanID != nil {
		planID := *p.InstallmentPlanID
		clone.InstallmentPlanID = &planID
	}

	if p.ProcessedAt != nil {
		processedAt := *p.ProcessedAt
		clone.ProcessedAt = &processedAt
	}

	return &clone
}

// MemoryPlanRepository is an in-memory PlanRepository
type MemoryPlanRepository struct {
	mu    sync.RWMutex
	plans map[uuid.UUID]*domain.InstallmentPlan
}

func NewMemoryPlanRepository() *MemoryPlanRepository {
	return &MemoryPlanRepository{
		plans: make(map[uuid.UUID]*domain.InstallmentPlan),
	}
}

func (r *MemoryPlanRepository) Create(ctx context.Context, plan *domain.InstallmentPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plans[plan.ID] = clonePlan(plan)
	return nil
}

func (r *MemoryPlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plan, ok := r.plans[id]
	if !ok {
		return nil, apperrors.ErrPlanNotFound
	}
	return clonePlan(plan), nil
}

func (r *MemoryPlanRepository) List(ctx context.Context) ([]*domain.InstallmentPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plans := make([]*domain.InstallmentPlan, 0, len(r.plans))
	for _, plan := range r.plans {
		plans = append(plans, clonePlan(plan))
	}

	sort.Slice(plans, func(i, j int) bool {
		return plans[i].CreatedAt.Before(plans[j].CreatedAt)
	})

	return plans, nil
}

func (r *MemoryPlanRepository) UpdateInstallmentStatus(ctx context.Context, planID uuid.UUID, sequence int, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan, ok := r.plans[planID]
	if !ok {
		return apperrors.ErrPlanNotFound
	}

	for _, installment := range plan.Installments {
		if installment.Sequence == sequence {
			installment.Status = status
			return nil
		}
	}

	return apperrors.ErrPlanNotFound
}

func clonePlan(p *domain.InstallmentPlan) *domain.InstallmentPlan {
	clone := *p

	if p.PaymentID != nil {
		paymentID := *p.PaymentID
		clone.PaymentID = &paymentID
	}

	clone.Installments = make([]*domain.InstallmentPayment, len(p.Installments))
	for i, installment := range p.Installments {
		installmentCopy := *installment
		clone.Installments[i] = &installmentCopy
	}

	return &clone
}
