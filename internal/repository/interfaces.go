package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicpay/payment-engine/internal/domain"
)

// PaymentRepository defines the interface for payment data operations.
// Implementations return pkg/errors.ErrPaymentNotFound for unknown ids and
// pkg/errors.ErrVersionConflict when an optimistic-lock update loses a race.
type PaymentRepository interface {
	// Create persists a new payment
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// GetByIdempotencyKey retrieves the payment created under the given key
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)

	// Update persists payment mutations. The payment's Version must match
	// the stored version; on success the version is incremented.
	Update(ctx context.Context, payment *domain.Payment) error

	// List returns payments, optionally filtered by status (empty = all),
	// ordered by creation time
	List(ctx context.Context, status domain.PaymentStatus) ([]*domain.Payment, error)

	// ListExpirable returns pending/processing payments created before the cutoff
	ListExpirable(ctx context.Context, before time.Time) ([]*domain.Payment, error)
}

// PlanRepository defines the interface for installment plan data operations
type PlanRepository interface {
	// Create persists a plan together with its installment schedule
	Create(ctx context.Context, plan *domain.InstallmentPlan) error

	// GetByID retrieves a plan with its schedule
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error)

	// List returns all plans
	List(ctx context.Context) ([]*domain.InstallmentPlan, error)

	// UpdateInstallmentStatus updates the status of one schedule entry
	UpdateInstallmentStatus(ctx context.Context, planID uuid.UUID, sequence int, status string) error
}
