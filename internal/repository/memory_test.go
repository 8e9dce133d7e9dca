package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicpay/payment-engine/internal/domain"
	apperrors "github.com/clinicpay/payment-engine/pkg/errors"
)

func newPayment(status domain.PaymentStatus, createdAt time.Time) *domain.Payment {
	total := decimal.RequireFromString("100.00")
	return &domain.Payment{
		ID:            uuid.New(),
		PaymentNumber: "PAY-202601-TEST01",
		Amount: domain.Amount{
			Subtotal:              total,
			Total:                 total,
			PatientResponsibility: total,
			Currency:              "USD",
		},
		Method:           domain.PaymentMethod{Type: domain.MethodCash},
		Status:           status,
		RefundableAmount: total,
		Version:          1,
		CreatedAt:        createdAt,
	}
}

func TestMemoryPaymentRepository_CreateAndGet(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	ctx := context.Background()

	payment := newPayment(domain.PaymentStatusCaptured, time.Now())
	require.NoError(t, repo.Create(ctx, payment))

	got, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, got.ID)
	assert.Equal(t, payment.Status, got.Status)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrPaymentNotFound)
}

func TestMemoryPaymentRepository_IdempotencyKey(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	ctx := context.Background()

	payment := newPayment(domain.PaymentStatusCaptured, time.Now())
	payment.IdempotencyKey = "key-1"
	require.NoError(t, repo.Create(ctx, payment))

	got, err := repo.GetByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, got.ID)

	_, err = repo.GetByIdempotencyKey(ctx, "unknown")
	assert.ErrorIs(t, err, apperrors.ErrPaymentNotFound)
}

func TestMemoryPaymentRepository_OptimisticLocking(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	ctx := context.Background()

	payment := newPayment(domain.PaymentStatusCaptured, time.Now())
	require.NoError(t, repo.Create(ctx, payment))

	// Two readers load the same version
	first, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)

	first.Status = domain.PaymentStatusRefunded
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 2, first.Version)

	// The second writer lost the race
	second.Status = domain.PaymentStatusDisputed
	err = repo.Update(ctx, second)
	assert.ErrorIs(t, err, apperrors.ErrVersionConflict)

	got, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, got.Status)
}

func TestMemoryPaymentRepository_CloneIsolation(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	ctx := context.Background()

	payment := newPayment(domain.PaymentStatusCaptured, time.Now())
	require.NoError(t, repo.Create(ctx, payment))

	got, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)

	// Mutating a returned payment must not leak into the store
	got.Status = domain.PaymentStatusFailed
	got.Refunds = append(got.Refunds, &domain.Refund{ID: uuid.New()})

	fresh, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCaptured, fresh.Status)
	assert.Empty(t, fresh.Refunds)
}

func TestMemoryPaymentRepository_List(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	ctx := context.Background()

	older := newPayment(domain.PaymentStatusCaptured, time.Now().Add(-time.Hour))
	newer := newPayment(domain.PaymentStatusFailed, time.Now())
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, older.ID, all[0].ID, "payments must be ordered by creation time")

	failed, err := repo.List(ctx, domain.PaymentStatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, newer.ID, failed[0].ID)
}

func TestMemoryPaymentRepository_ListExpirable(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	ctx := context.Background()
	cutoff := time.Now().Add(-24 * time.Hour)

	stalePending := newPayment(domain.PaymentStatusPending, time.Now().Add(-48*time.Hour))
	staleCaptured := newPayment(domain.PaymentStatusCaptured, time.Now().Add(-48*time.Hour))
	freshPending := newPayment(domain.PaymentStatusPending, time.Now())

	require.NoError(t, repo.Create(ctx, stalePending))
	require.NoError(t, repo.Create(ctx, staleCaptured))
	require.NoError(t, repo.Create(ctx, freshPending))

	expirable, err := repo.ListExpirable(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, expirable, 1)
	assert.Equal(t, stalePending.ID, expirable[0].ID)
}

func TestMemoryPlanRepository(t *testing.T) {
	repo := NewMemoryPlanRepository()
	ctx := context.Background()

	plan := &domain.InstallmentPlan{
		ID:               uuid.New(),
		TotalAmount:      decimal.RequireFromString("300.00"),
		NumberOfPayments: 2,
		StartDate:        time.Now(),
		CreatedAt:        time.Now(),
		Installments: []*domain.InstallmentPayment{
			{Sequence: 1, Amount: decimal.RequireFromString("150.00"), Status: domain.InstallmentStatusPending},
			{Sequence: 2, Amount: decimal.RequireFromString("150.00"), Status: domain.InstallmentStatusPending},
		},
	}

	require.NoError(t, repo.Create(ctx, plan))

	got, err := repo.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Len(t, got.Installments, 2)

	require.NoError(t, repo.UpdateInstallmentStatus(ctx, plan.ID, 2, domain.InstallmentStatusPaid))

	got, err = repo.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstallmentStatusPending, got.Installments[0].Status)
	assert.Equal(t, domain.InstallmentStatusPaid, got.Installments[1].Status)

	err = repo.UpdateInstallmentStatus(ctx, plan.ID, 99, domain.InstallmentStatusPaid)
	assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)
}
