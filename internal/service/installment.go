package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinicpay/payment-engine/internal/domain"
	apperrors "github.com/clinicpay/payment-engine/pkg/errors"
	"github.com/clinicpay/payment-engine/pkg/money"
)

// CreateInstallmentPlan amortizes a total amount into monthly installments.
//
// Rounding policy: with no interest every installment is total/n rounded
// down to cents and the last installment absorbs the remainder, so the
// schedule sums back to the total exactly and no amount goes negative. With interest, the fixed annuity payment is
// used for all but the last installment, which clears the remaining balance.
func (s *PaymentService) CreateInstallmentPlan(ctx context.Context, request *domain.CreatePlanRequest) (*domain.InstallmentPlan, error) {
	if !request.TotalAmount.IsPositive() {
		return nil, apperrors.WrapValidation(
			"Total amount must be greater than zero", apperrors.ErrInvalidInstallments)
	}

	if request.NumberOfPayments <= 0 {
		return nil, apperrors.WrapValidation(
			"Number of payments must be a positive integer", apperrors.ErrInvalidInstallments)
	}

	if request.InterestRate.IsNegative() {
		return nil, apperrors.WrapValidation(
			"Interest rate must not be negative", apperrors.ErrInvalidInstallments)
	}

	now := s.now()
	start := now
	if request.StartDate != nil {
		start = *request.StartDate
	}

	total := money.Round2(request.TotalAmount)
	n := request.NumberOfPayments

	plan := &domain.InstallmentPlan{
		ID:                 uuid.New(),
		PaymentID:          request.PaymentID,
		TotalAmount:        total,
		NumberOfPayments:   n,
		AnnualInterestRate: request.InterestRate,
		StartDate:          start,
		CreatedAt:          now,
	}

	if request.InterestRate.IsZero() {
		plan.Installments = equalInstallments(total, n, start)
		plan.MonthlyPayment = plan.Installments[0].Amount
		plan.TotalInterest = decimal.Zero
	} else {
		monthlyRate := money.MonthlyRate(request.InterestRate)
		plan.MonthlyPayment = money.AmortizedPayment(total, monthlyRate, n)
		plan.Installments, plan.TotalInterest = amortizedInstallments(total, monthlyRate, plan.MonthlyPayment, n, start)
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	if request.PaymentID != nil {
		if err := s.attachPlan(ctx, *request.PaymentID, plan.ID); err != nil {
			return nil, err
		}
	}

	return plan, nil
}

func equalInstallments(total decimal.Decimal, n int, start time.Time) []*domain.InstallmentPayment {
	parts := money.EqualSplit(total, n)

	installments := make([]*domain.InstallmentPayment, n)
	for i, part := range parts {
		installments[i] = &domain.InstallmentPayment{
			Sequence:         i + 1,
			DueDate:          money.AddMonths(start, i),
			Amount:           part,
			PrincipalPortion: part,
			InterestPortion:  decimal.Zero,
			Status:           domain.InstallmentStatusPending,
		}
	}

	return installments
}

func amortizedInstallments(total, monthlyRate, payment decimal.Decimal, n int, start time.Time) ([]*domain.InstallmentPayment, decimal.Decimal) {
	installments := make([]*domain.InstallmentPayment, n)
	balance := total
	totalInterest := decimal.Zero

	for i := 0; i < n; i++ {
		interest := money.InterestPortion(balance, monthlyRate)
		principal := payment.Sub(interest)
		amount := payment

		// Last installment clears whatever balance remains after rounding.
		if i == n-1 {
			principal = balance
			amount = money.Round2(principal.Add(interest))
		}

		installments[i] = &domain.InstallmentPayment{
			Sequence:         i + 1,
			DueDate:          money.AddMonths(start, i),
			Amount:           amount,
			PrincipalPortion: money.Round2(principal),
			InterestPortion:  interest,
			Status:           domain.InstallmentStatusPending,
		}

		balance = balance.Sub(principal)
		totalInterest = totalInterest.Add(interest)
	}

	return installments, totalInterest
}

// attachPlan links a created plan back to its payment
func (s *PaymentService) attachPlan(ctx context.Context, paymentID, planID uuid.UUID) error {
	payment, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	payment.InstallmentPlanID = &planID
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		if errors.Is(err, apperrors.ErrVersionConflict) {
			return apperrors.WrapVersionConflict(paymentID.String())
		}
		return apperrors.WrapDatabaseError(err)
	}

	return nil
}

// GetInstallmentPlan returns a plan with its schedule
func (s *PaymentService) GetInstallmentPlan(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrPlanNotFound) {
			return nil, apperrors.WrapPlanNotFound(id.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}
	return plan, nil
}

// MarkOverdueInstallments flags pending installments whose due date has
// passed. Called by the scheduler; returns the number of entries updated.
func (s *PaymentService) MarkOverdueInstallments(ctx context.Context) (int, error) {
	plans, err := s.planRepo.List(ctx)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err)
	}

	now := s.now()
	marked := 0
	for _, plan := range plans {
		for _, installment := range plan.Installments {
			if installment.Status != domain.InstallmentStatusPending {
				continue
			}
			if !money.IsOverdue(installment.DueDate, now) {
				continue
			}
			if err := s.planRepo.UpdateInstallmentStatus(ctx, plan.ID, installment.Sequence, domain.InstallmentStatusOverdue); err != nil {
				return marked, apperrors.WrapDatabaseError(err)
			}
			marked++
		}
	}

	return marked, nil
}
