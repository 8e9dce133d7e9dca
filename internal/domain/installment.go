package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InstallmentStatusPending = "pending"
	InstallmentStatusPaid    = "paid"
	InstallmentStatusOverdue = "overdue"
)

// InstallmentPayment is one entry in an installment schedule
type InstallmentPayment struct {
	Sequence         int             `json:"sequence"`
	DueDate          time.Time       `json:"due_date"`
	Amount           decimal.Decimal `json:"amount"`
	PrincipalPortion decimal.Decimal `json:"principal_portion"`
	InterestPortion  decimal.Decimal `json:"interest_portion"`
	Status           string          `json:"status"`
}

// InstallmentPlan amortizes one total amount into monthly payments
type InstallmentPlan struct {
	ID                 uuid.UUID             `json:"id"`
	PaymentID          *uuid.UUID            `json:"payment_id,omitempty"`
	TotalAmount        decimal.Decimal       `json:"total_amount"`
	NumberOfPayments   int                   `json:"number_of_payments"`
	AnnualInterestRate decimal.Decimal       `json:"annual_interest_rate"`
	MonthlyPayment     decimal.Decimal       `json:"monthly_payment"`
	TotalInterest      decimal.Decimal       `json:"total_interest"`
	StartDate          time.Time             `json:"start_date"`
	Installments       []*InstallmentPayment `json:"installments"`
	CreatedAt          time.Time             `json:"created_at"`
}

type CreatePlanRequest struct {
	TotalAmount      decimal.Decimal `json:"total_amount"`
	NumberOfPayments int             `json:"number_of_payments" validate:"required,gt=0,lte=60"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	StartDate        *time.Time      `json:"start_date"`
	PaymentID        *uuid.UUID      `json:"payment_id"`
}
