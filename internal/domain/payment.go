package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusProcessing        PaymentStatus = "processing"
	PaymentStatusCaptured          PaymentStatus = "captured"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusSettled           PaymentStatus = "settled"
	PaymentStatusDisputed          PaymentStatus = "disputed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusCancelled         PaymentStatus = "cancelled"
	PaymentStatusExpired           PaymentStatus = "expired"
)

// Refundable reports whether refunds may be taken against this status.
func (s PaymentStatus) Refundable() bool {
	return s == PaymentStatusCaptured || s == PaymentStatusSettled
}

// Expirable reports whether the scheduler may expire a payment stuck in
// this status.
func (s PaymentStatus) Expirable() bool {
	return s == PaymentStatusPending || s == PaymentStatusProcessing
}

// PaymentMethodType identifies how the patient is paying
type PaymentMethodType string

const (
	MethodCreditCard   PaymentMethodType = "credit_card"
	MethodDebitCard    PaymentMethodType = "debit_card"
	MethodBankTransfer PaymentMethodType = "bank_transfer"
	MethodInsurance    PaymentMethodType = "insurance"
	MethodCash         PaymentMethodType = "cash"
)

// Amount is the monetary breakdown of a payment.
// Total = Subtotal + Taxes - Discounts + Fees
// PatientResponsibility = Total - InsuranceCovered
type Amount struct {
	Subtotal              decimal.Decimal `json:"subtotal"`
	Taxes                 decimal.Decimal `json:"taxes"`
	Discounts             decimal.Decimal `json:"discounts"`
	Fees                  decimal.Decimal `json:"fees"`
	Total                 decimal.Decimal `json:"total"`
	InsuranceCovered      decimal.Decimal `json:"insurance_covered"`
	PatientResponsibility decimal.Decimal `json:"patient_responsibility"`
	Currency              string          `json:"currency"`
}

// PaymentMethod describes the instrument used, card details masked
type PaymentMethod struct {
	Type              PaymentMethodType `json:"type"`
	CardBrand         string            `json:"card_brand,omitempty"`
	CardLast4         string            `json:"card_last4,omitempty"`
	BankCode          string            `json:"bank_code,omitempty"`
	InsuranceMemberID string            `json:"insurance_member_id,omitempty"`
	SaveMethod        bool              `json:"save_method"`
}

// GatewayInfo carries the simulated gateway's references for a charge
type GatewayInfo struct {
	Provider          string `json:"provider,omitempty"`
	TransactionID     string `json:"transaction_id,omitempty"`
	AuthorizationCode string `json:"authorization_code,omitempty"`
}

// Payment represents a clinic payment transaction
type Payment struct {
	ID                uuid.UUID       `json:"id"`
	PaymentNumber     string          `json:"payment_number"`
	PatientID         string          `json:"patient_id,omitempty"`
	Amount            Amount          `json:"amount"`
	Method            PaymentMethod   `json:"payment_method"`
	Gateway           GatewayInfo     `json:"gateway"`
	Status            PaymentStatus   `json:"status"`
	FraudScore        int             `json:"fraud_score"`
	RiskLevel         RiskLevel       `json:"risk_level"`
	RefundableAmount  decimal.Decimal `json:"refundable_amount"`
	Refunds           []*Refund       `json:"refunds,omitempty"`
	InstallmentPlanID *uuid.UUID      `json:"installment_plan_id,omitempty"`
	IdempotencyKey    string          `json:"idempotency_key,omitempty"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
}

// DTOs for requests and responses

type CreatePaymentRequest struct {
	Amount            decimal.Decimal   `json:"amount"`
	Taxes             decimal.Decimal   `json:"taxes"`
	Discounts         decimal.Decimal   `json:"discounts"`
	Fees              decimal.Decimal   `json:"fees"`
	InsuranceCovered  decimal.Decimal   `json:"insurance_covered"`
	Currency          string            `json:"currency" validate:"omitempty,len=3"`
	PatientID         string            `json:"patient_id"`
	PaymentMethod     PaymentMethodType `json:"payment_method" validate:"required,oneof=credit_card debit_card bank_transfer insurance cash"`
	CardBrand         string            `json:"card_brand"`
	CardLast4         string            `json:"card_last4" validate:"omitempty,len=4,numeric"`
	BankCode          string            `json:"bank_code"`
	InsuranceMemberID string            `json:"insurance_member_id"`
	SaveMethod        bool              `json:"save_payment_method"`
	TermsAccepted     bool              `json:"terms_accepted"`
	IdempotencyKey    string            `json:"idempotency_key"`
}

type RefundPaymentResponse struct {
	Payment *Payment `json:"payment"`
	Refund  *Refund  `json:"refund"`
}

// PaymentStats is the read-only aggregate over all payments
type PaymentStats struct {
	TotalCount        int                   `json:"total_count"`
	CountsByStatus    map[PaymentStatus]int `json:"counts_by_status"`
	CapturedVolume    decimal.Decimal       `json:"captured_volume"`
	RefundedVolume    decimal.Decimal       `json:"refunded_volume"`
	AverageFraudScore decimal.Decimal       `json:"average_fraud_score"`
	CaptureRate       decimal.Decimal       `json:"capture_rate"`
}
