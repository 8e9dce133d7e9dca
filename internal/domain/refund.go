package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefundReason categorizes why a refund was requested
type RefundReason string

const (
	RefundReasonCustomerRequest    RefundReason = "customer_request"
	RefundReasonDuplicateCharge    RefundReason = "duplicate_charge"
	RefundReasonServiceNotRendered RefundReason = "service_not_rendered"
	RefundReasonBillingError       RefundReason = "billing_error"
	RefundReasonOther              RefundReason = "other"
)

// RefundType distinguishes whether the full refundable balance was returned
type RefundType string

const (
	RefundTypeFull    RefundType = "full"
	RefundTypePartial RefundType = "partial"
)

type RefundStatus string

const (
	RefundStatusCompleted RefundStatus = "completed"
	RefundStatusFailed    RefundStatus = "failed"
)

// Refund records one refund taken against a payment. Amount is the gross
// amount deducted from the refundable balance; NetAmount is what the patient
// receives after the processing fee.
type Refund struct {
	ID              uuid.UUID       `json:"id"`
	PaymentID       uuid.UUID       `json:"payment_id"`
	Amount          decimal.Decimal `json:"amount"`
	Fee             decimal.Decimal `json:"fee"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	Reason          RefundReason    `json:"reason"`
	Type            RefundType      `json:"type"`
	Status          RefundStatus    `json:"status"`
	GatewayRefundID string          `json:"gateway_refund_id,omitempty"`
	RequestedAt     time.Time       `json:"requested_at"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
}

type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason RefundReason    `json:"reason" validate:"required,oneof=customer_request duplicate_charge service_not_rendered billing_error other"`
}
