package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPlanNotFound         = errors.New("installment plan not found")
	ErrAmountOutOfRange     = errors.New("amount is outside the allowed range")
	ErrMissingMethodDetails = errors.New("payment method details are incomplete")
	ErrTermsNotAccepted     = errors.New("payment terms were not accepted")
	ErrFraudBlocked         = errors.New("transaction blocked by fraud screening")
	ErrRefundNotAllowed     = errors.New("payment is not in a refundable state")
	ErrRefundExceedsBalance = errors.New("refund amount exceeds refundable balance")
	ErrInvalidRefundAmount  = errors.New("refund amount must be positive")
	ErrGatewayUnavailable   = errors.New("payment gateway temporarily unavailable")
	ErrVersionConflict      = errors.New("payment was modified concurrently")
	ErrInvalidInstallments  = errors.New("invalid installment plan parameters")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeFraudBlocked = "FRAUD_BLOCKED"
	ErrCodeRefund       = "REFUND_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeTransient    = "TRANSIENT_ERROR"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeDatabase     = "DATABASE_ERROR"
)

// Wrap common errors with business context

func WrapValidation(message string, err error) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, err)
}

func WrapAmountOutOfRange(amount, min, max string) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		fmt.Sprintf("Amount %s must be between %s and %s", amount, min, max),
		ErrAmountOutOfRange,
	)
}

func WrapFraudBlocked(score int) *BusinessError {
	return NewBusinessError(
		ErrCodeFraudBlocked,
		fmt.Sprintf("Transaction blocked: fraud score %d exceeds block threshold", score),
		ErrFraudBlocked,
	)
}

func WrapPaymentNotFound(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Payment with ID %s not found", paymentID),
		ErrPaymentNotFound,
	)
}

func WrapPlanNotFound(planID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Installment plan with ID %s not found", planID),
		ErrPlanNotFound,
	)
}

func WrapRefundNotAllowed(status string) *BusinessError {
	return NewBusinessError(
		ErrCodeRefund,
		fmt.Sprintf("Payment in status %q cannot be refunded", status),
		ErrRefundNotAllowed,
	)
}

func WrapRefundExceedsBalance(requested, refundable string) *BusinessError {
	return NewBusinessError(
		ErrCodeRefund,
		fmt.Sprintf("Refund amount %s exceeds refundable balance %s", requested, refundable),
		ErrRefundExceedsBalance,
	)
}

func WrapInvalidRefundAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeRefund,
		fmt.Sprintf("Refund amount %s must be greater than zero", amount),
		ErrInvalidRefundAmount,
	)
}

func WrapGatewayUnavailable(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeTransient,
		"Payment gateway request failed, the operation may be retried",
		err,
	)
}

func WrapVersionConflict(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConflict,
		fmt.Sprintf("Payment %s was modified by another request, retry with fresh state", paymentID),
		ErrVersionConflict,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(ErrCodeDatabase, "database operation failed", err)
}

// Code extracts the business error code from err, or an empty string when
// err is not a BusinessError.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
