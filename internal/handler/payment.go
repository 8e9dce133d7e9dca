package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/clinicpay/payment-engine/internal/domain"
	"github.com/clinicpay/payment-engine/internal/service"
	apperrors "github.com/clinicpay/payment-engine/pkg/errors"
	"github.com/clinicpay/payment-engine/pkg/response"
)

type PaymentHandler struct {
	service   *service.PaymentService
	validator *validator.Validate
}

func NewPaymentHandler(service *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		validator: validator.New(),
	}
}

// ProcessPayment handles POST /api/v1/payments
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var request domain.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	// The idempotency key may arrive as a header instead of a body field.
	if request.IdempotencyKey == "" {
		request.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Request validation failed", err)
		return
	}

	payment, err := h.service.ProcessPayment(r.Context(), &request)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, payment)
}

// GetPayment handles GET /api/v1/payments/{paymentId}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "paymentId")
	if !ok {
		return
	}

	payment, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, payment)
}

// ListPayments handles GET /api/v1/payments?status=
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	status := domain.PaymentStatus(r.URL.Query().Get("status"))

	payments, err := h.service.ListPayments(r.Context(), status)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, payments)
}

// RefundPayment handles POST /api/v1/payments/{paymentId}/refunds
func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "paymentId")
	if !ok {
		return
	}

	var request domain.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Request validation failed", err)
		return
	}

	result, err := h.service.RefundPayment(r.Context(), id, &request)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, result)
}

// CreateInstallmentPlan handles POST /api/v1/installment-plans
func (h *PaymentHandler) CreateInstallmentPlan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Request validation failed", err)
		return
	}

	plan, err := h.service.CreateInstallmentPlan(r.Context(), &request)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, plan)
}

// GetInstallmentPlan handles GET /api/v1/installment-plans/{planId}
func (h *PaymentHandler) GetInstallmentPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "planId")
	if !ok {
		return
	}

	plan, err := h.service.GetInstallmentPlan(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, plan)
}

// GetStats handles GET /api/v1/payments/stats
func (h *PaymentHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetPaymentStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, stats)
}

// CheckFraud handles POST /api/v1/fraud/check
func (h *PaymentHandler) CheckFraud(w http.ResponseWriter, r *http.Request) {
	var request domain.FraudCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Request validation failed", err)
		return
	}

	result, err := h.service.DetectFraud(r.Context(), &request)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, result)
}

func parseID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps business error codes onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	var be *apperrors.BusinessError
	if !errors.As(err, &be) {
		response.InternalServerError(w, "Unexpected error", err)
		return
	}

	status := http.StatusInternalServerError
	switch be.Code {
	case apperrors.ErrCodeValidation:
		status = http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeFraudBlocked, apperrors.ErrCodeRefund:
		status = http.StatusUnprocessableEntity
	case apperrors.ErrCodeConflict:
		status = http.StatusConflict
	case apperrors.ErrCodeTransient:
		status = http.StatusBadGateway
	}

	response.ErrorWithCode(w, status, be.Message, be.Code, be.Err)
}
