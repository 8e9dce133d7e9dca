package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicpay/payment-engine/internal/config"
	"github.com/clinicpay/payment-engine/internal/domain"
	"github.com/clinicpay/payment-engine/internal/gateway"
	"github.com/clinicpay/payment-engine/internal/repository"
	"github.com/clinicpay/payment-engine/internal/service"
	apperrors "github.com/clinicpay/payment-engine/pkg/errors"
)

type zeroRand struct{}

func (zeroRand) Float64() float64 { return 0 }
func (zeroRand) Intn(n int) int   { return 0 }

func testRouter(t *testing.T) *mux.Router {
	t.Helper()

	cfg := &config.Config{
		Business: config.BusinessConfig{
			MinAmount:       "1.00",
			MaxAmount:       "50000.00",
			DefaultCurrency: "USD",
			RefundFeeRate:   "2",
			BlockThreshold:  85,
			HoldThreshold:   50,
			PendingTTL:      24 * time.Hour,
		},
	}

	gw := gateway.NewSimulator("simulated", 0, 0, 1)
	scorer := service.NewRiskScorer(cfg.Business.BlockThreshold, 1).WithRandomSource(zeroRand{})

	svc := service.NewPaymentService(
		repository.NewMemoryPaymentRepository(),
		repository.NewMemoryPlanRepository(),
		gw, scorer, nil, cfg, nil,
	)

	h := NewPaymentHandler(svc)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/payments/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/payments", h.ProcessPayment).Methods("POST")
	api.HandleFunc("/payments", h.ListPayments).Methods("GET")
	api.HandleFunc("/payments/{paymentId}", h.GetPayment).Methods("GET")
	api.HandleFunc("/payments/{paymentId}/refunds", h.RefundPayment).Methods("POST")
	api.HandleFunc("/installment-plans", h.CreateInstallmentPlan).Methods("POST")
	api.HandleFunc("/installment-plans/{planId}", h.GetInstallmentPlan).Methods("GET")
	api.HandleFunc("/fraud/check", h.CheckFraud).Methods("POST")
	return router
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	var env envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &env))
	return recorder, env
}

func createPayment(t *testing.T, router *mux.Router) *domain.Payment {
	t.Helper()

	recorder, env := doJSON(t, router, http.MethodPost, "/api/v1/payments", map[string]interface{}{
		"amount":         "150.00",
		"payment_method": "cash",
		"terms_accepted": true,
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var payment domain.Payment
	require.NoError(t, json.Unmarshal(env.Data, &payment))
	return &payment
}

func TestProcessPaymentEndpoint(t *testing.T) {
	router := testRouter(t)

	payment := createPayment(t, router)

	assert.Equal(t, domain.PaymentStatusCaptured, payment.Status)
	assert.True(t, payment.Amount.Total.Equal(payment.Amount.Subtotal))
	assert.Regexp(t, `^PAY-\d{6}-[0-9A-F]{6}$`, payment.PaymentNumber)
	assert.NotEmpty(t, payment.Gateway.TransactionID)
}

func TestProcessPaymentEndpoint_InvalidBody(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewBufferString("{not json"))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestProcessPaymentEndpoint_ValidationFailure(t *testing.T) {
	router := testRouter(t)

	// Unknown payment method rejected by the request validator
	recorder, env := doJSON(t, router, http.MethodPost, "/api/v1/payments", map[string]interface{}{
		"amount":         "150.00",
		"payment_method": "bitcoin",
		"terms_accepted": true,
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.False(t, env.Success)
}

func TestProcessPaymentEndpoint_BusinessRejection(t *testing.T) {
	router := testRouter(t)

	// Terms not accepted fails in the service layer with a validation code
	recorder, env := doJSON(t, router, http.MethodPost, "/api/v1/payments", map[string]interface{}{
		"amount":         "150.00",
		"payment_method": "cash",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, apperrors.ErrCodeValidation, env.ErrorCode)
}

func TestGetPaymentEndpoint(t *testing.T) {
	router := testRouter(t)
	payment := createPayment(t, router)

	recorder, env := doJSON(t, router, http.MethodGet, "/api/v1/payments/"+payment.ID.String(), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got domain.Payment
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, payment.ID, got.ID)
}

func TestGetPaymentEndpoint_NotFound(t *testing.T) {
	router := testRouter(t)

	recorder, env := doJSON(t, router, http.MethodGet, "/api/v1/payments/b3b44a88-13f2-4b2e-9f2e-0a1b2c3d4e5f", nil)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, apperrors.ErrCodeNotFound, env.ErrorCode)
}

func TestGetPaymentEndpoint_InvalidID(t *testing.T) {
	router := testRouter(t)

	recorder, _ := doJSON(t, router, http.MethodGet, "/api/v1/payments/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestListPaymentsEndpoint(t *testing.T) {
	router := testRouter(t)
	createPayment(t, router)
	createPayment(t, router)

	recorder, env := doJSON(t, router, http.MethodGet, "/api/v1/payments", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var payments []*domain.Payment
	require.NoError(t, json.Unmarshal(env.Data, &payments))
	assert.Len(t, payments, 2)

	recorder, env = doJSON(t, router, http.MethodGet, "/api/v1/payments?status=failed", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NoError(t, json.Unmarshal(env.Data, &payments))
	assert.Empty(t, payments)
}

func TestRefundPaymentEndpoint(t *testing.T) {
	router := testRouter(t)
	payment := createPayment(t, router)

	recorder, env := doJSON(t, router, http.MethodPost, "/api/v1/payments/"+payment.ID.String()+"/refunds", map[string]interface{}{
		"amount": "150.00",
		"reason": "customer_request",
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var result domain.RefundPaymentResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, domain.PaymentStatusRefunded, result.Payment.Status)
	assert.Equal(t, domain.RefundTypeFull, result.Refund.Type)
	assert.True(t, result.Payment.RefundableAmount.IsZero())
}

func TestRefundPaymentEndpoint_ExceedsBalance(t *testing.T) {
	router := testRouter(t)
	payment := createPayment(t, router)

	recorder, env := doJSON(t, router, http.MethodPost, "/api/v1/payments/"+payment.ID.String()+"/refunds", map[string]interface{}{
		"amount": "9999.00",
		"reason": "customer_request",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Equal(t, apperrors.ErrCodeRefund, env.ErrorCode)
}

func TestInstallmentPlanEndpoints(t *testing.T) {
	router := testRouter(t)

	recorder, env := doJSON(t, router, http.MethodPost, "/api/v1/installment-plans", map[string]interface{}{
		"total_amount":       "972.00",
		"number_of_payments": 6,
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var plan domain.InstallmentPlan
	require.NoError(t, json.Unmarshal(env.Data, &plan))
	require.Len(t, plan.Installments, 6)

	recorder, env = doJSON(t, router, http.MethodGet, "/api/v1/installment-plans/"+plan.ID.String(), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got domain.InstallmentPlan
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, plan.ID, got.ID)
}

func TestStatsEndpoint(t *testing.T) {
	router := testRouter(t)
	createPayment(t, router)

	recorder, env := doJSON(t, router, http.MethodGet, "/api/v1/payments/stats", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var stats domain.PaymentStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.TotalCount)
	assert.Equal(t, 1, stats.CountsByStatus[domain.PaymentStatusCaptured])
}

func TestFraudCheckEndpoint(t *testing.T) {
	router := testRouter(t)

	recorder, env := doJSON(t, router, http.MethodPost, "/api/v1/fraud/check", map[string]interface{}{
		"amount":         "2500.00",
		"payment_method": "credit_card",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var result domain.FraudCheckResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	// Pinned base roll of zero leaves only the additive factors: 20 + 10
	assert.Equal(t, 30, result.RiskScore)
	assert.Equal(t, domain.RiskLevelMedium, result.RiskLevel)
	assert.Equal(t, domain.RecommendationApprove, result.Recommendation)
	assert.ElementsMatch(t, []string{domain.RiskFactorLargeAmount, domain.RiskFactorUnsavedCard}, result.RiskFactors)
}
