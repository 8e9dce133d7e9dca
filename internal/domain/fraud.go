package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel classifies a fraud score
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Recommendation is the action suggested by a fraud check
type Recommendation string

const (
	RecommendationApprove Recommendation = "approve"
	RecommendationReview  Recommendation = "review"
	RecommendationBlock   Recommendation = "block"
)

// Risk factor names reported by the scorer
const (
	RiskFactorLargeAmount = "large_amount"
	RiskFactorUnsavedCard = "unsaved_card"
)

// FraudCheckRequest is a standalone risk-analysis call, usable before a
// payment is created.
type FraudCheckRequest struct {
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod PaymentMethodType `json:"payment_method" validate:"required,oneof=credit_card debit_card bank_transfer insurance cash"`
	SaveMethod    bool              `json:"save_payment_method"`
	PatientID     string            `json:"patient_id"`
}

type FraudCheckResponse struct {
	RiskScore      int            `json:"risk_score"`
	RiskLevel      RiskLevel      `json:"risk_level"`
	Recommendation Recommendation `json:"recommendation"`
	RiskFactors    []string       `json:"risk_factors"`
	CheckedAt      time.Time      `json:"checked_at"`
}
