package service

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinicpay/payment-engine/internal/domain"
	"github.com/clinicpay/payment-engine/internal/gateway"
)

// Scoring rules. The base score is drawn uniformly from [0, 30); amounts
// over the large-amount threshold add 20 points and an unsaved card adds 10.
// Risk levels: low < 30, medium 30-59, high >= 60. The block threshold is
// configurable and defaults to 85; scores of 60 up to the block threshold
// get a manual-review recommendation.
const (
	baseScoreRange     = 30
	largeAmountPoints  = 20
	unsavedCardPoints  = 10
	mediumRiskBoundary = 30
	highRiskBoundary   = 60
	maxScore           = 100
)

var largeAmountThreshold = decimal.NewFromInt(1000)

// RiskScorer assigns fraud scores to transactions. Randomness is injectable
// so tests can pin the base score.
type RiskScorer struct {
	blockThreshold int
	now            gateway.Clock

	mu  sync.Mutex
	rng gateway.RandomSource
}

// NewRiskScorer creates a scorer with the given block threshold. A zero seed
// derives one from the wall clock.
func NewRiskScorer(blockThreshold int, seed int64) *RiskScorer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RiskScorer{
		blockThreshold: blockThreshold,
		now:            time.Now,
		rng:            rand.New(rand.NewSource(seed)),
	}
}

// WithRandomSource replaces the randomness source, for deterministic tests.
func (s *RiskScorer) WithRandomSource(rng gateway.RandomSource) *RiskScorer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rng
	return s
}

// WithClock replaces the time source.
func (s *RiskScorer) WithClock(now gateway.Clock) *RiskScorer {
	s.now = now
	return s
}

// Score computes a fraud score in [0, 100] for a transaction, along with
// the risk factors that contributed to it.
func (s *RiskScorer) Score(amount decimal.Decimal, method domain.PaymentMethodType, saveMethod bool) (int, []string) {
	s.mu.Lock()
	base := int(s.rng.Float64() * baseScoreRange)
	s.mu.Unlock()

	score := base
	var factors []string

	if amount.GreaterThan(largeAmountThreshold) {
		score += largeAmountPoints
		factors = append(factors, domain.RiskFactorLargeAmount)
	}

	if method == domain.MethodCreditCard && !saveMethod {
		score += unsavedCardPoints
		factors = append(factors, domain.RiskFactorUnsavedCard)
	}

	if score > maxScore {
		score = maxScore
	}
	if score < 0 {
		score = 0
	}

	return score, factors
}

// Level classifies a fraud score into a risk level.
func (s *RiskScorer) Level(score int) domain.RiskLevel {
	switch {
	case score < mediumRiskBoundary:
		return domain.RiskLevelLow
	case score < highRiskBoundary:
		return domain.RiskLevelMedium
	default:
		return domain.RiskLevelHigh
	}
}

// Recommend maps a fraud score to an action recommendation.
func (s *RiskScorer) Recommend(score int) domain.Recommendation {
	switch {
	case score >= s.blockThreshold:
		return domain.RecommendationBlock
	case score >= highRiskBoundary:
		return domain.RecommendationReview
	default:
		return domain.RecommendationApprove
	}
}

// Blocked reports whether a score is at or above the block threshold.
func (s *RiskScorer) Blocked(score int) bool {
	return score >= s.blockThreshold
}

// Check runs a standalone fraud analysis without creating a payment.
func (s *RiskScorer) Check(req *domain.FraudCheckRequest) *domain.FraudCheckResponse {
	score, factors := s.Score(req.Amount, req.PaymentMethod, req.SaveMethod)

	return &domain.FraudCheckResponse{
		RiskScore:      score,
		RiskLevel:      s.Level(score),
		Recommendation: s.Recommend(score),
		RiskFactors:    factors,
		CheckedAt:      s.now(),
	}
}
