package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/clinicpay/payment-engine/internal/domain"
	apperrors "github.com/clinicpay/payment-engine/pkg/errors"
)

type postgresPaymentRepository struct {
	db *sqlx.DB
}

// NewPostgresPaymentRepository creates a PaymentRepository backed by postgres.
// Schema lives in migrations/0001_create_tables.sql.
func NewPostgresPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &postgresPaymentRepository{db: db}
}

type paymentRow struct {
	ID                    uuid.UUID       `db:"id"`
	PaymentNumber         string          `db:"payment_number"`
	PatientID             string          `db:"patient_id"`
	Subtotal              decimal.Decimal `db:"subtotal"`
	Taxes                 decimal.Decimal `db:"taxes"`
	Discounts             decimal.Decimal `db:"discounts"`
	Fees                  decimal.Decimal `db:"fees"`
	Total                 decimal.Decimal `db:"total"`
	InsuranceCovered      decimal.Decimal `db:"insurance_covered"`
	PatientResponsibility decimal.Decimal `db:"patient_responsibility"`
	Currency              string          `db:"currency"`
	MethodType            string          `db:"method_type"`
	CardBrand             string          `db:"card_brand"`
	CardLast4             string          `db:"card_last4"`
	BankCode              string          `db:"bank_code"`
	InsuranceMemberID     string          `db:"insurance_member_id"`
	SaveMethod            bool            `db:"save_method"`
	GatewayProvider       string          `db:"gateway_provider"`
	GatewayTransactionID  string          `db:"gateway_transaction_id"`
	GatewayAuthCode       string          `db:"gateway_auth_code"`
	Status                string          `db:"status"`
	FraudScore            int             `db:"fraud_score"`
	RiskLevel             string          `db:"risk_level"`
	RefundableAmount      decimal.Decimal `db:"refundable_amount"`
	InstallmentPlanID     *uuid.UUID      `db:"installment_plan_id"`
	IdempotencyKey        string          `db:"idempotency_key"`
	Version               int             `db:"version"`
	CreatedAt             time.Time       `db:"created_at"`
	ProcessedAt           *time.Time      `db:"processed_at"`
}

type refundRow struct {
	ID              uuid.UUID       `db:"id"`
	PaymentID       uuid.UUID       `db:"payment_id"`
	Amount          decimal.Decimal `db:"amount"`
	Fee             decimal.Decimal `db:"fee"`
	NetAmount       decimal.Decimal `db:"net_amount"`
	Reason          string          `db:"reason"`
	Type            string          `db:"type"`
	Status          string          `db:"status"`
	GatewayRefundID string          `db:"gateway_refund_id"`
	RequestedAt     time.Time       `db:"requested_at"`
	ProcessedAt     *time.Time      `db:"processed_at"`
}

const paymentColumns = `
	id, payment_number, patient_id,
	subtotal, taxes, discounts, fees, total, insurance_covered, patient_responsibility, currency,
	method_type, card_brand, card_last4, bank_code, insurance_member_id, save_method,
	gateway_provider, gateway_transaction_id, gateway_auth_code,
	status, fraud_score, risk_level, refundable_amount,
	installment_plan_id, idempotency_key, version, created_at, processed_at
`

func (r *postgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`

	row := toPaymentRow(payment)

	_, err := r.db.ExecContext(ctx, query,
		row.ID, row.PaymentNumber, row.PatientID,
		row.Subtotal, row.Taxes, row.Discounts, row.Fees, row.Total,
		row.InsuranceCovered, row.PatientResponsibility, row.Currency,
		row.MethodType, row.CardBrand, row.CardLast4, row.BankCode, row.InsuranceMemberID, row.SaveMethod,
		row.GatewayProvider, row.GatewayTransactionID, row.GatewayAuthCode,
		row.Status, row.FraudScore, row.RiskLevel, row.RefundableAmount,
		row.InstallmentPlanID, row.IdempotencyKey, row.Version, row.CreatedAt, row.ProcessedAt,
	)

	return err
}

func (r *postgresPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	var row paymentRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, err
	}

	refunds, err := r.refundsByPaymentID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toDomainPayment(&row, refunds), nil
}

func (r *postgresPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE idempotency_key = $1`

	var row paymentRow
	if err := r.db.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, err
	}

	refunds, err := r.refundsByPaymentID(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	return toDomainPayment(&row, refunds), nil
}

func (r *postgresPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE payments
		SET status = $3, fraud_score = $4, risk_level = $5, refundable_amount = $6,
		    gateway_provider = $7, gateway_transaction_id = $8, gateway_auth_code = $9,
		    installment_plan_id = $10, processed_at = $11, version = version + 1
		WHERE id = $1 AND version = $2
	`

	result, err := tx.ExecContext(ctx, query,
		payment.ID, payment.Version,
		payment.Status, payment.FraudScore, payment.RiskLevel, payment.RefundableAmount,
		payment.Gateway.Provider, payment.Gateway.TransactionID, payment.Gateway.AuthorizationCode,
		payment.InstallmentPlanID, payment.ProcessedAt,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrVersionConflict
	}

	refundQuery := `
		INSERT INTO refunds (id, payment_id, amount, fee, net_amount, reason, type, status, gateway_refund_id, requested_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	for _, refund := range payment.Refunds {
		_, err = tx.ExecContext(ctx, refundQuery,
			refund.ID, refund.PaymentID, refund.Amount, refund.Fee, refund.NetAmount,
			refund.Reason, refund.Type, refund.Status, refund.GatewayRefundID,
			refund.RequestedAt, refund.ProcessedAt,
		)
		if err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	payment.Version++
	return nil
}

func (r *postgresPaymentRepository) List(ctx context.Context, status domain.PaymentStatus) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at`
	args := []interface{}{}
	if status != "" {
		query = `SELECT ` + paymentColumns + ` FROM payments WHERE status = $1 ORDER BY created_at`
		args = append(args, status)
	}

	var rows []paymentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	return r.hydrate(ctx, rows)
}

func (r *postgresPaymentRepository) ListExpirable(ctx context.Context, before time.Time) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status IN ('pending', 'processing') AND created_at < $1
		ORDER BY created_at
	`

	var rows []paymentRow
	if err := r.db.SelectContext(ctx, &rows, query, before); err != nil {
		return nil, err
	}

	return r.hydrate(ctx, rows)
}

func (r *postgresPaymentRepository) hydrate(ctx context.Context, rows []paymentRow) ([]*domain.Payment, error) {
	payments := make([]*domain.Payment, 0, len(rows))
	for i := range rows {
		refunds, err := r.refundsByPaymentID(ctx, rows[i].ID)
		if err != nil {
			return nil, err
		}
		payments = append(payments, toDomainPayment(&rows[i], refunds))
	}
	return payments, nil
}

func (r *postgresPaymentRepository) refundsByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*domain.Refund, error) {
	query := `
		SELECT id, payment_id, amount, fee, net_amount, reason, type, status, gateway_refund_id, requested_at, processed_at
		FROM refunds
		WHERE payment_id = $1
		ORDER BY requested_at
	`

	var rows []refundRow
	if err := r.db.SelectContext(ctx, &rows, query, paymentID); err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}

	refunds := make([]*domain.Refund, len(rows))
	for i, row := range rows {
		refunds[i] = &domain.Refund{
			ID:              row.ID,
			PaymentID:       row.PaymentID,
			Amount:          row.Amount,
			Fee:             row.Fee,
			NetAmount:       row.NetAmount,
			Reason:          domain.RefundReason(row.Reason),
			Type:            domain.RefundType(row.Type),
			Status:          domain.RefundStatus(row.Status),
			GatewayRefundID: row.GatewayRefundID,
			RequestedAt:     row.RequestedAt,
			ProcessedAt:     row.ProcessedAt,
		}
	}

	return refunds, nil
}

func toPaymentRow(p *domain.Payment) *paymentRow {
	return &paymentRow{
		ID:                    p.ID,
		PaymentNumber:         p.PaymentNumber,
		PatientID:             p.PatientID,
		Subtotal:              p.Amount.Subtotal,
		Taxes:                 p.Amount.Taxes,
		Discounts:             p.Amount.Discounts,
		Fees:                  p.Amount.Fees,
		Total:                 p.Amount.Total,
		InsuranceCovered:      p.Amount.InsuranceCovered,
		PatientResponsibility: p.Amount.PatientResponsibility,
		Currency:              p.Amount.Currency,
		MethodType:            string(p.Method.Type),
		CardBrand:             p.Method.CardBrand,
		CardLast4:             p.Method.CardLast4,
		BankCode:              p.Method.BankCode,
		InsuranceMemberID:     p.Method.InsuranceMemberID,
		SaveMethod:            p.Method.SaveMethod,
		GatewayProvider:       p.Gateway.Provider,
		GatewayTransactionID:  p.Gateway.TransactionID,
		GatewayAuthCode:       p.Gateway.AuthorizationCode,
		Status:                string(p.Status),
		FraudScore:            p.FraudScore,
		RiskLevel:             string(p.RiskLevel),
		RefundableAmount:      p.RefundableAmount,
		InstallmentPlanID:     p.InstallmentPlanID,
		IdempotencyKey:        p.IdempotencyKey,
		Version:               p.Version,
		CreatedAt:             p.CreatedAt,
		ProcessedAt:           p.ProcessedAt,
	}
}

func toDomainPayment(row *paymentRow, refunds []*domain.Refund) *domain.Payment {
	return &domain.Payment{
		ID:            row.ID,
		PaymentNumber: row.PaymentNumber,
		PatientID:     row.PatientID,
		Amount: domain.Amount{
			Subtotal:              row.Subtotal,
			Taxes:                 row.Taxes,
			Discounts:             row.Discounts,
			Fees:                  row.Fees,
			Total:                 row.Total,
			InsuranceCovered:      row.InsuranceCovered,
			PatientResponsibility: row.PatientResponsibility,
			Currency:              row.Currency,
		},
		Method: domain.PaymentMethod{
			Type:              domain.PaymentMethodType(row.MethodType),
			CardBrand:         row.CardBrand,
			CardLast4:         row.CardLast4,
			BankCode:          row.BankCode,
			InsuranceMemberID: row.InsuranceMemberID,
			SaveMethod:        row.SaveMethod,
		},
		Gateway: domain.GatewayInfo{
			Provider:          row.GatewayProvider,
			TransactionID:     row.GatewayTransactionID,
			AuthorizationCode: row.GatewayAuthCode,
		},
		Status:            domain.PaymentStatus(row.Status),
		FraudScore:        row.FraudScore,
		RiskLevel:         domain.RiskLevel(row.RiskLevel),
		RefundableAmount:  row.RefundableAmount,
		Refunds:           refunds,
		InstallmentPlanID: row.InstallmentPlanID,
		IdempotencyKey:    row.IdempotencyKey,
		Version:           row.Version,
		CreatedAt:         row.CreatedAt,
		ProcessedAt:       row.ProcessedAt,
	}
}
