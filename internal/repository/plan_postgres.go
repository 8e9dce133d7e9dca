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

type postgresPlanRepository struct {
	db *sqlx.DB
}

// NewPostgresPlanRepository creates a PlanRepository backed by postgres
func NewPostgresPlanRepository(db *sqlx.DB) PlanRepository {
	return &postgresPlanRepository{db: db}
}

type planRow struct {
	ID                 uuid.UUID       `db:"id"`
	PaymentID          *uuid.UUID      `db:"payment_id"`
	TotalAmount        decimal.Decimal `db:"total_amount"`
	NumberOfPayments   int             `db:"number_of_payments"`
	AnnualInterestRate decimal.Decimal `db:"annual_interest_rate"`
	MonthlyPayment     decimal.Decimal `db:"monthly_payment"`
	TotalInterest      decimal.Decimal `db:"total_interest"`
	StartDate          time.Time       `db:"start_date"`
	CreatedAt          time.Time       `db:"created_at"`
}

type installmentRow struct {
	PlanID           uuid.UUID       `db:"plan_id"`
	Sequence         int             `db:"sequence"`
	DueDate          time.Time       `db:"due_date"`
	Amount           decimal.Decimal `db:"amount"`
	PrincipalPortion decimal.Decimal `db:"principal_portion"`
	InterestPortion  decimal.Decimal `db:"interest_portion"`
	Status           string          `db:"status"`
}

func (r *postgresPlanRepository) Create(ctx context.Context, plan *domain.InstallmentPlan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	planQuery := `
		INSERT INTO installment_plans (id, payment_id, total_amount, number_of_payments, annual_interest_rate, monthly_payment, total_interest, start_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = tx.ExecContext(ctx, planQuery,
		plan.ID, plan.PaymentID, plan.TotalAmount, plan.NumberOfPayments,
		plan.AnnualInterestRate, plan.MonthlyPayment, plan.TotalInterest,
		plan.StartDate, plan.CreatedAt,
	)
	if err != nil {
		return err
	}

	installmentQuery := `
		INSERT INTO installment_payments (plan_id, sequence, due_date, amount, principal_portion, interest_portion, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, installment := range plan.Installments {
		_, err = tx.ExecContext(ctx, installmentQuery,
			plan.ID, installment.Sequence, installment.DueDate,
			installment.Amount, installment.PrincipalPortion, installment.InterestPortion,
			installment.Status,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *postgresPlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	query := `
		SELECT id, payment_id, total_amount, number_of_payments, annual_interest_rate, monthly_payment, total_interest, start_date, created_at
		FROM installment_plans
		WHERE id = $1
	`

	var row planRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrPlanNotFound
		}
		return nil, err
	}

	installments, err := r.installmentsByPlanID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toDomainPlan(&row, installments), nil
}

func (r *postgresPlanRepository) List(ctx context.Context) ([]*domain.InstallmentPlan, error) {
	query := `
		SELECT id, payment_id, total_amount, number_of_payments, annual_interest_rate, monthly_payment, total_interest, start_date, created_at
		FROM installment_plans
		ORDER BY created_at
	`

	var rows []planRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	plans := make([]*domain.InstallmentPlan, 0, len(rows))
	for i := range rows {
		installments, err := r.installmentsByPlanID(ctx, rows[i].ID)
		if err != nil {
			return nil, err
		}
		plans = append(plans, toDomainPlan(&rows[i], installments))
	}

	return plans, nil
}

func (r *postgresPlanRepository) UpdateInstallmentStatus(ctx context.Context, planID uuid.UUID, sequence int, status string) error {
	query := `
		UPDATE installment_payments
		SET status = $3
		WHERE plan_id = $1 AND sequence = $2
	`

	result, err := r.db.ExecContext(ctx, query, planID, sequence, status)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrPlanNotFound
	}

	return nil
}

func (r *postgresPlanRepository) installmentsByPlanID(ctx context.Context, planID uuid.UUID) ([]*domain.InstallmentPayment, error) {
	query := `
		SELECT plan_id, sequence, due_date, amount, principal_portion, interest_portion, status
		FROM installment_payments
		WHERE plan_id = $1
		ORDER BY sequence
	`

	var rows []installmentRow
	if err := r.db.SelectContext(ctx, &rows, query, planID); err != nil {
		return nil, err
	}

	installments := make([]*domain.InstallmentPayment, len(rows))
	for i, row := range rows {
		installments[i] = &domain.InstallmentPayment{
			Sequence:         row.Sequence,
			DueDate:          row.DueDate,
			Amount:           row.Amount,
			PrincipalPortion: row.PrincipalPortion,
			InterestPortion:  row.InterestPortion,
			Status:           row.Status,
		}
	}

	return installments, nil
}

func toDomainPlan(row *planRow, installments []*domain.InstallmentPayment) *domain.InstallmentPlan {
	return &domain.InstallmentPlan{
		ID:                 row.ID,
		PaymentID:          row.PaymentID,
		TotalAmount:        row.TotalAmount,
		NumberOfPayments:   row.NumberOfPayments,
		AnnualInterestRate: row.AnnualInterestRate,
		MonthlyPayment:     row.MonthlyPayment,
		TotalInterest:      row.TotalInterest,
		StartDate:          row.StartDate,
		Installments:       installments,
		CreatedAt:          row.CreatedAt,
	}
}
