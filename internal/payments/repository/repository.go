package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	TypeBookingFee    = "booking_fee"
	TypeInspectionFee = "inspection_fee"

	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	// completedPerPurposeConstraint allows one completed payment per (appointment, type).
	completedPerPurposeConstraint = "uq_payments_completed_per_purpose"

	paymentNotFoundMsg = "payment not found"
)

// Payment is the payments table row.
type Payment struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	PayerID       uuid.UUID
	Amount        float64
	PaymentType   string
	PaymentMethod string
	Status        string
	TransactionID *string
	InvoiceNumber *string
	SettledAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsTerminal reports whether the payment can no longer change.
func (p Payment) IsTerminal() bool {
	return p.Status == StatusCompleted || p.Status == StatusFailed
}

// Settlement is the change a SettleDecider asks the repository to apply.
type Settlement struct {
	Status        string
	TransactionID *string
	AssignInvoice bool
	SettledAt     time.Time
}

// SettleDecider inspects the locked row and returns the settlement to apply,
// or nil when the row must be left untouched.
type SettleDecider func(current Payment) (*Settlement, error)

// Repository provides database operations for payments.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const paymentColumns = `id, appointment_id, payer_id, amount, payment_type, payment_method, status,
	transaction_id, invoice_number, settled_at, created_at, updated_at`

const lockPaymentQuery = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`

const findCompletedQuery = `SELECT ` + paymentColumns + `
	FROM payments
	WHERE appointment_id = $1 AND payment_type = $2 AND status = 'completed'
	ORDER BY settled_at DESC
	LIMIT 1`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	if err := row.Scan(
		&p.ID,
		&p.AppointmentID,
		&p.PayerID,
		&p.Amount,
		&p.PaymentType,
		&p.PaymentMethod,
		&p.Status,
		&p.TransactionID,
		&p.InvoiceNumber,
		&p.SettledAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a pending payment.
func (r *Repository) Create(ctx context.Context, p *Payment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments (id, appointment_id, payer_id, amount, payment_type, payment_method, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.AppointmentID, p.PayerID, p.Amount, p.PaymentType, p.PaymentMethod, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID reads the latest committed state of a payment.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(paymentNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// FindCompleted returns the completed payment of the given purpose, or nil.
func (r *Repository) FindCompleted(ctx context.Context, appointmentID uuid.UUID, paymentType string) (*Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, findCompletedQuery, appointmentID, paymentType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find completed payment: %w", err)
	}
	return p, nil
}

func (r *Repository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE appointment_id = $1 ORDER BY created_at DESC`, appointmentID)
}

func (r *Repository) ListByPayer(ctx context.Context, payerID uuid.UUID) ([]Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE payer_id = $1 ORDER BY created_at DESC`, payerID)
}

func (r *Repository) list(ctx context.Context, query string, arg uuid.UUID) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// Settle locks the payment row, lets decide pick the transition and applies it
// in the same transaction. The invoice number is drawn from invoice_number_seq
// inside that transaction, so a rolled back settlement never publishes one.
// The returned bool reports whether the row changed.
func (r *Repository) Settle(ctx context.Context, id uuid.UUID, decide SettleDecider) (*Payment, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanPayment(tx.QueryRow(ctx, lockPaymentQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, apperr.NotFound(paymentNotFoundMsg)
		}
		return nil, false, fmt.Errorf("failed to lock payment: %w", err)
	}

	settlement, err := decide(*current)
	if err != nil {
		return nil, false, err
	}
	if settlement == nil {
		return current, false, nil
	}

	var invoice *string
	if settlement.AssignInvoice {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&seq); err != nil {
			return nil, false, fmt.Errorf("failed to draw invoice number: %w", err)
		}
		number := FormatInvoiceNumber(settlement.SettledAt, seq)
		invoice = &number
	}

	updated, err := scanPayment(tx.QueryRow(ctx, `
		UPDATE payments
		SET status = $2, transaction_id = $3, invoice_number = $4, settled_at = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+paymentColumns,
		id, settlement.Status, settlement.TransactionID, invoice, settlement.SettledAt,
	))
	if err != nil {
		if db.IsUniqueViolation(err, completedPerPurposeConstraint) {
			return nil, false, apperr.DuplicatePayment("a completed payment already exists for this appointment and payment type")
		}
		return nil, false, fmt.Errorf("failed to settle payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if db.IsUniqueViolation(err, completedPerPurposeConstraint) {
			return nil, false, apperr.DuplicatePayment("a completed payment already exists for this appointment and payment type")
		}
		return nil, false, err
	}
	return updated, true, nil
}

// FormatInvoiceNumber renders INV-YYYYMMDD-NNNNNNNN for the settlement date.
func FormatInvoiceNumber(settledAt time.Time, seq int64) string {
	return fmt.Sprintf("INV-%s-%08d", settledAt.UTC().Format("20060102"), seq)
}
