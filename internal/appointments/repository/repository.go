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
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

	InspectionNotChecked            = "not_checked"
	InspectionInProgress            = "in_progress"
	InspectionPassed                = "passed"
	InspectionPassedWithMinorIssues = "passed_with_minor_issues"
	InspectionFailed                = "failed"

	idempotencyConstraint = "uq_appointments_idempotency"

	appointmentNotFoundMsg = "appointment not found"
)

var (
	// ErrSlotTaken is returned when another active appointment is too close to the requested time.
	ErrSlotTaken = errors.New("slot already booked")
	// ErrIdempotencyReplay is returned when the customer already used the idempotency key.
	ErrIdempotencyReplay = errors.New("idempotency key already used")
)

// Appointment represents the appointment database model
type Appointment struct {
	ID                  uuid.UUID
	CustomerID          uuid.UUID
	VehicleRegistration string
	VehicleBrand        string
	VehicleModel        string
	VehicleType         string
	RequestedAt         time.Time
	Status              string
	InspectionStatus    string
	BookingPaymentID    *uuid.UUID
	InspectionPaymentID *uuid.UUID
	Notes               *string
	IdempotencyKey      *string
	ConfirmedAt         *time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsActive reports whether the appointment still occupies its slot.
func (a Appointment) IsActive() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}

// Decider inspects the locked row and returns the updated row to persist,
// or nil to leave it untouched.
type Decider func(current Appointment) (*Appointment, error)

// Repository provides database operations for appointments
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new appointments repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const appointmentColumns = `id, customer_id, vehicle_registration, vehicle_brand, vehicle_model, vehicle_type,
	requested_at, status, inspection_status, booking_payment_id, inspection_payment_id, notes,
	idempotency_key, confirmed_at, completed_at, cancelled_at, created_at, updated_at`

const lockAppointmentQuery = `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`

const slotTakenQuery = `SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE status IN ('pending', 'confirmed')
		  AND requested_at > $1 AND requested_at < $2
	)`

const listConfirmedQuery = `SELECT ` + appointmentColumns + `
	FROM appointments
	WHERE status = 'confirmed'
	ORDER BY requested_at ASC`

const listActiveBetweenQuery = `SELECT ` + appointmentColumns + `
	FROM appointments
	WHERE status IN ('pending', 'confirmed') AND requested_at >= $1 AND requested_at < $2
	ORDER BY requested_at ASC`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(
		&a.ID, &a.CustomerID, &a.VehicleRegistration, &a.VehicleBrand, &a.VehicleModel, &a.VehicleType,
		&a.RequestedAt, &a.Status, &a.InspectionStatus, &a.BookingPaymentID, &a.InspectionPaymentID, &a.Notes,
		&a.IdempotencyKey, &a.ConfirmedAt, &a.CompletedAt, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateInSlot inserts appt unless an active appointment starts within window
// of its requested time. Bookings of the same day are serialized with an
// advisory lock so the check and the insert cannot interleave.
func (r *Repository) CreateInSlot(ctx context.Context, appt *Appointment, window time.Duration) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	day := appt.RequestedAt.UTC().Format("2006-01-02")
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended('appointments:' || $1, 0))`, day); err != nil {
		return fmt.Errorf("failed to lock booking day: %w", err)
	}

	var taken bool
	if err := tx.QueryRow(ctx, slotTakenQuery, appt.RequestedAt.Add(-window), appt.RequestedAt.Add(window)).Scan(&taken); err != nil {
		return fmt.Errorf("failed to check slot: %w", err)
	}
	if taken {
		return ErrSlotTaken
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (
			id, customer_id, vehicle_registration, vehicle_brand, vehicle_model, vehicle_type,
			requested_at, status, inspection_status, notes, idempotency_key, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		appt.ID, appt.CustomerID, appt.VehicleRegistration, appt.VehicleBrand, appt.VehicleModel, appt.VehicleType,
		appt.RequestedAt, appt.Status, appt.InspectionStatus, appt.Notes, appt.IdempotencyKey, appt.CreatedAt, appt.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err, idempotencyConstraint) {
			return ErrIdempotencyReplay
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID retrieves an appointment by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(appointmentNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

// FindByIdempotencyKey returns the customer's appointment created with key, or nil.
func (r *Repository) FindByIdempotencyKey(ctx context.Context, customerID uuid.UUID, key string) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE customer_id = $1 AND idempotency_key = $2`,
		customerID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find appointment by idempotency key: %w", err)
	}
	return a, nil
}

// ListByCustomer returns a customer's appointments, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Appointment, error) {
	return r.list(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE customer_id = $1 ORDER BY requested_at DESC`, customerID)
}

// ListConfirmed returns the work queue of technicians.
func (r *Repository) ListConfirmed(ctx context.Context) ([]Appointment, error) {
	return r.list(ctx, listConfirmedQuery)
}

// ListActiveBetween returns pending and confirmed appointments in [from, to).
func (r *Repository) ListActiveBetween(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	return r.list(ctx, listActiveBetweenQuery, from, to)
}

// ListAll returns one page of appointments and the total matching count.
func (r *Repository) ListAll(ctx context.Context, status *string, offset, limit int) ([]Appointment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE ($1::text IS NULL OR status = $1)`, status,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	items, err := r.list(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY requested_at DESC
		OFFSET $2 LIMIT $3`, status, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	items := make([]Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	return items, rows.Err()
}

// Transition locks the appointment row with SELECT ... FOR UPDATE, asks decide
// for the next state and persists it in the same transaction. The returned
// bool reports whether the row changed.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, decide Decider) (*Appointment, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanAppointment(tx.QueryRow(ctx, lockAppointmentQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, apperr.NotFound(appointmentNotFoundMsg)
		}
		return nil, false, fmt.Errorf("failed to lock appointment: %w", err)
	}

	next, err := decide(*current)
	if err != nil {
		return nil, false, err
	}
	if next == nil {
		return current, false, nil
	}

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments SET
			status = $2,
			inspection_status = $3,
			booking_payment_id = $4,
			inspection_payment_id = $5,
			confirmed_at = $6,
			completed_at = $7,
			cancelled_at = $8,
			updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, next.Status, next.InspectionStatus, next.BookingPaymentID, next.InspectionPaymentID,
		next.ConfirmedAt, next.CompletedAt, next.CancelledAt,
	))
	if err != nil {
		return nil, false, fmt.Errorf("failed to update appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return updated, true, nil
}
