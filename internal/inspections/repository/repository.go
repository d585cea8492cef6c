package repository

import (
	"context"
	"encoding/json"
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
	StatusPassed                = "passed"
	StatusPassedWithMinorIssues = "passed_with_minor_issues"
	StatusFailed                = "failed"

	CheckPass = "pass"
	CheckFail = "fail"

	// onePerAppointmentConstraint allows a single inspection record per appointment.
	onePerAppointmentConstraint = "uq_inspections_appointment"

	inspectionNotFoundMsg = "inspection not found"
)

// ErrAlreadyInspected is returned when the appointment already has a record.
var ErrAlreadyInspected = errors.New("appointment already inspected")

// CheckResult is the outcome of one checklist item.
type CheckResult struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// Checklist maps a check name to its result.
type Checklist map[string]CheckResult

// Inspection is the inspections table row.
type Inspection struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	TechnicianID  uuid.UUID
	Checklist     Checklist
	FinalStatus   string
	Notes         *string
	PhotoIDs      []uuid.UUID
	CreatedAt     time.Time
}

// Repository provides database operations for inspections.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const inspectionColumns = `id, appointment_id, technician_id, checklist, final_status, notes, photo_ids, created_at`

const countByStatusQuery = `SELECT final_status, COUNT(*) FROM inspections GROUP BY final_status`

const listAllQuery = `SELECT ` + inspectionColumns + `, COUNT(*) OVER()
	FROM inspections
	WHERE ($1::text IS NULL OR final_status = $1)
	ORDER BY created_at DESC
	OFFSET $2 LIMIT $3`

func scanInspection(row pgx.Row, extra ...any) (*Inspection, error) {
	var (
		i         Inspection
		checklist []byte
	)
	dest := []any{&i.ID, &i.AppointmentID, &i.TechnicianID, &checklist, &i.FinalStatus, &i.Notes, &i.PhotoIDs, &i.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(checklist, &i.Checklist); err != nil {
		return nil, fmt.Errorf("failed to decode checklist: %w", err)
	}
	if i.PhotoIDs == nil {
		i.PhotoIDs = []uuid.UUID{}
	}
	return &i, nil
}

// Create inserts an inspection record. A second record for the same
// appointment returns ErrAlreadyInspected.
func (r *Repository) Create(ctx context.Context, i *Inspection) error {
	checklist, err := json.Marshal(i.Checklist)
	if err != nil {
		return fmt.Errorf("failed to encode checklist: %w", err)
	}
	photoIDs := i.PhotoIDs
	if photoIDs == nil {
		photoIDs = []uuid.UUID{}
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO inspections (id, appointment_id, technician_id, checklist, final_status, notes, photo_ids, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7::uuid[], $8)`,
		i.ID, i.AppointmentID, i.TechnicianID, checklist, i.FinalStatus, i.Notes, photoIDs, i.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err, onePerAppointmentConstraint) {
			return ErrAlreadyInspected
		}
		return fmt.Errorf("failed to create inspection: %w", err)
	}
	return nil
}

// GetByID returns one inspection.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Inspection, error) {
	i, err := scanInspection(r.pool.QueryRow(ctx, `SELECT `+inspectionColumns+` FROM inspections WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(inspectionNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}
	return i, nil
}

// FindByAppointment returns the inspection of an appointment, or nil.
func (r *Repository) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Inspection, error) {
	i, err := scanInspection(r.pool.QueryRow(ctx, `SELECT `+inspectionColumns+` FROM inspections WHERE appointment_id = $1`, appointmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find inspection: %w", err)
	}
	return i, nil
}

// ListByTechnician returns the technician's most recent inspections.
func (r *Repository) ListByTechnician(ctx context.Context, technicianID uuid.UUID, limit int) ([]Inspection, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+inspectionColumns+`
		FROM inspections WHERE technician_id = $1
		ORDER BY created_at DESC LIMIT $2`, technicianID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer rows.Close()

	items := make([]Inspection, 0)
	for rows.Next() {
		i, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		items = append(items, *i)
	}
	return items, rows.Err()
}

const listCreatedAfterQuery = `SELECT ` + inspectionColumns + `
	FROM inspections
	WHERE (created_at, id) > ($1, $2)
	ORDER BY created_at, id
	LIMIT $3`

// ListCreatedAfter pages forward through inspections in creation order,
// starting after the (since, afterID) key.
func (r *Repository) ListCreatedAfter(ctx context.Context, since time.Time, afterID uuid.UUID, limit int) ([]Inspection, error) {
	rows, err := r.pool.Query(ctx, listCreatedAfterQuery, since, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer rows.Close()

	items := make([]Inspection, 0, limit)
	for rows.Next() {
		i, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		items = append(items, *i)
	}
	return items, rows.Err()
}

// ListAll returns one page of inspections and the total matching count.
func (r *Repository) ListAll(ctx context.Context, finalStatus *string, offset, limit int) ([]Inspection, int, error) {
	rows, err := r.pool.Query(ctx, listAllQuery, finalStatus, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer rows.Close()

	var total int
	items := make([]Inspection, 0)
	for rows.Next() {
		i, err := scanInspection(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan inspection: %w", err)
		}
		items = append(items, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CountByStatus returns the number of inspections per final status.
func (r *Repository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, countByStatusQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to count inspections: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{
		StatusPassed:                0,
		StatusPassedWithMinorIssues: 0,
		StatusFailed:                0,
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
