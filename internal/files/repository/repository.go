package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vehicle_inspection_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	CategoryAppointment = "appointment"
	CategoryInspection  = "inspection"
	CategoryGeneral     = "general"

	PhotoBefore = "before"
	PhotoAfter  = "after"
	PhotoDamage = "damage"
	PhotoDefect = "defect"

	fileNotFoundMsg = "file not found"
)

// File is the file_uploads table row.
type File struct {
	ID               uuid.UUID
	OwnerRef         uuid.UUID
	Category         string
	PhotoType        *string
	ObjectKey        string
	OriginalFilename string
	ContentType      string
	SizeBytes        int64
	UploadedBy       uuid.UUID
	Description      *string
	UploadedAt       time.Time
}

// Stats summarizes stored uploads.
type Stats struct {
	TotalFiles int
	TotalBytes int64
	ByCategory map[string]int
}

// Repository provides database operations for uploads.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const fileColumns = `id, owner_ref, category, photo_type, object_key, original_filename, content_type, size_bytes, uploaded_by, description, uploaded_at`

func scanFile(row pgx.Row) (*File, error) {
	var f File
	err := row.Scan(&f.ID, &f.OwnerRef, &f.Category, &f.PhotoType, &f.ObjectKey, &f.OriginalFilename,
		&f.ContentType, &f.SizeBytes, &f.UploadedBy, &f.Description, &f.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts the metadata of a stored object.
func (r *Repository) Create(ctx context.Context, f *File) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO file_uploads (`+fileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		f.ID, f.OwnerRef, f.Category, f.PhotoType, f.ObjectKey, f.OriginalFilename,
		f.ContentType, f.SizeBytes, f.UploadedBy, f.Description, f.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create file record: %w", err)
	}
	return nil
}

// GetByID returns one upload.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*File, error) {
	f, err := scanFile(r.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM file_uploads WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(fileNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// ListByOwner returns the uploads attached to an appointment or inspection, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerRef uuid.UUID) ([]File, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+fileColumns+`
		FROM file_uploads WHERE owner_ref = $1
		ORDER BY uploaded_at DESC`, ownerRef)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	items := make([]File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		items = append(items, *f)
	}
	return items, rows.Err()
}

// Delete removes an upload record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM file_uploads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(fileNotFoundMsg)
	}
	return nil
}

// Stats counts uploads per category and sums their size.
func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(size_bytes), 0)
		FROM file_uploads GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute file stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{ByCategory: map[string]int{
		CategoryAppointment: 0,
		CategoryInspection:  0,
		CategoryGeneral:     0,
	}}
	for rows.Next() {
		var (
			category string
			count    int
			bytes    int64
		)
		if err := rows.Scan(&category, &count, &bytes); err != nil {
			return nil, fmt.Errorf("failed to scan file stats: %w", err)
		}
		stats.ByCategory[category] = count
		stats.TotalFiles += count
		stats.TotalBytes += bytes
	}
	return stats, rows.Err()
}
