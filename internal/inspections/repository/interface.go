package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InspectionRepository is the storage used by the inspection service.
type InspectionRepository interface {
	Create(ctx context.Context, i *Inspection) error
	GetByID(ctx context.Context, id uuid.UUID) (*Inspection, error)
	FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Inspection, error)
	ListByTechnician(ctx context.Context, technicianID uuid.UUID, limit int) ([]Inspection, error)
	ListCreatedAfter(ctx context.Context, since time.Time, afterID uuid.UUID, limit int) ([]Inspection, error)
	ListAll(ctx context.Context, finalStatus *string, offset, limit int) ([]Inspection, int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

var _ InspectionRepository = (*Repository)(nil)
