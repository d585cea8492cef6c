package repository

import (
	"context"

	"github.com/google/uuid"
)

// FileRepository is the storage used by the file service.
type FileRepository interface {
	Create(ctx context.Context, f *File) error
	GetByID(ctx context.Context, id uuid.UUID) (*File, error)
	ListByOwner(ctx context.Context, ownerRef uuid.UUID) ([]File, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*Stats, error)
}

var _ FileRepository = (*Repository)(nil)
