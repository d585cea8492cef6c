package service

import (
	"context"

	"github.com/google/uuid"
)

// OwnerResolver maps an owner reference (appointment or inspection id) to the
// customer it belongs to. Unknown references return an apperr NotFound.
type OwnerResolver interface {
	OwnerCustomer(ctx context.Context, ownerRef uuid.UUID) (uuid.UUID, error)
}
