// Package auth provides the identity bounded context.
// This file defines the public API of the auth module.
// Only types and interfaces defined here should be imported by other domains.
package auth

import (
	"context"

	"vehicle_inspection_backend/internal/auth/service"

	"github.com/google/uuid"
)

// Profile represents account information that can be shared with other domains.
type Profile = service.Profile

// ContactProvider resolves where a user can be reached.
type ContactProvider interface {
	GetContact(ctx context.Context, userID uuid.UUID) (Profile, error)
}

var _ ContactProvider = (*service.Service)(nil)
