package adapters

import (
	"context"

	"vehicle_inspection_backend/internal/auth"
	inspectionsvc "vehicle_inspection_backend/internal/inspections/service"

	"github.com/google/uuid"
)

// ContactNameAdapter resolves display names from the identity provider.
type ContactNameAdapter struct {
	contacts auth.ContactProvider
}

// NewContactNameAdapter wraps an auth.ContactProvider.
func NewContactNameAdapter(contacts auth.ContactProvider) *ContactNameAdapter {
	return &ContactNameAdapter{contacts: contacts}
}

// DisplayName returns the user's full name.
func (a *ContactNameAdapter) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	profile, err := a.contacts.GetContact(ctx, userID)
	if err != nil {
		return "", err
	}
	return profile.FullName(), nil
}

var _ inspectionsvc.ContactReader = (*ContactNameAdapter)(nil)
