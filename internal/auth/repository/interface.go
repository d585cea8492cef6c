package repository

import (
	"context"

	"github.com/google/uuid"
)

// AuthRepository defines the account data operations used by the auth service.
type AuthRepository interface {
	CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (Account, error)
	ListAccounts(ctx context.Context, role *string) ([]Account, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role string) (Account, error)
	UpdateSessionTimeout(ctx context.Context, id uuid.UUID, minutes int) (Account, error)
}

// Ensure Repository implements AuthRepository
var _ AuthRepository = (*Repository)(nil)
