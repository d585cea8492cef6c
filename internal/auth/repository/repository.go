package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vehicle_inspection_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")
var ErrEmailTaken = errors.New("email already registered")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Account struct {
	ID                    uuid.UUID
	Email                 string
	PasswordHash          string
	Role                  string
	FirstName             string
	LastName              string
	Phone                 *string
	SessionTimeoutMinutes int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type CreateAccountParams struct {
	Email                 string
	PasswordHash          string
	Role                  string
	FirstName             string
	LastName              string
	Phone                 *string
	SessionTimeoutMinutes int
}

const accountColumns = `id, email, password_hash, role, first_name, last_name, phone,
	session_timeout_minutes, created_at, updated_at`

const listAccountsQuery = `SELECT ` + accountColumns + `
	FROM accounts
	WHERE ($1::text IS NULL OR role = $1)
	ORDER BY created_at DESC`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.Role,
		&a.FirstName,
		&a.LastName,
		&a.Phone,
		&a.SessionTimeoutMinutes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return a, err
}

func (r *Repository) CreateAccount(ctx context.Context, p CreateAccountParams) (Account, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, role, first_name, last_name, phone, session_timeout_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+accountColumns,
		p.Email, p.PasswordHash, p.Role, p.FirstName, p.LastName, p.Phone, p.SessionTimeoutMinutes,
	)
	account, err := scanAccount(row)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return Account{}, ErrEmailTaken
		}
		return Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

func (r *Repository) GetAccountByID(ctx context.Context, id uuid.UUID) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *Repository) ListAccounts(ctx context.Context, role *string) ([]Account, error) {
	rows, err := r.pool.Query(ctx, listAccountsQuery, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role string) (Account, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE accounts SET role = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns, id, role)
	return scanAccount(row)
}

func (r *Repository) UpdateSessionTimeout(ctx context.Context, id uuid.UUID, minutes int) (Account, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE accounts SET session_timeout_minutes = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns, id, minutes)
	return scanAccount(row)
}
