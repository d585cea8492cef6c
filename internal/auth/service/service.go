package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"vehicle_inspection_backend/internal/auth/password"
	"vehicle_inspection_backend/internal/auth/repository"
	"vehicle_inspection_backend/internal/auth/token"
	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/config"
	"vehicle_inspection_backend/platform/httpkit"
	"vehicle_inspection_backend/platform/logger"
	"vehicle_inspection_backend/platform/phone"

	"github.com/google/uuid"
)

const (
	MinSessionTimeoutMinutes = 5
	minNameLength            = 2

	msgInvalidCredentials = "invalid credentials"
	msgAccountNotFound    = "user not found"
)

// RegisterInput carries the fields of a self-service or admin registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	Profile     Profile
}

// SessionConfig describes the allowed session timeout window.
type SessionConfig struct {
	DefaultMinutes int
	MinMinutes     int
	MaxMinutes     int
}

type Service struct {
	repo        repository.AuthRepository
	issuer      *token.Issuer
	cfg         config.AuthServiceConfig
	phoneRegion string
	eventBus    events.Bus
	log         *logger.Logger
}

func New(repo repository.AuthRepository, issuer *token.Issuer, cfg config.AuthServiceConfig, phoneRegion string, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:        repo,
		issuer:      issuer,
		cfg:         cfg,
		phoneRegion: phoneRegion,
		eventBus:    eventBus,
		log:         log,
	}
}

// Register creates a customer account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Profile, error) {
	return s.createAccount(ctx, in, string(authz.RoleCustomer))
}

// CreateTechnician lets an administrator provision a technician account.
func (s *Service) CreateTechnician(ctx context.Context, actor authz.Actor, in RegisterInput) (Profile, error) {
	if err := authz.Authorize(authz.OpUserAdmin, actor); err != nil {
		return Profile{}, err
	}
	return s.createAccount(ctx, in, string(authz.RoleTechnician))
}

func (s *Service) createAccount(ctx context.Context, in RegisterInput, role string) (Profile, error) {
	email := normalizeEmail(in.Email)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)

	if len(in.Password) < password.MinLength {
		return Profile{}, apperr.Validation("password must be at least 8 characters")
	}
	if len([]rune(firstName)) < minNameLength || len([]rune(lastName)) < minNameLength {
		return Profile{}, apperr.Validation("first and last name must be at least 2 characters")
	}

	var phoneNumber *string
	if strings.TrimSpace(in.Phone) != "" {
		normalized, ok := phone.Parse(in.Phone, s.phoneRegion)
		if !ok {
			return Profile{}, apperr.Validation("invalid phone number")
		}
		phoneNumber = &normalized
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return Profile{}, err
	}

	account, err := s.repo.CreateAccount(ctx, repository.CreateAccountParams{
		Email:                 email,
		PasswordHash:          hash,
		Role:                  role,
		FirstName:             firstName,
		LastName:              lastName,
		Phone:                 phoneNumber,
		SessionTimeoutMinutes: s.defaultTimeoutMinutes(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return Profile{}, apperr.Conflict("email already registered")
		}
		return Profile{}, err
	}

	s.log.AuthEvent("register", email, true, "")
	s.eventBus.Publish(ctx, events.UserRegistered{
		BaseEvent: events.NewBaseEvent(),
		UserID:    account.ID,
		Email:     account.Email,
		Role:      account.Role,
	})

	return toProfile(account), nil
}

// Login checks credentials and issues an access token whose lifetime is the
// account's session timeout.
func (s *Service) Login(ctx context.Context, email, plainPassword string) (LoginResult, error) {
	email = normalizeEmail(email)
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.AuthEvent("login", email, false, "unknown email")
			return LoginResult{}, apperr.Unauthorized(msgInvalidCredentials)
		}
		return LoginResult{}, err
	}

	if err := password.Compare(account.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("login", email, false, "password mismatch")
		return LoginResult{}, apperr.Unauthorized(msgInvalidCredentials)
	}

	ttl := time.Duration(account.SessionTimeoutMinutes) * time.Minute
	if ttl <= 0 {
		ttl = s.cfg.GetDefaultSessionTimeout()
	}
	accessToken, expiresAt, err := s.issuer.Issue(account.ID, account.Role, ttl)
	if err != nil {
		return LoginResult{}, err
	}

	s.log.AuthEvent("login", email, true, "")
	return LoginResult{AccessToken: accessToken, ExpiresAt: expiresAt, Profile: toProfile(account)}, nil
}

// VerifyToken validates an access token and returns its subject and role.
func (s *Service) VerifyToken(raw string) (httpkit.Principal, error) {
	principal, err := s.issuer.VerifyToken(raw)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return httpkit.Principal{}, apperr.Unauthorized("token expired")
		}
		return httpkit.Principal{}, apperr.Unauthorized("token invalid")
	}
	return principal, nil
}

// Me returns the profile of the calling user.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (Profile, error) {
	account, err := s.repo.GetAccountByID(ctx, userID)
	if err != nil {
		return Profile{}, mapNotFound(err)
	}
	return toProfile(account), nil
}

// GetContact implements auth.ContactProvider.
func (s *Service) GetContact(ctx context.Context, userID uuid.UUID) (Profile, error) {
	return s.Me(ctx, userID)
}

// ListUsers returns all accounts, optionally filtered by role.
func (s *Service) ListUsers(ctx context.Context, actor authz.Actor, role string) ([]Profile, error) {
	if err := authz.Authorize(authz.OpUserAdmin, actor); err != nil {
		return nil, err
	}

	var filter *string
	if role != "" {
		if !authz.Role(role).Valid() {
			return nil, apperr.Validation("unknown role")
		}
		filter = &role
	}

	accounts, err := s.repo.ListAccounts(ctx, filter)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(accounts))
	for _, account := range accounts {
		profiles = append(profiles, toProfile(account))
	}
	return profiles, nil
}

// ChangeRole assigns a new role. Administrators cannot change their own role.
func (s *Service) ChangeRole(ctx context.Context, actor authz.Actor, userID uuid.UUID, role string) (Profile, error) {
	if err := authz.Authorize(authz.OpUserAdmin, actor); err != nil {
		return Profile{}, err
	}
	if !authz.Role(role).Valid() {
		return Profile{}, apperr.Validation("unknown role")
	}
	if actor.ID == userID {
		return Profile{}, apperr.Forbidden("administrators cannot change their own role")
	}

	current, err := s.repo.GetAccountByID(ctx, userID)
	if err != nil {
		return Profile{}, mapNotFound(err)
	}
	if current.Role == role {
		return toProfile(current), nil
	}

	updated, err := s.repo.UpdateRole(ctx, userID, role)
	if err != nil {
		return Profile{}, mapNotFound(err)
	}

	s.eventBus.Publish(ctx, events.UserRoleChanged{
		BaseEvent: events.NewBaseEvent(),
		UserID:    userID,
		ActorID:   actor.ID,
		OldRole:   current.Role,
		NewRole:   role,
	})
	return toProfile(updated), nil
}

// SetSessionTimeout changes the token lifetime issued to an account at login.
func (s *Service) SetSessionTimeout(ctx context.Context, actor authz.Actor, userID uuid.UUID, minutes int) (Profile, error) {
	if err := authz.Authorize(authz.OpUserAdmin, actor); err != nil {
		return Profile{}, err
	}
	cfg := s.SessionConfig()
	if minutes < cfg.MinMinutes || minutes > cfg.MaxMinutes {
		return Profile{}, apperr.Validation("session timeout out of range").
			WithDetails(map[string]int{"min": cfg.MinMinutes, "max": cfg.MaxMinutes})
	}

	updated, err := s.repo.UpdateSessionTimeout(ctx, userID, minutes)
	if err != nil {
		return Profile{}, mapNotFound(err)
	}
	return toProfile(updated), nil
}

// SessionConfig reports the configured session timeout bounds in minutes.
func (s *Service) SessionConfig() SessionConfig {
	return SessionConfig{
		DefaultMinutes: s.defaultTimeoutMinutes(),
		MinMinutes:     MinSessionTimeoutMinutes,
		MaxMinutes:     int(s.cfg.GetMaxSessionTimeout() / time.Minute),
	}
}

func (s *Service) defaultTimeoutMinutes() int {
	return int(s.cfg.GetDefaultSessionTimeout() / time.Minute)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msgAccountNotFound)
	}
	return err
}

func toProfile(a repository.Account) Profile {
	return Profile{
		ID:                    a.ID,
		Email:                 a.Email,
		Role:                  a.Role,
		FirstName:             a.FirstName,
		LastName:              a.LastName,
		Phone:                 a.Phone,
		SessionTimeoutMinutes: a.SessionTimeoutMinutes,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

var _ httpkit.TokenVerifier = (*Service)(nil)
