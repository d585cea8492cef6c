package transport

import "time"

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required,min=2,max=100"`
	LastName  string `json:"lastName" validate:"required,min=2,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=customer technician admin"`
}

type SessionTimeoutRequest struct {
	Minutes int `json:"minutes" validate:"required,min=5,max=1440"`
}

type ListUsersQuery struct {
	Role string `form:"role" validate:"omitempty,oneof=customer technician admin"`
}

type LoginResponse struct {
	AccessToken string          `json:"accessToken"`
	TokenType   string          `json:"tokenType"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	User        ProfileResponse `json:"user"`
}

type VerifyResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type ProfileResponse struct {
	ID                    string    `json:"id"`
	Email                 string    `json:"email"`
	Role                  string    `json:"role"`
	FirstName             string    `json:"firstName"`
	LastName              string    `json:"lastName"`
	Phone                 *string   `json:"phone,omitempty"`
	SessionTimeoutMinutes int       `json:"sessionTimeoutMinutes"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

type SessionConfigResponse struct {
	DefaultMinutes int `json:"defaultMinutes"`
	MinMinutes     int `json:"minMinutes"`
	MaxMinutes     int `json:"maxMinutes"`
}
