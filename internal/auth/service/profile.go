package service

import (
	"time"

	"github.com/google/uuid"
)

// Profile represents account information that can be shared with other domains.
type Profile struct {
	ID                    uuid.UUID
	Email                 string
	Role                  string
	FirstName             string
	LastName              string
	Phone                 *string
	SessionTimeoutMinutes int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// FullName joins first and last name.
func (p Profile) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
