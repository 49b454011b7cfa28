package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/odontocare/clinic-api/internal/auth"
)

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	Role         auth.Role
	PasswordHash string
	Active       bool
	// ValidUntil bounds temporary accounts (locums, students). The sweep
	// worker deactivates users past this date; nil means no expiry.
	ValidUntil *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
