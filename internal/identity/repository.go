package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	CreateUser(ctx context.Context, u *User) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, includeInactive bool) ([]User, error)
	SetUserActive(ctx context.Context, id uuid.UUID, active bool) (*User, error)

	// Sweep worker
	FindExpiredActive(ctx context.Context, now time.Time) ([]User, error)
}
