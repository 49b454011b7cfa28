package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrSupplyNotFound    = errors.New("supply not found")
	ErrDuplicateCode     = errors.New("supply code already exists")
	ErrInsufficientStock = errors.New("movement would drive stock negative")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	CreateSupply(ctx context.Context, s *Supply) (*Supply, error)
	GetSupplyByID(ctx context.Context, id uuid.UUID) (*Supply, error)
	GetSupplyByCode(ctx context.Context, code string) (*Supply, error)
	ListSupplies(ctx context.Context, limit, offset int) ([]Supply, error)
	ListLowStock(ctx context.Context) ([]Supply, error)

	// ApplyMovement records the movement and adjusts the cached stock in one
	// transaction, holding a row lock on the supply. Outbound movements that
	// would drive stock negative fail with ErrInsufficientStock and leave no
	// trace.
	ApplyMovement(ctx context.Context, m Movement) (*Movement, *Supply, error)

	ListMovements(ctx context.Context, supplyID uuid.UUID, limit, offset int) ([]Movement, error)
}
