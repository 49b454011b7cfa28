package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementType string

const (
	Inbound  MovementType = "inbound"
	Outbound MovementType = "outbound"
)

type MovementReason string

const (
	ReasonPurchase   MovementReason = "purchase"
	ReasonTreatment  MovementReason = "treatment"
	ReasonAdjustment MovementReason = "adjustment"
	ReasonExpiry     MovementReason = "expiry"
	ReasonReturn     MovementReason = "return"
)

// Supply stock is never edited directly; CurrentStock is a cache of the fold
// of all movements, maintained inside the same transaction that records them.
type Supply struct {
	ID           uuid.UUID
	Code         string
	Name         string
	CurrentStock int
	MinimumStock int
	UnitPrice    decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LowStock reports whether the supply has fallen to or below its reorder
// threshold. A zero minimum means the threshold is not tracked and never
// triggers the alert.
func (s *Supply) LowStock() bool {
	return s.MinimumStock > 0 && s.CurrentStock <= s.MinimumStock
}

// Movement is an append-only ledger entry.
type Movement struct {
	ID         uuid.UUID
	SupplyID   uuid.UUID
	Type       MovementType
	Reason     MovementReason
	Quantity   int
	Reference  *string
	OccurredAt time.Time
}
