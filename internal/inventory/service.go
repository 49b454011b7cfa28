package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("movement quantity must be positive")
	ErrInvalidType     = errors.New("unknown movement type")
	ErrInvalidReason   = errors.New("unknown movement reason")
	ErrInvalidSupply   = errors.New("supply code and name are required")
)

var validReasons = map[MovementReason]bool{
	ReasonPurchase:   true,
	ReasonTreatment:  true,
	ReasonAdjustment: true,
	ReasonExpiry:     true,
	ReasonReturn:     true,
}

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "inventory").Logger(),
	}
}

func (s *Service) CreateSupply(ctx context.Context, code, name string, minimumStock int, unitPrice decimal.Decimal) (*Supply, error) {
	if code == "" || name == "" {
		return nil, ErrInvalidSupply
	}
	if minimumStock < 0 || unitPrice.IsNegative() {
		return nil, ErrInvalidSupply
	}

	return s.repo.CreateSupply(ctx, &Supply{
		Code:         code,
		Name:         name,
		MinimumStock: minimumStock,
		UnitPrice:    unitPrice,
	})
}

// ApplyMovement records a stock movement. Outbound movements that would drive
// stock negative are rejected rather than flagged; the physical count cannot
// go below zero, so a deduction past it means the ledger is wrong somewhere
// and needs an adjustment entry instead.
func (s *Service) ApplyMovement(ctx context.Context, supplyID uuid.UUID, mvType MovementType, reason MovementReason, quantity int, reference *string) (*Movement, *Supply, error) {
	if quantity <= 0 {
		return nil, nil, ErrInvalidQuantity
	}
	if mvType != Inbound && mvType != Outbound {
		return nil, nil, ErrInvalidType
	}
	if !validReasons[reason] {
		return nil, nil, ErrInvalidReason
	}

	mv, supply, err := s.repo.ApplyMovement(ctx, Movement{
		SupplyID:  supplyID,
		Type:      mvType,
		Reason:    reason,
		Quantity:  quantity,
		Reference: reference,
	})
	if err != nil {
		return nil, nil, err
	}

	ev := s.log.Info().
		Str("supply_id", supplyID.String()).
		Str("type", string(mvType)).
		Str("reason", string(reason)).
		Int("quantity", quantity).
		Int("stock", supply.CurrentStock)
	if supply.LowStock() {
		ev = ev.Bool("low_stock", true)
	}
	ev.Msg("stock movement applied")

	return mv, supply, nil
}

// TreatmentItem is one supply consumption within a performed treatment.
type TreatmentItem struct {
	SupplyID uuid.UUID
	Quantity int
}

// ConsumeForTreatment deducts the supplies used by a treatment, one outbound
// movement per item, referencing the appointment. Items are applied in order;
// a failure stops the loop and reports which item failed, leaving earlier
// deductions in place as their own ledger entries.
func (s *Service) ConsumeForTreatment(ctx context.Context, appointmentID uuid.UUID, items []TreatmentItem) ([]Movement, error) {
	ref := appointmentID.String()

	var applied []Movement
	for i, item := range items {
		mv, _, err := s.ApplyMovement(ctx, item.SupplyID, Outbound, ReasonTreatment, item.Quantity, &ref)
		if err != nil {
			return applied, fmt.Errorf("consume item %d (supply %s): %w", i, item.SupplyID, err)
		}
		applied = append(applied, *mv)
	}

	return applied, nil
}

func (s *Service) GetSupply(ctx context.Context, id uuid.UUID) (*Supply, error) {
	return s.repo.GetSupplyByID(ctx, id)
}

func (s *Service) GetSupplyByCode(ctx context.Context, code string) (*Supply, error) {
	return s.repo.GetSupplyByCode(ctx, code)
}

func (s *Service) ListSupplies(ctx context.Context, limit, offset int) ([]Supply, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListSupplies(ctx, limit, offset)
}

// ListLowStock returns supplies at or below their minimum, excluding those
// with an untracked (zero) minimum.
func (s *Service) ListLowStock(ctx context.Context) ([]Supply, error) {
	return s.repo.ListLowStock(ctx)
}

func (s *Service) ListMovements(ctx context.Context, supplyID uuid.UUID, limit, offset int) ([]Movement, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListMovements(ctx, supplyID, limit, offset)
}
