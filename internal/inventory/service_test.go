package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// -- Mocks --

type mockRepo struct {
	supplies  map[uuid.UUID]*Supply
	movements map[uuid.UUID][]Movement
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		supplies:  make(map[uuid.UUID]*Supply),
		movements: make(map[uuid.UUID][]Movement),
	}
}

func (m *mockRepo) CreateSupply(_ context.Context, s *Supply) (*Supply, error) {
	for _, existing := range m.supplies {
		if existing.Code == s.Code {
			return nil, ErrDuplicateCode
		}
	}
	cp := *s
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = time.Now()
	m.supplies[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *mockRepo) GetSupplyByID(_ context.Context, id uuid.UUID) (*Supply, error) {
	s, ok := m.supplies[id]
	if !ok {
		return nil, ErrSupplyNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockRepo) GetSupplyByCode(_ context.Context, code string) (*Supply, error) {
	for _, s := range m.supplies {
		if s.Code == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrSupplyNotFound
}

func (m *mockRepo) ListSupplies(_ context.Context, limit, offset int) ([]Supply, error) {
	var result []Supply
	for _, s := range m.supplies {
		result = append(result, *s)
	}
	return result, nil
}

func (m *mockRepo) ListLowStock(_ context.Context) ([]Supply, error) {
	var result []Supply
	for _, s := range m.supplies {
		if s.LowStock() {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockRepo) ApplyMovement(_ context.Context, mv Movement) (*Movement, *Supply, error) {
	s, ok := m.supplies[mv.SupplyID]
	if !ok {
		return nil, nil, ErrSupplyNotFound
	}

	delta := mv.Quantity
	if mv.Type == Outbound {
		delta = -delta
	}
	if s.CurrentStock+delta < 0 {
		return nil, nil, ErrInsufficientStock
	}

	mv.ID = uuid.New()
	mv.OccurredAt = time.Now()
	m.movements[mv.SupplyID] = append(m.movements[mv.SupplyID], mv)

	s.CurrentStock += delta
	s.UpdatedAt = time.Now()

	cp := *s
	return &mv, &cp, nil
}

func (m *mockRepo) ListMovements(_ context.Context, supplyID uuid.UUID, limit, offset int) ([]Movement, error) {
	return m.movements[supplyID], nil
}

// -- Fixtures --

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, zerolog.Nop())
}

func seedSupply(repo *mockRepo, code string, stock, minimum int) uuid.UUID {
	id := uuid.New()
	repo.supplies[id] = &Supply{
		ID:           id,
		Code:         code,
		Name:         code,
		CurrentStock: stock,
		MinimumStock: minimum,
		UnitPrice:    decimal.NewFromInt(1),
	}
	return id
}

// -- Tests --

func TestApplyMovement(t *testing.T) {
	t.Run("outbound to exactly zero flags low stock", func(t *testing.T) {
		repo := newMockRepo()
		id := seedSupply(repo, "GLOVES", 5, 2)
		svc := newTestService(repo)

		_, supply, err := svc.ApplyMovement(context.Background(), id, Outbound, ReasonTreatment, 5, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if supply.CurrentStock != 0 {
			t.Errorf("stock = %d, want 0", supply.CurrentStock)
		}
		if !supply.LowStock() {
			t.Error("supply at 0 with minimum 2 must be low stock")
		}
	})

	t.Run("outbound past zero rejected", func(t *testing.T) {
		repo := newMockRepo()
		id := seedSupply(repo, "GLOVES", 5, 2)
		svc := newTestService(repo)

		_, _, err := svc.ApplyMovement(context.Background(), id, Outbound, ReasonTreatment, 6, nil)
		if !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}

		supply, err := svc.GetSupply(context.Background(), id)
		if err != nil {
			t.Fatalf("get supply: %v", err)
		}
		if supply.CurrentStock != 5 {
			t.Errorf("stock changed to %d after rejected movement", supply.CurrentStock)
		}
		movements, _ := svc.ListMovements(context.Background(), id, 10, 0)
		if len(movements) != 0 {
			t.Errorf("rejected movement left %d ledger entries", len(movements))
		}
	})

	t.Run("inbound raises stock", func(t *testing.T) {
		repo := newMockRepo()
		id := seedSupply(repo, "RESIN", 1, 3)
		svc := newTestService(repo)

		_, supply, err := svc.ApplyMovement(context.Background(), id, Inbound, ReasonPurchase, 10, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if supply.CurrentStock != 11 {
			t.Errorf("stock = %d, want 11", supply.CurrentStock)
		}
		if supply.LowStock() {
			t.Error("supply above minimum must not be low stock")
		}
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		svc := newTestService(newMockRepo())
		_, _, err := svc.ApplyMovement(context.Background(), uuid.New(), Outbound, ReasonTreatment, 0, nil)
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("unknown type and reason", func(t *testing.T) {
		repo := newMockRepo()
		id := seedSupply(repo, "X", 10, 0)
		svc := newTestService(repo)

		if _, _, err := svc.ApplyMovement(context.Background(), id, MovementType("sideways"), ReasonPurchase, 1, nil); !errors.Is(err, ErrInvalidType) {
			t.Fatalf("expected ErrInvalidType, got %v", err)
		}
		if _, _, err := svc.ApplyMovement(context.Background(), id, Outbound, MovementReason("misplaced"), 1, nil); !errors.Is(err, ErrInvalidReason) {
			t.Fatalf("expected ErrInvalidReason, got %v", err)
		}
	})
}

func TestLowStock(t *testing.T) {
	t.Run("zero minimum disables the alert", func(t *testing.T) {
		repo := newMockRepo()
		seedSupply(repo, "UNTRACKED", 0, 0)
		tracked := seedSupply(repo, "TRACKED", 1, 2)
		svc := newTestService(repo)

		low, err := svc.ListLowStock(context.Background())
		if err != nil {
			t.Fatalf("list low stock: %v", err)
		}
		if len(low) != 1 || low[0].ID != tracked {
			t.Fatalf("expected only the tracked supply, got %d entries", len(low))
		}
	})

	t.Run("stock equal to minimum is low", func(t *testing.T) {
		s := &Supply{CurrentStock: 2, MinimumStock: 2}
		if !s.LowStock() {
			t.Error("stock == minimum must be low")
		}
	})
}

func TestConsumeForTreatment(t *testing.T) {
	t.Run("one outbound movement per item referencing the appointment", func(t *testing.T) {
		repo := newMockRepo()
		gloves := seedSupply(repo, "GLOVES", 10, 2)
		resin := seedSupply(repo, "RESIN", 4, 1)
		svc := newTestService(repo)

		apptID := uuid.New()
		applied, err := svc.ConsumeForTreatment(context.Background(), apptID, []TreatmentItem{
			{SupplyID: gloves, Quantity: 2},
			{SupplyID: resin, Quantity: 1},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(applied) != 2 {
			t.Fatalf("expected 2 movements, got %d", len(applied))
		}
		for _, mv := range applied {
			if mv.Type != Outbound || mv.Reason != ReasonTreatment {
				t.Errorf("movement %s: type=%s reason=%s", mv.ID, mv.Type, mv.Reason)
			}
			if mv.Reference == nil || *mv.Reference != apptID.String() {
				t.Errorf("movement %s does not reference the appointment", mv.ID)
			}
		}
	})

	t.Run("failure reports the failing item", func(t *testing.T) {
		repo := newMockRepo()
		gloves := seedSupply(repo, "GLOVES", 10, 2)
		resin := seedSupply(repo, "RESIN", 1, 1)
		svc := newTestService(repo)

		applied, err := svc.ConsumeForTreatment(context.Background(), uuid.New(), []TreatmentItem{
			{SupplyID: gloves, Quantity: 2},
			{SupplyID: resin, Quantity: 5},
		})
		if !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
		if len(applied) != 1 {
			t.Fatalf("expected the first deduction to stand, got %d", len(applied))
		}
	})
}

func TestCreateSupply(t *testing.T) {
	t.Run("duplicate code", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo)

		if _, err := svc.CreateSupply(context.Background(), "GLOVES", "Nitrile gloves", 5, decimal.NewFromInt(3)); err != nil {
			t.Fatalf("first create: %v", err)
		}
		_, err := svc.CreateSupply(context.Background(), "GLOVES", "Latex gloves", 5, decimal.NewFromInt(2))
		if !errors.Is(err, ErrDuplicateCode) {
			t.Fatalf("expected ErrDuplicateCode, got %v", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		svc := newTestService(newMockRepo())
		if _, err := svc.CreateSupply(context.Background(), "", "x", 0, decimal.Zero); !errors.Is(err, ErrInvalidSupply) {
			t.Fatalf("expected ErrInvalidSupply, got %v", err)
		}
		if _, err := svc.CreateSupply(context.Background(), "X", "x", -1, decimal.Zero); !errors.Is(err, ErrInvalidSupply) {
			t.Fatalf("expected ErrInvalidSupply, got %v", err)
		}
	})
}
