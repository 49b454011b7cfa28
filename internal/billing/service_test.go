package billing

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// -- Mocks --

type mockRepo struct {
	invoices map[uuid.UUID]*Invoice
	payments map[uuid.UUID][]Payment
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		invoices: make(map[uuid.UUID]*Invoice),
		payments: make(map[uuid.UUID][]Payment),
	}
}

func (m *mockRepo) CreateInvoice(_ context.Context, inv *Invoice) (*Invoice, error) {
	var numbers []string
	for _, existing := range m.invoices {
		if existing.Series == inv.Series {
			numbers = append(numbers, existing.Number)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(numbers)))

	seq := 1
	if len(numbers) > 0 {
		seq = ParseNumberSeq(numbers[0], inv.Series) + 1
	}

	cp := *inv
	cp.ID = uuid.New()
	cp.Number = FormatNumber(inv.Series, seq)
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = time.Now()
	m.invoices[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (m *mockRepo) GetInvoiceByID(_ context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *mockRepo) GetInvoiceByNumber(_ context.Context, number string) (*Invoice, error) {
	for _, inv := range m.invoices {
		if inv.Number == number {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, ErrInvoiceNotFound
}

func (m *mockRepo) RegisterPayment(_ context.Context, invoiceID uuid.UUID, p Payment) (*Payment, *Invoice, error) {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return nil, nil, ErrInvoiceNotFound
	}
	if inv.Status == InvoiceCancelled {
		return nil, nil, ErrInvoiceCancelled
	}
	if p.Amount.GreaterThan(inv.PendingBalance) {
		return nil, nil, ErrOverpaymentRejected
	}

	p.ID = uuid.New()
	p.InvoiceID = invoiceID
	m.payments[invoiceID] = append(m.payments[invoiceID], p)

	inv.PendingBalance = inv.PendingBalance.Sub(p.Amount)
	inv.Status = StatusForBalance(inv.PendingBalance, inv.Total)
	inv.UpdatedAt = time.Now()

	cp := *inv
	return &p, &cp, nil
}

func (m *mockRepo) CancelInvoice(_ context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	if len(m.payments[id]) > 0 {
		return nil, ErrHasPayments
	}
	inv.Status = InvoiceCancelled
	cp := *inv
	return &cp, nil
}

func (m *mockRepo) ListPayments(_ context.Context, invoiceID uuid.UUID) ([]Payment, error) {
	return m.payments[invoiceID], nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Invoice, error) {
	var result []Invoice
	for _, inv := range m.invoices {
		if inv.PatientID == patientID {
			result = append(result, *inv)
		}
	}
	return result, nil
}

type passthroughLocker struct{}

func (passthroughLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// -- Fixtures --

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, passthroughLocker{}, zerolog.Nop())
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func createInvoice(t *testing.T, svc *Service, series string, total string) *Invoice {
	t.Helper()
	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		Series:    series,
		PatientID: uuid.New(),
		Lines: []LineInput{
			{Description: "Consultation", Quantity: 1, UnitPrice: dec(total)},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return inv
}

// -- Tests --

func TestCreateInvoice(t *testing.T) {
	t.Run("series numbering is sequential", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo)

		first := createInvoice(t, svc, "B001", "50.00")
		second := createInvoice(t, svc, "B001", "75.00")
		other := createInvoice(t, svc, "C002", "10.00")

		if first.Number != "B001-0001" {
			t.Errorf("first number = %q, want B001-0001", first.Number)
		}
		if second.Number != "B001-0002" {
			t.Errorf("second number = %q, want B001-0002", second.Number)
		}
		if other.Number != "C002-0001" {
			t.Errorf("other series starts over, got %q", other.Number)
		}
	})

	t.Run("invalid series", func(t *testing.T) {
		svc := newTestService(newMockRepo())
		_, err := svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
			Series:    "b-001",
			PatientID: uuid.New(),
			Lines:     []LineInput{{Description: "x", Quantity: 1, UnitPrice: dec("1")}},
		})
		if !errors.Is(err, ErrInvalidSeries) {
			t.Fatalf("expected ErrInvalidSeries, got %v", err)
		}
	})

	t.Run("no lines", func(t *testing.T) {
		svc := newTestService(newMockRepo())
		_, err := svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
			Series:    "B001",
			PatientID: uuid.New(),
		})
		if !errors.Is(err, ErrNoLines) {
			t.Fatalf("expected ErrNoLines, got %v", err)
		}
	})

	t.Run("total is the sum of line amounts", func(t *testing.T) {
		svc := newTestService(newMockRepo())
		inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
			Series:    "B001",
			PatientID: uuid.New(),
			Lines: []LineInput{
				{Description: "Filling", Quantity: 2, UnitPrice: dec("45.50")},
				{Description: "X-ray", Quantity: 1, UnitPrice: dec("30.00")},
			},
		})
		if err != nil {
			t.Fatalf("create invoice: %v", err)
		}
		if !inv.Total.Equal(dec("121.00")) {
			t.Errorf("total = %s, want 121.00", inv.Total)
		}
		if !inv.PendingBalance.Equal(inv.Total) {
			t.Errorf("fresh invoice balance %s != total %s", inv.PendingBalance, inv.Total)
		}
		if inv.Status != InvoicePending {
			t.Errorf("status = %s, want pending", inv.Status)
		}
	})

	t.Run("negative unit price rejected", func(t *testing.T) {
		svc := newTestService(newMockRepo())
		_, err := svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
			Series:    "B001",
			PatientID: uuid.New(),
			Lines:     []LineInput{{Description: "x", Quantity: 1, UnitPrice: dec("-5")}},
		})
		if !errors.Is(err, ErrInvalidLine) {
			t.Fatalf("expected ErrInvalidLine, got %v", err)
		}
	})
}

func TestRegisterPayment(t *testing.T) {
	t.Run("ledger scenario: 100 = 60 + 40", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo)
		inv := createInvoice(t, svc, "B001", "100.00")

		_, after, err := svc.RegisterPayment(context.Background(), inv.ID, dec("60.00"), MethodCash, nil)
		if err != nil {
			t.Fatalf("first payment: %v", err)
		}
		if !after.PendingBalance.Equal(dec("40.00")) {
			t.Errorf("balance after 60 = %s, want 40.00", after.PendingBalance)
		}
		if after.Status != InvoicePartial {
			t.Errorf("status = %s, want partial", after.Status)
		}

		_, after, err = svc.RegisterPayment(context.Background(), inv.ID, dec("40.00"), MethodCard, nil)
		if err != nil {
			t.Fatalf("second payment: %v", err)
		}
		if !after.PendingBalance.IsZero() {
			t.Errorf("balance after full payment = %s, want 0", after.PendingBalance)
		}
		if after.Status != InvoicePaid {
			t.Errorf("status = %s, want paid", after.Status)
		}

		// Any further payment is an overpayment.
		_, _, err = svc.RegisterPayment(context.Background(), inv.ID, dec("0.01"), MethodCash, nil)
		if !errors.Is(err, ErrOverpaymentRejected) {
			t.Fatalf("expected ErrOverpaymentRejected, got %v", err)
		}

		// Invariant: balance == total - sum(payments)
		payments, err := svc.ListPayments(context.Background(), inv.ID)
		if err != nil {
			t.Fatalf("list payments: %v", err)
		}
		paid := decimal.Zero
		for _, p := range payments {
			paid = paid.Add(p.Amount)
		}
		final, err := svc.Get(context.Background(), inv.ID)
		if err != nil {
			t.Fatalf("get invoice: %v", err)
		}
		if !final.PendingBalance.Equal(final.Total.Sub(paid)) {
			t.Errorf("balance %s != total %s - paid %s", final.PendingBalance, final.Total, paid)
		}
	})

	t.Run("overpayment leaves state unchanged", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo)
		inv := createInvoice(t, svc, "B001", "100.00")

		_, _, err := svc.RegisterPayment(context.Background(), inv.ID, dec("100.01"), MethodCash, nil)
		if !errors.Is(err, ErrOverpaymentRejected) {
			t.Fatalf("expected ErrOverpaymentRejected, got %v", err)
		}

		after, err := svc.Get(context.Background(), inv.ID)
		if err != nil {
			t.Fatalf("get invoice: %v", err)
		}
		if !after.PendingBalance.Equal(dec("100.00")) {
			t.Errorf("balance changed to %s after rejected payment", after.PendingBalance)
		}
		if after.Status != InvoicePending {
			t.Errorf("status changed to %s after rejected payment", after.Status)
		}
	})

	t.Run("non-positive amount", func(t *testing.T) {
		svc := newTestService(newMockRepo())
		_, _, err := svc.RegisterPayment(context.Background(), uuid.New(), decimal.Zero, MethodCash, nil)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("unknown method", func(t *testing.T) {
		svc := newTestService(newMockRepo())
		_, _, err := svc.RegisterPayment(context.Background(), uuid.New(), dec("10"), PaymentMethod("cheque"), nil)
		if !errors.Is(err, ErrInvalidMethod) {
			t.Fatalf("expected ErrInvalidMethod, got %v", err)
		}
	})

	t.Run("mixed split must sum to amount", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo)
		inv := createInvoice(t, svc, "B001", "100.00")

		_, _, err := svc.RegisterPayment(context.Background(), inv.ID, dec("50.00"), MethodMixed,
			&PaymentSplit{Cash: dec("30.00"), Card: dec("10.00")})
		if !errors.Is(err, ErrBadSplit) {
			t.Fatalf("expected ErrBadSplit, got %v", err)
		}

		p, _, err := svc.RegisterPayment(context.Background(), inv.ID, dec("50.00"), MethodMixed,
			&PaymentSplit{Cash: dec("30.00"), Card: dec("20.00")})
		if err != nil {
			t.Fatalf("valid split rejected: %v", err)
		}
		if p.CashAmount == nil || !p.CashAmount.Equal(dec("30.00")) {
			t.Errorf("cash amount not recorded: %v", p.CashAmount)
		}
	})

	t.Run("split on a non-mixed method", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo)
		inv := createInvoice(t, svc, "B001", "100.00")

		_, _, err := svc.RegisterPayment(context.Background(), inv.ID, dec("50.00"), MethodCash,
			&PaymentSplit{Cash: dec("50.00")})
		if !errors.Is(err, ErrBadSplit) {
			t.Fatalf("expected ErrBadSplit, got %v", err)
		}
	})

	t.Run("payment on a cancelled invoice", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo)
		inv := createInvoice(t, svc, "B001", "100.00")

		if _, err := svc.CancelInvoice(context.Background(), inv.ID); err != nil {
			t.Fatalf("cancel: %v", err)
		}

		_, _, err := svc.RegisterPayment(context.Background(), inv.ID, dec("10.00"), MethodCash, nil)
		if !errors.Is(err, ErrInvoiceCancelled) {
			t.Fatalf("expected ErrInvoiceCancelled, got %v", err)
		}
	})
}

func TestCancelInvoice(t *testing.T) {
	t.Run("with payments on the books", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo)
		inv := createInvoice(t, svc, "B001", "100.00")

		if _, _, err := svc.RegisterPayment(context.Background(), inv.ID, dec("10.00"), MethodCash, nil); err != nil {
			t.Fatalf("payment: %v", err)
		}

		_, err := svc.CancelInvoice(context.Background(), inv.ID)
		if !errors.Is(err, ErrHasPayments) {
			t.Fatalf("expected ErrHasPayments, got %v", err)
		}
	})
}
