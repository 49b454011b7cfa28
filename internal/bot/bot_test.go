package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/odontocare/clinic-api/internal/appointment"
	"github.com/odontocare/clinic-api/internal/auth"
	"github.com/odontocare/clinic-api/internal/billing"
	"github.com/odontocare/clinic-api/internal/inventory"
)

type stubAppointments struct {
	details []appointment.Detail
}

func (s *stubAppointments) ListByPatient(_ context.Context, _ uuid.UUID, _, _ int) ([]appointment.Detail, error) {
	return s.details, nil
}

type stubInvoices struct {
	invoices map[string]*billing.Invoice
}

func (s *stubInvoices) GetByNumber(_ context.Context, number string) (*billing.Invoice, error) {
	inv, ok := s.invoices[number]
	if !ok {
		return nil, billing.ErrInvoiceNotFound
	}
	return inv, nil
}

type stubStock struct {
	low []inventory.Supply
}

func (s *stubStock) ListLowStock(_ context.Context) ([]inventory.Supply, error) {
	return s.low, nil
}

func newTestBot(appts *stubAppointments, invs *stubInvoices, stock *stubStock) *Bot {
	if appts == nil {
		appts = &stubAppointments{}
	}
	if invs == nil {
		invs = &stubInvoices{invoices: map[string]*billing.Invoice{}}
	}
	if stock == nil {
		stock = &stubStock{}
	}
	return New(appts, invs, stock, zerolog.Nop())
}

func adminClaims() auth.Claims {
	return auth.Claims{UserID: uuid.New(), Role: auth.RoleAdmin}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		utterance string
		want      Intent
	}{
		{"when is my next appointment?", IntentAppointments},
		{"what's the balance on B001-0042", IntentBalance},
		{"which supplies are low on stock", IntentLowStock},
		{"what are your opening hours", IntentHours},
		{"tell me a joke", IntentUnknown},
	}

	for _, tc := range cases {
		if got := Classify(tc.utterance); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.utterance, got, tc.want)
		}
	}
}

func TestAskAppointments(t *testing.T) {
	patientID := uuid.New()
	now := time.Now()

	appts := &stubAppointments{details: []appointment.Detail{
		{Appointment: appointment.Appointment{
			StartTime: now.Add(24 * time.Hour),
			EndTime:   now.Add(25 * time.Hour),
			Status:    appointment.StatusScheduled,
		}},
		{Appointment: appointment.Appointment{
			StartTime: now.Add(48 * time.Hour),
			EndTime:   now.Add(49 * time.Hour),
			Status:    appointment.StatusCancelled,
		}},
		{Appointment: appointment.Appointment{
			StartTime: now.Add(-24 * time.Hour),
			EndTime:   now.Add(-23 * time.Hour),
			Status:    appointment.StatusCompleted,
		}},
	}}
	b := newTestBot(appts, nil, nil)

	t.Run("filters cancelled and past", func(t *testing.T) {
		reply, err := b.Ask(context.Background(), adminClaims(), "appointments for "+patientID.String())
		if err != nil {
			t.Fatalf("Ask: %v", err)
		}
		if reply.Intent != IntentAppointments {
			t.Fatalf("intent = %s", reply.Intent)
		}
		if !strings.Contains(reply.Text, "1 upcoming") {
			t.Errorf("expected one upcoming appointment, got %q", reply.Text)
		}
	})

	t.Run("asks for patient id when missing", func(t *testing.T) {
		reply, err := b.Ask(context.Background(), adminClaims(), "next appointment please")
		if err != nil {
			t.Fatalf("Ask: %v", err)
		}
		if !strings.Contains(reply.Text, "patient ID") {
			t.Errorf("expected prompt for patient id, got %q", reply.Text)
		}
	})
}

func TestAskBalance(t *testing.T) {
	invs := &stubInvoices{invoices: map[string]*billing.Invoice{
		"B001-0042": {
			Number:         "B001-0042",
			Total:          decimal.RequireFromString("150.00"),
			PendingBalance: decimal.RequireFromString("50.00"),
			Status:         billing.InvoicePartial,
		},
	}}
	b := newTestBot(nil, invs, nil)

	t.Run("known invoice", func(t *testing.T) {
		reply, err := b.Ask(context.Background(), adminClaims(), "balance for B001-0042?")
		if err != nil {
			t.Fatalf("Ask: %v", err)
		}
		if !strings.Contains(reply.Text, "150.00") || !strings.Contains(reply.Text, "50.00") {
			t.Errorf("reply missing amounts: %q", reply.Text)
		}
	})

	t.Run("unknown invoice", func(t *testing.T) {
		reply, err := b.Ask(context.Background(), adminClaims(), "balance for Z999-0001")
		if err != nil {
			t.Fatalf("Ask: %v", err)
		}
		if !strings.Contains(reply.Text, "couldn't find") {
			t.Errorf("expected not-found reply, got %q", reply.Text)
		}
	})
}

func TestAskLowStock(t *testing.T) {
	stock := &stubStock{low: []inventory.Supply{
		{Code: "GLV-M", Name: "Nitrile gloves M", CurrentStock: 2, MinimumStock: 10},
	}}
	b := newTestBot(nil, nil, stock)

	reply, err := b.Ask(context.Background(), adminClaims(), "anything low on stock?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(reply.Text, "Nitrile gloves M") {
		t.Errorf("expected supply in reply, got %q", reply.Text)
	}
}

func TestAskPermissions(t *testing.T) {
	b := newTestBot(nil, nil, nil)

	// Receptionists cannot read inventory.
	claims := auth.Claims{UserID: uuid.New(), Role: auth.RoleReceptionist}
	_, err := b.Ask(context.Background(), claims, "what supplies are low on stock")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestAskFallbacks(t *testing.T) {
	b := newTestBot(nil, nil, nil)

	reply, err := b.Ask(context.Background(), adminClaims(), "what are your opening hours")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply.Intent != IntentHours {
		t.Fatalf("intent = %s", reply.Intent)
	}

	reply, err = b.Ask(context.Background(), adminClaims(), "sing me a song")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply.Intent != IntentUnknown {
		t.Fatalf("intent = %s", reply.Intent)
	}
}
