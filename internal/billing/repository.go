package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrOverpaymentRejected = errors.New("payment exceeds pending balance")
	ErrInvoiceCancelled    = errors.New("invoice is cancelled")
	ErrHasPayments         = errors.New("invoice already has payments")
)

// Repository contains all DB interactions needed by the service. The write
// methods each run as a single transaction holding a row lock on the invoice
// (or the last invoice of the series) for the read-validate-write sequence.
type Repository interface {
	// CreateInvoice assigns the next number in inv.Series and persists the
	// invoice with its lines. The caller must hold the series lock.
	CreateInvoice(ctx context.Context, inv *Invoice) (*Invoice, error)

	GetInvoiceByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetInvoiceByNumber(ctx context.Context, number string) (*Invoice, error)

	// RegisterPayment appends a payment and decrements the pending balance
	// atomically. Fails with ErrOverpaymentRejected or ErrInvoiceCancelled
	// without any state change.
	RegisterPayment(ctx context.Context, invoiceID uuid.UUID, p Payment) (*Payment, *Invoice, error)

	// CancelInvoice marks an invoice cancelled; only allowed while no
	// payments have been recorded.
	CancelInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)

	ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Invoice, error)
}
