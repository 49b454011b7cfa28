package billing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePartial   InvoiceStatus = "partial"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
	MethodMixed    PaymentMethod = "mixed"
)

// numberWidth is the zero-padded width of the numeric suffix in an invoice
// number, e.g. "B001-0001".
const numberWidth = 4

type Invoice struct {
	ID             uuid.UUID
	Number         string
	Series         string
	PatientID      uuid.UUID
	AppointmentID  *uuid.UUID
	IssueDate      time.Time
	Total          decimal.Decimal
	PendingBalance decimal.Decimal
	Status         InvoiceStatus
	Lines          []InvoiceLine
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type InvoiceLine struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Description string
	ProcedureID *uuid.UUID
	Quantity    int
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// Payment rows are append-only; they are never mutated after creation.
type Payment struct {
	ID         uuid.UUID
	InvoiceID  uuid.UUID
	PaidAt     time.Time
	Amount     decimal.Decimal
	Method     PaymentMethod
	CashAmount *decimal.Decimal
	CardAmount *decimal.Decimal
}

// StatusForBalance derives the payment status from the running balance:
// paid at zero, pending while untouched, partial in between.
func StatusForBalance(balance, total decimal.Decimal) InvoiceStatus {
	switch {
	case balance.IsZero():
		return InvoicePaid
	case balance.Equal(total):
		return InvoicePending
	default:
		return InvoicePartial
	}
}

// FormatNumber builds a series-prefixed invoice number, zero-padding the
// sequence to the fixed width.
func FormatNumber(series string, seq int) string {
	return fmt.Sprintf("%s-%0*d", series, numberWidth, seq)
}

// ParseNumberSeq extracts the numeric suffix of an invoice number within the
// given series. Returns 0 when the number does not belong to the series.
func ParseNumberSeq(number, series string) int {
	suffix, ok := strings.CutPrefix(number, series+"-")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0
	}
	return n
}
