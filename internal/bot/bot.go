// Package bot implements the clinic's assistant as an in-process, rule-based
// intent engine. Utterances are matched against keyword patterns and answered
// from read-only lookups over the domain services; there is no external
// language-model dependency.
package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/odontocare/clinic-api/internal/appointment"
	"github.com/odontocare/clinic-api/internal/auth"
	"github.com/odontocare/clinic-api/internal/billing"
	"github.com/odontocare/clinic-api/internal/inventory"
)

type Intent string

const (
	IntentAppointments Intent = "appointments"
	IntentBalance      Intent = "balance"
	IntentLowStock     Intent = "low_stock"
	IntentHours        Intent = "hours"
	IntentUnknown      Intent = "unknown"
)

var ErrPermissionDenied = errors.New("not allowed to ask that")

type Reply struct {
	Intent Intent `json:"intent"`
	Text   string `json:"text"`
}

// AppointmentSource is the slice of the scheduler the bot reads.
type AppointmentSource interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]appointment.Detail, error)
}

// InvoiceSource is the slice of billing the bot reads.
type InvoiceSource interface {
	GetByNumber(ctx context.Context, number string) (*billing.Invoice, error)
}

// StockSource is the slice of inventory the bot reads.
type StockSource interface {
	ListLowStock(ctx context.Context) ([]inventory.Supply, error)
}

type Bot struct {
	appointments AppointmentSource
	invoices     InvoiceSource
	stock        StockSource
	log          zerolog.Logger
}

func New(appointments AppointmentSource, invoices InvoiceSource, stock StockSource, log zerolog.Logger) *Bot {
	return &Bot{
		appointments: appointments,
		invoices:     invoices,
		stock:        stock,
		log:          log.With().Str("component", "bot").Logger(),
	}
}

var (
	apptWords    = regexp.MustCompile(`(?i)\b(appointment|cita|visit|schedule)`)
	balanceWords = regexp.MustCompile(`(?i)\b(balance|invoice|owe|pending|factura)`)
	stockWords   = regexp.MustCompile(`(?i)\b(stock|supply|supplies|inventory|insumo)`)
	hoursWords   = regexp.MustCompile(`(?i)\b(hour|open|close|horario)`)

	// e.g. "what's left on B001-0042"
	invoiceNumberRe = regexp.MustCompile(`\b([A-Z0-9]{1,8}-\d{4,})\b`)
	uuidRe          = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// Classify maps an utterance to an intent. Exported for the handler tests.
func Classify(utterance string) Intent {
	switch {
	case apptWords.MatchString(utterance):
		return IntentAppointments
	case balanceWords.MatchString(utterance):
		return IntentBalance
	case stockWords.MatchString(utterance):
		return IntentLowStock
	case hoursWords.MatchString(utterance):
		return IntentHours
	default:
		return IntentUnknown
	}
}

// Ask answers an utterance on behalf of the given claims. Each intent checks
// the permission the equivalent API endpoint would require.
func (b *Bot) Ask(ctx context.Context, claims auth.Claims, utterance string) (*Reply, error) {
	intent := Classify(utterance)

	b.log.Debug().Str("intent", string(intent)).Msg("bot question")

	switch intent {
	case IntentAppointments:
		return b.answerAppointments(ctx, claims, utterance)
	case IntentBalance:
		return b.answerBalance(ctx, claims, utterance)
	case IntentLowStock:
		return b.answerLowStock(ctx, claims)
	case IntentHours:
		return &Reply{Intent: IntentHours, Text: "The clinic is open Monday to Friday, 9:00 to 19:00, and Saturday 9:00 to 14:00."}, nil
	default:
		return &Reply{Intent: IntentUnknown, Text: "I can help with appointments, invoice balances and supply stock. Try asking about one of those."}, nil
	}
}

func (b *Bot) answerAppointments(ctx context.Context, claims auth.Claims, utterance string) (*Reply, error) {
	if !claims.HasPermission(auth.PermAppointmentsRead) {
		return nil, ErrPermissionDenied
	}

	match := uuidRe.FindString(utterance)
	if match == "" {
		return &Reply{Intent: IntentAppointments, Text: "Tell me the patient ID and I'll look up their upcoming appointments."}, nil
	}
	patientID, err := uuid.Parse(match)
	if err != nil {
		return &Reply{Intent: IntentAppointments, Text: "That doesn't look like a patient ID."}, nil
	}

	details, err := b.appointments.ListByPatient(ctx, patientID, 5, 0)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	var upcoming []appointment.Detail
	now := time.Now()
	for _, d := range details {
		if d.StartTime.After(now) && d.Status != appointment.StatusCancelled {
			upcoming = append(upcoming, d)
		}
	}

	if len(upcoming) == 0 {
		return &Reply{Intent: IntentAppointments, Text: "No upcoming appointments for that patient."}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d upcoming appointment(s):", len(upcoming))
	for _, d := range upcoming {
		fmt.Fprintf(&sb, "\n- %s (%s)", d.StartTime.Format("Mon 2 Jan 15:04"), d.Status)
	}

	return &Reply{Intent: IntentAppointments, Text: sb.String()}, nil
}

func (b *Bot) answerBalance(ctx context.Context, claims auth.Claims, utterance string) (*Reply, error) {
	if !claims.HasPermission(auth.PermBillingRead) {
		return nil, ErrPermissionDenied
	}

	number := invoiceNumberRe.FindString(utterance)
	if number == "" {
		return &Reply{Intent: IntentBalance, Text: "Give me an invoice number like B001-0042 and I'll check its balance."}, nil
	}

	inv, err := b.invoices.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, billing.ErrInvoiceNotFound) {
			return &Reply{Intent: IntentBalance, Text: fmt.Sprintf("I couldn't find invoice %s.", number)}, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	text := fmt.Sprintf("Invoice %s: total %s, pending %s (%s).",
		inv.Number, inv.Total.StringFixed(2), inv.PendingBalance.StringFixed(2), inv.Status)

	return &Reply{Intent: IntentBalance, Text: text}, nil
}

func (b *Bot) answerLowStock(ctx context.Context, claims auth.Claims) (*Reply, error) {
	if !claims.HasPermission(auth.PermInventoryRead) {
		return nil, ErrPermissionDenied
	}

	low, err := b.stock.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}

	if len(low) == 0 {
		return &Reply{Intent: IntentLowStock, Text: "No supplies are below their minimum right now."}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d supply(ies) need reordering:", len(low))
	for _, s := range low {
		fmt.Fprintf(&sb, "\n- %s (%s): %d left, minimum %d", s.Name, s.Code, s.CurrentStock, s.MinimumStock)
	}

	return &Reply{Intent: IntentLowStock, Text: sb.String()}, nil
}
