package billing

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	redisclient "github.com/odontocare/clinic-api/internal/redis"
)

var (
	ErrInvalidSeries = errors.New("series must be 1-8 uppercase letters or digits")
	ErrNoLines       = errors.New("invoice needs at least one line")
	ErrInvalidLine   = errors.New("line quantity must be positive and unit price non-negative")
	ErrInvalidAmount = errors.New("payment amount must be positive")
	ErrInvalidMethod = errors.New("unknown payment method")
	ErrBadSplit      = errors.New("cash and card amounts must sum to the payment amount")
	ErrSeriesBusy    = errors.New("invoice series is busy, please retry")
)

var seriesRe = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)

var validMethods = map[PaymentMethod]bool{
	MethodCash:     true,
	MethodCard:     true,
	MethodTransfer: true,
	MethodMixed:    true,
}

type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log.With().Str("component", "billing").Logger(),
	}
}

type LineInput struct {
	Description string
	ProcedureID *uuid.UUID
	Quantity    int
	UnitPrice   decimal.Decimal
}

type CreateInvoiceRequest struct {
	Series        string
	PatientID     uuid.UUID
	AppointmentID *uuid.UUID
	IssueDate     time.Time
	Lines         []LineInput
}

// CreateInvoice computes line amounts and the total, then assigns the next
// number of the series and persists the invoice. Number assignment runs under
// the series lock so two concurrent creations cannot pick the same number;
// the unique index on invoices.number backstops the lock.
func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	if !seriesRe.MatchString(req.Series) {
		return nil, ErrInvalidSeries
	}
	if len(req.Lines) == 0 {
		return nil, ErrNoLines
	}

	total := decimal.Zero
	lines := make([]InvoiceLine, 0, len(req.Lines))
	for _, in := range req.Lines {
		if in.Quantity <= 0 || in.UnitPrice.IsNegative() {
			return nil, ErrInvalidLine
		}
		amount := in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
		lines = append(lines, InvoiceLine{
			Description: in.Description,
			ProcedureID: in.ProcedureID,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Amount:      amount,
		})
		total = total.Add(amount)
	}

	issueDate := req.IssueDate
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	var created *Invoice

	err := s.locker.WithLock(ctx, redisclient.SeriesKey(req.Series), func(lockCtx context.Context) error {
		inv, err := s.repo.CreateInvoice(lockCtx, &Invoice{
			Series:         req.Series,
			PatientID:      req.PatientID,
			AppointmentID:  req.AppointmentID,
			IssueDate:      issueDate,
			Total:          total,
			PendingBalance: total,
			Status:         StatusForBalance(total, total),
			Lines:          lines,
		})
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		created = inv
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSeriesBusy
		}
		return nil, err
	}

	s.log.Info().
		Str("invoice_id", created.ID.String()).
		Str("number", created.Number).
		Str("total", created.Total.String()).
		Msg("invoice created")

	return created, nil
}

type PaymentSplit struct {
	Cash decimal.Decimal
	Card decimal.Decimal
}

// RegisterPayment appends a payment to an invoice ledger. Overpayment is
// rejected outright; the repository re-validates the balance under a row lock
// so concurrent registrations on the same invoice serialize. Not idempotent:
// callers retrying must deduplicate on their side.
func (s *Service) RegisterPayment(ctx context.Context, invoiceID uuid.UUID, amount decimal.Decimal, method PaymentMethod, split *PaymentSplit) (*Payment, *Invoice, error) {
	if !amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}
	if !validMethods[method] {
		return nil, nil, ErrInvalidMethod
	}

	p := Payment{
		Amount: amount,
		Method: method,
		PaidAt: time.Now(),
	}

	if method == MethodMixed {
		if split == nil || !split.Cash.Add(split.Card).Equal(amount) {
			return nil, nil, ErrBadSplit
		}
		cash, card := split.Cash, split.Card
		p.CashAmount = &cash
		p.CardAmount = &card
	} else if split != nil {
		return nil, nil, ErrBadSplit
	}

	payment, inv, err := s.repo.RegisterPayment(ctx, invoiceID, p)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Str("invoice_id", invoiceID.String()).
		Str("amount", amount.String()).
		Str("balance", inv.PendingBalance.String()).
		Str("status", string(inv.Status)).
		Msg("payment registered")

	return payment, inv, nil
}

// CancelInvoice voids an unpaid invoice. Invoices with payments recorded
// stay on the books.
func (s *Service) CancelInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.CancelInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("invoice_id", id.String()).Msg("invoice cancelled")
	return inv, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoiceByID(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	return s.repo.GetInvoiceByNumber(ctx, number)
}

func (s *Service) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error) {
	return s.repo.ListPayments(ctx, invoiceID)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
