package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const invoiceCols = `id, number, series, patient_id, appointment_id, issue_date, total, pending_balance, status, created_at, updated_at`
const paymentCols = `id, invoice_id, paid_at, amount, method, cash_amount, card_amount`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice

	err := row.Scan(
		&inv.ID,
		&inv.Number,
		&inv.Series,
		&inv.PatientID,
		&inv.AppointmentID,
		&inv.IssueDate,
		&inv.Total,
		&inv.PendingBalance,
		&inv.Status,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	return &inv, nil
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment

	err := row.Scan(
		&p.ID,
		&p.InvoiceID,
		&p.PaidAt,
		&p.Amount,
		&p.Method,
		&p.CashAmount,
		&p.CardAmount,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// CreateInvoice assigns the next series number and inserts the invoice with
// its lines in one transaction. The highest existing number of the series is
// read FOR UPDATE so a concurrent creation in the same series blocks until
// this one commits; the caller additionally holds the series lock, which
// covers the empty-series case where there is no row to lock.
func (r *PgRepository) CreateInvoice(ctx context.Context, inv *Invoice) (*Invoice, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var lastNumber string
	err = tx.QueryRow(ctx, `
		SELECT number
		FROM invoices
		WHERE series = $1
		ORDER BY number DESC
		LIMIT 1
		FOR UPDATE
	`, inv.Series).Scan(&lastNumber)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("scan last number: %w", err)
	}

	seq := ParseNumberSeq(lastNumber, inv.Series) + 1
	number := FormatNumber(inv.Series, seq)

	id := uuid.New()
	row := tx.QueryRow(ctx, `
		INSERT INTO invoices (id, number, series, patient_id, appointment_id, issue_date, total, pending_balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+invoiceCols+`
	`, id, number, inv.Series, inv.PatientID, inv.AppointmentID, inv.IssueDate, inv.Total, inv.PendingBalance, inv.Status)

	created, err := scanInvoice(row)
	if err != nil {
		return nil, fmt.Errorf("insert invoice: %w", err)
	}

	for i := range inv.Lines {
		line := &inv.Lines[i]
		line.ID = uuid.New()
		line.InvoiceID = created.ID

		_, err := tx.Exec(ctx, `
			INSERT INTO invoice_lines (id, invoice_id, description, procedure_id, quantity, unit_price, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, line.ID, line.InvoiceID, line.Description, line.ProcedureID, line.Quantity, line.UnitPrice, line.Amount)
		if err != nil {
			return nil, fmt.Errorf("insert invoice line: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	created.Lines = inv.Lines
	return created, nil
}

func (r *PgRepository) GetInvoiceByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+invoiceCols+`
		FROM invoices
		WHERE id = $1
	`, id)

	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}

	if err := r.loadLines(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *PgRepository) GetInvoiceByNumber(ctx context.Context, number string) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+invoiceCols+`
		FROM invoices
		WHERE number = $1
	`, number)

	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}

	if err := r.loadLines(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// RegisterPayment holds a row lock on the invoice for the whole
// read-validate-write sequence, so two concurrent payments cannot both read
// the same stale balance.
func (r *PgRepository) RegisterPayment(ctx context.Context, invoiceID uuid.UUID, p Payment) (*Payment, *Invoice, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+invoiceCols+`
		FROM invoices
		WHERE id = $1
		FOR UPDATE
	`, invoiceID)

	inv, err := scanInvoice(row)
	if err != nil {
		return nil, nil, err
	}

	if inv.Status == InvoiceCancelled {
		return nil, nil, ErrInvoiceCancelled
	}
	if p.Amount.GreaterThan(inv.PendingBalance) {
		return nil, nil, ErrOverpaymentRejected
	}

	p.ID = uuid.New()
	p.InvoiceID = inv.ID

	payRow := tx.QueryRow(ctx, `
		INSERT INTO payments (id, invoice_id, paid_at, amount, method, cash_amount, card_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+paymentCols+`
	`, p.ID, p.InvoiceID, p.PaidAt, p.Amount, p.Method, p.CashAmount, p.CardAmount)

	payment, err := scanPayment(payRow)
	if err != nil {
		return nil, nil, fmt.Errorf("insert payment: %w", err)
	}

	newBalance := inv.PendingBalance.Sub(p.Amount)
	newStatus := StatusForBalance(newBalance, inv.Total)

	invRow := tx.QueryRow(ctx, `
		UPDATE invoices
		SET pending_balance = $2,
		    status = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+invoiceCols+`
	`, inv.ID, newBalance, newStatus)

	updated, err := scanInvoice(invRow)
	if err != nil {
		return nil, nil, fmt.Errorf("update invoice balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	return payment, updated, nil
}

func (r *PgRepository) CancelInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+invoiceCols+`
		FROM invoices
		WHERE id = $1
		FOR UPDATE
	`, id)

	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}

	if inv.Status == InvoiceCancelled {
		return inv, tx.Commit(ctx)
	}

	var paymentCount int
	if err := tx.QueryRow(ctx, `
		SELECT count(*) FROM payments WHERE invoice_id = $1
	`, id).Scan(&paymentCount); err != nil {
		return nil, fmt.Errorf("count payments: %w", err)
	}
	if paymentCount > 0 {
		return nil, ErrHasPayments
	}

	updRow := tx.QueryRow(ctx, `
		UPDATE invoices
		SET status = 'cancelled',
		    updated_at = now()
		WHERE id = $1
		RETURNING `+invoiceCols+`
	`, id)

	updated, err := scanInvoice(updRow)
	if err != nil {
		return nil, fmt.Errorf("cancel invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return updated, nil
}

func (r *PgRepository) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentCols+`
		FROM payments
		WHERE invoice_id = $1
		ORDER BY paid_at
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	return result, rows.Err()
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceCols+`
		FROM invoices
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *inv)
	}

	return result, rows.Err()
}

func (r *PgRepository) loadLines(ctx context.Context, inv *Invoice) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, description, procedure_id, quantity, unit_price, amount
		FROM invoice_lines
		WHERE invoice_id = $1
	`, inv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Description, &l.ProcedureID, &l.Quantity, &l.UnitPrice, &l.Amount); err != nil {
			return err
		}
		inv.Lines = append(inv.Lines, l)
	}

	return rows.Err()
}
