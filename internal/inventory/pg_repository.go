package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const supplyCols = `id, code, name, current_stock, minimum_stock, unit_price, created_at, updated_at`
const movementCols = `id, supply_id, type, reason, quantity, reference, occurred_at`

func scanSupply(row pgx.Row) (*Supply, error) {
	var s Supply

	err := row.Scan(
		&s.ID,
		&s.Code,
		&s.Name,
		&s.CurrentStock,
		&s.MinimumStock,
		&s.UnitPrice,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplyNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanMovement(row pgx.Row) (*Movement, error) {
	var m Movement

	err := row.Scan(
		&m.ID,
		&m.SupplyID,
		&m.Type,
		&m.Reason,
		&m.Quantity,
		&m.Reference,
		&m.OccurredAt,
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (r *PgRepository) CreateSupply(ctx context.Context, s *Supply) (*Supply, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO supplies (id, code, name, current_stock, minimum_stock, unit_price, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5, now(), now())
		RETURNING `+supplyCols+`
	`, id, s.Code, s.Name, s.MinimumStock, s.UnitPrice)

	created, err := scanSupply(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}

	return created, nil
}

func (r *PgRepository) GetSupplyByID(ctx context.Context, id uuid.UUID) (*Supply, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+supplyCols+`
		FROM supplies
		WHERE id = $1
	`, id)
	return scanSupply(row)
}

func (r *PgRepository) GetSupplyByCode(ctx context.Context, code string) (*Supply, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+supplyCols+`
		FROM supplies
		WHERE code = $1
	`, code)
	return scanSupply(row)
}

func (r *PgRepository) ListSupplies(ctx context.Context, limit, offset int) ([]Supply, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+supplyCols+`
		FROM supplies
		ORDER BY code
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSupplies(rows)
}

func (r *PgRepository) ListLowStock(ctx context.Context) ([]Supply, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+supplyCols+`
		FROM supplies
		WHERE minimum_stock > 0
		  AND current_stock <= minimum_stock
		ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSupplies(rows)
}

// ApplyMovement locks the supply row for the read-validate-write sequence so
// two concurrent deductions cannot both pass the stock check.
func (r *PgRepository) ApplyMovement(ctx context.Context, m Movement) (*Movement, *Supply, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+supplyCols+`
		FROM supplies
		WHERE id = $1
		FOR UPDATE
	`, m.SupplyID)

	supply, err := scanSupply(row)
	if err != nil {
		return nil, nil, err
	}

	delta := m.Quantity
	if m.Type == Outbound {
		delta = -delta
	}

	newStock := supply.CurrentStock + delta
	if newStock < 0 {
		return nil, nil, ErrInsufficientStock
	}

	m.ID = uuid.New()

	mvRow := tx.QueryRow(ctx, `
		INSERT INTO inventory_movements (id, supply_id, type, reason, quantity, reference, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+movementCols+`
	`, m.ID, m.SupplyID, m.Type, m.Reason, m.Quantity, m.Reference)

	movement, err := scanMovement(mvRow)
	if err != nil {
		return nil, nil, fmt.Errorf("insert movement: %w", err)
	}

	supRow := tx.QueryRow(ctx, `
		UPDATE supplies
		SET current_stock = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+supplyCols+`
	`, m.SupplyID, newStock)

	updated, err := scanSupply(supRow)
	if err != nil {
		return nil, nil, fmt.Errorf("update stock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	return movement, updated, nil
}

func (r *PgRepository) ListMovements(ctx context.Context, supplyID uuid.UUID, limit, offset int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+movementCols+`
		FROM inventory_movements
		WHERE supply_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`, supplyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}

	return result, rows.Err()
}

func collectSupplies(rows pgx.Rows) ([]Supply, error) {
	var result []Supply
	for rows.Next() {
		s, err := scanSupply(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}
