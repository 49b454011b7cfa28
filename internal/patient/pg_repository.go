package patient

import (
	"context"
	"errors"

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

const patientCols = `id, code, first_name, last_name, email, phone, birth_date, allergies, active, created_at, updated_at`
const toothCols = `id, patient_id, tooth_number, surface, condition, notes, recorded_by, recorded_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.Phone,
		&p.BirthDate,
		&p.Allergies,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanToothRecord(row pgx.Row) (*ToothRecord, error) {
	var r ToothRecord

	err := row.Scan(
		&r.ID,
		&r.PatientID,
		&r.ToothNumber,
		&r.Surface,
		&r.Condition,
		&r.Notes,
		&r.RecordedBy,
		&r.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, code, first_name, last_name, email, phone, birth_date, allergies, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+patientCols+`
	`, id, p.Code, p.FirstName, p.LastName, p.Email, p.Phone, p.BirthDate, p.Allergies, p.Active)

	created, err := scanPatient(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}

	return created, nil
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientCols+`
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetPatientByCode(ctx context.Context, code string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientCols+`
		FROM patients
		WHERE code = $1
	`, code)
	return scanPatient(row)
}

func (r *PgRepository) UpdatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE patients
		SET first_name = $2,
		    last_name = $3,
		    email = $4,
		    phone = $5,
		    birth_date = $6,
		    allergies = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+patientCols+`
	`, p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.BirthDate, p.Allergies)

	return scanPatient(row)
}

func (r *PgRepository) SetPatientActive(ctx context.Context, id uuid.UUID, active bool) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE patients
		SET active = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+patientCols+`
	`, id, active)

	return scanPatient(row)
}

func (r *PgRepository) ListPatients(ctx context.Context, f ListFilter) ([]Patient, error) {
	search := "%" + f.Search + "%"

	rows, err := r.pool.Query(ctx, `
		SELECT `+patientCols+`
		FROM patients
		WHERE ($1 OR active)
		  AND ($2 = '%%' OR first_name ILIKE $2 OR last_name ILIKE $2 OR code ILIKE $2)
		ORDER BY last_name, first_name
		LIMIT $3 OFFSET $4
	`, f.IncludeInactive, search, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	return result, rows.Err()
}

func (r *PgRepository) InsertToothRecord(ctx context.Context, rec *ToothRecord) (*ToothRecord, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO tooth_records (id, patient_id, tooth_number, surface, condition, notes, recorded_by, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING `+toothCols+`
	`, id, rec.PatientID, rec.ToothNumber, rec.Surface, rec.Condition, rec.Notes, rec.RecordedBy)

	return scanToothRecord(row)
}

func (r *PgRepository) ListLatestToothRecords(ctx context.Context, patientID uuid.UUID) ([]ToothRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (tooth_number, surface) `+toothCols+`
		FROM tooth_records
		WHERE patient_id = $1
		ORDER BY tooth_number, surface, recorded_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectToothRecords(rows)
}

func (r *PgRepository) ListToothHistory(ctx context.Context, patientID uuid.UUID, toothNumber int) ([]ToothRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+toothCols+`
		FROM tooth_records
		WHERE patient_id = $1
		  AND tooth_number = $2
		ORDER BY recorded_at DESC
	`, patientID, toothNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectToothRecords(rows)
}

func collectToothRecords(rows pgx.Rows) ([]ToothRecord, error) {
	var result []ToothRecord
	for rows.Next() {
		rec, err := scanToothRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}
