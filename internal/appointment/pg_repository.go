package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const appointmentCols = `id, patient_id, practitioner_id, procedure_id, start_time, end_time, status, cancellation_reason, created_at, updated_at`

// Helpers

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Specialty,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPractitionerNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanProcedure(row pgx.Row) (*Procedure, error) {
	var p Procedure

	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Name,
		&p.DurationMinutes,
		&p.Price,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProcedureNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PractitionerID,
		&a.ProcedureID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.CancellationReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

// Interface methods

func (r *PgRepository) GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, active, created_at, updated_at
		FROM practitioners
		WHERE id = $1
	`, id)
	return scanPractitioner(row)
}

func (r *PgRepository) GetProcedureByID(ctx context.Context, id uuid.UUID) (*Procedure, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, code, name, duration_minutes, price, created_at, updated_at
		FROM procedures
		WHERE id = $1
	`, id)
	return scanProcedure(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

// ListOverlapping uses the half-open interval test: an existing appointment
// conflicts when existing.start < end AND existing.end > start. Cancelled
// appointments are deliberately included nowhere in conflict checks.
func (r *PgRepository) ListOverlapping(ctx context.Context, practitionerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE practitioner_id = $1
		  AND status <> 'cancelled'
		  AND start_time < $3
		  AND end_time > $2
		  AND ($4::uuid IS NULL OR id <> $4)
	`, practitionerID, start, end, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, practitioner_id, procedure_id, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING `+appointmentCols+`
	`, id, a.PatientID, a.PractitionerID, a.ProcedureID, a.StartTime, a.EndTime, a.Status)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, reason *string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    cancellation_reason = COALESCE($4, cancellation_reason),
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentCols+`
	`, id, to, from, reason)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentTime(ctx context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET start_time = $2,
		    end_time = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentCols+`
	`, id, start, end)

	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	appt, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Appointment: *appt}

	pract, err := r.GetPractitionerByID(ctx, appt.PractitionerID)
	if err != nil && !errors.Is(err, ErrPractitionerNotFound) {
		return nil, fmt.Errorf("load practitioner: %w", err)
	}
	detail.Practitioner = pract

	if appt.ProcedureID != nil {
		proc, err := r.GetProcedureByID(ctx, *appt.ProcedureID)
		if err != nil && !errors.Is(err, ErrProcedureNotFound) {
			return nil, fmt.Errorf("load procedure: %w", err)
		}
		detail.Procedure = proc
	}

	return detail, nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectDetails(ctx, rows)
}

func (r *PgRepository) ListByPractitionerDay(ctx context.Context, practitionerID uuid.UUID, day time.Time) ([]Detail, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE practitioner_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`, practitionerID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectDetails(ctx, rows)
}

func (r *PgRepository) collectDetails(ctx context.Context, rows pgx.Rows) ([]Detail, error) {
	var appts []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]Detail, 0, len(appts))
	for i := range appts {
		d, err := r.GetAppointmentDetail(ctx, appts[i].ID)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue
			}
			return nil, err
		}
		result = append(result, *d)
	}

	return result, nil
}
