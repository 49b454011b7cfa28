package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrProcedureNotFound    = errors.New("procedure not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	GetProcedureByID(ctx context.Context, id uuid.UUID) (*Procedure, error)

	// ListOverlapping returns non-cancelled appointments of the practitioner
	// whose half-open interval intersects [start, end). When exclude is
	// non-nil that appointment is left out of the result (reschedule case).
	ListOverlapping(ctx context.Context, practitionerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*Detail, error)

	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, reason *string) (*Appointment, error)
	UpdateAppointmentTime(ctx context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Detail, error)
	ListByPractitionerDay(ctx context.Context, practitionerID uuid.UUID, day time.Time) ([]Detail, error)
}
