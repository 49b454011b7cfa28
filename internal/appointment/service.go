package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/odontocare/clinic-api/internal/config"
	redisclient "github.com/odontocare/clinic-api/internal/redis"
)

var (
	ErrInvalidInterval         = errors.New("end time must be after start time")
	ErrConflictDetected        = errors.New("practitioner already has an appointment in that interval")
	ErrCalendarBusy            = errors.New("calendar is currently being modified, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrPractitionerInactive    = errors.New("practitioner is not active")
	ErrPatientUnknown          = errors.New("patient not found")
	ErrCancellationReason      = errors.New("cancellation reason is required")
)

// PatientDirectory is the slice of the patient domain the scheduler needs.
type PatientDirectory interface {
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	locker   redisclient.Locker
	cfg      config.Config
	log      zerolog.Logger
}

func NewService(repo Repository, patients PatientDirectory, locker redisclient.Locker, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		locker:   locker,
		cfg:      cfg,
		log:      log.With().Str("component", "appointment").Logger(),
	}
}

// HasConflict reports whether the practitioner already has a non-cancelled
// appointment overlapping [start, end). Touching endpoints are not conflicts.
// Pure read; callers that go on to write must re-check under the calendar lock.
func (s *Service) HasConflict(ctx context.Context, practitionerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (bool, error) {
	if !end.After(start) {
		return false, ErrInvalidInterval
	}
	overlapping, err := s.repo.ListOverlapping(ctx, practitionerID, start, end, exclude)
	if err != nil {
		return false, fmt.Errorf("list overlapping appointments: %w", err)
	}
	return len(overlapping) > 0, nil
}

type BookRequest struct {
	PatientID      uuid.UUID
	PractitionerID uuid.UUID
	ProcedureID    *uuid.UUID
	StartTime      time.Time
}

// Book reserves an interval on a practitioner's calendar. The end time is
// derived from the procedure duration, or the configured default slot when no
// procedure is given. The conflict check runs inside the calendar lock so two
// concurrent bookings cannot both pass it.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	ok, err := s.patients.PatientExists(ctx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if !ok {
		return nil, ErrPatientUnknown
	}

	pract, err := s.repo.GetPractitionerByID(ctx, req.PractitionerID)
	if err != nil {
		return nil, fmt.Errorf("load practitioner: %w", err)
	}
	if !pract.Active {
		return nil, ErrPractitionerInactive
	}

	end, err := s.deriveEnd(ctx, req.ProcedureID, req.StartTime)
	if err != nil {
		return nil, err
	}

	var created *Appointment

	err = s.locker.WithLock(ctx, redisclient.CalendarKey(req.PractitionerID), func(lockCtx context.Context) error {
		overlapping, err := s.repo.ListOverlapping(lockCtx, req.PractitionerID, req.StartTime, end, nil)
		if err != nil {
			return fmt.Errorf("check conflicts: %w", err)
		}
		if len(overlapping) > 0 {
			return ErrConflictDetected
		}

		appt, err := s.repo.CreateAppointment(lockCtx, &Appointment{
			PatientID:      req.PatientID,
			PractitionerID: req.PractitionerID,
			ProcedureID:    req.ProcedureID,
			StartTime:      req.StartTime,
			EndTime:        end,
			Status:         StatusScheduled,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCalendarBusy
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("practitioner_id", req.PractitionerID.String()).
		Time("start", created.StartTime).
		Msg("appointment booked")

	return created, nil
}

// Reschedule moves an appointment to a new interval, excluding the
// appointment itself from the conflict set.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status.Terminal() {
		return nil, ErrInvalidStatusTransition
	}

	newEnd := newStart.Add(appt.EndTime.Sub(appt.StartTime))

	var moved *Appointment

	err = s.locker.WithLock(ctx, redisclient.CalendarKey(appt.PractitionerID), func(lockCtx context.Context) error {
		excl := appt.ID
		overlapping, err := s.repo.ListOverlapping(lockCtx, appt.PractitionerID, newStart, newEnd, &excl)
		if err != nil {
			return fmt.Errorf("check conflicts: %w", err)
		}
		if len(overlapping) > 0 {
			return ErrConflictDetected
		}

		updated, err := s.repo.UpdateAppointmentTime(lockCtx, appt.ID, newStart, newEnd)
		if err != nil {
			return fmt.Errorf("update appointment time: %w", err)
		}

		moved = updated
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCalendarBusy
		}
		return nil, err
	}

	return moved, nil
}

// Confirm moves a scheduled appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, StatusScheduled, StatusConfirmed, nil)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, s.transitionError(ctx, id)
		}
		return nil, fmt.Errorf("confirm appointment: %w", err)
	}
	return updated, nil
}

// Cancel marks an appointment cancelled with a reason. Appointments are never
// deleted; cancelled rows stay out of conflict checks.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	if reason == "" {
		return nil, ErrCancellationReason
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status.Terminal() {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, StatusCancelled, &reason)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost the race against another transition
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.log.Info().Str("appointment_id", id.String()).Str("reason", reason).Msg("appointment cancelled")

	return updated, nil
}

// Complete marks a scheduled or confirmed appointment as completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != StatusScheduled && appt.Status != StatusConfirmed {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, StatusCompleted, nil)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}
	return updated, nil
}

// Get retrieves a fully hydrated appointment by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return detail, nil
}

// ListByPatient retrieves appointments for a specific patient.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Detail, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appointments, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

// ListByPractitionerDay retrieves a practitioner's appointments for one day.
func (s *Service) ListByPractitionerDay(ctx context.Context, practitionerID uuid.UUID, day time.Time) ([]Detail, error) {
	appointments, err := s.repo.ListByPractitionerDay(ctx, practitionerID, day)
	if err != nil {
		return nil, fmt.Errorf("list appointments by practitioner: %w", err)
	}
	return appointments, nil
}

func (s *Service) deriveEnd(ctx context.Context, procedureID *uuid.UUID, start time.Time) (time.Time, error) {
	dur := s.cfg.DefaultApptSlot
	if dur <= 0 {
		dur = 30 * time.Minute
	}

	if procedureID != nil {
		proc, err := s.repo.GetProcedureByID(ctx, *procedureID)
		if err != nil {
			return time.Time{}, fmt.Errorf("load procedure: %w", err)
		}
		if proc.DurationMinutes > 0 {
			dur = time.Duration(proc.DurationMinutes) * time.Minute
		}
	}

	return start.Add(dur), nil
}

// transitionError distinguishes "no such appointment" from "wrong status" when
// a compare-and-set update matched no rows.
func (s *Service) transitionError(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetAppointmentByID(ctx, id); err != nil {
		return err
	}
	return ErrInvalidStatusTransition
}
