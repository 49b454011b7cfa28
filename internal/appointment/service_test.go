package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/odontocare/clinic-api/internal/config"
)

// -- Mocks --

type mockRepo struct {
	practitioners map[uuid.UUID]*Practitioner
	procedures    map[uuid.UUID]*Procedure
	appointments  map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		practitioners: make(map[uuid.UUID]*Practitioner),
		procedures:    make(map[uuid.UUID]*Procedure),
		appointments:  make(map[uuid.UUID]*Appointment),
	}
}

func (m *mockRepo) GetPractitionerByID(_ context.Context, id uuid.UUID) (*Practitioner, error) {
	p, ok := m.practitioners[id]
	if !ok {
		return nil, ErrPractitionerNotFound
	}
	return p, nil
}

func (m *mockRepo) GetProcedureByID(_ context.Context, id uuid.UUID) (*Procedure, error) {
	p, ok := m.procedures[id]
	if !ok {
		return nil, ErrProcedureNotFound
	}
	return p, nil
}

func (m *mockRepo) ListOverlapping(_ context.Context, practitionerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]Appointment, error) {
	var result []Appointment
	for _, a := range m.appointments {
		if a.PractitionerID != practitionerID || a.Status == StatusCancelled {
			continue
		}
		if exclude != nil && a.ID == *exclude {
			continue
		}
		if a.Overlaps(start, end) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	a, err := m.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Appointment: *a}, nil
}

func (m *mockRepo) CreateAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	cp := *a
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = time.Now()
	m.appointments[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *mockRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to Status, reason *string) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	if reason != nil {
		a.CancellationReason = reason
	}
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *mockRepo) UpdateAppointmentTime(_ context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.StartTime = start
	a.EndTime = end
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Detail, error) {
	var result []Detail
	for _, a := range m.appointments {
		if a.PatientID == patientID {
			result = append(result, Detail{Appointment: *a})
		}
	}
	return result, nil
}

func (m *mockRepo) ListByPractitionerDay(_ context.Context, practitionerID uuid.UUID, day time.Time) ([]Detail, error) {
	var result []Detail
	for _, a := range m.appointments {
		if a.PractitionerID == practitionerID {
			result = append(result, Detail{Appointment: *a})
		}
	}
	return result, nil
}

type passthroughLocker struct{}

func (passthroughLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockPatients struct {
	known map[uuid.UUID]bool
}

func (m *mockPatients) PatientExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.known[id], nil
}

// -- Fixtures --

func newTestService(repo *mockRepo, patients *mockPatients) *Service {
	cfg := config.Config{DefaultApptSlot: 30 * time.Minute}
	return NewService(repo, patients, passthroughLocker{}, cfg, zerolog.Nop())
}

func at(hour, min int) time.Time {
	return time.Date(2026, time.March, 9, hour, min, 0, 0, time.UTC)
}

func seedPractitioner(repo *mockRepo) uuid.UUID {
	id := uuid.New()
	repo.practitioners[id] = &Practitioner{ID: id, Name: "Dr. Vega", Active: true}
	return id
}

func seedAppointment(repo *mockRepo, practID uuid.UUID, start, end time.Time, status Status) uuid.UUID {
	id := uuid.New()
	repo.appointments[id] = &Appointment{
		ID:             id,
		PatientID:      uuid.New(),
		PractitionerID: practID,
		StartTime:      start,
		EndTime:        end,
		Status:         status,
	}
	return id
}

// -- Tests --

func TestHasConflict(t *testing.T) {
	repo := newMockRepo()
	practID := seedPractitioner(repo)
	svc := newTestService(repo, &mockPatients{})

	seedAppointment(repo, practID, at(9, 0), at(10, 0), StatusScheduled)

	t.Run("invalid interval", func(t *testing.T) {
		_, err := svc.HasConflict(context.Background(), practID, at(10, 0), at(9, 0), nil)
		if !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("expected ErrInvalidInterval, got %v", err)
		}
	})

	t.Run("zero-length interval", func(t *testing.T) {
		_, err := svc.HasConflict(context.Background(), practID, at(9, 0), at(9, 0), nil)
		if !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("expected ErrInvalidInterval, got %v", err)
		}
	})

	t.Run("overlap detected", func(t *testing.T) {
		conflict, err := svc.HasConflict(context.Background(), practID, at(9, 30), at(10, 30), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !conflict {
			t.Fatal("expected conflict for overlapping interval")
		}
	})

	t.Run("touching endpoints are not a conflict", func(t *testing.T) {
		conflict, err := svc.HasConflict(context.Background(), practID, at(10, 0), at(11, 0), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conflict {
			t.Fatal("appointment starting exactly at the end of another must not conflict")
		}

		conflict, err = svc.HasConflict(context.Background(), practID, at(8, 0), at(9, 0), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conflict {
			t.Fatal("appointment ending exactly at the start of another must not conflict")
		}
	})

	t.Run("cancelled appointments do not conflict", func(t *testing.T) {
		seedAppointment(repo, practID, at(14, 0), at(15, 0), StatusCancelled)

		conflict, err := svc.HasConflict(context.Background(), practID, at(14, 0), at(15, 0), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conflict {
			t.Fatal("cancelled appointment must not count as a conflict")
		}
	})

	t.Run("containment is a conflict", func(t *testing.T) {
		conflict, err := svc.HasConflict(context.Background(), practID, at(8, 0), at(12, 0), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !conflict {
			t.Fatal("interval fully containing an existing appointment must conflict")
		}
	})
}

func TestBook(t *testing.T) {
	t.Run("unknown patient", func(t *testing.T) {
		repo := newMockRepo()
		practID := seedPractitioner(repo)
		svc := newTestService(repo, &mockPatients{known: map[uuid.UUID]bool{}})

		_, err := svc.Book(context.Background(), BookRequest{
			PatientID:      uuid.New(),
			PractitionerID: practID,
			StartTime:      at(9, 0),
		})
		if !errors.Is(err, ErrPatientUnknown) {
			t.Fatalf("expected ErrPatientUnknown, got %v", err)
		}
	})

	t.Run("inactive practitioner", func(t *testing.T) {
		repo := newMockRepo()
		practID := uuid.New()
		repo.practitioners[practID] = &Practitioner{ID: practID, Name: "Dr. Ruiz", Active: false}

		patientID := uuid.New()
		svc := newTestService(repo, &mockPatients{known: map[uuid.UUID]bool{patientID: true}})

		_, err := svc.Book(context.Background(), BookRequest{
			PatientID:      patientID,
			PractitionerID: practID,
			StartTime:      at(9, 0),
		})
		if !errors.Is(err, ErrPractitionerInactive) {
			t.Fatalf("expected ErrPractitionerInactive, got %v", err)
		}
	})

	t.Run("conflict rejected", func(t *testing.T) {
		repo := newMockRepo()
		practID := seedPractitioner(repo)
		seedAppointment(repo, practID, at(9, 0), at(10, 0), StatusConfirmed)

		patientID := uuid.New()
		svc := newTestService(repo, &mockPatients{known: map[uuid.UUID]bool{patientID: true}})

		_, err := svc.Book(context.Background(), BookRequest{
			PatientID:      patientID,
			PractitionerID: practID,
			StartTime:      at(9, 30),
		})
		if !errors.Is(err, ErrConflictDetected) {
			t.Fatalf("expected ErrConflictDetected, got %v", err)
		}
	})

	t.Run("end derived from procedure duration", func(t *testing.T) {
		repo := newMockRepo()
		practID := seedPractitioner(repo)

		procID := uuid.New()
		repo.procedures[procID] = &Procedure{ID: procID, Code: "END-01", Name: "Root canal", DurationMinutes: 90}

		patientID := uuid.New()
		svc := newTestService(repo, &mockPatients{known: map[uuid.UUID]bool{patientID: true}})

		appt, err := svc.Book(context.Background(), BookRequest{
			PatientID:      patientID,
			PractitionerID: practID,
			ProcedureID:    &procID,
			StartTime:      at(9, 0),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !appt.EndTime.Equal(at(10, 30)) {
			t.Fatalf("expected end 10:30, got %s", appt.EndTime)
		}
		if appt.Status != StatusScheduled {
			t.Fatalf("expected scheduled status, got %s", appt.Status)
		}
	})

	t.Run("default slot without procedure", func(t *testing.T) {
		repo := newMockRepo()
		practID := seedPractitioner(repo)

		patientID := uuid.New()
		svc := newTestService(repo, &mockPatients{known: map[uuid.UUID]bool{patientID: true}})

		appt, err := svc.Book(context.Background(), BookRequest{
			PatientID:      patientID,
			PractitionerID: practID,
			StartTime:      at(11, 0),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !appt.EndTime.Equal(at(11, 30)) {
			t.Fatalf("expected end 11:30, got %s", appt.EndTime)
		}
	})

	t.Run("back to back bookings allowed", func(t *testing.T) {
		repo := newMockRepo()
		practID := seedPractitioner(repo)
		seedAppointment(repo, practID, at(9, 0), at(10, 0), StatusScheduled)

		patientID := uuid.New()
		svc := newTestService(repo, &mockPatients{known: map[uuid.UUID]bool{patientID: true}})

		_, err := svc.Book(context.Background(), BookRequest{
			PatientID:      patientID,
			PractitionerID: practID,
			StartTime:      at(10, 0),
		})
		if err != nil {
			t.Fatalf("back-to-back booking should succeed, got %v", err)
		}
	})
}

func TestReschedule(t *testing.T) {
	t.Run("excludes itself from conflict set", func(t *testing.T) {
		repo := newMockRepo()
		practID := seedPractitioner(repo)
		apptID := seedAppointment(repo, practID, at(9, 0), at(10, 0), StatusScheduled)
		svc := newTestService(repo, &mockPatients{})

		// Shift by 30 minutes; the only overlap is with itself.
		moved, err := svc.Reschedule(context.Background(), apptID, at(9, 30))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !moved.StartTime.Equal(at(9, 30)) || !moved.EndTime.Equal(at(10, 30)) {
			t.Fatalf("expected 9:30-10:30, got %s-%s", moved.StartTime, moved.EndTime)
		}
	})

	t.Run("conflict with another appointment", func(t *testing.T) {
		repo := newMockRepo()
		practID := seedPractitioner(repo)
		apptID := seedAppointment(repo, practID, at(9, 0), at(10, 0), StatusScheduled)
		seedAppointment(repo, practID, at(11, 0), at(12, 0), StatusConfirmed)
		svc := newTestService(repo, &mockPatients{})

		_, err := svc.Reschedule(context.Background(), apptID, at(11, 30))
		if !errors.Is(err, ErrConflictDetected) {
			t.Fatalf("expected ErrConflictDetected, got %v", err)
		}
	})

	t.Run("terminal appointment cannot move", func(t *testing.T) {
		repo := newMockRepo()
		practID := seedPractitioner(repo)
		apptID := seedAppointment(repo, practID, at(9, 0), at(10, 0), StatusCompleted)
		svc := newTestService(repo, &mockPatients{})

		_, err := svc.Reschedule(context.Background(), apptID, at(13, 0))
		if !errors.Is(err, ErrInvalidStatusTransition) {
			t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
		}
	})
}

func TestStatusTransitions(t *testing.T) {
	repo := newMockRepo()
	practID := seedPractitioner(repo)
	svc := newTestService(repo, &mockPatients{})

	t.Run("confirm then complete", func(t *testing.T) {
		apptID := seedAppointment(repo, practID, at(9, 0), at(10, 0), StatusScheduled)

		confirmed, err := svc.Confirm(context.Background(), apptID)
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if confirmed.Status != StatusConfirmed {
			t.Fatalf("expected confirmed, got %s", confirmed.Status)
		}

		completed, err := svc.Complete(context.Background(), apptID)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if completed.Status != StatusCompleted {
			t.Fatalf("expected completed, got %s", completed.Status)
		}
	})

	t.Run("confirm twice", func(t *testing.T) {
		apptID := seedAppointment(repo, practID, at(12, 0), at(13, 0), StatusConfirmed)

		_, err := svc.Confirm(context.Background(), apptID)
		if !errors.Is(err, ErrInvalidStatusTransition) {
			t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
		}
	})

	t.Run("cancel requires reason", func(t *testing.T) {
		apptID := seedAppointment(repo, practID, at(15, 0), at(16, 0), StatusScheduled)

		_, err := svc.Cancel(context.Background(), apptID, "")
		if !errors.Is(err, ErrCancellationReason) {
			t.Fatalf("expected ErrCancellationReason, got %v", err)
		}
	})

	t.Run("cancel keeps the row with a reason", func(t *testing.T) {
		apptID := seedAppointment(repo, practID, at(16, 0), at(17, 0), StatusScheduled)

		cancelled, err := svc.Cancel(context.Background(), apptID, "patient request")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if cancelled.Status != StatusCancelled {
			t.Fatalf("expected cancelled, got %s", cancelled.Status)
		}
		if cancelled.CancellationReason == nil || *cancelled.CancellationReason != "patient request" {
			t.Fatalf("expected reason to be stored, got %v", cancelled.CancellationReason)
		}
	})

	t.Run("complete a cancelled appointment", func(t *testing.T) {
		apptID := seedAppointment(repo, practID, at(17, 0), at(18, 0), StatusCancelled)

		_, err := svc.Complete(context.Background(), apptID)
		if !errors.Is(err, ErrInvalidStatusTransition) {
			t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
		}
	})
}
