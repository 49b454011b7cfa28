package appointment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type Practitioner struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Procedure struct {
	ID              uuid.UUID
	Code            string
	Name            string
	DurationMinutes int
	Price           decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Appointment intervals are half-open [StartTime, EndTime): an appointment
// ending at 10:00 does not conflict with one starting at 10:00.
type Appointment struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	PractitionerID     uuid.UUID
	ProcedureID        *uuid.UUID
	StartTime          time.Time
	EndTime            time.Time
	Status             Status
	CancellationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Overlaps reports whether [a.StartTime, a.EndTime) intersects [start, end).
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && a.EndTime.After(start)
}

type Detail struct {
	Appointment
	Practitioner *Practitioner
	Procedure    *Procedure
}
