package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrDuplicateCode   = errors.New("patient code already exists")
)

// ListFilter states the soft-delete inclusion policy explicitly; there is no
// implicit active-only filter anywhere in the queries.
type ListFilter struct {
	IncludeInactive bool
	Search          string
	Limit           int
	Offset          int
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	CreatePatient(ctx context.Context, p *Patient) (*Patient, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPatientByCode(ctx context.Context, code string) (*Patient, error)
	UpdatePatient(ctx context.Context, p *Patient) (*Patient, error)
	SetPatientActive(ctx context.Context, id uuid.UUID, active bool) (*Patient, error)
	ListPatients(ctx context.Context, f ListFilter) ([]Patient, error)

	InsertToothRecord(ctx context.Context, rec *ToothRecord) (*ToothRecord, error)
	// ListLatestToothRecords returns, per tooth and surface, the most recent
	// record for the patient.
	ListLatestToothRecords(ctx context.Context, patientID uuid.UUID) ([]ToothRecord, error)
	ListToothHistory(ctx context.Context, patientID uuid.UUID, toothNumber int) ([]ToothRecord, error)
}
