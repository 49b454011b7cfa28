package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidPatient = errors.New("patient code, first name and last name are required")
	ErrInvalidTooth   = errors.New("tooth number is not valid FDI notation")
	ErrInvalidSurface = errors.New("unknown tooth surface")
	ErrInvalidState   = errors.New("unknown tooth condition")
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "patient").Logger(),
	}
}

func (s *Service) Create(ctx context.Context, p *Patient) (*Patient, error) {
	if p.Code == "" || p.FirstName == "" || p.LastName == "" {
		return nil, ErrInvalidPatient
	}
	p.Active = true
	return s.repo.CreatePatient(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetPatientByID(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Patient, error) {
	return s.repo.GetPatientByCode(ctx, code)
}

func (s *Service) Update(ctx context.Context, p *Patient) (*Patient, error) {
	if p.FirstName == "" || p.LastName == "" {
		return nil, ErrInvalidPatient
	}
	return s.repo.UpdatePatient(ctx, p)
}

// Deactivate soft-deletes a patient. The record and its clinical history
// stay; new appointments and invoices for the patient are a caller concern.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.SetPatientActive(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("patient_id", id.String()).Msg("patient deactivated")
	return p, nil
}

func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.SetPatientActive(ctx, id, true)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Patient, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.ListPatients(ctx, f)
}

// PatientExists satisfies the scheduler's patient lookup. Inactive patients
// count as existing; booking for them is allowed (recall visits).
func (s *Service) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.GetPatientByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RecordToothCondition appends an odontogram entry for the patient.
func (s *Service) RecordToothCondition(ctx context.Context, patientID uuid.UUID, toothNumber int, surface Surface, condition ToothCondition, notes *string, recordedBy uuid.UUID) (*ToothRecord, error) {
	if !ValidToothNumber(toothNumber) {
		return nil, ErrInvalidTooth
	}
	if !validSurfaces[surface] {
		return nil, ErrInvalidSurface
	}
	if !validConditions[condition] {
		return nil, ErrInvalidState
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	rec, err := s.repo.InsertToothRecord(ctx, &ToothRecord{
		PatientID:   patientID,
		ToothNumber: toothNumber,
		Surface:     surface,
		Condition:   condition,
		Notes:       notes,
		RecordedBy:  recordedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("insert tooth record: %w", err)
	}

	return rec, nil
}

// GetOdontogram returns the current chart: the latest record per tooth and
// surface.
func (s *Service) GetOdontogram(ctx context.Context, patientID uuid.UUID) ([]ToothRecord, error) {
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListLatestToothRecords(ctx, patientID)
}

// GetToothHistory returns all records for one tooth, newest first.
func (s *Service) GetToothHistory(ctx context.Context, patientID uuid.UUID, toothNumber int) ([]ToothRecord, error) {
	if !ValidToothNumber(toothNumber) {
		return nil, ErrInvalidTooth
	}
	return s.repo.ListToothHistory(ctx, patientID, toothNumber)
}
