package patient

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID
	Code      string
	FirstName string
	LastName  string
	Email     *string
	Phone     *string
	BirthDate *time.Time
	Allergies *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Surface string

const (
	SurfaceMesial   Surface = "mesial"
	SurfaceDistal   Surface = "distal"
	SurfaceOcclusal Surface = "occlusal"
	SurfaceBuccal   Surface = "buccal"
	SurfaceLingual  Surface = "lingual"
	SurfaceWhole    Surface = "whole"
)

type ToothCondition string

const (
	ConditionHealthy   ToothCondition = "healthy"
	ConditionCaries    ToothCondition = "caries"
	ConditionFilled    ToothCondition = "filled"
	ConditionCrown     ToothCondition = "crown"
	ConditionExtracted ToothCondition = "extracted"
	ConditionImplant   ToothCondition = "implant"
	ConditionRootCanal ToothCondition = "root_canal"
)

// ToothRecord is an append-only odontogram entry. The chart shown for a
// patient is, per tooth and surface, the most recent record.
type ToothRecord struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	ToothNumber int // FDI notation: 11-48 permanent, 51-85 deciduous
	Surface     Surface
	Condition   ToothCondition
	Notes       *string
	RecordedBy  uuid.UUID
	RecordedAt  time.Time
}

// ValidToothNumber checks FDI two-digit notation: quadrant 1-8, position 1-8
// for permanent quadrants (1-4), 1-5 for deciduous quadrants (5-8).
func ValidToothNumber(n int) bool {
	quadrant := n / 10
	position := n % 10
	switch {
	case quadrant >= 1 && quadrant <= 4:
		return position >= 1 && position <= 8
	case quadrant >= 5 && quadrant <= 8:
		return position >= 1 && position <= 5
	default:
		return false
	}
}

var validSurfaces = map[Surface]bool{
	SurfaceMesial:   true,
	SurfaceDistal:   true,
	SurfaceOcclusal: true,
	SurfaceBuccal:   true,
	SurfaceLingual:  true,
	SurfaceWhole:    true,
}

var validConditions = map[ToothCondition]bool{
	ConditionHealthy:   true,
	ConditionCaries:    true,
	ConditionFilled:    true,
	ConditionCrown:     true,
	ConditionExtracted: true,
	ConditionImplant:   true,
	ConditionRootCanal: true,
}
