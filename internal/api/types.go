package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odontocare/clinic-api/internal/appointment"
	"github.com/odontocare/clinic-api/internal/billing"
	"github.com/odontocare/clinic-api/internal/identity"
	"github.com/odontocare/clinic-api/internal/inventory"
	"github.com/odontocare/clinic-api/internal/patient"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// Patients

type PatientRequest struct {
	Code      string     `json:"code"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     *string    `json:"email,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Allergies *string    `json:"allergies,omitempty"`
}

type PatientResponse struct {
	ID        uuid.UUID  `json:"id"`
	Code      string     `json:"code"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     *string    `json:"email,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Allergies *string    `json:"allergies,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toPatientResponse(p *patient.Patient) PatientResponse {
	return PatientResponse{
		ID:        p.ID,
		Code:      p.Code,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		BirthDate: p.BirthDate,
		Allergies: p.Allergies,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type ToothRecordRequest struct {
	ToothNumber int     `json:"tooth_number"`
	Surface     string  `json:"surface"`
	Condition   string  `json:"condition"`
	Notes       *string `json:"notes,omitempty"`
}

type ToothRecordResponse struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	ToothNumber int       `json:"tooth_number"`
	Surface     string    `json:"surface"`
	Condition   string    `json:"condition"`
	Notes       *string   `json:"notes,omitempty"`
	RecordedBy  uuid.UUID `json:"recorded_by"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func toToothRecordResponse(r *patient.ToothRecord) ToothRecordResponse {
	return ToothRecordResponse{
		ID:          r.ID,
		PatientID:   r.PatientID,
		ToothNumber: r.ToothNumber,
		Surface:     string(r.Surface),
		Condition:   string(r.Condition),
		Notes:       r.Notes,
		RecordedBy:  r.RecordedBy,
		RecordedAt:  r.RecordedAt,
	}
}

// Appointments

type BookAppointmentRequest struct {
	PatientID      string    `json:"patient_id"`
	PractitionerID string    `json:"practitioner_id"`
	ProcedureID    *string   `json:"procedure_id,omitempty"`
	StartTime      time.Time `json:"start_time"`
}

type RescheduleRequest struct {
	StartTime time.Time `json:"start_time"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	PractitionerID     uuid.UUID  `json:"practitioner_id"`
	ProcedureID        *uuid.UUID `json:"procedure_id,omitempty"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            time.Time  `json:"end_time"`
	Status             string     `json:"status"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	PractitionerName   string     `json:"practitioner_name,omitempty"`
	ProcedureName      string     `json:"procedure_name,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		PractitionerID:     a.PractitionerID,
		ProcedureID:        a.ProcedureID,
		StartTime:          a.StartTime,
		EndTime:            a.EndTime,
		Status:             string(a.Status),
		CancellationReason: a.CancellationReason,
	}
}

func toAppointmentDetailResponse(d *appointment.Detail) AppointmentResponse {
	resp := toAppointmentResponse(&d.Appointment)
	if d.Practitioner != nil {
		resp.PractitionerName = d.Practitioner.Name
	}
	if d.Procedure != nil {
		resp.ProcedureName = d.Procedure.Name
	}
	return resp
}

// Billing

type InvoiceLineRequest struct {
	Description string          `json:"description"`
	ProcedureID *string         `json:"procedure_id,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateInvoiceHTTPRequest struct {
	Series        string               `json:"series"`
	PatientID     string               `json:"patient_id"`
	AppointmentID *string              `json:"appointment_id,omitempty"`
	IssueDate     *time.Time           `json:"issue_date,omitempty"`
	Lines         []InvoiceLineRequest `json:"lines"`
}

type InvoiceLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	ProcedureID *uuid.UUID      `json:"procedure_id,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

type InvoiceResponse struct {
	ID             uuid.UUID             `json:"id"`
	Number         string                `json:"number"`
	Series         string                `json:"series"`
	PatientID      uuid.UUID             `json:"patient_id"`
	AppointmentID  *uuid.UUID            `json:"appointment_id,omitempty"`
	IssueDate      time.Time             `json:"issue_date"`
	Total          decimal.Decimal       `json:"total"`
	PendingBalance decimal.Decimal       `json:"pending_balance"`
	Status         string                `json:"status"`
	Lines          []InvoiceLineResponse `json:"lines,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

func toInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:             inv.ID,
		Number:         inv.Number,
		Series:         inv.Series,
		PatientID:      inv.PatientID,
		AppointmentID:  inv.AppointmentID,
		IssueDate:      inv.IssueDate,
		Total:          inv.Total,
		PendingBalance: inv.PendingBalance,
		Status:         string(inv.Status),
		CreatedAt:      inv.CreatedAt,
	}
	for _, l := range inv.Lines {
		resp.Lines = append(resp.Lines, InvoiceLineResponse{
			ID:          l.ID,
			Description: l.Description,
			ProcedureID: l.ProcedureID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount,
		})
	}
	return resp
}

type RegisterPaymentRequest struct {
	Amount     decimal.Decimal  `json:"amount"`
	Method     string           `json:"method"`
	CashAmount *decimal.Decimal `json:"cash_amount,omitempty"`
	CardAmount *decimal.Decimal `json:"card_amount,omitempty"`
}

type PaymentResponse struct {
	ID         uuid.UUID        `json:"id"`
	InvoiceID  uuid.UUID        `json:"invoice_id"`
	PaidAt     time.Time        `json:"paid_at"`
	Amount     decimal.Decimal  `json:"amount"`
	Method     string           `json:"method"`
	CashAmount *decimal.Decimal `json:"cash_amount,omitempty"`
	CardAmount *decimal.Decimal `json:"card_amount,omitempty"`
}

func toPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID,
		InvoiceID:  p.InvoiceID,
		PaidAt:     p.PaidAt,
		Amount:     p.Amount,
		Method:     string(p.Method),
		CashAmount: p.CashAmount,
		CardAmount: p.CardAmount,
	}
}

type PaymentResultResponse struct {
	Payment PaymentResponse `json:"payment"`
	Invoice InvoiceResponse `json:"invoice"`
}

// Inventory

type CreateSupplyRequest struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	MinimumStock int             `json:"minimum_stock"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

type SupplyResponse struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	CurrentStock int             `json:"current_stock"`
	MinimumStock int             `json:"minimum_stock"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LowStock     bool            `json:"low_stock"`
}

func toSupplyResponse(s *inventory.Supply) SupplyResponse {
	return SupplyResponse{
		ID:           s.ID,
		Code:         s.Code,
		Name:         s.Name,
		CurrentStock: s.CurrentStock,
		MinimumStock: s.MinimumStock,
		UnitPrice:    s.UnitPrice,
		LowStock:     s.LowStock(),
	}
}

type MovementRequest struct {
	Type      string  `json:"type"`
	Reason    string  `json:"reason"`
	Quantity  int     `json:"quantity"`
	Reference *string `json:"reference,omitempty"`
}

type MovementResponse struct {
	ID         uuid.UUID `json:"id"`
	SupplyID   uuid.UUID `json:"supply_id"`
	Type       string    `json:"type"`
	Reason     string    `json:"reason"`
	Quantity   int       `json:"quantity"`
	Reference  *string   `json:"reference,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func toMovementResponse(m *inventory.Movement) MovementResponse {
	return MovementResponse{
		ID:         m.ID,
		SupplyID:   m.SupplyID,
		Type:       string(m.Type),
		Reason:     string(m.Reason),
		Quantity:   m.Quantity,
		Reference:  m.Reference,
		OccurredAt: m.OccurredAt,
	}
}

type MovementResultResponse struct {
	Movement MovementResponse `json:"movement"`
	Supply   SupplyResponse   `json:"supply"`
}

// Identity

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type CreateUserHTTPRequest struct {
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Role       string     `json:"role"`
	Password   string     `json:"password"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

type UserResponse struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Role       string     `json:"role"`
	Active     bool       `json:"active"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       string(u.Role),
		Active:     u.Active,
		ValidUntil: u.ValidUntil,
		CreatedAt:  u.CreatedAt,
	}
}

// Bot

type BotAskRequest struct {
	Question string `json:"question"`
}

type BotAskResponse struct {
	Intent string `json:"intent"`
	Text   string `json:"text"`
}
