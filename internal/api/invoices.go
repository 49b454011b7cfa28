package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/odontocare/clinic-api/internal/billing"
	redisclient "github.com/odontocare/clinic-api/internal/redis"
)

func createInvoiceHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateInvoiceHTTPRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		var appointmentID *uuid.UUID
		if req.AppointmentID != nil {
			id, err := uuid.Parse(*req.AppointmentID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
				return
			}
			appointmentID = &id
		}

		issueDate := time.Now()
		if req.IssueDate != nil {
			issueDate = *req.IssueDate
		}

		lines := make([]billing.LineInput, 0, len(req.Lines))
		for _, l := range req.Lines {
			var procedureID *uuid.UUID
			if l.ProcedureID != nil {
				id, err := uuid.Parse(*l.ProcedureID)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid_procedure_id", "line procedure_id must be a valid UUID")
					return
				}
				procedureID = &id
			}
			lines = append(lines, billing.LineInput{
				Description: l.Description,
				ProcedureID: procedureID,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
			})
		}

		inv, err := svc.CreateInvoice(r.Context(), billing.CreateInvoiceRequest{
			Series:        req.Series,
			PatientID:     patientID,
			AppointmentID: appointmentID,
			IssueDate:     issueDate,
			Lines:         lines,
		})
		if err != nil {
			handleBillingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toInvoiceResponse(inv))
	}
}

func getInvoiceHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		inv, err := svc.Get(r.Context(), id)
		if err != nil {
			handleBillingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
	}
}

func registerPaymentHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var req RegisterPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var split *billing.PaymentSplit
		if req.CashAmount != nil && req.CardAmount != nil {
			split = &billing.PaymentSplit{Cash: *req.CashAmount, Card: *req.CardAmount}
		}

		payment, inv, err := svc.RegisterPayment(r.Context(), id, req.Amount, billing.PaymentMethod(req.Method), split)
		if err != nil {
			handleBillingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, PaymentResultResponse{
			Payment: toPaymentResponse(payment),
			Invoice: toInvoiceResponse(inv),
		})
	}
}

func cancelInvoiceHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		inv, err := svc.CancelInvoice(r.Context(), id)
		if err != nil {
			handleBillingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
	}
}

func listInvoicePaymentsHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		payments, err := svc.ListPayments(r.Context(), id)
		if err != nil {
			handleBillingError(w, err)
			return
		}

		resp := make([]PaymentResponse, 0, len(payments))
		for i := range payments {
			resp = append(resp, toPaymentResponse(&payments[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listPatientInvoicesHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		q := r.URL.Query()
		invoices, err := svc.ListByPatient(r.Context(), id, queryInt(q.Get("limit"), 50), queryInt(q.Get("offset"), 0))
		if err != nil {
			handleBillingError(w, err)
			return
		}

		resp := make([]InvoiceResponse, 0, len(invoices))
		for i := range invoices {
			resp = append(resp, toInvoiceResponse(&invoices[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleBillingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrInvoiceNotFound):
		writeError(w, http.StatusNotFound, "invoice_not_found", err.Error())
	case errors.Is(err, billing.ErrOverpaymentRejected):
		writeError(w, http.StatusConflict, "overpayment_rejected", err.Error())
	case errors.Is(err, billing.ErrInvoiceCancelled):
		writeError(w, http.StatusConflict, "invoice_cancelled", err.Error())
	case errors.Is(err, billing.ErrHasPayments):
		writeError(w, http.StatusConflict, "invoice_has_payments", err.Error())
	case errors.Is(err, billing.ErrSeriesBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "series_busy", "invoice series is busy, please retry shortly")
	case errors.Is(err, billing.ErrInvalidSeries),
		errors.Is(err, billing.ErrNoLines),
		errors.Is(err, billing.ErrInvalidLine),
		errors.Is(err, billing.ErrInvalidAmount),
		errors.Is(err, billing.ErrInvalidMethod),
		errors.Is(err, billing.ErrBadSplit):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
