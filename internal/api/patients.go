package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odontocare/clinic-api/internal/auth"
	"github.com/odontocare/clinic-api/internal/patient"
)

func createPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		p, err := svc.Create(r.Context(), &patient.Patient{
			Code:      req.Code,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			BirthDate: req.BirthDate,
			Allergies: req.Allergies,
		})
		if err != nil {
			handlePatientError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toPatientResponse(p))
	}
}

func getPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		p, err := svc.Get(r.Context(), id)
		if err != nil {
			handlePatientError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

func updatePatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var req PatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		existing, err := svc.Get(r.Context(), id)
		if err != nil {
			handlePatientError(w, err)
			return
		}

		existing.Code = req.Code
		existing.FirstName = req.FirstName
		existing.LastName = req.LastName
		existing.Email = req.Email
		existing.Phone = req.Phone
		existing.BirthDate = req.BirthDate
		existing.Allergies = req.Allergies

		p, err := svc.Update(r.Context(), existing)
		if err != nil {
			handlePatientError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

func deactivatePatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		p, err := svc.Deactivate(r.Context(), id)
		if err != nil {
			handlePatientError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

func reactivatePatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		p, err := svc.Reactivate(r.Context(), id)
		if err != nil {
			handlePatientError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

func getPatientByCodeHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetByCode(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			handlePatientError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

func listPatientsHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := patient.ListFilter{
			IncludeInactive: q.Get("include_inactive") == "true",
			Search:          q.Get("search"),
			Limit:           queryInt(q.Get("limit"), 50),
			Offset:          queryInt(q.Get("offset"), 0),
		}

		patients, err := svc.List(r.Context(), f)
		if err != nil {
			handlePatientError(w, err)
			return
		}

		resp := make([]PatientResponse, 0, len(patients))
		for i := range patients {
			resp = append(resp, toPatientResponse(&patients[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func recordToothConditionHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
			return
		}

		var req ToothRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		rec, err := svc.RecordToothCondition(r.Context(), id, req.ToothNumber,
			patient.Surface(req.Surface), patient.ToothCondition(req.Condition),
			req.Notes, claims.UserID)
		if err != nil {
			handlePatientError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toToothRecordResponse(rec))
	}
}

func getOdontogramHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		records, err := svc.GetOdontogram(r.Context(), id)
		if err != nil {
			handlePatientError(w, err)
			return
		}

		resp := make([]ToothRecordResponse, 0, len(records))
		for i := range records {
			resp = append(resp, toToothRecordResponse(&records[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getToothHistoryHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		tooth, err := strconv.Atoi(chi.URLParam(r, "tooth"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_tooth_number", "tooth must be an FDI number")
			return
		}

		records, err := svc.GetToothHistory(r.Context(), id, tooth)
		if err != nil {
			handlePatientError(w, err)
			return
		}

		resp := make([]ToothRecordResponse, 0, len(records))
		for i := range records {
			resp = append(resp, toToothRecordResponse(&records[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handlePatientError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, patient.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, patient.ErrDuplicateCode):
		writeError(w, http.StatusConflict, "duplicate_code", err.Error())
	case errors.Is(err, patient.ErrInvalidPatient),
		errors.Is(err, patient.ErrInvalidTooth),
		errors.Is(err, patient.ErrInvalidSurface),
		errors.Is(err, patient.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
