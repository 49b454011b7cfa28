package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odontocare/clinic-api/internal/inventory"
)

func createSupplyHandler(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSupplyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		s, err := svc.CreateSupply(r.Context(), req.Code, req.Name, req.MinimumStock, req.UnitPrice)
		if err != nil {
			handleInventoryError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSupplyResponse(s))
	}
}

func getSupplyHandler(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		s, err := svc.GetSupply(r.Context(), id)
		if err != nil {
			handleInventoryError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSupplyResponse(s))
	}
}

func getSupplyByCodeHandler(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := svc.GetSupplyByCode(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			handleInventoryError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSupplyResponse(s))
	}
}

func listSuppliesHandler(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		supplies, err := svc.ListSupplies(r.Context(), queryInt(q.Get("limit"), 100), queryInt(q.Get("offset"), 0))
		if err != nil {
			handleInventoryError(w, err)
			return
		}

		resp := make([]SupplyResponse, 0, len(supplies))
		for i := range supplies {
			resp = append(resp, toSupplyResponse(&supplies[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listLowStockHandler(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplies, err := svc.ListLowStock(r.Context())
		if err != nil {
			handleInventoryError(w, err)
			return
		}

		resp := make([]SupplyResponse, 0, len(supplies))
		for i := range supplies {
			resp = append(resp, toSupplyResponse(&supplies[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func applyMovementHandler(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var req MovementRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		mv, supply, err := svc.ApplyMovement(r.Context(), id,
			inventory.MovementType(req.Type), inventory.MovementReason(req.Reason),
			req.Quantity, req.Reference)
		if err != nil {
			handleInventoryError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, MovementResultResponse{
			Movement: toMovementResponse(mv),
			Supply:   toSupplyResponse(supply),
		})
	}
}

func listMovementsHandler(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		q := r.URL.Query()
		movements, err := svc.ListMovements(r.Context(), id, queryInt(q.Get("limit"), 100), queryInt(q.Get("offset"), 0))
		if err != nil {
			handleInventoryError(w, err)
			return
		}

		resp := make([]MovementResponse, 0, len(movements))
		for i := range movements {
			resp = append(resp, toMovementResponse(&movements[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type ConsumeSuppliesRequest struct {
	Items []struct {
		SupplyID string `json:"supply_id"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
}

func consumeForTreatmentHandler(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var req ConsumeSuppliesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if len(req.Items) == 0 {
			writeError(w, http.StatusBadRequest, "no_items", "at least one item is required")
			return
		}

		items := make([]inventory.TreatmentItem, 0, len(req.Items))
		for _, it := range req.Items {
			supplyID, err := uuid.Parse(it.SupplyID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_supply_id", "supply_id must be a valid UUID")
				return
			}
			items = append(items, inventory.TreatmentItem{SupplyID: supplyID, Quantity: it.Quantity})
		}

		movements, err := svc.ConsumeForTreatment(r.Context(), appointmentID, items)
		if err != nil {
			handleInventoryError(w, err)
			return
		}

		resp := make([]MovementResponse, 0, len(movements))
		for i := range movements {
			resp = append(resp, toMovementResponse(&movements[i]))
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func handleInventoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrSupplyNotFound):
		writeError(w, http.StatusNotFound, "supply_not_found", err.Error())
	case errors.Is(err, inventory.ErrDuplicateCode):
		writeError(w, http.StatusConflict, "duplicate_code", err.Error())
	case errors.Is(err, inventory.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidType),
		errors.Is(err, inventory.ErrInvalidReason),
		errors.Is(err, inventory.ErrInvalidSupply):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
