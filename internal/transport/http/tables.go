package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"restaurant-tables/internal/domain"
)

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.tables.FindAll(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, tableResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	t, err := h.tables.FindOne(r.Context(), id)
	if err != nil {
		writeJSON(w, statusFor(err), tableResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tableResponse{Success: true, Message: "table found", Table: &t})
}

func (h *Handler) LockTable(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req domain.LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, tableResponse{Message: "invalid request body"})
		return
	}

	t, err := h.tables.Lock(r.Context(), id, req.Waiter)
	if err != nil {
		writeJSON(w, statusFor(err), tableResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tableResponse{Success: true, Message: "table locked", Table: &t})
}

func (h *Handler) UnlockTable(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req domain.LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, tableResponse{Message: "invalid request body"})
		return
	}

	t, err := h.tables.Unlock(r.Context(), id, req.Waiter)
	if err != nil {
		writeJSON(w, statusFor(err), tableResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tableResponse{Success: true, Message: "table unlocked", Table: &t})
}

func (h *Handler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		IsOccupied    *bool   `json:"is_occupied,omitempty"`
		CurrentBillID *string `json:"current_bill_id"`
		ClearBillID   bool    `json:"clear_bill_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, tableResponse{Message: "invalid request body"})
		return
	}

	t, err := h.tables.Update(r.Context(), id, domain.TableUpdate{
		IsOccupied:    body.IsOccupied,
		CurrentBillID: body.CurrentBillID,
		ClearBillID:   body.ClearBillID,
	})
	if err != nil {
		writeJSON(w, statusFor(err), tableResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tableResponse{Success: true, Message: "table updated", Table: &t})
}
