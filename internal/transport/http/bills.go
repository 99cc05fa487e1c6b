package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"restaurant-tables/internal/domain"
)

func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := h.bills.FindAll(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, billResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b, err := h.bills.FindByID(r.Context(), id)
	if err != nil {
		writeJSON(w, statusFor(err), billResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, billResponse{Success: true, Message: "bill found", Bill: &b})
}

func (h *Handler) GetCurrentBill(w http.ResponseWriter, r *http.Request) {
	tableID := mux.Vars(r)["tableId"]
	view, err := h.bills.CurrentForTable(r.Context(), tableID)
	if err != nil {
		writeJSON(w, statusFor(err), billResponse{Message: err.Error()})
		return
	}
	if view == nil {
		writeJSON(w, http.StatusOK, billResponse{Success: true, Message: "table has no open bill"})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, billResponse{Message: "invalid request body"})
		return
	}

	b, err := h.bills.Create(r.Context(), req)
	if err != nil {
		writeJSON(w, statusFor(err), billResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, billResponse{Success: true, Message: "bill created", Bill: &b})
}

func (h *Handler) SettleBill(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req domain.SettleBillRequest
	// An empty body settles without a payment method; anything else must parse.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, billResponse{Message: "invalid request body"})
		return
	}

	b, err := h.bills.Settle(r.Context(), id, req.PaymentMethod)
	if err != nil {
		writeJSON(w, statusFor(err), billResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, billResponse{Success: true, Message: "bill settled", Bill: &b})
}

func (h *Handler) RemoveOrderFromBill(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	b, err := h.bills.RemoveOrder(r.Context(), vars["id"], vars["orderId"])
	if err != nil {
		writeJSON(w, statusFor(err), billResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, billResponse{Success: true, Message: "order removed from bill", Bill: &b})
}

func (h *Handler) DeleteBill(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.bills.Delete(r.Context(), id); err != nil {
		writeJSON(w, statusFor(err), billResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, billResponse{Success: true, Message: "bill deleted"})
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	repaired, err := h.bills.Reconcile(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "repaired": repaired})
}
