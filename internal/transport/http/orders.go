package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"restaurant-tables/internal/domain"
)

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.FindAll(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, orderResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	o, err := h.orders.FindByID(r.Context(), id)
	if err != nil {
		writeJSON(w, statusFor(err), orderResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Message: "order found", Order: &o})
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, orderResponse{Message: "invalid request body"})
		return
	}

	o, err := h.orders.Create(r.Context(), req)
	if err != nil {
		writeJSON(w, statusFor(err), orderResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse{Success: true, Message: "order created", Order: &o})
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req domain.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, orderResponse{Message: "invalid request body"})
		return
	}

	o, err := h.orders.Update(r.Context(), id, req)
	if err != nil {
		writeJSON(w, statusFor(err), orderResponse{Message: err.Error()})
		return
	}
	if o == nil {
		writeJSON(w, http.StatusOK, orderResponse{Success: true, Message: "order removed as all items were deleted"})
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Message: "order updated", Order: o})
}

func (h *Handler) CloseOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	o, err := h.orders.Close(r.Context(), id)
	if err != nil {
		writeJSON(w, statusFor(err), orderResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Message: "order closed", Order: &o})
}
