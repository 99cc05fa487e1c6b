package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"restaurant-tables/internal/services/bills"
	"restaurant-tables/internal/services/orders"
	"restaurant-tables/internal/services/tables"
)

type Handler struct {
	tables tables.TableServiceInterface
	orders orders.OrderServiceInterface
	bills  bills.BillServiceInterface
}

func NewHandler(
	tableSvc tables.TableServiceInterface,
	orderSvc orders.OrderServiceInterface,
	billSvc bills.BillServiceInterface,
) *Handler {
	return &Handler{tables: tableSvc, orders: orderSvc, bills: billSvc}
}

func Router(h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	r.HandleFunc("/api/tables", h.ListTables).Methods("GET")
	r.HandleFunc("/api/tables/{id}", h.GetTable).Methods("GET")
	r.HandleFunc("/api/tables/{id}/lock", h.LockTable).Methods("POST")
	r.HandleFunc("/api/tables/{id}/unlock", h.UnlockTable).Methods("POST")
	r.HandleFunc("/api/tables/{id}", h.UpdateTable).Methods("PATCH")

	r.HandleFunc("/api/orders", h.ListOrders).Methods("GET")
	r.HandleFunc("/api/orders", h.CreateOrder).Methods("POST")
	r.HandleFunc("/api/orders/{id}", h.GetOrder).Methods("GET")
	r.HandleFunc("/api/orders/{id}", h.UpdateOrder).Methods("PUT")
	r.HandleFunc("/api/orders/{id}/close", h.CloseOrder).Methods("POST")

	r.HandleFunc("/api/bills", h.ListBills).Methods("GET")
	r.HandleFunc("/api/bills", h.CreateBill).Methods("POST")
	r.HandleFunc("/api/bills/{id}", h.GetBill).Methods("GET")
	r.HandleFunc("/api/bills/{id}", h.DeleteBill).Methods("DELETE")
	r.HandleFunc("/api/bills/{id}/settle", h.SettleBill).Methods("POST")
	r.HandleFunc("/api/bills/{id}/orders/{orderId}", h.RemoveOrderFromBill).Methods("DELETE")
	r.HandleFunc("/api/tables/{tableId}/bill", h.GetCurrentBill).Methods("GET")

	r.HandleFunc("/admin/reconcile", h.Reconcile).Methods("POST")

	return r
}
