package domain

// ItemInput is one requested menu line. Price and name are resolved
// server-side from the catalog; the client only names item and quantity.
type ItemInput struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type CreateOrderRequest struct {
	TableID string      `json:"table_id"`
	Waiter  string      `json:"waiter"`
	Items   []ItemInput `json:"items"`
}

type UpdateOrderRequest struct {
	Items []ItemInput `json:"items"`
}

type CreateBillRequest struct {
	TableID string      `json:"table_id"`
	Waiter  string      `json:"waiter"`
	Items   []ItemInput `json:"items,omitempty"`
}

type SettleBillRequest struct {
	PaymentMethod *string `json:"payment_method,omitempty"`
}

type LockRequest struct {
	Waiter string `json:"waiter"`
}

// TableUpdate is the internal partial-mutation point for occupancy and
// bill-reference fields. Lock fields are out of its reach. ClearBillID
// distinguishes "set current_bill_id to null" from "leave it alone".
type TableUpdate struct {
	IsOccupied    *bool
	CurrentBillID *string
	ClearBillID   bool
}

// BillView is a bill with its referenced orders resolved, as returned by
// the current-bill lookup.
type BillView struct {
	Bill
	Orders []Order `json:"orders"`
}
