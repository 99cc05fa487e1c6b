package domain

import "time"

// Routing keys for lifecycle events published to the tables.events exchange.
const (
	EventTableLocked   = "table.locked"
	EventTableUnlocked = "table.unlocked"
	EventTableUpdated  = "table.updated"
	EventBillOpened    = "bill.opened"
	EventBillSettled   = "bill.settled"
	EventBillDeleted   = "bill.deleted"
	EventOrderCreated  = "order.created"
	EventOrderUpdated  = "order.updated"
	EventOrderClosed   = "order.closed"
)

type TableEvent struct {
	TableID    string    `json:"table_id"`
	Number     int       `json:"number"`
	Waiter     string    `json:"waiter,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type BillEvent struct {
	BillID      string    `json:"bill_id"`
	TableID     string    `json:"table_id"`
	Waiter      string    `json:"waiter"`
	TotalAmount float64   `json:"total_amount"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type OrderEvent struct {
	OrderID     string    `json:"order_id"`
	TableID     string    `json:"table_id"`
	Waiter      string    `json:"waiter"`
	TotalAmount float64   `json:"total_amount"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}
