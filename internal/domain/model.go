package domain

import "time"

// Bill and order lifecycle statuses.
const (
	BillOpen   = "Open"
	BillClosed = "Closed"

	OrderOpen      = "Open"
	OrderClosed    = "Closed"
	OrderCancelled = "Cancelled"
)

// Table is a physical seating unit and the unit of exclusive access.
// LockedBy/LockedAt track the waiter holding working rights; IsOccupied
// tracks whether a dining session (an open bill) is in progress. The two
// are independent: a settled table stays locked until explicitly released.
type Table struct {
	ID            string     `json:"id"`
	Number        int        `json:"number"`
	Seats         int        `json:"seats"`
	IsOccupied    bool       `json:"is_occupied"`
	CurrentBillID *string    `json:"current_bill_id,omitempty"`
	LockedBy      *string    `json:"locked_by,omitempty"`
	LockedAt      *time.Time `json:"locked_at,omitempty"`
}

// Bill is the running tab for a table's current dining session.
// TotalAmount is a materialized cache: it is always rebuilt from the
// orders referenced by OrderIDs, never trusted as an accumulated value.
type Bill struct {
	ID            string     `json:"id"`
	TableID       string     `json:"table_id"`
	Waiter        string     `json:"waiter"`
	OrderIDs      []string   `json:"order_ids"`
	TotalAmount   float64    `json:"total_amount"`
	Status        string     `json:"status"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
}

// Order is one placed or amended set of menu items within a bill.
type Order struct {
	ID          string      `json:"id"`
	TableID     string      `json:"table_id"`
	Waiter      string      `json:"waiter"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"total_amount"`
	Status      string      `json:"status"`
}

// OrderItem snapshots price and name at order-creation time. Later menu
// changes must not retroactively alter a placed order.
type OrderItem struct {
	ItemID   string  `json:"item_id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Name     string  `json:"name"`
}

// ItemsTotal computes an order total from its item lines.
func ItemsTotal(items []OrderItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return RoundCents(total)
}

// RoundCents normalizes a money amount to two decimal places.
func RoundCents(v float64) float64 {
	if v < 0 {
		return float64(int64(v*100-0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}
