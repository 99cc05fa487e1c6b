package repository

import (
	"context"
	"errors"
	"time"

	"restaurant-tables/internal/domain"
)

// ErrNotFound is the distinguished lookup failure; service layers convert
// it into the uniform not-found operation result.
var ErrNotFound = errors.New("record not found")

// TableRepositoryInterface owns the tables collection. ClaimTable and
// ReleaseTable are conditional writes: the check and the mutation happen
// in one storage round trip so two interleaved lock requests cannot both
// observe an unclaimed table.
type TableRepositoryInterface interface {
	ListTables(ctx context.Context) ([]domain.Table, error)
	GetTable(ctx context.Context, id string) (domain.Table, error)
	InsertTable(ctx context.Context, t domain.Table) error
	// ClaimTable sets locked_by/locked_at iff the table is currently
	// unclaimed. Reports whether this call won the claim.
	ClaimTable(ctx context.Context, id, waiter string, at time.Time) (bool, error)
	// ReleaseTable clears the lock fields and forces is_occupied=false
	// iff locked_by equals waiter. Reports whether anything was released.
	ReleaseTable(ctx context.Context, id, waiter string) (bool, error)
	// UpdateTable applies a partial occupancy/bill-reference mutation.
	// Lock fields are never touched here.
	UpdateTable(ctx context.Context, id string, upd domain.TableUpdate) (domain.Table, error)
}

// BillRepositoryInterface owns the bills collection.
type BillRepositoryInterface interface {
	ListBills(ctx context.Context) ([]domain.Bill, error)
	GetBill(ctx context.Context, id string) (domain.Bill, error)
	// FindOpenBillByTable returns the table's Open bill, ErrNotFound when none.
	FindOpenBillByTable(ctx context.Context, tableID string) (domain.Bill, error)
	// FindBillByOrder returns the bill referencing orderID, ErrNotFound when none.
	FindBillByOrder(ctx context.Context, orderID string) (domain.Bill, error)
	InsertBill(ctx context.Context, b domain.Bill) error
	UpdateBill(ctx context.Context, b domain.Bill) error
	DeleteBill(ctx context.Context, id string) error
}

// OrderRepositoryInterface owns the orders collection.
type OrderRepositoryInterface interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	// GetOrders resolves the given ids, preserving their order and
	// skipping ids that no longer resolve.
	GetOrders(ctx context.Context, ids []string) ([]domain.Order, error)
	InsertOrder(ctx context.Context, o domain.Order) error
	UpdateOrder(ctx context.Context, o domain.Order) error
	DeleteOrder(ctx context.Context, id string) error
}
