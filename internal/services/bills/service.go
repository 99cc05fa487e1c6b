// Package bills owns the Bill aggregate: the running tab that collects a
// table's orders. A bill's total is a materialized cache, rebuilt from
// the referenced orders on every mutation so repeated add/remove cycles
// cannot drift.
package bills

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"restaurant-tables/internal/catalog"
	"restaurant-tables/internal/domain"
	"restaurant-tables/internal/events"
	"restaurant-tables/internal/locking"
	"restaurant-tables/internal/logger"
	"restaurant-tables/internal/repository"
	"restaurant-tables/internal/services/tables"
)

type BillServiceInterface interface {
	FindAll(ctx context.Context) ([]domain.Bill, error)
	FindByID(ctx context.Context, id string) (domain.Bill, error)
	// CurrentForTable returns the table's open bill with its orders
	// resolved, or nil when the table has none.
	CurrentForTable(ctx context.Context, tableID string) (*domain.BillView, error)
	Create(ctx context.Context, req domain.CreateBillRequest) (domain.Bill, error)
	// OpenFor creates an empty open bill and points the table at it.
	// Callers are expected to hold the table's flow lock.
	OpenFor(ctx context.Context, tableID, waiter string) (domain.Bill, error)
	AppendOrder(ctx context.Context, billID, orderID string) (domain.Bill, error)
	RecomputeTotal(ctx context.Context, billID string) (domain.Bill, error)
	RemoveOrder(ctx context.Context, billID, orderID string) (domain.Bill, error)
	Settle(ctx context.Context, billID string, paymentMethod *string) (domain.Bill, error)
	Delete(ctx context.Context, billID string) error
	// Reconcile repairs tables claiming occupancy whose open bill is
	// missing or closed, the footprint a partial failure leaves behind.
	Reconcile(ctx context.Context) (int, error)
}

type BillService struct {
	bills  repository.BillRepositoryInterface
	orders repository.OrderRepositoryInterface
	tables tables.TableServiceInterface
	menu   catalog.Catalog
	pub    events.Publisher
	locks  *locking.Keyed
	lg     *logger.Logger
}

func NewBillService(
	bills repository.BillRepositoryInterface,
	orders repository.OrderRepositoryInterface,
	tableSvc tables.TableServiceInterface,
	menu catalog.Catalog,
	pub events.Publisher,
	locks *locking.Keyed,
) BillServiceInterface {
	return &BillService{
		bills:  bills,
		orders: orders,
		tables: tableSvc,
		menu:   menu,
		pub:    pub,
		locks:  locks,
		lg:     logger.New("bill-service"),
	}
}

func (s *BillService) FindAll(ctx context.Context) ([]domain.Bill, error) {
	out, err := s.bills.ListBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	return out, nil
}

func (s *BillService) FindByID(ctx context.Context, id string) (domain.Bill, error) {
	b, err := s.bills.GetBill(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Bill{}, domain.NotFoundf("bill %s not found", id)
	}
	return b, err
}

func (s *BillService) CurrentForTable(ctx context.Context, tableID string) (*domain.BillView, error) {
	if _, err := s.tables.FindOne(ctx, tableID); err != nil {
		return nil, err
	}
	b, err := s.bills.FindOpenBillByTable(ctx, tableID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open bill: %w", err)
	}

	resolved, err := s.orders.GetOrders(ctx, b.OrderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bill orders: %w", err)
	}
	return &domain.BillView{Bill: b, Orders: resolved}, nil
}

// Create opens a bill explicitly, pricing any initial items through the
// catalog. At most one open bill may exist per table.
func (s *BillService) Create(ctx context.Context, req domain.CreateBillRequest) (domain.Bill, error) {
	if req.TableID == "" {
		return domain.Bill{}, domain.Validationf("table id is required")
	}
	if req.Waiter == "" {
		return domain.Bill{}, domain.Validationf("waiter is required")
	}

	total := 0.0
	for _, in := range req.Items {
		if in.Quantity <= 0 {
			return domain.Bill{}, domain.Validationf("invalid quantity for item %s", in.ItemID)
		}
		it, err := s.menu.Item(ctx, in.ItemID)
		if err != nil {
			return domain.Bill{}, err
		}
		total += it.Price * float64(in.Quantity)
	}
	total = domain.RoundCents(total)

	var out domain.Bill
	err := s.locks.Do(req.TableID, func() error {
		table, err := s.tables.FindOne(ctx, req.TableID)
		if err != nil {
			return err
		}
		if _, err := s.bills.FindOpenBillByTable(ctx, req.TableID); err == nil {
			return domain.Conflictf("table %d already has an open bill", table.Number)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to check open bill: %w", err)
		}

		bill := domain.Bill{
			ID:          uuid.NewString(),
			TableID:     req.TableID,
			Waiter:      req.Waiter,
			OrderIDs:    []string{},
			TotalAmount: total,
			Status:      domain.BillOpen,
		}
		if err := s.bills.InsertBill(ctx, bill); err != nil {
			return err
		}

		occupied := true
		if _, err := s.tables.Update(ctx, req.TableID, domain.TableUpdate{
			IsOccupied: &occupied, CurrentBillID: &bill.ID,
		}); err != nil {
			// Compensate so the one-open-bill invariant survives.
			if derr := s.bills.DeleteBill(ctx, bill.ID); derr != nil {
				s.lg.Error("compensate_bill_delete", derr, map[string]any{"bill_id": bill.ID})
			}
			return err
		}
		out = bill
		return nil
	})
	if err != nil {
		return domain.Bill{}, err
	}

	s.publish(ctx, domain.EventBillOpened, billEvent(out))
	return out, nil
}

func (s *BillService) OpenFor(ctx context.Context, tableID, waiter string) (domain.Bill, error) {
	bill := domain.Bill{
		ID:       uuid.NewString(),
		TableID:  tableID,
		Waiter:   waiter,
		OrderIDs: []string{},
		Status:   domain.BillOpen,
	}
	if err := s.bills.InsertBill(ctx, bill); err != nil {
		return domain.Bill{}, fmt.Errorf("failed to open bill: %w", err)
	}

	occupied := true
	if _, err := s.tables.Update(ctx, tableID, domain.TableUpdate{
		IsOccupied: &occupied, CurrentBillID: &bill.ID,
	}); err != nil {
		if derr := s.bills.DeleteBill(ctx, bill.ID); derr != nil {
			s.lg.Error("compensate_bill_delete", derr, map[string]any{"bill_id": bill.ID})
		}
		return domain.Bill{}, err
	}

	s.publish(ctx, domain.EventBillOpened, billEvent(bill))
	return bill, nil
}

func (s *BillService) AppendOrder(ctx context.Context, billID, orderID string) (domain.Bill, error) {
	bill, err := s.FindByID(ctx, billID)
	if err != nil {
		return domain.Bill{}, err
	}
	if bill.Status != domain.BillOpen {
		return domain.Bill{}, domain.Conflictf("bill %s is already settled", billID)
	}
	for _, id := range bill.OrderIDs {
		if id == orderID {
			return s.recompute(ctx, bill)
		}
	}
	bill.OrderIDs = append(bill.OrderIDs, orderID)
	return s.recompute(ctx, bill)
}

func (s *BillService) RecomputeTotal(ctx context.Context, billID string) (domain.Bill, error) {
	bill, err := s.FindByID(ctx, billID)
	if err != nil {
		return domain.Bill{}, err
	}
	if bill.Status != domain.BillOpen {
		return domain.Bill{}, domain.Conflictf("bill %s is already settled", billID)
	}
	return s.recompute(ctx, bill)
}

func (s *BillService) RemoveOrder(ctx context.Context, billID, orderID string) (domain.Bill, error) {
	bill, err := s.FindByID(ctx, billID)
	if err != nil {
		return domain.Bill{}, err
	}
	if bill.Status != domain.BillOpen {
		return domain.Bill{}, domain.Conflictf("bill %s is already settled", billID)
	}

	idx := -1
	for i, id := range bill.OrderIDs {
		if id == orderID {
			idx = i
			break
		}
	}
	if idx < 0 {
		if other, err := s.bills.FindBillByOrder(ctx, orderID); err == nil && other.ID != billID {
			return domain.Bill{}, domain.Conflictf("order %s belongs to bill %s, not this bill", orderID, other.ID)
		}
		return domain.Bill{}, domain.NotFoundf("order %s is not linked to bill %s", orderID, billID)
	}

	bill.OrderIDs = append(bill.OrderIDs[:idx], bill.OrderIDs[idx+1:]...)
	return s.recompute(ctx, bill)
}

func (s *BillService) Settle(ctx context.Context, billID string, paymentMethod *string) (domain.Bill, error) {
	var out domain.Bill
	bill, err := s.FindByID(ctx, billID)
	if err != nil {
		return domain.Bill{}, err
	}

	err = s.locks.Do(bill.TableID, func() error {
		bill, err = s.FindByID(ctx, billID)
		if err != nil {
			return err
		}
		if bill.Status == domain.BillClosed {
			return domain.Conflictf("bill %s is already settled", billID)
		}

		now := time.Now().UTC()
		bill.Status = domain.BillClosed
		bill.PaidAt = &now
		bill.PaymentMethod = paymentMethod
		if err := s.bills.UpdateBill(ctx, bill); err != nil {
			return fmt.Errorf("failed to settle bill: %w", err)
		}

		// Settlement frees occupancy but leaves the waiter's lock alone.
		occupied := false
		if _, err := s.tables.Update(ctx, bill.TableID, domain.TableUpdate{
			IsOccupied: &occupied, ClearBillID: true,
		}); err != nil {
			return err
		}
		out = bill
		return nil
	})
	if err != nil {
		return domain.Bill{}, err
	}

	s.publish(ctx, domain.EventBillSettled, billEvent(out))
	return out, nil
}

// Delete hard-deletes a bill. Settled bills are immutable payment records
// and cannot be deleted. If the owning table still points at the bill the
// occupancy reference is cleared too, so the delete cannot manufacture an
// occupied-without-bill table.
func (s *BillService) Delete(ctx context.Context, billID string) error {
	bill, err := s.FindByID(ctx, billID)
	if err != nil {
		return err
	}
	if bill.Status != domain.BillOpen {
		return domain.Conflictf("bill %s is already settled", billID)
	}

	if err := s.bills.DeleteBill(ctx, billID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFoundf("bill %s not found", billID)
		}
		return fmt.Errorf("failed to delete bill: %w", err)
	}

	table, err := s.tables.FindOne(ctx, bill.TableID)
	if err == nil && table.CurrentBillID != nil && *table.CurrentBillID == billID {
		occupied := false
		if _, err := s.tables.Update(ctx, bill.TableID, domain.TableUpdate{
			IsOccupied: &occupied, ClearBillID: true,
		}); err != nil {
			return err
		}
	}

	s.publish(ctx, domain.EventBillDeleted, billEvent(bill))
	return nil
}

func (s *BillService) Reconcile(ctx context.Context) (int, error) {
	all, err := s.tables.FindAll(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, t := range all {
		if !t.IsOccupied {
			continue
		}
		broken := t.CurrentBillID == nil
		if !broken {
			b, err := s.bills.GetBill(ctx, *t.CurrentBillID)
			broken = errors.Is(err, repository.ErrNotFound) || (err == nil && b.Status != domain.BillOpen)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return repaired, err
			}
		}
		if !broken {
			continue
		}

		occupied := false
		if _, err := s.tables.Update(ctx, t.ID, domain.TableUpdate{
			IsOccupied: &occupied, ClearBillID: true,
		}); err != nil {
			return repaired, err
		}
		repaired++
		s.lg.Info("table_repaired", map[string]any{"table_id": t.ID, "number": t.Number})
	}
	return repaired, nil
}

// recompute rebuilds the total from the referenced orders and persists
// the bill. Incremental deltas are never used.
func (s *BillService) recompute(ctx context.Context, bill domain.Bill) (domain.Bill, error) {
	resolved, err := s.orders.GetOrders(ctx, bill.OrderIDs)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("failed to resolve bill orders: %w", err)
	}
	var total float64
	for _, o := range resolved {
		total += o.TotalAmount
	}
	bill.TotalAmount = domain.RoundCents(total)

	if err := s.bills.UpdateBill(ctx, bill); err != nil {
		return domain.Bill{}, fmt.Errorf("failed to update bill: %w", err)
	}
	return bill, nil
}

func (s *BillService) publish(ctx context.Context, key string, payload any) {
	if err := s.pub.Publish(ctx, key, payload); err != nil {
		s.lg.Error("publish_event", err, map[string]any{"routing_key": key})
	}
}

func billEvent(b domain.Bill) domain.BillEvent {
	return domain.BillEvent{
		BillID:      b.ID,
		TableID:     b.TableID,
		Waiter:      b.Waiter,
		TotalAmount: b.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
}
