// Package orders drives the multi-step create/amend/close protocols that
// keep the Table, Bill and Order aggregates consistent. There is no
// multi-document transaction underneath: every flow runs under the
// table's flow lock, and the order-create window is compensated so a
// failed bill link does not strand a half-written order.
package orders

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
	"restaurant-tables/internal/services/bills"
	"restaurant-tables/internal/services/tables"
)

type OrderServiceInterface interface {
	FindAll(ctx context.Context) ([]domain.Order, error)
	FindByID(ctx context.Context, id string) (domain.Order, error)
	Create(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error)
	// Update replaces the order's item list. Amending away every item
	// deletes the order (and its bill, if this was the last order) and
	// returns nil.
	Update(ctx context.Context, id string, req domain.UpdateOrderRequest) (*domain.Order, error)
	Close(ctx context.Context, id string) (domain.Order, error)
}

type OrderService struct {
	orders    repository.OrderRepositoryInterface
	billRepo  repository.BillRepositoryInterface
	tableRepo repository.TableRepositoryInterface
	tables    tables.TableServiceInterface
	bills     bills.BillServiceInterface
	menu      catalog.Catalog
	pub       events.Publisher
	locks     *locking.Keyed
	lg        *logger.Logger
}

func NewOrderService(
	orders repository.OrderRepositoryInterface,
	billRepo repository.BillRepositoryInterface,
	tableRepo repository.TableRepositoryInterface,
	tableSvc tables.TableServiceInterface,
	billSvc bills.BillServiceInterface,
	menu catalog.Catalog,
	pub events.Publisher,
	locks *locking.Keyed,
) OrderServiceInterface {
	return &OrderService{
		orders:    orders,
		billRepo:  billRepo,
		tableRepo: tableRepo,
		tables:    tableSvc,
		bills:     billSvc,
		menu:      menu,
		pub:       pub,
		locks:     locks,
		lg:        logger.New("order-service"),
	}
}

func (s *OrderService) FindAll(ctx context.Context) ([]domain.Order, error) {
	out, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return out, nil
}

func (s *OrderService) FindByID(ctx context.Context, id string) (domain.Order, error) {
	o, err := s.orders.GetOrder(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Order{}, domain.NotFoundf("order %s not found", id)
	}
	return o, err
}

// Create places an order against the table, opening a bill transparently
// when the table has no dining session yet. A table locked by another
// waiter rejects the order; an unlocked table is claimed on the way in.
func (s *OrderService) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	if req.TableID == "" {
		return domain.Order{}, domain.Validationf("table id is required")
	}
	if req.Waiter == "" {
		return domain.Order{}, domain.Validationf("waiter is required")
	}
	if len(req.Items) == 0 {
		return domain.Order{}, domain.Validationf("at least one item is required")
	}

	items, total, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return domain.Order{}, err
	}

	var out domain.Order
	err = s.locks.Do(req.TableID, func() error {
		table, err := s.tables.FindOne(ctx, req.TableID)
		if err != nil {
			return err
		}

		if table.LockedBy != nil && *table.LockedBy != req.Waiter {
			return domain.Conflictf("table %d is in use by another waiter", table.Number)
		}
		if table.LockedBy == nil {
			claimed, err := s.tableRepo.ClaimTable(ctx, req.TableID, req.Waiter, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("failed to claim table: %w", err)
			}
			if !claimed {
				return domain.Conflictf("table %d is in use by another waiter", table.Number)
			}
		}

		bill, opened, err := s.billForTable(ctx, table, req.Waiter)
		if err != nil {
			return err
		}

		order := domain.Order{
			ID:          uuid.NewString(),
			TableID:     req.TableID,
			Waiter:      req.Waiter,
			Items:       items,
			TotalAmount: total,
			Status:      domain.OrderOpen,
		}
		if err := s.orders.InsertOrder(ctx, order); err != nil {
			if opened {
				s.compensateOpenedBill(ctx, bill.ID)
			}
			return fmt.Errorf("failed to persist order: %w", err)
		}

		if _, err := s.bills.AppendOrder(ctx, bill.ID, order.ID); err != nil {
			// Undo the order write so the failure leaves no orphan.
			if derr := s.orders.DeleteOrder(ctx, order.ID); derr != nil {
				s.lg.Error("compensate_order_delete", derr, map[string]any{"order_id": order.ID})
			}
			if opened {
				s.compensateOpenedBill(ctx, bill.ID)
			}
			return err
		}

		out = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.publish(ctx, domain.EventOrderCreated, orderEvent(out))
	return out, nil
}

func (s *OrderService) Update(ctx context.Context, id string, req domain.UpdateOrderRequest) (*domain.Order, error) {
	order, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, total, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	var out *domain.Order
	err = s.locks.Do(order.TableID, func() error {
		if total == 0 {
			return s.removeEmptied(ctx, order)
		}

		order.Items = items
		order.TotalAmount = total
		if err := s.orders.UpdateOrder(ctx, order); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NotFoundf("order %s not found", id)
			}
			return fmt.Errorf("failed to update order: %w", err)
		}

		// Rebuild the owning bill's total from source, not by delta.
		bill, err := s.billRepo.FindBillByOrder(ctx, order.ID)
		if err == nil {
			if _, err := s.bills.RecomputeTotal(ctx, bill.ID); err != nil {
				return err
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to locate owning bill: %w", err)
		}

		out = &order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out != nil {
		s.publish(ctx, domain.EventOrderUpdated, orderEvent(*out))
	}
	return out, nil
}

// Close finalizes the order. Releasing the table stays a separate,
// explicit unlock call; a waiter closing one order is not necessarily
// done with the table.
func (s *OrderService) Close(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.FindByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderClosed
	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Order{}, domain.NotFoundf("order %s not found", id)
		}
		return domain.Order{}, fmt.Errorf("failed to close order: %w", err)
	}

	s.publish(ctx, domain.EventOrderClosed, orderEvent(order))
	return order, nil
}

// billForTable returns the table's open bill, creating one when the
// table has no session. opened reports whether this call created it.
func (s *OrderService) billForTable(ctx context.Context, table domain.Table, waiter string) (domain.Bill, bool, error) {
	if !table.IsOccupied || table.CurrentBillID == nil {
		bill, err := s.bills.OpenFor(ctx, table.ID, waiter)
		if err != nil {
			return domain.Bill{}, false, err
		}
		return bill, true, nil
	}

	bill, err := s.billRepo.GetBill(ctx, *table.CurrentBillID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Bill{}, false, domain.Inconsistentf(
			"table %d claims occupancy but bill %s cannot be found", table.Number, *table.CurrentBillID)
	}
	if err != nil {
		return domain.Bill{}, false, fmt.Errorf("failed to load current bill: %w", err)
	}
	if bill.Status != domain.BillOpen {
		return domain.Bill{}, false, domain.Inconsistentf(
			"table %d claims occupancy but bill %s is not open", table.Number, bill.ID)
	}
	return bill, false, nil
}

// removeEmptied handles an amendment that deleted every item: the order
// goes away, and if it was the bill's last order the bill goes with it
// and the table's occupancy is released. Lock fields stay untouched.
func (s *OrderService) removeEmptied(ctx context.Context, order domain.Order) error {
	if err := s.orders.DeleteOrder(ctx, order.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	bill, err := s.billRepo.FindBillByOrder(ctx, order.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil // order was never linked; nothing further to tear down
	}
	if err != nil {
		return fmt.Errorf("failed to locate owning bill: %w", err)
	}

	reduced, err := s.bills.RemoveOrder(ctx, bill.ID, order.ID)
	if err != nil {
		return err
	}
	if len(reduced.OrderIDs) == 0 {
		return s.bills.Delete(ctx, bill.ID)
	}
	return nil
}

// compensateOpenedBill tears down a bill opened earlier in a failed
// create flow, reverting the table's occupancy with it.
func (s *OrderService) compensateOpenedBill(ctx context.Context, billID string) {
	if err := s.bills.Delete(ctx, billID); err != nil {
		s.lg.Error("compensate_bill_delete", err, map[string]any{"bill_id": billID})
	}
}

func (s *OrderService) priceItems(ctx context.Context, inputs []domain.ItemInput) ([]domain.OrderItem, float64, error) {
	items := make([]domain.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		if in.Quantity <= 0 {
			return nil, 0, domain.Validationf("invalid quantity for item %s", in.ItemID)
		}
		it, err := s.menu.Item(ctx, in.ItemID)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, domain.OrderItem{
			ItemID:   it.ID,
			Quantity: in.Quantity,
			Price:    it.Price,
			Name:     it.Name,
		})
	}
	return items, domain.ItemsTotal(items), nil
}

func (s *OrderService) publish(ctx context.Context, key string, payload any) {
	if err := s.pub.Publish(ctx, key, payload); err != nil {
		s.lg.Error("publish_event", err, map[string]any{"routing_key": key})
	}
}

func orderEvent(o domain.Order) domain.OrderEvent {
	return domain.OrderEvent{
		OrderID:     o.ID,
		TableID:     o.TableID,
		Waiter:      o.Waiter,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		OccurredAt:  time.Now().UTC(),
	}
}
