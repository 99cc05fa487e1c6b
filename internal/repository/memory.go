package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"restaurant-tables/internal/domain"
)

// MemoryStore keeps the three collections in process. It implements the
// same conditional-write contract as the Postgres repositories: the
// claim/release check and mutation happen under one mutex hold, so the
// check-then-act window does not exist. Used by the test suite and the
// memory storage driver.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]domain.Table
	bills  map[string]domain.Bill
	orders map[string]domain.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]domain.Table),
		bills:  make(map[string]domain.Bill),
		orders: make(map[string]domain.Order),
	}
}

// --- tables ---

func (s *MemoryStore) ListTables(_ context.Context) ([]domain.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, cloneTable(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *MemoryStore) GetTable(_ context.Context, id string) (domain.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	if !ok {
		return domain.Table{}, ErrNotFound
	}
	return cloneTable(t), nil
}

func (s *MemoryStore) InsertTable(_ context.Context, t domain.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID] = cloneTable(t)
	return nil
}

func (s *MemoryStore) ClaimTable(_ context.Context, id, waiter string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return false, ErrNotFound
	}
	if t.LockedBy != nil {
		return false, nil
	}
	w := waiter
	ts := at
	t.LockedBy = &w
	t.LockedAt = &ts
	s.tables[id] = t
	return true, nil
}

func (s *MemoryStore) ReleaseTable(_ context.Context, id, waiter string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return false, ErrNotFound
	}
	if t.LockedBy == nil || *t.LockedBy != waiter {
		return false, nil
	}
	t.LockedBy = nil
	t.LockedAt = nil
	t.IsOccupied = false
	s.tables[id] = t
	return true, nil
}

func (s *MemoryStore) UpdateTable(_ context.Context, id string, upd domain.TableUpdate) (domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return domain.Table{}, ErrNotFound
	}
	if upd.IsOccupied != nil {
		t.IsOccupied = *upd.IsOccupied
	}
	if upd.ClearBillID {
		t.CurrentBillID = nil
	} else if upd.CurrentBillID != nil {
		id := *upd.CurrentBillID
		t.CurrentBillID = &id
	}
	s.tables[id] = t
	return cloneTable(t), nil
}

// --- bills ---

func (s *MemoryStore) ListBills(_ context.Context) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		out = append(out, cloneBill(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetBill(_ context.Context, id string) (domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bills[id]
	if !ok {
		return domain.Bill{}, ErrNotFound
	}
	return cloneBill(b), nil
}

func (s *MemoryStore) FindOpenBillByTable(_ context.Context, tableID string) (domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bills {
		if b.TableID == tableID && b.Status == domain.BillOpen {
			return cloneBill(b), nil
		}
	}
	return domain.Bill{}, ErrNotFound
}

func (s *MemoryStore) FindBillByOrder(_ context.Context, orderID string) (domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bills {
		for _, id := range b.OrderIDs {
			if id == orderID {
				return cloneBill(b), nil
			}
		}
	}
	return domain.Bill{}, ErrNotFound
}

func (s *MemoryStore) InsertBill(_ context.Context, b domain.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[b.ID] = cloneBill(b)
	return nil
}

func (s *MemoryStore) UpdateBill(_ context.Context, b domain.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[b.ID]; !ok {
		return ErrNotFound
	}
	s.bills[b.ID] = cloneBill(b)
	return nil
}

func (s *MemoryStore) DeleteBill(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[id]; !ok {
		return ErrNotFound
	}
	delete(s.bills, id)
	return nil
}

// --- orders ---

func (s *MemoryStore) ListOrders(_ context.Context) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemoryStore) GetOrders(_ context.Context, ids []string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := s.orders[id]; ok {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertOrder(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *MemoryStore) UpdateOrder(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; !ok {
		return ErrNotFound
	}
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *MemoryStore) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

// SeedDefaultFloor provisions the default dining floor when the store is
// empty, matching the Postgres seed.
func (s *MemoryStore) SeedDefaultFloor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tables) > 0 {
		return
	}
	floor := map[int]int{1: 2, 2: 2, 3: 4, 4: 4, 5: 4, 6: 6, 7: 6, 8: 8}
	for number, seats := range floor {
		id := uuid.NewString()
		s.tables[id] = domain.Table{ID: id, Number: number, Seats: seats}
	}
}

// clone helpers keep callers from aliasing store-internal slices/pointers.

func cloneTable(t domain.Table) domain.Table {
	c := t
	if t.CurrentBillID != nil {
		v := *t.CurrentBillID
		c.CurrentBillID = &v
	}
	if t.LockedBy != nil {
		v := *t.LockedBy
		c.LockedBy = &v
	}
	if t.LockedAt != nil {
		v := *t.LockedAt
		c.LockedAt = &v
	}
	return c
}

func cloneBill(b domain.Bill) domain.Bill {
	c := b
	c.OrderIDs = append([]string(nil), b.OrderIDs...)
	if b.PaidAt != nil {
		v := *b.PaidAt
		c.PaidAt = &v
	}
	if b.PaymentMethod != nil {
		v := *b.PaymentMethod
		c.PaymentMethod = &v
	}
	return c
}

func cloneOrder(o domain.Order) domain.Order {
	c := o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	return c
}
