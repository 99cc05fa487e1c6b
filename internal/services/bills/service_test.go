package bills

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-tables/internal/catalog"
	"restaurant-tables/internal/domain"
	"restaurant-tables/internal/events"
	"restaurant-tables/internal/locking"
	"restaurant-tables/internal/repository"
	"restaurant-tables/internal/services/tables"
)

type fixture struct {
	store    *repository.MemoryStore
	tableSvc tables.TableServiceInterface
	svc      BillServiceInterface
}

func setupBillService(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.InsertTable(ctx, domain.Table{ID: "t5", Number: 5, Seats: 4}))
	require.NoError(t, store.InsertTable(ctx, domain.Table{ID: "t6", Number: 6, Seats: 6}))

	menu := catalog.NewStatic(
		catalog.Item{ID: "sushi", Name: "Sushi", Price: 12},
		catalog.Item{ID: "tiramisu", Name: "Tiramisu", Price: 6.5},
	)
	locks := locking.NewKeyed()
	pub := events.NopPublisher{}

	tableSvc := tables.NewTableService(store, pub, locks)
	svc := NewBillService(store, store, tableSvc, menu, pub, locks)
	return &fixture{store: store, tableSvc: tableSvc, svc: svc}
}

// addOrder persists an order document and links it into the bill.
func (f *fixture) addOrder(t *testing.T, billID, tableID string, total float64) domain.Order {
	t.Helper()
	order := domain.Order{
		ID:          uuid.NewString(),
		TableID:     tableID,
		Waiter:      "alice",
		Items:       []domain.OrderItem{{ItemID: "sushi", Quantity: 1, Price: total, Name: "Sushi"}},
		TotalAmount: total,
		Status:      domain.OrderOpen,
	}
	require.NoError(t, f.store.InsertOrder(context.Background(), order))
	_, err := f.svc.AppendOrder(context.Background(), billID, order.ID)
	require.NoError(t, err)
	return order
}

func TestOpenFor_PointsTableAtBill(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	bill, err := f.svc.OpenFor(ctx, "t5", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.BillOpen, bill.Status)
	assert.Empty(t, bill.OrderIDs)
	assert.Zero(t, bill.TotalAmount)

	table, err := f.tableSvc.FindOne(ctx, "t5")
	require.NoError(t, err)
	assert.True(t, table.IsOccupied)
	require.NotNil(t, table.CurrentBillID)
	assert.Equal(t, bill.ID, *table.CurrentBillID)
}

func TestCreate_PricesInitialItems(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	bill, err := f.svc.Create(ctx, domain.CreateBillRequest{
		TableID: "t5", Waiter: "alice",
		Items: []domain.ItemInput{{ItemID: "sushi", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 24.0, bill.TotalAmount)

	table, err := f.tableSvc.FindOne(ctx, "t5")
	require.NoError(t, err)
	assert.True(t, table.IsOccupied)
}

func TestCreate_SecondOpenBillRejected(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateBillRequest{TableID: "t5", Waiter: "alice"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, domain.CreateBillRequest{TableID: "t5", Waiter: "bob"})
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestCreate_Validation(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateBillRequest{Waiter: "alice"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = f.svc.Create(ctx, domain.CreateBillRequest{TableID: "t5"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = f.svc.Create(ctx, domain.CreateBillRequest{
		TableID: "t5", Waiter: "alice",
		Items: []domain.ItemInput{{ItemID: "sushi", Quantity: -1}},
	})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestCurrentForTable(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	view, err := f.svc.CurrentForTable(ctx, "t5")
	require.NoError(t, err)
	assert.Nil(t, view)

	bill, err := f.svc.OpenFor(ctx, "t5", "alice")
	require.NoError(t, err)
	order := f.addOrder(t, bill.ID, "t5", 24)

	view, err = f.svc.CurrentForTable(ctx, "t5")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, bill.ID, view.ID)
	require.Len(t, view.Orders, 1)
	assert.Equal(t, order.ID, view.Orders[0].ID)
	assert.Equal(t, 24.0, view.TotalAmount)
}

func TestAppendOrder_RecomputesFromSource(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	bill, err := f.svc.OpenFor(ctx, "t5", "alice")
	require.NoError(t, err)

	f.addOrder(t, bill.ID, "t5", 24)
	f.addOrder(t, bill.ID, "t5", 6.5)

	got, err := f.svc.FindByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Len(t, got.OrderIDs, 2)
	assert.InDelta(t, 30.5, got.TotalAmount, 1e-9)
}

func TestRemoveOrder(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	bill, err := f.svc.OpenFor(ctx, "t5", "alice")
	require.NoError(t, err)
	first := f.addOrder(t, bill.ID, "t5", 24)
	second := f.addOrder(t, bill.ID, "t5", 6.5)

	reduced, err := f.svc.RemoveOrder(ctx, bill.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, reduced.OrderIDs)
	assert.InDelta(t, 6.5, reduced.TotalAmount, 1e-9)
}

func TestRemoveOrder_NotLinked(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	bill, err := f.svc.OpenFor(ctx, "t5", "alice")
	require.NoError(t, err)

	_, err = f.svc.RemoveOrder(ctx, bill.ID, "missing-order")
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestRemoveOrder_LinkedToDifferentBill(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	billA, err := f.svc.OpenFor(ctx, "t5", "alice")
	require.NoError(t, err)
	billB, err := f.svc.OpenFor(ctx, "t6", "bob")
	require.NoError(t, err)
	order := f.addOrder(t, billB.ID, "t6", 12)

	_, err = f.svc.RemoveOrder(ctx, billA.ID, order.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestRemoveAndReAdd_NoDrift(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	bill, err := f.svc.OpenFor(ctx, "t5", "alice")
	require.NoError(t, err)
	f.addOrder(t, bill.ID, "t5", 17.3)
	target := f.addOrder(t, bill.ID, "t5", 6.1)

	before, err := f.svc.FindByID(ctx, bill.ID)
	require.NoError(t, err)

	// Several remove/re-add cycles of an equivalent order must land on
	// exactly the same total.
	for i := 0; i < 5; i++ {
		_, err = f.svc.RemoveOrder(ctx, bill.ID, target.ID)
		require.NoError(t, err)
		require.NoError(t, f.store.DeleteOrder(ctx, target.ID))
		target = f.addOrder(t, bill.ID, "t5", 6.1)
	}

	after, err := f.svc.FindByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.InDelta(t, before.TotalAmount, after.TotalAmount, 1e-9)
}

func TestSettle(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	_, err := f.tableSvc.Lock(ctx, "t5", "alice")
	require.NoError(t, err)

	bill, err := f.svc.OpenFor(ctx, "t5", "alice")
	require.NoError(t, err)
	f.addOrder(t, bill.ID, "t5", 24)

	method := "card"
	settled, err := f.svc.Settle(ctx, bill.ID, &method)
	require.NoError(t, err)
	assert.Equal(t, domain.BillClosed, settled.Status)
	require.NotNil(t, settled.PaidAt)
	require.NotNil(t, settled.PaymentMethod)
	assert.Equal(t, "card", *settled.PaymentMethod)
	assert.Equal(t, 24.0, settled.TotalAmount)

	// Occupancy is freed; the waiter's lock is not.
	table, err := f.tableSvc.FindOne(ctx, "t5")
	require.NoError(t, err)
	assert.False(t, table.IsOccupied)
	assert.Nil(t, table.CurrentBillID)
	require.NotNil(t, table.LockedBy)
	assert.Equal(t, "alice", *table.LockedBy)
}

func TestSettle_AlreadySettled(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	bill, err := f.svc.OpenFor(ctx, "t5", "alice")
	require.NoError(t, err)
	_, err = f.svc.Settle(ctx, bill.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.Settle(ctx, bill.ID, nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestSettledBillIsImmutable(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	bill, err := f.svc.OpenFor(ctx, "t5", "alice")
	require.NoError(t, err)
	order := f.addOrder(t, bill.ID, "t5", 24)

	_, err = f.svc.Settle(ctx, bill.ID, nil)
	require.NoError(t, err)

	// A paid bill is a payment record: nothing may strip its orders or
	// rewrite its total.
	_, err = f.svc.RemoveOrder(ctx, bill.ID, order.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	late := domain.Order{ID: "late-order", TableID: "t5", Waiter: "alice", TotalAmount: 5, Status: domain.OrderOpen}
	require.NoError(t, f.store.InsertOrder(ctx, late))
	_, err = f.svc.AppendOrder(ctx, bill.ID, late.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	err = f.svc.Delete(ctx, bill.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	got, err := f.svc.FindByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BillClosed, got.Status)
	assert.Equal(t, []string{order.ID}, got.OrderIDs)
	assert.Equal(t, 24.0, got.TotalAmount)
}

func TestSettle_NotFound(t *testing.T) {
	f := setupBillService(t)

	_, err := f.svc.Settle(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestDelete_ClearsTableReference(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	bill, err := f.svc.OpenFor(ctx, "t5", "alice")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, bill.ID))

	_, err = f.svc.FindByID(ctx, bill.ID)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	table, err := f.tableSvc.FindOne(ctx, "t5")
	require.NoError(t, err)
	assert.False(t, table.IsOccupied)
	assert.Nil(t, table.CurrentBillID)
}

func TestReconcile_RepairsBrokenOccupancy(t *testing.T) {
	f := setupBillService(t)
	ctx := context.Background()

	// t5: occupied but its bill vanished.
	occupied := true
	ghost := "ghost-bill"
	_, err := f.store.UpdateTable(ctx, "t5", domain.TableUpdate{IsOccupied: &occupied, CurrentBillID: &ghost})
	require.NoError(t, err)

	// t6: healthy session, must be left alone.
	bill, err := f.svc.OpenFor(ctx, "t6", "bob")
	require.NoError(t, err)
	f.addOrder(t, bill.ID, "t6", 12)

	repaired, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	t5, err := f.tableSvc.FindOne(ctx, "t5")
	require.NoError(t, err)
	assert.False(t, t5.IsOccupied)
	assert.Nil(t, t5.CurrentBillID)

	t6, err := f.tableSvc.FindOne(ctx, "t6")
	require.NoError(t, err)
	assert.True(t, t6.IsOccupied)
}
