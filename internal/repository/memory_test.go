package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-tables/internal/domain"
)

func TestClaimTable_ExactlyOneWinner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.InsertTable(ctx, domain.Table{ID: "t1", Number: 1, Seats: 2}))

	waiters := []string{"alice", "bob", "carol", "dave"}
	results := make([]bool, len(waiters))

	var wg sync.WaitGroup
	wg.Add(len(waiters))
	for i, w := range waiters {
		go func(i int, w string) {
			defer wg.Done()
			claimed, err := store.ClaimTable(ctx, "t1", w, time.Now())
			assert.NoError(t, err)
			results[i] = claimed
		}(i, w)
	}
	wg.Wait()

	winners := 0
	for _, claimed := range results {
		if claimed {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	table, err := store.GetTable(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, table.LockedBy)
	assert.Contains(t, waiters, *table.LockedBy)
}

func TestClaimTable_AlreadyHeld(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.InsertTable(ctx, domain.Table{ID: "t1", Number: 1, Seats: 2}))

	claimed, err := store.ClaimTable(ctx, "t1", "alice", time.Now())
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = store.ClaimTable(ctx, "t1", "bob", time.Now())
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestClaimTable_NotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.ClaimTable(context.Background(), "missing", "alice", time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReleaseTable(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.InsertTable(ctx, domain.Table{ID: "t1", Number: 1, Seats: 2}))

	_, err := store.ClaimTable(ctx, "t1", "alice", time.Now())
	require.NoError(t, err)

	released, err := store.ReleaseTable(ctx, "t1", "bob")
	require.NoError(t, err)
	assert.False(t, released, "a non-holder must not release the claim")

	released, err = store.ReleaseTable(ctx, "t1", "alice")
	require.NoError(t, err)
	assert.True(t, released)

	table, err := store.GetTable(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, table.LockedBy)
	assert.Nil(t, table.LockedAt)
	assert.False(t, table.IsOccupied)
}

func TestGetTable_ReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.InsertTable(ctx, domain.Table{ID: "t1", Number: 1, Seats: 2}))

	table, err := store.GetTable(ctx, "t1")
	require.NoError(t, err)
	table.Seats = 99

	again, err := store.GetTable(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Seats, "mutating a returned value must not leak into the store")
}

func TestGetOrders_PreservesOrderAndSkipsMissing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.InsertOrder(ctx, domain.Order{ID: "o1", TotalAmount: 10}))
	require.NoError(t, store.InsertOrder(ctx, domain.Order{ID: "o2", TotalAmount: 20}))

	got, err := store.GetOrders(ctx, []string{"o2", "gone", "o1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "o2", got[0].ID)
	assert.Equal(t, "o1", got[1].ID)
}

func TestFindOpenBillByTable(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.InsertBill(ctx, domain.Bill{ID: "b1", TableID: "t1", Status: domain.BillClosed}))
	require.NoError(t, store.InsertBill(ctx, domain.Bill{ID: "b2", TableID: "t1", Status: domain.BillOpen}))

	bill, err := store.FindOpenBillByTable(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "b2", bill.ID)

	_, err = store.FindOpenBillByTable(ctx, "t2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindBillByOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.InsertBill(ctx, domain.Bill{ID: "b1", TableID: "t1", Status: domain.BillOpen, OrderIDs: []string{"o1", "o2"}}))

	bill, err := store.FindBillByOrder(ctx, "o2")
	require.NoError(t, err)
	assert.Equal(t, "b1", bill.ID)

	_, err = store.FindBillByOrder(ctx, "o9")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSeedDefaultFloor(t *testing.T) {
	store := NewMemoryStore()
	store.SeedDefaultFloor()

	tables, err := store.ListTables(context.Background())
	require.NoError(t, err)
	assert.Len(t, tables, 8)

	// Seeding twice must not duplicate the floor.
	store.SeedDefaultFloor()
	tables, err = store.ListTables(context.Background())
	require.NoError(t, err)
	assert.Len(t, tables, 8)
}
