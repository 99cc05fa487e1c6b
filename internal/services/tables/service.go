// Package tables grants and revokes exclusive per-table working rights.
// A lock is independent of occupancy: settling a bill frees the table's
// occupancy but the waiter keeps the lock until an explicit unlock.
package tables

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-tables/internal/domain"
	"restaurant-tables/internal/events"
	"restaurant-tables/internal/locking"
	"restaurant-tables/internal/logger"
	"restaurant-tables/internal/repository"
)

type TableServiceInterface interface {
	FindAll(ctx context.Context) ([]domain.Table, error)
	FindOne(ctx context.Context, id string) (domain.Table, error)
	Lock(ctx context.Context, tableID, waiter string) (domain.Table, error)
	Unlock(ctx context.Context, tableID, waiter string) (domain.Table, error)
	// Update is the internal occupancy/bill-reference mutation point used
	// by the order and bill services. It never touches lock fields.
	Update(ctx context.Context, id string, upd domain.TableUpdate) (domain.Table, error)
}

type TableService struct {
	repo  repository.TableRepositoryInterface
	pub   events.Publisher
	locks *locking.Keyed
	lg    *logger.Logger
}

func NewTableService(repo repository.TableRepositoryInterface, pub events.Publisher, locks *locking.Keyed) TableServiceInterface {
	return &TableService{
		repo:  repo,
		pub:   pub,
		locks: locks,
		lg:    logger.New("table-service"),
	}
}

func (s *TableService) FindAll(ctx context.Context) ([]domain.Table, error) {
	tables, err := s.repo.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

func (s *TableService) FindOne(ctx context.Context, id string) (domain.Table, error) {
	t, err := s.repo.GetTable(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Table{}, domain.NotFoundf("table %s not found", id)
	}
	return t, err
}

// Lock claims exclusive working rights for waiter. The claim itself is a
// single conditional write, so two racing waiters cannot both win; a
// repeat call by the holder succeeds without touching lockedAt.
func (s *TableService) Lock(ctx context.Context, tableID, waiter string) (domain.Table, error) {
	if tableID == "" {
		return domain.Table{}, domain.Validationf("table id is required")
	}
	if waiter == "" {
		return domain.Table{}, domain.Validationf("waiter is required")
	}

	var out domain.Table
	err := s.locks.Do(tableID, func() error {
		claimed, err := s.repo.ClaimTable(ctx, tableID, waiter, time.Now().UTC())
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFoundf("table %s not found", tableID)
		}
		if err != nil {
			return fmt.Errorf("failed to claim table: %w", err)
		}

		t, err := s.repo.GetTable(ctx, tableID)
		if err != nil {
			return fmt.Errorf("failed to load table after claim: %w", err)
		}

		if !claimed {
			if t.LockedBy == nil || *t.LockedBy != waiter {
				return domain.Conflictf("table %d is in use by another waiter", t.Number)
			}
			// Idempotent re-lock by the holder.
		}
		out = t
		return nil
	})
	if err != nil {
		return domain.Table{}, err
	}

	s.publish(ctx, domain.EventTableLocked, domain.TableEvent{
		TableID: out.ID, Number: out.Number, Waiter: waiter, OccurredAt: time.Now().UTC(),
	})
	return out, nil
}

// Unlock releases the waiter's working rights and forces the table back
// to unoccupied; a waiter cannot keep a table showing occupied after
// walking away from it.
func (s *TableService) Unlock(ctx context.Context, tableID, waiter string) (domain.Table, error) {
	if tableID == "" {
		return domain.Table{}, domain.Validationf("table id is required")
	}
	if waiter == "" {
		return domain.Table{}, domain.Validationf("waiter is required")
	}

	var out domain.Table
	err := s.locks.Do(tableID, func() error {
		released, err := s.repo.ReleaseTable(ctx, tableID, waiter)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFoundf("table %s not found", tableID)
		}
		if err != nil {
			return fmt.Errorf("failed to release table: %w", err)
		}
		if !released {
			t, err := s.repo.GetTable(ctx, tableID)
			if err != nil {
				return fmt.Errorf("failed to load table: %w", err)
			}
			return domain.Conflictf("table %d is not locked by you", t.Number)
		}

		t, err := s.repo.GetTable(ctx, tableID)
		if err != nil {
			return fmt.Errorf("failed to load table after release: %w", err)
		}
		out = t
		return nil
	})
	if err != nil {
		return domain.Table{}, err
	}

	s.publish(ctx, domain.EventTableUnlocked, domain.TableEvent{
		TableID: out.ID, Number: out.Number, Waiter: waiter, OccurredAt: time.Now().UTC(),
	})
	return out, nil
}

func (s *TableService) Update(ctx context.Context, id string, upd domain.TableUpdate) (domain.Table, error) {
	t, err := s.repo.UpdateTable(ctx, id, upd)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Table{}, domain.NotFoundf("table %s not found", id)
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to update table: %w", err)
	}

	s.publish(ctx, domain.EventTableUpdated, domain.TableEvent{
		TableID: t.ID, Number: t.Number, OccurredAt: time.Now().UTC(),
	})
	return t, nil
}

func (s *TableService) publish(ctx context.Context, key string, payload any) {
	if err := s.pub.Publish(ctx, key, payload); err != nil {
		s.lg.Error("publish_event", err, map[string]any{"routing_key": key})
	}
}
