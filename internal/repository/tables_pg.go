package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restaurant-tables/internal/domain"
)

// TableRepository is the Postgres-backed tables collection.
type TableRepository struct {
	db *sql.DB
}

func NewTableRepository(db *sql.DB) TableRepositoryInterface {
	return &TableRepository{db: db}
}

const tableColumns = "id, number, seats, is_occupied, current_bill_id, locked_by, locked_at"

func (r *TableRepository) ListTables(ctx context.Context) ([]domain.Table, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tableColumns+` FROM tables ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var out []domain.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TableRepository) GetTable(ctx context.Context, id string) (domain.Table, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tableColumns+` FROM tables WHERE id = $1`, id)
	t, err := scanTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Table{}, ErrNotFound
	}
	return t, err
}

func (r *TableRepository) InsertTable(ctx context.Context, t domain.Table) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tables (id, number, seats, is_occupied, current_bill_id, locked_by, locked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.Number, t.Seats, t.IsOccupied, t.CurrentBillID, t.LockedBy, t.LockedAt)
	if err != nil {
		return fmt.Errorf("failed to insert table %d: %w", t.Number, err)
	}
	return nil
}

// ClaimTable is the atomic conditional lock write: the WHERE clause makes
// the unclaimed check and the claim a single statement, so two racing
// waiters cannot both win.
func (r *TableRepository) ClaimTable(ctx context.Context, id, waiter string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tables SET locked_by = $2, locked_at = $3
		WHERE id = $1 AND locked_by IS NULL
	`, id, waiter, at)
	if err != nil {
		return false, fmt.Errorf("failed to claim table: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	return false, r.exists(ctx, id)
}

func (r *TableRepository) ReleaseTable(ctx context.Context, id, waiter string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tables SET locked_by = NULL, locked_at = NULL, is_occupied = FALSE
		WHERE id = $1 AND locked_by = $2
	`, id, waiter)
	if err != nil {
		return false, fmt.Errorf("failed to release table: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	return false, r.exists(ctx, id)
}

func (r *TableRepository) UpdateTable(ctx context.Context, id string, upd domain.TableUpdate) (domain.Table, error) {
	set := ""
	args := []any{id}
	add := func(clause string, v any) {
		args = append(args, v)
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf(clause, len(args))
	}
	if upd.IsOccupied != nil {
		add("is_occupied = $%d", *upd.IsOccupied)
	}
	if upd.ClearBillID {
		if set != "" {
			set += ", "
		}
		set += "current_bill_id = NULL"
	} else if upd.CurrentBillID != nil {
		add("current_bill_id = $%d", *upd.CurrentBillID)
	}
	if set == "" {
		return r.GetTable(ctx, id)
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE tables SET `+set+` WHERE id = $1 RETURNING `+tableColumns, args...)
	t, err := scanTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Table{}, ErrNotFound
	}
	return t, err
}

func (r *TableRepository) exists(ctx context.Context, id string) error {
	var ok bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tables WHERE id = $1)`, id).Scan(&ok); err != nil {
		return fmt.Errorf("failed to check table existence: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTable(row rowScanner) (domain.Table, error) {
	var (
		t        domain.Table
		billID   sql.NullString
		lockedBy sql.NullString
		lockedAt sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Number, &t.Seats, &t.IsOccupied, &billID, &lockedBy, &lockedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Table{}, err
		}
		return domain.Table{}, fmt.Errorf("failed to scan table: %w", err)
	}
	if billID.Valid {
		t.CurrentBillID = &billID.String
	}
	if lockedBy.Valid {
		t.LockedBy = &lockedBy.String
	}
	if lockedAt.Valid {
		t.LockedAt = &lockedAt.Time
	}
	return t, nil
}
