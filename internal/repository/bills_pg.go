package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"restaurant-tables/internal/domain"
)

// BillRepository is the Postgres-backed bills collection. The ordered
// order-id list is stored as a JSONB document, mirroring the aggregate
// shape (there is no storage-enforced referential integrity).
type BillRepository struct {
	db *sql.DB
}

func NewBillRepository(db *sql.DB) BillRepositoryInterface {
	return &BillRepository{db: db}
}

const billColumns = "id, table_id, waiter, order_ids, total_amount, status, paid_at, payment_method"

func (r *BillRepository) ListBills(ctx context.Context) ([]domain.Bill, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+billColumns+` FROM bills ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var out []domain.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BillRepository) GetBill(ctx context.Context, id string) (domain.Bill, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bill{}, ErrNotFound
	}
	return b, err
}

func (r *BillRepository) FindOpenBillByTable(ctx context.Context, tableID string) (domain.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE table_id = $1 AND status = $2`,
		tableID, domain.BillOpen)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bill{}, ErrNotFound
	}
	return b, err
}

func (r *BillRepository) FindBillByOrder(ctx context.Context, orderID string) (domain.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE order_ids @> jsonb_build_array($1::text)`,
		orderID)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bill{}, ErrNotFound
	}
	return b, err
}

func (r *BillRepository) InsertBill(ctx context.Context, b domain.Bill) error {
	ids, err := marshalOrderIDs(b.OrderIDs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO bills (id, table_id, waiter, order_ids, total_amount, status, paid_at, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, b.ID, b.TableID, b.Waiter, ids, b.TotalAmount, b.Status, b.PaidAt, b.PaymentMethod)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}
	return nil
}

func (r *BillRepository) UpdateBill(ctx context.Context, b domain.Bill) error {
	ids, err := marshalOrderIDs(b.OrderIDs)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE bills SET order_ids = $2, total_amount = $3, status = $4, paid_at = $5, payment_method = $6
		WHERE id = $1
	`, b.ID, ids, b.TotalAmount, b.Status, b.PaidAt, b.PaymentMethod)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BillRepository) DeleteBill(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalOrderIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order ids: %w", err)
	}
	return b, nil
}

func scanBill(row rowScanner) (domain.Bill, error) {
	var (
		b      domain.Bill
		ids    []byte
		paidAt sql.NullTime
		method sql.NullString
	)
	if err := row.Scan(&b.ID, &b.TableID, &b.Waiter, &ids, &b.TotalAmount, &b.Status, &paidAt, &method); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Bill{}, err
		}
		return domain.Bill{}, fmt.Errorf("failed to scan bill: %w", err)
	}
	if err := json.Unmarshal(ids, &b.OrderIDs); err != nil {
		return domain.Bill{}, fmt.Errorf("failed to unmarshal order ids: %w", err)
	}
	if paidAt.Valid {
		b.PaidAt = &paidAt.Time
	}
	if method.Valid {
		b.PaymentMethod = &method.String
	}
	return b, nil
}
