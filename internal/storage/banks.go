package storage

import (
	"context"
	"fmt"

	"kasa/internal/core"
)

func scanBank(row interface{ Scan(...any) error }) (core.Bank, error) {
	var b core.Bank
	err := row.Scan(&b.ID, &b.Name, &b.Notes, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (q *Queries) CreateBank(ctx context.Context, b core.Bank) (core.Bank, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO banks (name, notes, active) VALUES (?, ?, 1)`, b.Name, b.Notes)
	if err != nil {
		return core.Bank{}, fmt.Errorf("create bank: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Bank{}, fmt.Errorf("create bank id: %w", err)
	}
	return q.GetBank(ctx, id)
}

func (q *Queries) GetBank(ctx context.Context, id int64) (core.Bank, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, notes, active, created_at, updated_at FROM banks WHERE id = ?`, id)
	b, err := scanBank(row)
	if err != nil {
		return core.Bank{}, notFound("get bank", err)
	}
	return b, nil
}

func (q *Queries) ListBanks(ctx context.Context, activeOnly bool) ([]core.Bank, error) {
	query := `SELECT id, name, notes, active, created_at, updated_at FROM banks ORDER BY name`
	if activeOnly {
		query = `SELECT id, name, notes, active, created_at, updated_at FROM banks WHERE active = 1 ORDER BY name`
	}
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	defer rows.Close()

	var banks []core.Bank
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bank: %w", err)
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

func (q *Queries) UpdateBank(ctx context.Context, id int64, b core.Bank) (core.Bank, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE banks SET name = ?, notes = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, b.Name, b.Notes, boolToInt(b.Active), id)
	if err != nil {
		return core.Bank{}, fmt.Errorf("update bank: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Bank{}, fmt.Errorf("update bank: %w", core.ErrNotFound)
	}
	return q.GetBank(ctx, id)
}

// DeleteBank removes the row. Banks are hard-deleted: the UNIQUE name
// constraint would block re-creating a soft-deleted bank.
func (q *Queries) DeleteBank(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM banks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bank: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete bank: %w", core.ErrNotFound)
	}
	return nil
}

func (q *Queries) DeleteAllBanks(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM banks`); err != nil {
		return fmt.Errorf("delete all banks: %w", err)
	}
	return nil
}
