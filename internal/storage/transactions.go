package storage

import (
	"context"
	"database/sql"
	"fmt"

	"kasa/internal/core"
)

// TransactionFilters narrows ListTransactionsFiltered. Zero values mean "no
// constraint"; Search matches description and notes with LIKE.
type TransactionFilters struct {
	StartDate *core.Date
	EndDate   *core.Date
	MinAmount *core.Money
	MaxAmount *core.Money
	Search    string
}

const transactionColumns = `id, date, amount_cents, currency, transaction_type,
	from_account_id, to_account_id, category_id, description, status,
	recurring_payment_id, flow_group_id, notes, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t       core.Transaction
		date    string
		fromID  sql.NullInt64
		toID    sql.NullInt64
		catID   sql.NullInt64
		recurID sql.NullInt64
		flowID  sql.NullInt64
	)
	err := row.Scan(&t.ID, &date, &t.Amount.Cents, &t.Currency, &t.Type,
		&fromID, &toID, &catID, &t.Description, &t.Status,
		&recurID, &flowID, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date %q: %w", date, err)
	}
	t.FromAccountID = nullableID(fromID)
	t.ToAccountID = nullableID(toID)
	t.CategoryID = nullableID(catID)
	t.RecurringPaymentID = nullableID(recurID)
	t.FlowGroupID = nullableID(flowID)
	return t, nil
}

// InsertTransaction persists the row and returns its assigned id. Balance
// effects are the ledger service's job, applied in the same InTx scope.
func (q *Queries) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (date, amount_cents, currency, transaction_type,
		 from_account_id, to_account_id, category_id, description, status,
		 recurring_payment_id, flow_group_id, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Date.String(), t.Amount.Cents, t.Currency, t.Type,
		ptrOrNil(t.FromAccountID), ptrOrNil(t.ToAccountID), ptrOrNil(t.CategoryID),
		t.Description, t.Status, ptrOrNil(t.RecurringPaymentID),
		ptrOrNil(t.FlowGroupID), t.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFound("get transaction", err)
	}
	return t, nil
}

func (q *Queries) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (q *Queries) ListTransactionsFiltered(ctx context.Context, f TransactionFilters) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	var args []any

	if f.StartDate != nil {
		query += ` AND date >= ?`
		args = append(args, f.StartDate.String())
	}
	if f.EndDate != nil {
		query += ` AND date <= ?`
		args = append(args, f.EndDate.String())
	}
	if f.MinAmount != nil {
		query += ` AND amount_cents >= ?`
		args = append(args, f.MinAmount.Cents)
	}
	if f.MaxAmount != nil {
		query += ` AND amount_cents <= ?`
		args = append(args, f.MaxAmount.Cents)
	}
	if f.Search != "" {
		query += ` AND (description LIKE ? OR notes LIKE ?)`
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}

	query += ` ORDER BY date DESC, id DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions filtered: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// UpdateTransaction rewrites field values only. It never corrects balances;
// that behavior is part of the processor's documented contract.
func (q *Queries) UpdateTransaction(ctx context.Context, id int64, t core.Transaction) (core.Transaction, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET date = ?, amount_cents = ?, currency = ?,
		 transaction_type = ?, from_account_id = ?, to_account_id = ?, category_id = ?,
		 description = ?, status = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		t.Date.String(), t.Amount.Cents, t.Currency, t.Type,
		ptrOrNil(t.FromAccountID), ptrOrNil(t.ToAccountID), ptrOrNil(t.CategoryID),
		t.Description, t.Status, t.Notes, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", core.ErrNotFound)
	}
	return q.GetTransaction(ctx, id)
}

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete transaction: %w", core.ErrNotFound)
	}
	return nil
}

// ExportRow is a transaction joined with display names for delimited export.
type ExportRow struct {
	ID          int64
	Date        string
	Amount      core.Money
	Currency    string
	Type        string
	Description string
	Status      string
	Category    string
	FromAccount string
	ToAccount   string
}

func (q *Queries) ListTransactionsForExport(ctx context.Context, f TransactionFilters) ([]ExportRow, error) {
	query := `SELECT t.id, t.date, t.amount_cents, t.currency, t.transaction_type,
		t.description, t.status,
		COALESCE(c.name, ''), COALESCE(a1.name, ''), COALESCE(a2.name, '')
		FROM transactions t
		LEFT JOIN categories c ON t.category_id = c.id
		LEFT JOIN accounts a1 ON t.from_account_id = a1.id
		LEFT JOIN accounts a2 ON t.to_account_id = a2.id
		WHERE 1=1`
	var args []any

	if f.StartDate != nil {
		query += ` AND t.date >= ?`
		args = append(args, f.StartDate.String())
	}
	if f.EndDate != nil {
		query += ` AND t.date <= ?`
		args = append(args, f.EndDate.String())
	}
	if f.MinAmount != nil {
		query += ` AND t.amount_cents >= ?`
		args = append(args, f.MinAmount.Cents)
	}
	if f.MaxAmount != nil {
		query += ` AND t.amount_cents <= ?`
		args = append(args, f.MaxAmount.Cents)
	}
	if f.Search != "" {
		query += ` AND (t.description LIKE ? OR t.notes LIKE ?)`
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}

	query += ` ORDER BY t.date DESC, t.id DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions for export: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var r ExportRow
		if err := rows.Scan(&r.ID, &r.Date, &r.Amount.Cents, &r.Currency, &r.Type,
			&r.Description, &r.Status, &r.Category, &r.FromAccount, &r.ToAccount); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
