package storage

import (
	"context"
	"database/sql"
	"fmt"

	"kasa/internal/core"
)

const recurringColumns = `id, name, amount_cents, currency, frequency, frequency_value,
	day_of_period, account_id, category_id, description, active,
	next_execution_date, last_execution_date, created_at, updated_at`

func scanRecurring(row interface{ Scan(...any) error }) (core.RecurringPayment, error) {
	var (
		p        core.RecurringPayment
		day      sql.NullInt64
		catID    sql.NullInt64
		nextDate sql.NullString
		lastDate sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Amount.Cents, &p.Currency, &p.Frequency,
		&p.FrequencyValue, &day, &p.AccountID, &catID, &p.Description, &p.Active,
		&nextDate, &lastDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return core.RecurringPayment{}, err
	}
	if day.Valid {
		d := int(day.Int64)
		p.DayOfPeriod = &d
	}
	p.CategoryID = nullableID(catID)
	if nextDate.Valid && nextDate.String != "" {
		p.NextExecutionDate, err = core.ParseDate(nextDate.String)
		if err != nil {
			return core.RecurringPayment{}, fmt.Errorf("parse next execution date: %w", err)
		}
	}
	if lastDate.Valid && lastDate.String != "" {
		d, err := core.ParseDate(lastDate.String)
		if err != nil {
			return core.RecurringPayment{}, fmt.Errorf("parse last execution date: %w", err)
		}
		p.LastExecutionDate = &d
	}
	return p, nil
}

func (q *Queries) CreateRecurringPayment(ctx context.Context, p core.RecurringPayment) (core.RecurringPayment, error) {
	var day any
	if p.DayOfPeriod != nil {
		day = *p.DayOfPeriod
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO recurring_payments (name, amount_cents, currency, frequency,
		 frequency_value, day_of_period, account_id, category_id, description,
		 active, next_execution_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		p.Name, p.Amount.Cents, p.Currency, p.Frequency, p.FrequencyValue, day,
		p.AccountID, ptrOrNil(p.CategoryID), p.Description,
		p.NextExecutionDate.String())
	if err != nil {
		return core.RecurringPayment{}, fmt.Errorf("create recurring payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.RecurringPayment{}, fmt.Errorf("create recurring payment id: %w", err)
	}
	return q.GetRecurringPayment(ctx, id)
}

func (q *Queries) GetRecurringPayment(ctx context.Context, id int64) (core.RecurringPayment, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_payments WHERE id = ?`, id)
	p, err := scanRecurring(row)
	if err != nil {
		return core.RecurringPayment{}, notFound("get recurring payment", err)
	}
	return p, nil
}

func (q *Queries) ListRecurringPayments(ctx context.Context) ([]core.RecurringPayment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_payments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list recurring payments: %w", err)
	}
	defer rows.Close()
	return collectRecurring(rows)
}

// ListDueRecurringPayments returns active payments due on or before the given
// date, ordered by next_execution_date then id so sweeps are deterministic.
func (q *Queries) ListDueRecurringPayments(ctx context.Context, today core.Date) ([]core.RecurringPayment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_payments
		 WHERE active = 1 AND next_execution_date <= ?
		 ORDER BY next_execution_date ASC, id ASC`, today.String())
	if err != nil {
		return nil, fmt.Errorf("list due recurring payments: %w", err)
	}
	defer rows.Close()
	return collectRecurring(rows)
}

func (q *Queries) UpdateRecurringPayment(ctx context.Context, id int64, p core.RecurringPayment) (core.RecurringPayment, error) {
	var day any
	if p.DayOfPeriod != nil {
		day = *p.DayOfPeriod
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_payments SET name = ?, amount_cents = ?, currency = ?,
		 frequency = ?, frequency_value = ?, day_of_period = ?, account_id = ?,
		 category_id = ?, description = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Name, p.Amount.Cents, p.Currency, p.Frequency, p.FrequencyValue, day,
		p.AccountID, ptrOrNil(p.CategoryID), p.Description, boolToInt(p.Active), id)
	if err != nil {
		return core.RecurringPayment{}, fmt.Errorf("update recurring payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.RecurringPayment{}, fmt.Errorf("update recurring payment: %w", core.ErrNotFound)
	}
	return q.GetRecurringPayment(ctx, id)
}

func (q *Queries) DeleteRecurringPayment(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM recurring_payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete recurring payment: %w", core.ErrNotFound)
	}
	return nil
}

// MarkRecurringExecuted records a posting: last moves to the posting date and
// next advances to the computed date. The scheduler owns both columns.
func (q *Queries) MarkRecurringExecuted(ctx context.Context, id int64, last, next core.Date) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_payments SET last_execution_date = ?, next_execution_date = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		last.String(), next.String(), id)
	if err != nil {
		return fmt.Errorf("mark recurring executed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark recurring executed: %w", core.ErrNotFound)
	}
	return nil
}

func collectRecurring(rows *sql.Rows) ([]core.RecurringPayment, error) {
	var out []core.RecurringPayment
	for rows.Next() {
		p, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
