package storage

import (
	"context"
	"database/sql"
	"fmt"

	"kasa/internal/core"
)

// Household graph: members, their incomes, scheduled transfers, fixed
// expenses and budget categories. These are the top-level collections the
// backup engine walks.

func (q *Queries) CreateMember(ctx context.Context, m core.HouseholdMember) (core.HouseholdMember, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO household_members (name) VALUES (?)`, m.Name)
	if err != nil {
		return core.HouseholdMember{}, fmt.Errorf("create member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.HouseholdMember{}, fmt.Errorf("create member id: %w", err)
	}
	return q.GetMember(ctx, id)
}

func (q *Queries) GetMember(ctx context.Context, id int64) (core.HouseholdMember, error) {
	var m core.HouseholdMember
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM household_members WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return core.HouseholdMember{}, notFound("get member", err)
	}
	return m, nil
}

func (q *Queries) ListMembers(ctx context.Context) ([]core.HouseholdMember, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM household_members ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []core.HouseholdMember
	for rows.Next() {
		var m core.HouseholdMember
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (q *Queries) DeleteMember(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM household_members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete member: %w", core.ErrNotFound)
	}
	return nil
}

func (q *Queries) DeleteAllMembers(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM household_members`); err != nil {
		return fmt.Errorf("delete all members: %w", err)
	}
	return nil
}

func scanIncome(row interface{ Scan(...any) error }) (core.MemberIncome, error) {
	var (
		in    core.MemberIncome
		day   sql.NullInt64
		accID sql.NullInt64
	)
	err := row.Scan(&in.ID, &in.MemberID, &in.Name, &in.Amount.Cents,
		&in.Frequency, &day, &accID, &in.Active)
	if err != nil {
		return core.MemberIncome{}, err
	}
	if day.Valid {
		d := int(day.Int64)
		in.DayOfMonth = &d
	}
	in.AccountID = nullableID(accID)
	return in, nil
}

func (q *Queries) CreateMemberIncome(ctx context.Context, in core.MemberIncome) (core.MemberIncome, error) {
	var day any
	if in.DayOfMonth != nil {
		day = *in.DayOfMonth
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO member_incomes (member_id, name, amount_cents, frequency, day_of_month, account_id, active)
		 VALUES (?, ?, ?, ?, ?, ?, 1)`,
		in.MemberID, in.Name, in.Amount.Cents, in.Frequency, day, ptrOrNil(in.AccountID))
	if err != nil {
		return core.MemberIncome{}, fmt.Errorf("create member income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.MemberIncome{}, fmt.Errorf("create member income id: %w", err)
	}
	row := q.db.QueryRowContext(ctx,
		`SELECT id, member_id, name, amount_cents, frequency, day_of_month, account_id, active
		 FROM member_incomes WHERE id = ?`, id)
	created, err := scanIncome(row)
	if err != nil {
		return core.MemberIncome{}, notFound("get member income", err)
	}
	return created, nil
}

func (q *Queries) ListMemberIncomes(ctx context.Context, memberID int64) ([]core.MemberIncome, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, member_id, name, amount_cents, frequency, day_of_month, account_id, active
		 FROM member_incomes WHERE member_id = ? ORDER BY id ASC`, memberID)
	if err != nil {
		return nil, fmt.Errorf("list member incomes: %w", err)
	}
	defer rows.Close()

	var incomes []core.MemberIncome
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member income: %w", err)
		}
		incomes = append(incomes, in)
	}
	return incomes, rows.Err()
}

func (q *Queries) DeleteMemberIncome(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM member_incomes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member income: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete member income: %w", core.ErrNotFound)
	}
	return nil
}

func (q *Queries) DeleteAllMemberIncomes(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM member_incomes`); err != nil {
		return fmt.Errorf("delete all member incomes: %w", err)
	}
	return nil
}

func scanScheduledTransfer(row interface{ Scan(...any) error }) (core.ScheduledTransfer, error) {
	var (
		t      core.ScheduledTransfer
		fromID sql.NullInt64
		toID   sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Name, &fromID, &toID, &t.Amount.Cents,
		&t.DayOfMonth, &t.Description, &t.DisplayOrder, &t.Active)
	if err != nil {
		return core.ScheduledTransfer{}, err
	}
	t.FromAccountID = nullableID(fromID)
	t.ToAccountID = nullableID(toID)
	return t, nil
}

func (q *Queries) CreateScheduledTransfer(ctx context.Context, t core.ScheduledTransfer) (core.ScheduledTransfer, error) {
	var maxOrder int
	if err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(display_order), 0) FROM scheduled_transfers`).Scan(&maxOrder); err != nil {
		return core.ScheduledTransfer{}, fmt.Errorf("next display order: %w", err)
	}

	res, err := q.db.ExecContext(ctx,
		`INSERT INTO scheduled_transfers (name, from_account_id, to_account_id, amount_cents,
		 day_of_month, description, display_order, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		t.Name, ptrOrNil(t.FromAccountID), ptrOrNil(t.ToAccountID), t.Amount.Cents,
		t.DayOfMonth, t.Description, maxOrder+1)
	if err != nil {
		return core.ScheduledTransfer{}, fmt.Errorf("create scheduled transfer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.ScheduledTransfer{}, fmt.Errorf("create scheduled transfer id: %w", err)
	}
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, from_account_id, to_account_id, amount_cents, day_of_month,
		 description, display_order, active FROM scheduled_transfers WHERE id = ?`, id)
	created, err := scanScheduledTransfer(row)
	if err != nil {
		return core.ScheduledTransfer{}, notFound("get scheduled transfer", err)
	}
	return created, nil
}

func (q *Queries) ListScheduledTransfers(ctx context.Context) ([]core.ScheduledTransfer, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, from_account_id, to_account_id, amount_cents, day_of_month,
		 description, display_order, active FROM scheduled_transfers
		 WHERE active = 1 ORDER BY day_of_month ASC, display_order ASC`)
	if err != nil {
		return nil, fmt.Errorf("list scheduled transfers: %w", err)
	}
	defer rows.Close()

	var transfers []core.ScheduledTransfer
	for rows.Next() {
		t, err := scanScheduledTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

func (q *Queries) DeleteScheduledTransfer(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM scheduled_transfers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scheduled transfer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete scheduled transfer: %w", core.ErrNotFound)
	}
	return nil
}

func (q *Queries) DeleteAllScheduledTransfers(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM scheduled_transfers`); err != nil {
		return fmt.Errorf("delete all scheduled transfers: %w", err)
	}
	return nil
}

func scanFixedExpense(row interface{ Scan(...any) error }) (core.FixedExpense, error) {
	var (
		e     core.FixedExpense
		day   sql.NullInt64
		accID sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.Name, &e.Amount.Cents, &e.Category, &e.Frequency,
		&day, &accID, &e.Active, &e.Notes)
	if err != nil {
		return core.FixedExpense{}, err
	}
	if day.Valid {
		d := int(day.Int64)
		e.DayOfMonth = &d
	}
	e.AccountID = nullableID(accID)
	return e, nil
}

func (q *Queries) CreateFixedExpense(ctx context.Context, e core.FixedExpense) (core.FixedExpense, error) {
	var day any
	if e.DayOfMonth != nil {
		day = *e.DayOfMonth
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO fixed_expenses (name, amount_cents, category, frequency, day_of_month,
		 account_id, active, notes) VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
		e.Name, e.Amount.Cents, e.Category, e.Frequency, day, ptrOrNil(e.AccountID), e.Notes)
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("create fixed expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("create fixed expense id: %w", err)
	}
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, amount_cents, category, frequency, day_of_month, account_id, active, notes
		 FROM fixed_expenses WHERE id = ?`, id)
	created, err := scanFixedExpense(row)
	if err != nil {
		return core.FixedExpense{}, notFound("get fixed expense", err)
	}
	return created, nil
}

func (q *Queries) ListFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, amount_cents, category, frequency, day_of_month, account_id, active, notes
		 FROM fixed_expenses WHERE active = 1
		 ORDER BY day_of_month ASC, category ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.FixedExpense
	for rows.Next() {
		e, err := scanFixedExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fixed expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (q *Queries) DeleteFixedExpense(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM fixed_expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete fixed expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete fixed expense: %w", core.ErrNotFound)
	}
	return nil
}

func (q *Queries) DeleteAllFixedExpenses(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM fixed_expenses`); err != nil {
		return fmt.Errorf("delete all fixed expenses: %w", err)
	}
	return nil
}

func (q *Queries) CreateBudgetCategory(ctx context.Context, b core.BudgetCategory) (core.BudgetCategory, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO budget_categories (name, budget_type, monthly_limit_cents) VALUES (?, ?, ?)`,
		b.Name, b.BudgetType, b.MonthlyLimit.Cents)
	if err != nil {
		return core.BudgetCategory{}, fmt.Errorf("create budget category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.BudgetCategory{}, fmt.Errorf("create budget category id: %w", err)
	}
	b.ID = id
	return b, nil
}

func (q *Queries) ListBudgetCategories(ctx context.Context) ([]core.BudgetCategory, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, budget_type, monthly_limit_cents FROM budget_categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list budget categories: %w", err)
	}
	defer rows.Close()

	var cats []core.BudgetCategory
	for rows.Next() {
		var b core.BudgetCategory
		if err := rows.Scan(&b.ID, &b.Name, &b.BudgetType, &b.MonthlyLimit.Cents); err != nil {
			return nil, fmt.Errorf("scan budget category: %w", err)
		}
		cats = append(cats, b)
	}
	return cats, rows.Err()
}

func (q *Queries) DeleteBudgetCategory(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budget_categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete budget category: %w", core.ErrNotFound)
	}
	return nil
}

func (q *Queries) DeleteAllBudgetCategories(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM budget_categories`); err != nil {
		return fmt.Errorf("delete all budget categories: %w", err)
	}
	return nil
}
