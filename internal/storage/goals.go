package storage

import (
	"context"
	"database/sql"
	"fmt"

	"kasa/internal/core"
)

const goalColumns = `id, name, target_amount_cents, current_amount_cents, currency,
	deadline, account_id, active, created_at, updated_at`

func scanGoal(row interface{ Scan(...any) error }) (core.SavingsGoal, error) {
	var (
		g        core.SavingsGoal
		deadline sql.NullString
		accID    sql.NullInt64
	)
	err := row.Scan(&g.ID, &g.Name, &g.TargetAmount.Cents, &g.CurrentAmount.Cents,
		&g.Currency, &deadline, &accID, &g.Active, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if deadline.Valid && deadline.String != "" {
		d, err := core.ParseDate(deadline.String)
		if err != nil {
			return core.SavingsGoal{}, fmt.Errorf("parse goal deadline: %w", err)
		}
		g.Deadline = &d
	}
	g.AccountID = nullableID(accID)
	return g, nil
}

func (q *Queries) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	var deadline any
	if g.Deadline != nil {
		deadline = g.Deadline.String()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO savings_goals (name, target_amount_cents, current_amount_cents, currency,
		 deadline, account_id, active) VALUES (?, ?, 0, ?, ?, ?, 1)`,
		g.Name, g.TargetAmount.Cents, g.Currency, deadline, ptrOrNil(g.AccountID))
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal id: %w", err)
	}
	return q.GetSavingsGoal(ctx, id)
}

func (q *Queries) GetSavingsGoal(ctx context.Context, id int64) (core.SavingsGoal, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM savings_goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err != nil {
		return core.SavingsGoal{}, notFound("get savings goal", err)
	}
	return g, nil
}

func (q *Queries) ListSavingsGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM savings_goals ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	var goals []core.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (q *Queries) DeleteSavingsGoal(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM savings_goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete savings goal: %w", core.ErrNotFound)
	}
	return nil
}

// AdjustGoalAmount moves the goal's running amount by a signed delta, the
// same atomic-increment shape the ledger uses on accounts.
func (q *Queries) AdjustGoalAmount(ctx context.Context, goalID int64, delta core.Money) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE savings_goals SET current_amount_cents = current_amount_cents + ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`, delta.Cents, goalID)
	if err != nil {
		return fmt.Errorf("adjust goal amount: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("adjust goal amount: %w", core.ErrNotFound)
	}
	return nil
}

func (q *Queries) CreateFundWithdrawal(ctx context.Context, w core.FundWithdrawal) (core.FundWithdrawal, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO fund_withdrawals (goal_id, amount_cents, description, date)
		 VALUES (?, ?, ?, ?)`,
		w.GoalID, w.Amount.Cents, w.Description, w.Date.String())
	if err != nil {
		return core.FundWithdrawal{}, fmt.Errorf("create fund withdrawal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.FundWithdrawal{}, fmt.Errorf("create fund withdrawal id: %w", err)
	}
	w.ID = id
	return w, nil
}

func (q *Queries) ListFundWithdrawals(ctx context.Context, goalID int64) ([]core.FundWithdrawal, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, goal_id, amount_cents, description, date
		 FROM fund_withdrawals WHERE goal_id = ? ORDER BY date DESC, id DESC`, goalID)
	if err != nil {
		return nil, fmt.Errorf("list fund withdrawals: %w", err)
	}
	defer rows.Close()

	var out []core.FundWithdrawal
	for rows.Next() {
		var (
			w    core.FundWithdrawal
			date string
		)
		if err := rows.Scan(&w.ID, &w.GoalID, &w.Amount.Cents, &w.Description, &date); err != nil {
			return nil, fmt.Errorf("scan fund withdrawal: %w", err)
		}
		w.Date, err = core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse withdrawal date: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
