package storage

import (
	"context"
	"database/sql"
	"fmt"

	"kasa/internal/core"
)

const accountColumns = `id, name, account_type, bank_id, owner_member_id, account_number,
	currency, initial_balance_cents, current_balance_cents, is_premium,
	premium_min_flow_cents, credit_limit_cents, active, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var (
		a       core.Account
		bankID  sql.NullInt64
		ownerID sql.NullInt64
		minFlow sql.NullInt64
		credit  sql.NullInt64
		active  int
		premium int
	)
	err := row.Scan(&a.ID, &a.Name, &a.Type, &bankID, &ownerID, &a.AccountNumber,
		&a.Currency, &a.InitialBalance.Cents, &a.CurrentBalance.Cents, &premium,
		&minFlow, &credit, &active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return core.Account{}, err
	}
	a.BankID = nullableID(bankID)
	a.OwnerMemberID = nullableID(ownerID)
	a.IsPremium = premium != 0
	a.Active = active != 0
	if minFlow.Valid {
		a.PremiumMinFlow = &core.Money{Cents: minFlow.Int64}
	}
	if credit.Valid {
		a.CreditLimit = &core.Money{Cents: credit.Int64}
	}
	return a, nil
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func nullableMoney(m *core.Money) any {
	if m == nil {
		return nil
	}
	return m.Cents
}

func ptrOrNil(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// CreateAccount inserts an account. The current balance starts equal to the
// initial balance; only AdjustBalance and SetBalance may move it afterwards.
func (q *Queries) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO accounts (name, account_type, bank_id, owner_member_id, account_number,
		 currency, initial_balance_cents, current_balance_cents, is_premium,
		 premium_min_flow_cents, credit_limit_cents, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		a.Name, a.Type, ptrOrNil(a.BankID), ptrOrNil(a.OwnerMemberID), a.AccountNumber,
		a.Currency, a.InitialBalance.Cents, a.InitialBalance.Cents, boolToInt(a.IsPremium),
		nullableMoney(a.PremiumMinFlow), nullableMoney(a.CreditLimit))
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("create account id: %w", err)
	}
	return q.GetAccount(ctx, id)
}

// CreateAccountSnapshot inserts an account preserving distinct initial and
// current balances. Used by the restore path, never by user-facing creation.
func (q *Queries) CreateAccountSnapshot(ctx context.Context, a core.Account) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO accounts (name, account_type, bank_id, owner_member_id, account_number,
		 currency, initial_balance_cents, current_balance_cents, is_premium,
		 premium_min_flow_cents, credit_limit_cents, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, a.Type, ptrOrNil(a.BankID), ptrOrNil(a.OwnerMemberID), a.AccountNumber,
		a.Currency, a.InitialBalance.Cents, a.CurrentBalance.Cents, boolToInt(a.IsPremium),
		nullableMoney(a.PremiumMinFlow), nullableMoney(a.CreditLimit), boolToInt(a.Active))
	if err != nil {
		return 0, fmt.Errorf("restore account: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		return core.Account{}, notFound("get account", err)
	}
	return a, nil
}

func (q *Queries) ListAccounts(ctx context.Context, activeOnly bool) ([]core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY name`
	if activeOnly {
		query = `SELECT ` + accountColumns + ` FROM accounts WHERE active = 1 ORDER BY name`
	}
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (q *Queries) ListAccountsByBank(ctx context.Context, bankID int64) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE bank_id = ? ORDER BY id`, bankID)
	if err != nil {
		return nil, fmt.Errorf("list accounts by bank: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UpdateAccount rewrites descriptive fields. Balances are untouched; they
// belong to AdjustBalance and SetBalance.
func (q *Queries) UpdateAccount(ctx context.Context, id int64, a core.Account) (core.Account, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, account_type = ?, bank_id = ?, owner_member_id = ?,
		 account_number = ?, currency = ?, is_premium = ?, premium_min_flow_cents = ?,
		 credit_limit_cents = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		a.Name, a.Type, ptrOrNil(a.BankID), ptrOrNil(a.OwnerMemberID),
		a.AccountNumber, a.Currency, boolToInt(a.IsPremium), nullableMoney(a.PremiumMinFlow),
		nullableMoney(a.CreditLimit), boolToInt(a.Active), id)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Account{}, fmt.Errorf("update account: %w", core.ErrNotFound)
	}
	return q.GetAccount(ctx, id)
}

func (q *Queries) SoftDeleteAccount(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("soft delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("soft delete account: %w", core.ErrNotFound)
	}
	return nil
}

// AdjustBalance applies a signed delta to current_balance as a single atomic
// increment. No read-modify-write pair exists anywhere; this is the only
// writer of the column apart from SetBalance.
func (q *Queries) AdjustBalance(ctx context.Context, accountID int64, delta core.Money) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET current_balance_cents = current_balance_cents + ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		delta.Cents, accountID)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("adjust balance: %w", core.ErrNotFound)
	}
	return nil
}

func (q *Queries) GetBalance(ctx context.Context, accountID int64) (core.Money, error) {
	var cents int64
	err := q.db.QueryRowContext(ctx,
		`SELECT current_balance_cents FROM accounts WHERE id = ?`, accountID).Scan(&cents)
	if err != nil {
		return core.Money{}, notFound("get balance", err)
	}
	return core.Money{Cents: cents}, nil
}

// SetBalance overwrites both initial and current balance. It is the
// manual correction path and does not consult the transaction history.
func (q *Queries) SetBalance(ctx context.Context, accountID int64, balance core.Money) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET initial_balance_cents = ?, current_balance_cents = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		balance.Cents, balance.Cents, accountID)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set balance: %w", core.ErrNotFound)
	}
	return nil
}

// DeleteBankAccounts hard-deletes every account belonging to a bank. Restore
// clears bank-owned accounts before rebuilding the graph.
func (q *Queries) DeleteBankAccounts(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE bank_id IS NOT NULL`); err != nil {
		return fmt.Errorf("delete bank accounts: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
