package services

import (
	"context"
	"errors"
	"testing"

	"kasa/internal/core"
	"kasa/internal/storage"
)

func getBalance(t *testing.T, repo *storage.Repository, accountID int64) int64 {
	t.Helper()
	var cents int64
	err := repo.Do(context.Background(), func(q *storage.Queries) error {
		balance, err := q.GetBalance(context.Background(), accountID)
		if err != nil {
			return err
		}
		cents = balance.Cents
		return nil
	})
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	return cents
}

func TestLedgerExpenseRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := createAccount(t, repo, 10000)
	ledger := NewLedger(repo, nil)

	created, err := ledger.Create(ctx, core.Transaction{
		Date:          core.NewDate(2024, 3, 1),
		Amount:        core.Money{Cents: 2500},
		Type:          core.Expense,
		FromAccountID: &a.ID,
		Description:   "groceries",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != core.StatusCompleted {
		t.Errorf("default status = %q, want completed", created.Status)
	}
	if created.Currency != core.DefaultCurrency {
		t.Errorf("default currency = %q", created.Currency)
	}

	if got := getBalance(t, repo, a.ID); got != 7500 {
		t.Errorf("balance after expense = %d, want 7500", got)
	}

	if err := ledger.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if got := getBalance(t, repo, a.ID); got != 10000 {
		t.Errorf("balance after delete = %d, want 10000 restored", got)
	}

	if _, err := ledger.Get(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestLedgerIncome(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := createAccount(t, repo, 0)
	ledger := NewLedger(repo, nil)

	_, err := ledger.Create(ctx, core.Transaction{
		Date:        core.NewDate(2024, 3, 1),
		Amount:      core.Money{Cents: 300000},
		Type:        core.Income,
		ToAccountID: &a.ID,
		Description: "salary",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got := getBalance(t, repo, a.ID); got != 300000 {
		t.Errorf("balance = %d, want 300000", got)
	}
}

func TestLedgerTransfer(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	from := createAccount(t, repo, 50000)
	to := createAccount(t, repo, 0)
	ledger := NewLedger(repo, nil)

	created, err := ledger.Create(ctx, core.Transaction{
		Date:          core.NewDate(2024, 3, 1),
		Amount:        core.Money{Cents: 20000},
		Type:          core.Transfer,
		FromAccountID: &from.ID,
		ToAccountID:   &to.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got := getBalance(t, repo, from.ID); got != 30000 {
		t.Errorf("source = %d, want 30000", got)
	}
	if got := getBalance(t, repo, to.ID); got != 20000 {
		t.Errorf("destination = %d, want 20000", got)
	}

	if err := ledger.Delete(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if got := getBalance(t, repo, from.ID); got != 50000 {
		t.Errorf("source after reversal = %d, want 50000", got)
	}
	if got := getBalance(t, repo, to.ID); got != 0 {
		t.Errorf("destination after reversal = %d, want 0", got)
	}
}

func TestLedgerTransferRequiresSource(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	to := createAccount(t, repo, 0)
	ledger := NewLedger(repo, nil)

	_, err := ledger.Create(ctx, core.Transaction{
		Date:        core.NewDate(2024, 3, 1),
		Amount:      core.Money{Cents: 1000},
		Type:        core.Transfer,
		ToAccountID: &to.ID,
	})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestLedgerPlannedHasNoEffect(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := createAccount(t, repo, 10000)
	ledger := NewLedger(repo, nil)

	created, err := ledger.Create(ctx, core.Transaction{
		Date:          core.NewDate(2024, 4, 1),
		Amount:        core.Money{Cents: 9999},
		Type:          core.Expense,
		FromAccountID: &a.ID,
		Status:        core.StatusPlanned,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got := getBalance(t, repo, a.ID); got != 10000 {
		t.Errorf("planned expense moved balance: %d", got)
	}

	if err := ledger.Delete(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if got := getBalance(t, repo, a.ID); got != 10000 {
		t.Errorf("planned delete moved balance: %d", got)
	}
}

func TestLedgerUpdateNeverRebalances(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := createAccount(t, repo, 10000)
	ledger := NewLedger(repo, nil)

	created, err := ledger.Create(ctx, core.Transaction{
		Date:          core.NewDate(2024, 3, 1),
		Amount:        core.Money{Cents: 2000},
		Type:          core.Expense,
		FromAccountID: &a.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	created.Amount = core.Money{Cents: 9000}
	updated, err := ledger.Update(ctx, created.ID, created)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Amount.Cents != 9000 {
		t.Errorf("updated amount = %d, want 9000", updated.Amount.Cents)
	}

	// The stored effect stays at the original 2000.
	if got := getBalance(t, repo, a.ID); got != 8000 {
		t.Errorf("balance = %d, want 8000 unchanged", got)
	}
}

func TestLedgerDeleteSkipsMissingAccountLeg(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	from := createAccount(t, repo, 10000)
	ledger := NewLedger(repo, nil)

	// A destination account that later disappears; its foreign key nulls
	// out, leaving a transfer with only the source leg reversible.
	var to core.Account
	err := repo.Do(ctx, func(q *storage.Queries) error {
		bank, err := q.CreateBank(ctx, core.Bank{Name: "Leaving Bank"})
		if err != nil {
			return err
		}
		to, err = q.CreateAccount(ctx, core.Account{
			Name:     "Closing",
			Type:     core.Checking,
			BankID:   &bank.ID,
			Currency: core.DefaultCurrency,
		})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	created, err := ledger.Create(ctx, core.Transaction{
		Date:          core.NewDate(2024, 3, 1),
		Amount:        core.Money{Cents: 500},
		Type:          core.Transfer,
		FromAccountID: &from.ID,
		ToAccountID:   &to.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := getBalance(t, repo, from.ID); got != 9500 {
		t.Errorf("balance = %d, want 9500", got)
	}

	err = repo.Do(ctx, func(q *storage.Queries) error {
		return q.DeleteBankAccounts(ctx)
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := ledger.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := getBalance(t, repo, from.ID); got != 10000 {
		t.Errorf("balance after reversal = %d, want 10000", got)
	}
}

func TestLedgerCreateValidation(t *testing.T) {
	repo := newTestRepo(t)
	ledger := NewLedger(repo, nil)

	_, err := ledger.Create(context.Background(), core.Transaction{
		Date:   core.NewDate(2024, 1, 1),
		Amount: core.Money{Cents: 100},
		Type:   "refund",
	})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}
