package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"kasa/internal/core"
	"kasa/internal/storage"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createAccount(t *testing.T, repo *storage.Repository, initialCents int64) core.Account {
	t.Helper()
	var a core.Account
	err := repo.Do(context.Background(), func(q *storage.Queries) error {
		var err error
		a, err = q.CreateAccount(context.Background(), core.Account{
			Name:           "Main",
			Type:           core.Checking,
			Currency:       core.DefaultCurrency,
			InitialBalance: core.Money{Cents: initialCents},
		})
		return err
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return a
}

func intPtr(n int) *int { return &n }

func TestNextDate(t *testing.T) {
	tests := []struct {
		name        string
		freq        core.Frequency
		value       int
		dayOfPeriod *int
		from        core.Date
		want        string
	}{
		{
			name: "daily", freq: core.Daily, value: 1,
			from: core.NewDate(2024, 1, 15), want: "2024-01-16",
		},
		{
			name: "daily multi", freq: core.Daily, value: 3,
			from: core.NewDate(2024, 1, 30), want: "2024-02-02",
		},
		{
			name: "weekly", freq: core.Weekly, value: 2,
			from: core.NewDate(2024, 1, 1), want: "2024-01-15",
		},
		{
			name: "monthly keeps day", freq: core.Monthly, value: 1,
			from: core.NewDate(2024, 1, 15), want: "2024-02-15",
		},
		{
			name: "monthly clamps day of period to 28", freq: core.Monthly, value: 1,
			dayOfPeriod: intPtr(31),
			from:        core.NewDate(2024, 1, 15), want: "2024-02-28",
		},
		{
			name: "monthly clamps current day", freq: core.Monthly, value: 1,
			from: core.NewDate(2024, 1, 31), want: "2024-02-28",
		},
		{
			name: "monthly year rollover", freq: core.Monthly, value: 3,
			from: core.NewDate(2024, 11, 10), want: "2025-02-10",
		},
		{
			name: "monthly explicit day of period", freq: core.Monthly, value: 1,
			dayOfPeriod: intPtr(5),
			from:        core.NewDate(2024, 3, 20), want: "2024-04-05",
		},
		{
			name: "yearly same day", freq: core.Yearly, value: 1,
			from: core.NewDate(2024, 6, 15), want: "2025-06-15",
		},
		{
			name: "yearly feb 29 falls back to 365 days", freq: core.Yearly, value: 1,
			from: core.NewDate(2024, 2, 29), want: "2025-02-28",
		},
		{
			name: "unknown frequency adds value days", freq: "fortnightly", value: 14,
			from: core.NewDate(2024, 1, 1), want: "2024-01-15",
		},
		{
			name: "zero value treated as one", freq: core.Daily, value: 0,
			from: core.NewDate(2024, 1, 1), want: "2024-01-02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDate(tt.freq, tt.value, tt.dayOfPeriod, tt.from)
			if got.String() != tt.want {
				t.Errorf("NextDate() = %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestSweepPostsDuePayments(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := createAccount(t, repo, 100000)

	ledger := NewLedger(repo, nil)
	scheduler := NewScheduler(repo, nil)

	p, err := scheduler.CreateRecurringPayment(ctx, core.RecurringPayment{
		Name:              "Internet",
		Amount:            core.Money{Cents: 4900},
		Frequency:         core.Monthly,
		FrequencyValue:    1,
		AccountID:         a.ID,
		NextExecutionDate: core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("CreateRecurringPayment: %v", err)
	}

	today := core.NewDate(2024, 3, 10)
	result, err := scheduler.Sweep(ctx, today)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result.Posted != 1 {
		t.Fatalf("posted = %d, want 1", result.Posted)
	}

	// Account debited.
	err = repo.Do(ctx, func(q *storage.Queries) error {
		balance, err := q.GetBalance(ctx, a.ID)
		if err != nil {
			return err
		}
		if balance.Cents != 95100 {
			t.Errorf("balance = %d, want 95100", balance.Cents)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// Transaction dated today and linked to the template.
	txs, err := ledger.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
	if !txs[0].Date.Equal(today) {
		t.Errorf("posted date = %v, want %v", txs[0].Date, today)
	}
	if txs[0].RecurringPaymentID == nil || *txs[0].RecurringPaymentID != p.ID {
		t.Errorf("recurring link = %v", txs[0].RecurringPaymentID)
	}
	if txs[0].Status != core.StatusCompleted {
		t.Errorf("status = %q", txs[0].Status)
	}

	// Template advanced anchored at today, not at the stored date.
	updated, err := scheduler.GetRecurringPayment(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.LastExecutionDate == nil || !updated.LastExecutionDate.Equal(today) {
		t.Errorf("last execution = %v, want %v", updated.LastExecutionDate, today)
	}
	if !updated.NextExecutionDate.Equal(core.NewDate(2024, 4, 10)) {
		t.Errorf("next execution = %v, want 2024-04-10", updated.NextExecutionDate)
	}
}

func TestSweepIdempotentWithinDay(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := createAccount(t, repo, 100000)

	ledger := NewLedger(repo, nil)
	scheduler := NewScheduler(repo, nil)

	_, err := scheduler.CreateRecurringPayment(ctx, core.RecurringPayment{
		Name:              "Gym",
		Amount:            core.Money{Cents: 3000},
		Frequency:         core.Daily,
		FrequencyValue:    1,
		AccountID:         a.ID,
		NextExecutionDate: core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	today := core.NewDate(2024, 3, 1)
	if _, err := scheduler.Sweep(ctx, today); err != nil {
		t.Fatal(err)
	}

	// A daily payment executed today is due again tomorrow, so it still
	// shows up in the due list; the same-day guard must skip it.
	result, err := scheduler.Sweep(ctx, today)
	if err != nil {
		t.Fatal(err)
	}
	if result.Posted != 0 {
		t.Errorf("second sweep posted = %d, want 0", result.Posted)
	}

	txs, err := ledger.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 {
		t.Errorf("transactions = %d after double sweep, want 1", len(txs))
	}
}

func TestSweepSkipsInactiveAndFuture(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := createAccount(t, repo, 100000)

	scheduler := NewScheduler(repo, nil)

	p, err := scheduler.CreateRecurringPayment(ctx, core.RecurringPayment{
		Name:              "Streaming",
		Amount:            core.Money{Cents: 1200},
		Frequency:         core.Monthly,
		FrequencyValue:    1,
		AccountID:         a.ID,
		NextExecutionDate: core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	p.Active = false
	if _, err := scheduler.UpdateRecurringPayment(ctx, p.ID, p); err != nil {
		t.Fatal(err)
	}

	_, err = scheduler.CreateRecurringPayment(ctx, core.RecurringPayment{
		Name:              "Insurance",
		Amount:            core.Money{Cents: 8000},
		Frequency:         core.Yearly,
		FrequencyValue:    1,
		AccountID:         a.ID,
		NextExecutionDate: core.NewDate(2030, 1, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := scheduler.Sweep(ctx, core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatal(err)
	}
	if result.Due != 0 || result.Posted != 0 {
		t.Errorf("result = %+v, want nothing due", result)
	}
}

func TestCreateRecurringPaymentValidation(t *testing.T) {
	repo := newTestRepo(t)
	scheduler := NewScheduler(repo, nil)

	_, err := scheduler.CreateRecurringPayment(context.Background(), core.RecurringPayment{
		Name:              "",
		Amount:            core.Money{Cents: 1000},
		Frequency:         core.Monthly,
		FrequencyValue:    1,
		AccountID:         1,
		NextExecutionDate: core.NewDate(2024, 1, 1),
	})
	if err == nil {
		t.Fatal("empty name should be rejected")
	}
}

func TestCreateRecurringPaymentComputesFirstDate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := createAccount(t, repo, 50000)
	scheduler := NewScheduler(repo, nil)

	p, err := scheduler.CreateRecurringPayment(ctx, core.RecurringPayment{
		Name:           "Gym",
		Amount:         core.Money{Cents: 3000},
		Frequency:      core.Monthly,
		FrequencyValue: 1,
		AccountID:      a.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	today := core.Today(time.Now())
	if p.NextExecutionDate.IsZero() {
		t.Fatal("first execution date was not computed")
	}
	if !today.Before(p.NextExecutionDate) {
		t.Errorf("first execution date %s should be after %s", p.NextExecutionDate, today)
	}

	result, err := scheduler.Sweep(ctx, today)
	if err != nil {
		t.Fatal(err)
	}
	if result.Posted != 0 {
		t.Errorf("posted = %d, want 0 until the first occurrence", result.Posted)
	}
}
