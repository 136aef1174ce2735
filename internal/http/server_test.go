package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"kasa/internal/core"
	"kasa/internal/services"
	"kasa/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ledger := services.NewLedger(repo, nil)
	scheduler := services.NewScheduler(repo, nil)
	backup := services.NewBackup(repo)
	return NewServer(":0", repo, ledger, scheduler, backup)
}

func doJSON(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func createAccountHTTP(t *testing.T, srv *Server, name string, initialCents int64) core.Account {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/accounts", map[string]any{
		"name":            name,
		"account_type":    "checking",
		"initial_balance": initialCents,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeBody[core.Account](t, rec)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
}

func TestAccountEndpoints(t *testing.T) {
	srv := newTestServer(t)

	a := createAccountHTTP(t, srv, "Main", 10000)
	if a.CurrentBalance.Cents != 10000 {
		t.Errorf("current balance = %d", a.CurrentBalance.Cents)
	}

	rec := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/accounts?id=%d", a.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get account = %d", rec.Code)
	}
	got := decodeBody[core.Account](t, rec)
	if got.Name != "Main" {
		t.Errorf("name = %q", got.Name)
	}

	rec = doJSON(t, srv, http.MethodGet, "/accounts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list accounts = %d", rec.Code)
	}
	list := decodeBody[[]core.Account](t, rec)
	if len(list) != 1 {
		t.Errorf("list length = %d", len(list))
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/accounts?id=%d", a.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete account = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/accounts?active=true", nil)
	active := decodeBody[[]core.Account](t, rec)
	if len(active) != 0 {
		t.Errorf("active list after soft delete = %d entries", len(active))
	}
}

func TestAccountNotFoundMapsTo404(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/accounts?id=42", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTransactionEndpointsApplyBalance(t *testing.T) {
	srv := newTestServer(t)
	a := createAccountHTTP(t, srv, "Main", 10000)

	rec := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"date":             "2024-03-01",
		"amount":           2500,
		"transaction_type": "expense",
		"from_account_id":  a.ID,
		"description":      "groceries",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction = %d, body %s", rec.Code, rec.Body.String())
	}
	tx := decodeBody[core.Transaction](t, rec)
	if tx.Status != core.StatusCompleted {
		t.Errorf("default status = %q", tx.Status)
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/accounts/balance?id=%d", a.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get balance = %d", rec.Code)
	}
	balance := decodeBody[balanceResponse](t, rec)
	if balance.BalanceCents.Cents != 7500 {
		t.Errorf("balance = %d, want 7500", balance.BalanceCents.Cents)
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/transactions?id=%d", tx.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete transaction = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/accounts/balance?id=%d", a.ID), nil)
	balance = decodeBody[balanceResponse](t, rec)
	if balance.BalanceCents.Cents != 10000 {
		t.Errorf("balance after delete = %d, want 10000", balance.BalanceCents.Cents)
	}
}

func TestTransferWithoutSourceRejected(t *testing.T) {
	srv := newTestServer(t)
	a := createAccountHTTP(t, srv, "Main", 0)

	rec := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"date":             "2024-03-01",
		"amount":           1000,
		"transaction_type": "transfer",
		"to_account_id":    a.ID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTransactionFilterQuery(t *testing.T) {
	srv := newTestServer(t)
	createAccountHTTP(t, srv, "Main", 0)

	post := func(date string, cents int64, desc string) {
		t.Helper()
		rec := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
			"date":             date,
			"amount":           cents,
			"transaction_type": "expense",
			"description":      desc,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create = %d", rec.Code)
		}
	}
	post("2024-01-10", 500, "coffee")
	post("2024-02-10", 15000, "electricity")

	rec := doJSON(t, srv, http.MethodGet, "/transactions?from=2024-02-01&to=2024-02-28", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("filtered list = %d", rec.Code)
	}
	list := decodeBody[[]core.Transaction](t, rec)
	if len(list) != 1 {
		t.Errorf("filtered length = %d, want 1", len(list))
	}

	rec = doJSON(t, srv, http.MethodGet, "/transactions?from=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date filter = %d, want 400", rec.Code)
	}
}

func TestRecurringAndSweepEndpoints(t *testing.T) {
	srv := newTestServer(t)
	a := createAccountHTTP(t, srv, "Main", 100000)

	rec := doJSON(t, srv, http.MethodPost, "/recurring", map[string]any{
		"name":                "Internet",
		"amount":              4900,
		"frequency":           "monthly",
		"frequency_value":     1,
		"account_id":          a.ID,
		"next_execution_date": "2024-03-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create recurring = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/recurring/sweep?date=2024-03-10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sweep = %d, body %s", rec.Code, rec.Body.String())
	}
	result := decodeBody[services.SweepResult](t, rec)
	if result.Posted != 1 {
		t.Errorf("posted = %d, want 1", result.Posted)
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/accounts/balance?id=%d", a.ID), nil)
	balance := decodeBody[balanceResponse](t, rec)
	if balance.BalanceCents.Cents != 95100 {
		t.Errorf("balance after sweep = %d, want 95100", balance.BalanceCents.Cents)
	}
}

func TestSnapshotEndpointsRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/banks", map[string]any{"name": "First National"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create bank = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/backup/snapshot", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export snapshot = %d", rec.Code)
	}
	snap := decodeBody[services.Snapshot](t, rec)
	if len(snap.Banks) != 1 {
		t.Fatalf("snapshot banks = %d", len(snap.Banks))
	}

	rec = doJSON(t, srv, http.MethodPost, "/backup/snapshot", snap)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("restore snapshot = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestGoalContributeAndWithdraw(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/goals", map[string]any{
		"name":          "Vacation",
		"target_amount": 100000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create goal = %d, body %s", rec.Code, rec.Body.String())
	}
	goal := decodeBody[core.SavingsGoal](t, rec)

	rec = doJSON(t, srv, http.MethodPost, "/goals/contribute", map[string]any{
		"goal_id": goal.ID,
		"amount":  30000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("contribute = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[core.SavingsGoal](t, rec)
	if updated.CurrentAmount.Cents != 30000 {
		t.Errorf("current = %d, want 30000", updated.CurrentAmount.Cents)
	}

	rec = doJSON(t, srv, http.MethodPost, "/goals/withdraw", map[string]any{
		"goal_id":     goal.ID,
		"amount":      5000,
		"description": "flight deposit",
		"date":        "2024-05-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("withdraw = %d, body %s", rec.Code, rec.Body.String())
	}
	updated = decodeBody[core.SavingsGoal](t, rec)
	if updated.CurrentAmount.Cents != 25000 {
		t.Errorf("current after withdraw = %d, want 25000", updated.CurrentAmount.Cents)
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/goals/withdrawals?goal_id=%d", goal.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list withdrawals = %d", rec.Code)
	}
	withdrawals := decodeBody[[]core.FundWithdrawal](t, rec)
	if len(withdrawals) != 1 {
		t.Errorf("withdrawals = %d, want 1", len(withdrawals))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPatch, "/accounts", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow == "" {
		t.Error("Allow header missing")
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/banks", map[string]any{
		"name":  "Bank",
		"bogus": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCategoryEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list categories = %d", rec.Code)
	}
	seeded := decodeBody[[]core.Category](t, rec)
	var systemID int64
	for _, c := range seeded {
		if c.IsSystem {
			systemID = c.ID
			break
		}
	}
	if systemID == 0 {
		t.Fatal("expected seeded system categories")
	}

	rec = doJSON(t, srv, http.MethodPost, "/categories", map[string]any{
		"name":          "Groceries",
		"category_type": "expense",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[core.Category](t, rec)
	if created.IsSystem {
		t.Error("created category must not be system")
	}

	rec = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/categories?id=%d", systemID), map[string]any{
		"name":          "Renamed",
		"category_type": "expense",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("editing system category = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/categories?id=%d", created.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete category = %d", rec.Code)
	}
}
