// Package services holds the ledger consistency engine, the recurring
// payment scheduler and the backup/restore engine. Everything below runs
// serialized against the single store; multi-step mutations go through
// storage.InTx so the row write and its balance effect commit together.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kasa/internal/amqp"
	"kasa/internal/core"
	"kasa/internal/storage"
)

// Ledger is the transaction processor: the only component allowed to move
// account balances in response to transaction lifecycle events.
type Ledger struct {
	repo      *storage.Repository
	publisher *amqp.Client
}

func NewLedger(repo *storage.Repository, publisher *amqp.Client) *Ledger {
	return &Ledger{repo: repo, publisher: publisher}
}

// Create validates and persists a transaction, then applies its balance
// effect unless the transaction is planned. Row insert and effect share one
// storage transaction.
//
// Transfers must name a source account. The original data model tolerated a
// sourceless transfer by silently skipping both balance legs; that was a
// sharp edge, so it is rejected here instead.
func (l *Ledger) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Currency == "" {
		t.Currency = core.DefaultCurrency
	}
	if t.Status == "" {
		t.Status = core.StatusCompleted
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	if t.Type == core.Transfer && t.FromAccountID == nil {
		return core.Transaction{}, fmt.Errorf("%w: transfer requires a source account", core.ErrInvalidInput)
	}

	var created core.Transaction
	err := l.repo.InTx(ctx, func(q *storage.Queries) error {
		id, err := q.InsertTransaction(ctx, t)
		if err != nil {
			return err
		}

		if t.Status != core.StatusPlanned {
			if err := applyEffect(ctx, q, t, false); err != nil {
				return err
			}
		}

		created, err = q.GetTransaction(ctx, id)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", created.ID,
		"type", created.Type,
		"status", created.Status,
		"amount_cents", created.Amount.Cents)

	l.publish(ctx, amqp.EventTransactionPosted, created.ID)
	return created, nil
}

func (l *Ledger) Get(ctx context.Context, id int64) (core.Transaction, error) {
	var t core.Transaction
	err := l.repo.Do(ctx, func(q *storage.Queries) error {
		var err error
		t, err = q.GetTransaction(ctx, id)
		return err
	})
	return t, err
}

func (l *Ledger) List(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	err := l.repo.Do(ctx, func(q *storage.Queries) error {
		var err error
		out, err = q.ListTransactions(ctx)
		return err
	})
	return out, err
}

func (l *Ledger) ListFiltered(ctx context.Context, f storage.TransactionFilters) ([]core.Transaction, error) {
	var out []core.Transaction
	err := l.repo.Do(ctx, func(q *storage.Queries) error {
		var err error
		out, err = q.ListTransactionsFiltered(ctx, f)
		return err
	})
	return out, err
}

// Update rewrites the row's fields without reversing or reapplying any
// balance effect. Editing an amount after the fact does not correct account
// balances; callers that need a correction delete and re-create, or use
// SetBalance. This mirrors the long-standing behavior users rely on.
func (l *Ledger) Update(ctx context.Context, id int64, t core.Transaction) (core.Transaction, error) {
	if t.Currency == "" {
		t.Currency = core.DefaultCurrency
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}

	var updated core.Transaction
	err := l.repo.Do(ctx, func(q *storage.Queries) error {
		var err error
		updated, err = q.UpdateTransaction(ctx, id, t)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated", "id", id)
	return updated, nil
}

// Delete reverses the transaction's balance effect (unless planned) and
// removes the row, atomically.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	err := l.repo.InTx(ctx, func(q *storage.Queries) error {
		t, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		if t.Status != core.StatusPlanned {
			if err := applyEffect(ctx, q, t, true); err != nil {
				return err
			}
		}

		return q.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	l.publish(ctx, amqp.EventTransactionReversed, id)
	return nil
}

// applyEffect applies (or, with reverse, undoes) the signed balance effect
// of a transaction:
//
//	expense:  from -amount
//	income:   to   +amount
//	transfer: from -amount, to +amount
//
// A leg whose account is missing or deleted is skipped: the FK is nullable
// and tolerating the gap keeps deletes of old rows working. For transfers
// that means reversal is asymmetric when only one leg survives, matching the
// effect that was actually applied at create time.
func applyEffect(ctx context.Context, q *storage.Queries, t core.Transaction, reverse bool) error {
	amount := t.Amount
	if reverse {
		amount = amount.Neg()
	}

	switch t.Type {
	case core.Expense:
		return adjustIfPresent(ctx, q, t.FromAccountID, amount.Neg())
	case core.Income:
		return adjustIfPresent(ctx, q, t.ToAccountID, amount)
	case core.Transfer:
		// Rows predating the mandatory-source rule (e.g. restored from an
		// old snapshot) may lack a source; both legs are skipped then, the
		// same asymmetry the create path produced for them.
		if t.FromAccountID == nil {
			return nil
		}
		if err := adjustIfPresent(ctx, q, t.FromAccountID, amount.Neg()); err != nil {
			return err
		}
		return adjustIfPresent(ctx, q, t.ToAccountID, amount)
	default:
		// Unknown types carry no balance effect.
		return nil
	}
}

func adjustIfPresent(ctx context.Context, q *storage.Queries, accountID *int64, delta core.Money) error {
	if accountID == nil {
		return nil
	}
	err := q.AdjustBalance(ctx, *accountID, delta)
	if errors.Is(err, core.ErrNotFound) {
		// Referenced account no longer exists; the leg is skipped.
		return nil
	}
	return err
}

func (l *Ledger) publish(ctx context.Context, event string, id int64) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishLedgerEvent(ctx, event, id); err != nil {
		// Publishing is best effort; the ledger write already committed.
		slog.WarnContext(ctx, "Failed to publish ledger event",
			"event", event, "id", id, "error", err)
	}
}
