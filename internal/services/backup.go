package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"kasa/internal/core"
	"kasa/internal/storage"
)

// SnapshotVersion marks the snapshot layout. Bump it when the shape changes
// so restores can refuse files they do not understand.
const SnapshotVersion = 1

// Snapshot is the portable household graph: every configuration table,
// nested parent-to-child, with database ids included for reference but
// never reused on restore.
type Snapshot struct {
	Version          int                      `json:"version"`
	ID               string                   `json:"id"`
	CreatedAt        time.Time                `json:"created_at"`
	Members          []MemberSnapshot         `json:"members"`
	Banks            []BankSnapshot           `json:"banks"`
	ScheduledXfers   []core.ScheduledTransfer `json:"scheduled_transfers"`
	FixedExpenses    []core.FixedExpense      `json:"fixed_expenses"`
	BudgetCategories []core.BudgetCategory    `json:"budget_categories"`
}

// MemberSnapshot nests a member's income sources under the member.
type MemberSnapshot struct {
	Member  core.HouseholdMember `json:"member"`
	Incomes []core.MemberIncome  `json:"incomes"`
}

// BankSnapshot nests a bank's accounts under the bank.
type BankSnapshot struct {
	Bank     core.Bank      `json:"bank"`
	Accounts []core.Account `json:"accounts"`
}

// Backup exports and restores the household graph and handles raw database
// file copies.
type Backup struct {
	repo *storage.Repository
}

func NewBackup(repo *storage.Repository) *Backup {
	return &Backup{repo: repo}
}

// ExportFullGraph reads the entire household configuration into a snapshot.
// The read runs under the store lock, so the graph is a consistent cut.
func (b *Backup) ExportFullGraph(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		Version:   SnapshotVersion,
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	err := b.repo.Do(ctx, func(q *storage.Queries) error {
		members, err := q.ListMembers(ctx)
		if err != nil {
			return err
		}
		for _, m := range members {
			incomes, err := q.ListMemberIncomes(ctx, m.ID)
			if err != nil {
				return err
			}
			snap.Members = append(snap.Members, MemberSnapshot{Member: m, Incomes: incomes})
		}

		banks, err := q.ListBanks(ctx, false)
		if err != nil {
			return err
		}
		for _, bank := range banks {
			accounts, err := q.ListAccountsByBank(ctx, bank.ID)
			if err != nil {
				return err
			}
			snap.Banks = append(snap.Banks, BankSnapshot{Bank: bank, Accounts: accounts})
		}

		if snap.ScheduledXfers, err = q.ListScheduledTransfers(ctx); err != nil {
			return err
		}
		if snap.FixedExpenses, err = q.ListFixedExpenses(ctx); err != nil {
			return err
		}
		snap.BudgetCategories, err = q.ListBudgetCategories(ctx)
		return err
	})
	if err != nil {
		return Snapshot{}, err
	}

	slog.InfoContext(ctx, "Exported full graph snapshot",
		"id", snap.ID,
		"members", len(snap.Members),
		"banks", len(snap.Banks))
	return snap, nil
}

// WriteSnapshotToFile exports the graph and writes it as indented JSON.
func (b *Backup) WriteSnapshotToFile(ctx context.Context, path string) (Snapshot, error) {
	snap, err := b.ExportFullGraph(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: encode snapshot: %v", core.ErrInternal, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Snapshot{}, fmt.Errorf("%w: write snapshot: %v", core.ErrIO, err)
	}
	return snap, nil
}

// RestoreFromFile loads a snapshot file and replaces the household graph
// with its contents.
func (b *Backup) RestoreFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read snapshot: %v", core.ErrIO, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: decode snapshot: %v", core.ErrInvalidInput, err)
	}
	return b.Restore(ctx, snap)
}

// Restore replaces the household graph with the snapshot's contents in a
// single store transaction: either the whole graph lands or nothing
// changes. Children are deleted before their parents; parents are
// reinserted first and children rewired to the freshly assigned ids, so
// snapshot ids never leak into the restored database.
//
// Transactions, recurring payments and savings goals are left alone;
// the snapshot covers configuration, not history.
func (b *Backup) Restore(ctx context.Context, snap Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported snapshot version %d", core.ErrInvalidInput, snap.Version)
	}

	err := b.repo.InTx(ctx, func(q *storage.Queries) error {
		if err := q.DeleteAllMemberIncomes(ctx); err != nil {
			return err
		}
		if err := q.DeleteAllScheduledTransfers(ctx); err != nil {
			return err
		}
		if err := q.DeleteBankAccounts(ctx); err != nil {
			return err
		}
		if err := q.DeleteAllMembers(ctx); err != nil {
			return err
		}
		if err := q.DeleteAllBanks(ctx); err != nil {
			return err
		}
		if err := q.DeleteAllFixedExpenses(ctx); err != nil {
			return err
		}
		if err := q.DeleteAllBudgetCategories(ctx); err != nil {
			return err
		}

		memberIDs := make(map[int64]int64, len(snap.Members))
		for _, ms := range snap.Members {
			created, err := q.CreateMember(ctx, ms.Member)
			if err != nil {
				return err
			}
			memberIDs[ms.Member.ID] = created.ID
		}

		bankIDs := make(map[int64]int64, len(snap.Banks))
		accountIDs := make(map[int64]int64)
		for _, bs := range snap.Banks {
			created, err := q.CreateBank(ctx, bs.Bank)
			if err != nil {
				return err
			}
			bankIDs[bs.Bank.ID] = created.ID

			for _, a := range bs.Accounts {
				newBankID := created.ID
				a.BankID = &newBankID
				a.OwnerMemberID = remapOptional(a.OwnerMemberID, memberIDs)
				newID, err := q.CreateAccountSnapshot(ctx, a)
				if err != nil {
					return err
				}
				accountIDs[a.ID] = newID
			}
		}

		for _, ms := range snap.Members {
			for _, in := range ms.Incomes {
				in.MemberID = memberIDs[ms.Member.ID]
				in.AccountID = remapOptional(in.AccountID, accountIDs)
				if _, err := q.CreateMemberIncome(ctx, in); err != nil {
					return err
				}
			}
		}

		for _, t := range snap.ScheduledXfers {
			t.FromAccountID = remapOptional(t.FromAccountID, accountIDs)
			t.ToAccountID = remapOptional(t.ToAccountID, accountIDs)
			if _, err := q.CreateScheduledTransfer(ctx, t); err != nil {
				return err
			}
		}

		for _, e := range snap.FixedExpenses {
			e.AccountID = remapOptional(e.AccountID, accountIDs)
			if _, err := q.CreateFixedExpense(ctx, e); err != nil {
				return err
			}
		}

		for _, bc := range snap.BudgetCategories {
			if _, err := q.CreateBudgetCategory(ctx, bc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Restored full graph snapshot",
		"id", snap.ID,
		"members", len(snap.Members),
		"banks", len(snap.Banks))
	return nil
}

// remapOptional translates an optional foreign key through the old-to-new
// id map. Dangling references are dropped rather than carried over.
func remapOptional(id *int64, ids map[int64]int64) *int64 {
	if id == nil {
		return nil
	}
	newID, ok := ids[*id]
	if !ok {
		return nil
	}
	return &newID
}

// ExportTransactionsCSV writes the (optionally filtered) transaction list
// as CSV with category and account names joined in.
func (b *Backup) ExportTransactionsCSV(ctx context.Context, w io.Writer, f storage.TransactionFilters) (int, error) {
	var rows []storage.ExportRow
	err := b.repo.Do(ctx, func(q *storage.Queries) error {
		var err error
		rows, err = q.ListTransactionsForExport(ctx, f)
		return err
	})
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "date", "amount", "currency", "type", "description", "status", "category", "from_account", "to_account"}
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("%w: write csv header: %v", core.ErrIO, err)
	}
	for _, r := range rows {
		record := []string{
			fmt.Sprintf("%d", r.ID),
			r.Date,
			r.Amount.String(),
			r.Currency,
			r.Type,
			r.Description,
			r.Status,
			r.Category,
			r.FromAccount,
			r.ToAccount,
		}
		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("%w: write csv row: %v", core.ErrIO, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("%w: flush csv: %v", core.ErrIO, err)
	}
	return len(rows), nil
}

// ExportDatabase copies the raw database file to destPath. The copy runs
// under the store lock so no write lands mid-copy.
func (b *Backup) ExportDatabase(ctx context.Context, destPath string) error {
	return b.repo.Do(ctx, func(*storage.Queries) error {
		if err := copyFile(b.repo.Path(), destPath); err != nil {
			return fmt.Errorf("%w: export database: %v", core.ErrIO, err)
		}
		slog.InfoContext(ctx, "Exported database file", "dest", destPath)
		return nil
	})
}

// ImportDatabase replaces the live database file with srcPath. The current
// file is first copied aside with a .backup suffix so a bad import can be
// undone by hand. The caller must reopen the store afterwards.
func (b *Backup) ImportDatabase(ctx context.Context, srcPath string) error {
	if _, err := os.Stat(srcPath); err != nil {
		return fmt.Errorf("%w: import source: %v", core.ErrIO, err)
	}

	return b.repo.Do(ctx, func(*storage.Queries) error {
		live := b.repo.Path()
		safety := live + ".backup"
		if err := copyFile(live, safety); err != nil {
			return fmt.Errorf("%w: safety copy: %v", core.ErrIO, err)
		}
		if err := copyFile(srcPath, live); err != nil {
			return fmt.Errorf("%w: import database: %v", core.ErrIO, err)
		}
		slog.InfoContext(ctx, "Imported database file",
			"src", srcPath, "safety_copy", safety)
		return nil
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
