package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kasa/internal/amqp"
	"kasa/internal/core"
	"kasa/internal/storage"
)

// Scheduler turns recurring payment templates into posted transactions and
// advances their execution dates.
type Scheduler struct {
	repo      *storage.Repository
	publisher *amqp.Client
}

func NewScheduler(repo *storage.Repository, publisher *amqp.Client) *Scheduler {
	return &Scheduler{repo: repo, publisher: publisher}
}

// CreateRecurringPayment validates and stores a template. When the caller
// leaves NextExecutionDate unset the first occurrence is computed from the
// payment's frequency, anchored at today.
func (s *Scheduler) CreateRecurringPayment(ctx context.Context, p core.RecurringPayment) (core.RecurringPayment, error) {
	if err := p.Validate(); err != nil {
		return core.RecurringPayment{}, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	if p.NextExecutionDate.IsZero() {
		p.NextExecutionDate = NextDate(p.Frequency, p.FrequencyValue, p.DayOfPeriod, core.Today(time.Now()))
	}

	var created core.RecurringPayment
	err := s.repo.Do(ctx, func(q *storage.Queries) error {
		var err error
		created, err = q.CreateRecurringPayment(ctx, p)
		return err
	})
	if err != nil {
		return core.RecurringPayment{}, err
	}

	slog.InfoContext(ctx, "Recurring payment created",
		"id", created.ID,
		"name", created.Name,
		"next_execution_date", created.NextExecutionDate.String())
	return created, nil
}

func (s *Scheduler) GetRecurringPayment(ctx context.Context, id int64) (core.RecurringPayment, error) {
	var p core.RecurringPayment
	err := s.repo.Do(ctx, func(q *storage.Queries) error {
		var err error
		p, err = q.GetRecurringPayment(ctx, id)
		return err
	})
	return p, err
}

func (s *Scheduler) ListRecurringPayments(ctx context.Context) ([]core.RecurringPayment, error) {
	var out []core.RecurringPayment
	err := s.repo.Do(ctx, func(q *storage.Queries) error {
		var err error
		out, err = q.ListRecurringPayments(ctx)
		return err
	})
	return out, err
}

func (s *Scheduler) UpdateRecurringPayment(ctx context.Context, id int64, p core.RecurringPayment) (core.RecurringPayment, error) {
	if err := p.Validate(); err != nil {
		return core.RecurringPayment{}, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	var updated core.RecurringPayment
	err := s.repo.Do(ctx, func(q *storage.Queries) error {
		var err error
		updated, err = q.UpdateRecurringPayment(ctx, id, p)
		return err
	})
	return updated, err
}

func (s *Scheduler) DeleteRecurringPayment(ctx context.Context, id int64) error {
	return s.repo.Do(ctx, func(q *storage.Queries) error {
		return q.DeleteRecurringPayment(ctx, id)
	})
}

// SweepResult reports what a sweep did.
type SweepResult struct {
	Due     int `json:"due"`
	Posted  int `json:"posted"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Sweep posts one completed expense for every active payment whose next
// execution date is on or before today, debits its account and advances the
// template. Each payment runs in its own store transaction; one failing
// payment does not block the rest.
//
// A payment already executed today is skipped, so a crashed and restarted
// sweep never double-posts within the same day.
func (s *Scheduler) Sweep(ctx context.Context, today core.Date) (SweepResult, error) {
	var due []core.RecurringPayment
	err := s.repo.Do(ctx, func(q *storage.Queries) error {
		var err error
		due, err = q.ListDueRecurringPayments(ctx, today)
		return err
	})
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Due: len(due)}
	slog.InfoContext(ctx, "Processing recurring payments",
		"date", today.String(), "due", len(due))

	for _, p := range due {
		if p.LastExecutionDate != nil && p.LastExecutionDate.Equal(today) {
			result.Skipped++
			continue
		}

		if err := s.executePayment(ctx, p, today); err != nil {
			result.Failed++
			slog.ErrorContext(ctx, "Failed to execute recurring payment",
				"id", p.ID, "name", p.Name, "error", err)
			continue
		}
		result.Posted++

		if s.publisher != nil {
			if err := s.publisher.PublishSweepEvent(ctx, p.ID, today.String()); err != nil {
				slog.WarnContext(ctx, "Failed to publish sweep event",
					"id", p.ID, "error", err)
			}
		}
	}

	slog.InfoContext(ctx, "Recurring payment sweep complete",
		"due", result.Due, "posted", result.Posted,
		"skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// executePayment posts the expense, debits the account and advances the
// template inside one store transaction. The next date anchors at today,
// not at the stored date, so a payment overdue by months advances to a
// future date in a single sweep instead of replaying every missed period.
func (s *Scheduler) executePayment(ctx context.Context, p core.RecurringPayment, today core.Date) error {
	next := NextDate(p.Frequency, p.FrequencyValue, p.DayOfPeriod, today)

	currency := p.Currency
	if currency == "" {
		currency = core.DefaultCurrency
	}

	return s.repo.InTx(ctx, func(q *storage.Queries) error {
		accountID := p.AccountID
		t := core.Transaction{
			Date:               today,
			Description:        p.Name,
			Amount:             p.Amount,
			Currency:           currency,
			Type:               core.Expense,
			FromAccountID:      &accountID,
			CategoryID:         p.CategoryID,
			RecurringPaymentID: &p.ID,
			Status:             core.StatusCompleted,
		}
		if _, err := q.InsertTransaction(ctx, t); err != nil {
			return err
		}
		if err := adjustIfPresent(ctx, q, &accountID, p.Amount.Neg()); err != nil {
			return err
		}
		return q.MarkRecurringExecuted(ctx, p.ID, today, next)
	})
}

// NextDate computes the execution date following from, per the template's
// frequency:
//
//	daily:   from + value days
//	weekly:  from + value*7 days
//	monthly: from + value months, day clamped to min(dayOfPeriod, 28)
//	yearly:  from + value years, falling back to from+365d when the
//	         month/day combination does not exist (Feb 29)
//
// An unrecognized frequency falls back to from + value days.
func NextDate(freq core.Frequency, value int, dayOfPeriod *int, from core.Date) core.Date {
	if value <= 0 {
		value = 1
	}

	switch freq {
	case core.Daily:
		return from.AddDays(value)
	case core.Weekly:
		return from.AddDays(value * 7)
	case core.Monthly:
		return nextMonthly(value, dayOfPeriod, from)
	case core.Yearly:
		return nextYearly(value, from)
	default:
		return from.AddDays(value)
	}
}

// nextMonthly advances by whole months while keeping a stable day of month.
// The day never exceeds 28 so every month of every year is a valid target;
// a template asking for "the 31st" posts on the 28th instead of sliding
// into the following month.
func nextMonthly(value int, dayOfPeriod *int, from core.Date) core.Date {
	day := from.Day()
	if dayOfPeriod != nil && *dayOfPeriod > 0 {
		day = *dayOfPeriod
	}
	if day > 28 {
		day = 28
	}

	year := from.Year()
	month := from.Month() + value
	for month > 12 {
		month -= 12
		year++
	}

	next := core.NewDate(year, month, day)
	if next.Month() != month || next.Day() != day {
		return from.AddDays(30)
	}
	return next
}

// nextYearly keeps the same month and day. Feb 29 templates land on a
// non-leap year eventually; those fall back to a plain 365-day hop.
func nextYearly(value int, from core.Date) core.Date {
	next := core.NewDate(from.Year()+value, from.Month(), from.Day())
	if next.Month() != from.Month() || next.Day() != from.Day() {
		return from.AddDays(365)
	}
	return next
}
