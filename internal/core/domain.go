package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	Expense  TransactionType = "expense"
	Income   TransactionType = "income"
	Transfer TransactionType = "transfer"
)

const (
	StatusCompleted TransactionStatus = "completed"
	StatusPlanned   TransactionStatus = "planned"
)

const (
	Checking AccountType = "checking"
	Savings  AccountType = "savings"
	Credit   AccountType = "credit"
	Cash     AccountType = "cash"
)

// DefaultCurrency is applied when an input omits the currency code.
const DefaultCurrency = "CZK"

type (
	Frequency         string
	TransactionType   string
	TransactionStatus string
	AccountType       string

	// Date is a day-precision calendar date. Time-of-day is always midnight UTC.
	Date struct {
		time.Time
	}

	Account struct {
		ID             int64       `json:"id"`
		Name           string      `json:"name"`
		Type           AccountType `json:"account_type"`
		BankID         *int64      `json:"bank_id,omitempty"`
		OwnerMemberID  *int64      `json:"owner_member_id,omitempty"`
		AccountNumber  string      `json:"account_number,omitempty"`
		Currency       string      `json:"currency"`
		InitialBalance Money       `json:"initial_balance"`
		CurrentBalance Money       `json:"current_balance"`
		IsPremium      bool        `json:"is_premium"`
		PremiumMinFlow *Money      `json:"premium_min_flow,omitempty"`
		CreditLimit    *Money      `json:"credit_limit,omitempty"`
		Active         bool        `json:"active"`
		CreatedAt      time.Time   `json:"created_at"`
		UpdatedAt      time.Time   `json:"updated_at"`
	}

	Transaction struct {
		ID                 int64             `json:"id"`
		Date               Date              `json:"date"`
		Amount             Money             `json:"amount"`
		Currency           string            `json:"currency"`
		Type               TransactionType   `json:"transaction_type"`
		FromAccountID      *int64            `json:"from_account_id,omitempty"`
		ToAccountID        *int64            `json:"to_account_id,omitempty"`
		CategoryID         *int64            `json:"category_id,omitempty"`
		Description        string            `json:"description,omitempty"`
		Status             TransactionStatus `json:"status"`
		RecurringPaymentID *int64            `json:"recurring_payment_id,omitempty"`
		FlowGroupID        *int64            `json:"flow_group_id,omitempty"`
		Notes              string            `json:"notes,omitempty"`
		CreatedAt          time.Time         `json:"created_at"`
		UpdatedAt          time.Time         `json:"updated_at"`
	}

	RecurringPayment struct {
		ID                int64     `json:"id"`
		Name              string    `json:"name"`
		Amount            Money     `json:"amount"`
		Currency          string    `json:"currency"`
		Frequency         Frequency `json:"frequency"`
		FrequencyValue    int       `json:"frequency_value"`
		DayOfPeriod       *int      `json:"day_of_period,omitempty"`
		AccountID         int64     `json:"account_id"`
		CategoryID        *int64    `json:"category_id,omitempty"`
		Description       string    `json:"description,omitempty"`
		Active            bool      `json:"active"`
		NextExecutionDate Date      `json:"next_execution_date"`
		LastExecutionDate *Date     `json:"last_execution_date,omitempty"`
		CreatedAt         time.Time `json:"created_at"`
		UpdatedAt         time.Time `json:"updated_at"`
	}

	Bank struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		Notes     string    `json:"notes,omitempty"`
		Active    bool      `json:"active"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	Category struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		ParentID  *int64    `json:"parent_category_id,omitempty"`
		Type      string    `json:"category_type"`
		IsSystem  bool      `json:"is_system"`
		CreatedAt time.Time `json:"created_at"`
	}

	HouseholdMember struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	MemberIncome struct {
		ID         int64     `json:"id"`
		MemberID   int64     `json:"member_id"`
		Name       string    `json:"name"`
		Amount     Money     `json:"amount"`
		Frequency  Frequency `json:"frequency"`
		DayOfMonth *int      `json:"day_of_month,omitempty"`
		AccountID  *int64    `json:"account_id,omitempty"`
		Active     bool      `json:"active"`
	}

	ScheduledTransfer struct {
		ID            int64  `json:"id"`
		Name          string `json:"name"`
		FromAccountID *int64 `json:"from_account_id,omitempty"`
		ToAccountID   *int64 `json:"to_account_id,omitempty"`
		Amount        Money  `json:"amount"`
		DayOfMonth    int    `json:"day_of_month"`
		Description   string `json:"description,omitempty"`
		DisplayOrder  int    `json:"display_order"`
		Active        bool   `json:"active"`
	}

	FixedExpense struct {
		ID         int64     `json:"id"`
		Name       string    `json:"name"`
		Amount     Money     `json:"amount"`
		Category   string    `json:"category"`
		Frequency  Frequency `json:"frequency"`
		DayOfMonth *int      `json:"day_of_month,omitempty"`
		AccountID  *int64    `json:"account_id,omitempty"`
		Active     bool      `json:"active"`
		Notes      string    `json:"notes,omitempty"`
	}

	BudgetCategory struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		BudgetType   string `json:"budget_type"`
		MonthlyLimit Money  `json:"monthly_limit"`
	}

	SavingsGoal struct {
		ID            int64     `json:"id"`
		Name          string    `json:"name"`
		TargetAmount  Money     `json:"target_amount"`
		CurrentAmount Money     `json:"current_amount"`
		Currency      string    `json:"currency"`
		Deadline      *Date     `json:"deadline,omitempty"`
		AccountID     *int64    `json:"account_id,omitempty"`
		Active        bool      `json:"active"`
		CreatedAt     time.Time `json:"created_at"`
		UpdatedAt     time.Time `json:"updated_at"`
	}

	FundWithdrawal struct {
		ID          int64  `json:"id"`
		GoalID      int64  `json:"goal_id"`
		Amount      Money  `json:"amount"`
		Description string `json:"description,omitempty"`
		Date        Date   `json:"date"`
	}

	FlowGroup struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}
)

var (
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidStatus    = errors.New("invalid transaction status")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today truncates t to its calendar date in UTC.
func Today(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// Equal reports whether d and other are the same calendar date.
func (d Date) Equal(other Date) bool {
	return d.String() == other.String()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool {
	switch t {
	case Expense, Income, Transfer:
		return true
	}
	return false
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusCompleted, StatusPlanned:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	switch a.Type {
	case Checking, Savings, Credit, Cash:
	default:
		return errors.New("invalid account type")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	switch c.Type {
	case "income", "expense", "both":
	default:
		return errors.New("invalid category type")
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (p RecurringPayment) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if !p.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if p.FrequencyValue < 1 {
		return errors.New("frequency value must be at least 1")
	}
	if p.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if p.AccountID == 0 {
		return errors.New("recurring payment requires an account")
	}
	return nil
}
