package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year() != 2024 || d.Month() != 3 || d.Day() != 15 {
		t.Errorf("got %v, want 2024-03-15", d)
	}
	if d.String() != "2024-03-15" {
		t.Errorf("String() = %q, want 2024-03-15", d.String())
	}

	if _, err := ParseDate("15/03/2024"); err == nil {
		t.Error("ParseDate should reject non ISO input")
	}
	if _, err := ParseDate("2024-13-01"); err == nil {
		t.Error("ParseDate should reject month 13")
	}
}

func TestDateAddDays(t *testing.T) {
	d := NewDate(2024, 2, 28)
	if got := d.AddDays(1).String(); got != "2024-02-29" {
		t.Errorf("leap year add = %s, want 2024-02-29", got)
	}
	if got := d.AddDays(2).String(); got != "2024-03-01" {
		t.Errorf("month rollover = %s, want 2024-03-01", got)
	}
}

func TestDateComparisons(t *testing.T) {
	a := NewDate(2024, 1, 1)
	b := NewDate(2024, 1, 2)
	if !a.Before(b) || b.Before(a) {
		t.Error("Before ordering wrong")
	}
	if !a.Equal(NewDate(2024, 1, 1)) {
		t.Error("Equal should match same calendar date")
	}
}

func TestTodayTruncates(t *testing.T) {
	d := Today(time.Date(2024, 6, 1, 23, 59, 59, 0, time.UTC))
	if d.String() != "2024-06-01" {
		t.Errorf("Today = %s, want 2024-06-01", d.String())
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 7, 4))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-07-04"` {
		t.Errorf("marshal = %s", b)
	}

	var d Date
	if err := json.Unmarshal([]byte(`"2024-07-04"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !d.Equal(NewDate(2024, 7, 4)) {
		t.Errorf("unmarshal = %v", d)
	}

	if err := json.Unmarshal([]byte(`null`), &d); err != nil {
		t.Errorf("null should unmarshal to zero date: %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		Date:   NewDate(2024, 1, 15),
		Amount: Money{Cents: 1000},
		Type:   Expense,
		Status: StatusCompleted,
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{name: "valid", mutate: func(*Transaction) {}},
		{name: "zero date", mutate: func(tr *Transaction) { tr.Date = Date{} }, wantErr: nil},
		{name: "bad type", mutate: func(tr *Transaction) { tr.Type = "refund" }, wantErr: ErrInvalidType},
		{name: "bad status", mutate: func(tr *Transaction) { tr.Status = "pending" }, wantErr: ErrInvalidStatus},
		{name: "negative amount", mutate: func(tr *Transaction) { tr.Amount = Money{Cents: -1} }, wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := valid
			tt.mutate(&tr)
			err := tr.Validate()

			if tt.name == "valid" {
				if err != nil {
					t.Fatalf("valid transaction rejected: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("want error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecurringPaymentValidate(t *testing.T) {
	valid := RecurringPayment{
		Name:              "Rent",
		Amount:            Money{Cents: 150000},
		Frequency:         Monthly,
		FrequencyValue:    1,
		AccountID:         1,
		NextExecutionDate: NewDate(2024, 2, 1),
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid payment rejected: %v", err)
	}

	p := valid
	p.Name = "  "
	if err := p.Validate(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("blank name error = %v, want ErrEmptyName", err)
	}

	p = valid
	p.Frequency = "fortnightly"
	if err := p.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("bad frequency error = %v, want ErrInvalidFrequency", err)
	}

	p = valid
	p.FrequencyValue = 0
	if err := p.Validate(); err == nil {
		t.Error("zero frequency value should fail")
	}

	p = valid
	p.Amount = Money{Cents: 0}
	if err := p.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}

	p = valid
	p.AccountID = 0
	if err := p.Validate(); err == nil {
		t.Error("missing account should fail")
	}
}

func TestAccountValidate(t *testing.T) {
	a := Account{Name: "Main", Type: Checking}
	if err := a.Validate(); err != nil {
		t.Fatalf("valid account rejected: %v", err)
	}

	a.Name = ""
	if err := a.Validate(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name error = %v, want ErrEmptyName", err)
	}

	a = Account{Name: "Main", Type: "brokerage"}
	if err := a.Validate(); err == nil {
		t.Error("unknown account type should fail")
	}
}
