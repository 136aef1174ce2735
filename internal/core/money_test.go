package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "plain integer", input: "12", want: 1200},
		{name: "dot separator", input: "12.34", want: 1234},
		{name: "comma separator", input: "12,34", want: 1234},
		{name: "single decimal digit", input: "12.3", want: 1230},
		{name: "leading dot", input: ".50", want: 50},
		{name: "zero", input: "0", want: 0},
		{name: "rounds third decimal up", input: "1.005", want: 101},
		{name: "rounds third decimal down", input: "1.004", want: 100},
		{name: "round carries into units", input: "0.995", want: 100},
		{name: "whitespace trimmed", input: " 7.25 ", want: 725},
		{name: "empty", input: "", wantErr: true},
		{name: "negative sign rejected", input: "-5", wantErr: true},
		{name: "plus sign rejected", input: "+5", wantErr: true},
		{name: "two separators", input: "1.2.3", wantErr: true},
		{name: "letters", input: "abc", wantErr: true},
		{name: "mixed digits and letters", input: "12a.50", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDecimalToCents(%q) = %d, want error", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("error = %v, want ErrInvalidAmount", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimalToCents(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{5, "0.05"},
		{0, "0.00"},
		{-1234, "-12.34"},
		{100000, "1000.00"},
	}

	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestMoneyNeg(t *testing.T) {
	m := Money{Cents: 250}
	if got := m.Neg().Cents; got != -250 {
		t.Errorf("Neg() = %d, want -250", got)
	}
	if got := m.Neg().Neg(); got != m {
		t.Errorf("Neg().Neg() = %v, want %v", got, m)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 1234})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "1234" {
		t.Errorf("marshal = %s, want 1234", b)
	}

	var m Money
	if err := json.Unmarshal([]byte("-567"), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Cents != -567 {
		t.Errorf("unmarshal = %d, want -567", m.Cents)
	}

	if err := json.Unmarshal([]byte(`"12.34"`), &m); err == nil {
		t.Error("unmarshal of decimal string should fail")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 100}).Validate(); err != nil {
		t.Errorf("positive amount should validate: %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}
	if err := (Money{Cents: -1}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount error = %v, want ErrInvalidAmount", err)
	}
}
