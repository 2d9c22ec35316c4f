package currency

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name       string
		amount     float64
		code       string
		wantSuffix string
	}{
		{"dollars", 12.5, "USD", "12.50"},
		{"rounds to cents", 44.444, "EUR", "44.44"},
		{"no code", 7, "", "7.00"},
		{"unknown code", 3.1, "ZZZ", "3.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.amount, tt.code)
			if !strings.HasSuffix(got, tt.wantSuffix) {
				t.Errorf("Format(%v, %q) = %q, want suffix %q", tt.amount, tt.code, got, tt.wantSuffix)
			}
		})
	}

	if got := Format(1, ""); got != "1.00" {
		t.Errorf("Format without code = %q, want 1.00", got)
	}
}

func TestFormat_SymbolAttached(t *testing.T) {
	tests := []struct {
		amount float64
		code   string
		want   string
	}{
		{30, "USD", "$30.00"},
		{1234.5, "USD", "$1,234.50"},
		{-3.2, "EUR", "-€3.20"},
		{-0.001, "USD", "$0.00"},
		{1000, "JPY", "¥1,000"},
	}

	for _, tt := range tests {
		if got := Format(tt.amount, tt.code); got != tt.want {
			t.Errorf("Format(%v, %q) = %q, want %q", tt.amount, tt.code, got, tt.want)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid("USD") {
		t.Error("USD should be valid")
	}
	if Valid("dollars") {
		t.Error("dollars should not be valid")
	}
}

func TestStaticRates(t *testing.T) {
	ctx := context.Background()
	rates := NewStaticRates(map[string]float64{"usd/eur": 0.5})

	got, err := Convert(ctx, rates, 10, "USD", "EUR")
	if err != nil || math.Abs(got-5) > 0.01 {
		t.Errorf("USD->EUR = %v, %v; want 5", got, err)
	}

	got, err = Convert(ctx, rates, 10, "EUR", "USD")
	if err != nil || math.Abs(got-20) > 0.01 {
		t.Errorf("EUR->USD = %v, %v; want 20", got, err)
	}

	if rate, _ := rates.Rate(ctx, "usd", "USD"); rate != 1 {
		t.Errorf("same currency rate = %v, want 1", rate)
	}

	if _, err := rates.Rate(ctx, "USD", "JPY"); !errors.Is(err, ErrUnknownRate) {
		t.Errorf("expected ErrUnknownRate, got %v", err)
	}

	rates.Set("USD", "JPY", 150)
	if rate, err := rates.Rate(ctx, "USD", "JPY"); err != nil || rate != 150 {
		t.Errorf("USD/JPY = %v, %v; want 150", rate, err)
	}
}

func TestParseRates(t *testing.T) {
	rates, err := ParseRates("EUR/USD=1.10, gbp/usd=1.25")
	if err != nil {
		t.Fatalf("ParseRates failed: %v", err)
	}

	ctx := context.Background()
	if got, _ := rates.Rate(ctx, "EUR", "USD"); math.Abs(got-1.10) > 0.0001 {
		t.Errorf("EUR/USD = %v", got)
	}
	if got, _ := rates.Rate(ctx, "USD", "GBP"); math.Abs(got-0.8) > 0.0001 {
		t.Errorf("USD/GBP = %v, want 0.8", got)
	}

	empty, err := ParseRates("")
	if err != nil {
		t.Fatalf("empty list: %v", err)
	}
	if _, err := empty.Rate(ctx, "EUR", "USD"); !errors.Is(err, ErrUnknownRate) {
		t.Errorf("expected ErrUnknownRate, got %v", err)
	}

	for _, bad := range []string{"EURUSD=1", "EUR/USD", "EUR/USD=abc", "EUR/USD=-1", "XXX1/USD=1"} {
		if _, err := ParseRates(bad); err == nil {
			t.Errorf("ParseRates(%q) expected error", bad)
		}
	}
}
