// Package currency formats raw amounts for display and converts between currencies.
//
// Amounts stay float64 everywhere else; this package is the only place that
// knows about symbols and minor units.
package currency

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ErrUnknownRate is returned when no rate is known for a currency pair.
var ErrUnknownRate = errors.New("unknown exchange rate")

var printer = message.NewPrinter(language.English)

// Format renders amount with the symbol of the ISO 4217 code placed directly
// before the number, e.g. "$12.50", "-€3.20" or "¥1,000". An empty or unknown
// code falls back to a plain two-decimal number.
func Format(amount float64, code string) string {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return fmt.Sprintf("%.2f", amount)
	}

	scale, _ := currency.Standard.Rounding(unit)
	pow := math.Pow10(scale)
	minor := math.Round(math.Abs(amount) * pow)

	sign := ""
	if amount < 0 && minor != 0 {
		sign = "-"
	}
	symbol := printer.Sprint(currency.Symbol(unit))
	return sign + symbol + printer.Sprint(number.Decimal(minor/pow, number.Scale(scale)))
}

// Valid reports whether code is a known ISO 4217 currency code.
func Valid(code string) bool {
	_, err := currency.ParseISO(code)
	return err == nil
}

// Rates looks up exchange rates.
type Rates interface {
	// Rate returns how many units of to one unit of from is worth.
	Rate(ctx context.Context, from, to string) (float64, error)
}

// StaticRates is a fixed rate table keyed by "FROM/TO".
// Reverse pairs are derived when only one direction is present.
type StaticRates struct {
	mu    sync.RWMutex
	rates map[string]float64
}

// NewStaticRates creates a rate table from "FROM/TO" keyed rates.
func NewStaticRates(rates map[string]float64) *StaticRates {
	s := &StaticRates{rates: make(map[string]float64, len(rates))}
	for pair, rate := range rates {
		s.rates[strings.ToUpper(pair)] = rate
	}
	return s
}

// ParseRates reads a comma separated list of "FROM/TO=rate" pairs,
// e.g. "EUR/USD=1.08,GBP/USD=1.27". An empty list yields an empty table.
func ParseRates(list string) (*StaticRates, error) {
	rates := make(map[string]float64)
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pair, value, ok := strings.Cut(entry, "=")
		from, to, okPair := strings.Cut(strings.TrimSpace(pair), "/")
		if !ok || !okPair || !Valid(from) || !Valid(to) {
			return nil, fmt.Errorf("invalid rate %q: want FROM/TO=rate", entry)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("invalid rate %q: rate must be a positive number", entry)
		}
		rates[pairKey(from, to)] = rate
	}
	return NewStaticRates(rates), nil
}

// Set stores or replaces the rate for a pair.
func (s *StaticRates) Set(from, to string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[pairKey(from, to)] = rate
}

// Rate implements Rates.
func (s *StaticRates) Rate(ctx context.Context, from, to string) (float64, error) {
	if strings.EqualFold(from, to) {
		return 1, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if rate, ok := s.rates[pairKey(from, to)]; ok {
		return rate, nil
	}
	if rate, ok := s.rates[pairKey(to, from)]; ok && rate != 0 {
		return 1 / rate, nil
	}
	return 0, fmt.Errorf("%w: %s/%s", ErrUnknownRate, from, to)
}

// Convert converts amount between currencies using rates.
func Convert(ctx context.Context, rates Rates, amount float64, from, to string) (float64, error) {
	rate, err := rates.Rate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

func pairKey(from, to string) string {
	return strings.ToUpper(from) + "/" + strings.ToUpper(to)
}
