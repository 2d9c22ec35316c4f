package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/mmynk/tabsplit/internal/models"
)

// Tolerance is how far custom amounts may drift from the base amount
// before the difference is folded into the tax percentage.
const Tolerance = 0.01

var (
	ErrInvalidAmount        = errors.New("enter a valid amount")
	ErrNoParticipants       = errors.New("select at least one participant")
	ErrNoPayer              = errors.New("select who paid")
	ErrDuplicateParticipant = errors.New("participants must be unique")
	ErrMissingExactAmount   = errors.New("enter an amount for every participant")
	ErrInvalidExactAmounts  = errors.New("custom amounts must add up to more than zero")
	ErrInvalidContribution  = errors.New("contributions cannot be negative")
	ErrUnknownMode          = errors.New("unknown split mode")
)

var validationErrors = []error{
	ErrInvalidAmount,
	ErrNoParticipants,
	ErrNoPayer,
	ErrDuplicateParticipant,
	ErrMissingExactAmount,
	ErrInvalidExactAmounts,
	ErrInvalidContribution,
	ErrUnknownMode,
}

// IsValidationError reports whether err is an input problem the caller can fix.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Input is everything needed to split one bill.
type Input struct {
	// BaseAmount is the pre-tax bill amount.
	BaseAmount float64

	// TaxPercent is the sum of tax, service charge and VAT percentages.
	// Negative values express a discount.
	TaxPercent float64

	ParticipantIDs []string
	Mode           models.SplitMode

	// ExactAmounts holds each participant's pre-tax amount in exact mode.
	ExactAmounts map[string]float64

	// PayerID is the single member who paid the whole bill.
	// Ignored when Contributions is set.
	PayerID string

	// Contributions maps member ID to the amount they paid.
	Contributions map[string]float64
}

// Result is the computed split of one bill.
type Result struct {
	// FinalAmount is BaseAmount inflated by TaxPercent.
	FinalAmount float64

	// EffectiveBase and EffectiveTaxPercent are what the bill should be
	// stored with. They differ from the input only when Normalized is set.
	EffectiveBase       float64
	EffectiveTaxPercent float64

	// Normalized is set when custom amounts did not add up to the base amount
	// and the difference was absorbed as AdditionalTaxPercent.
	Normalized           bool
	AdditionalTaxPercent float64

	Splits        []models.Split
	Contributions []models.Contribution
}

// Total is the sum of all shares, which is also the amount the bill is stored with.
func (r *Result) Total() float64 {
	return r.EffectiveBase * (1 + r.EffectiveTaxPercent/100)
}

// ShareOf returns the member's share, 0 if they are not a participant.
func (r *Result) ShareOf(memberID string) float64 {
	for _, s := range r.Splits {
		if s.MemberID == memberID {
			return s.Share
		}
	}
	return 0
}

// Calculate splits a bill among its participants.
//
// Equal mode gives every participant FinalAmount/N with no remainder
// redistribution. Exact mode applies the tax on top of each custom amount;
// if the custom amounts miss the base amount by more than Tolerance, the
// difference becomes an additional tax percentage so it rides along
// proportionally:
//
//	additional = (base - customSum) / customSum * 100
//	share      = exact[p] * (1 + (tax + additional) / 100)
func Calculate(in Input) (*Result, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	res := &Result{
		FinalAmount:         in.BaseAmount * (1 + in.TaxPercent/100),
		EffectiveBase:       in.BaseAmount,
		EffectiveTaxPercent: in.TaxPercent,
		Splits:              make([]models.Split, 0, len(in.ParticipantIDs)),
	}

	switch in.Mode {
	case models.SplitModeEqual, "":
		share := res.FinalAmount / float64(len(in.ParticipantIDs))
		for _, p := range in.ParticipantIDs {
			res.Splits = append(res.Splits, models.Split{MemberID: p, Share: share})
		}

	case models.SplitModeExact:
		var customSum float64
		for _, p := range in.ParticipantIDs {
			customSum += in.ExactAmounts[p]
		}

		if math.Abs(customSum-in.BaseAmount) > Tolerance {
			res.AdditionalTaxPercent = (in.BaseAmount - customSum) / customSum * 100
			res.EffectiveTaxPercent = in.TaxPercent + res.AdditionalTaxPercent
			res.EffectiveBase = customSum
			res.Normalized = true
		}

		factor := 1 + res.EffectiveTaxPercent/100
		for _, p := range in.ParticipantIDs {
			res.Splits = append(res.Splits, models.Split{MemberID: p, Share: in.ExactAmounts[p] * factor})
		}
	}

	res.Contributions = buildContributions(in, res.Total())
	return res, nil
}

func validate(in Input) error {
	if math.IsNaN(in.BaseAmount) || math.IsInf(in.BaseAmount, 0) || in.BaseAmount <= 0 {
		return ErrInvalidAmount
	}
	if math.IsNaN(in.TaxPercent) || math.IsInf(in.TaxPercent, 0) || in.TaxPercent <= -100 {
		return fmt.Errorf("%w: tax percent %v", ErrInvalidAmount, in.TaxPercent)
	}
	if len(in.ParticipantIDs) == 0 {
		return ErrNoParticipants
	}

	seen := make(map[string]bool, len(in.ParticipantIDs))
	for _, p := range in.ParticipantIDs {
		if p == "" {
			return ErrNoParticipants
		}
		if seen[p] {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, p)
		}
		seen[p] = true
	}

	if len(in.Contributions) == 0 && in.PayerID == "" {
		return ErrNoPayer
	}
	for id, amount := range in.Contributions {
		if id == "" {
			return ErrNoPayer
		}
		if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
			return fmt.Errorf("%w: %s", ErrInvalidContribution, id)
		}
	}

	switch in.Mode {
	case models.SplitModeEqual, "":
	case models.SplitModeExact:
		var customSum float64
		for _, p := range in.ParticipantIDs {
			amount, ok := in.ExactAmounts[p]
			if !ok || amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
				return fmt.Errorf("%w: %s", ErrMissingExactAmount, p)
			}
			customSum += amount
		}
		if customSum <= 0 {
			return ErrInvalidExactAmounts
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, in.Mode)
	}

	return nil
}

// buildContributions lists participants first in input order, then any
// other contributors sorted by ID.
func buildContributions(in Input, total float64) []models.Contribution {
	if len(in.Contributions) == 0 {
		return []models.Contribution{{MemberID: in.PayerID, Amount: total}}
	}

	contributions := make([]models.Contribution, 0, len(in.Contributions))
	listed := make(map[string]bool, len(in.Contributions))
	for _, p := range in.ParticipantIDs {
		if amount, ok := in.Contributions[p]; ok && amount > 0 {
			contributions = append(contributions, models.Contribution{MemberID: p, Amount: amount})
		}
		listed[p] = true
	}

	var others []string
	for id, amount := range in.Contributions {
		if !listed[id] && amount > 0 {
			others = append(others, id)
		}
	}
	sort.Strings(others)
	for _, id := range others {
		contributions = append(contributions, models.Contribution{MemberID: id, Amount: in.Contributions[id]})
	}

	return contributions
}
