package models

// SplitMode selects how a bill's amount is divided among participants.
type SplitMode string

const (
	// SplitModeEqual divides the final amount equally.
	SplitModeEqual SplitMode = "equal"
	// SplitModeExact uses a custom pre-tax amount per participant.
	SplitModeExact SplitMode = "exact"
)

// Bill represents a single shared expense within a group.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// GroupID is the group that owns this bill.
	GroupID string

	// Title is the human-readable name for the bill.
	Title string

	// Amount is the base, pre-tax amount.
	Amount float64

	// Tax is the combined tax/fee percentage applied on top of Amount.
	Tax float64

	// Mode records how the splits were computed.
	Mode SplitMode

	// Contributions record how much each member actually paid.
	Contributions []Contribution

	// Splits record how much each member owes, tax included.
	Splits []Split

	// CreatedAt is the Unix timestamp when the bill was created.
	CreatedAt int64
}

// FinalAmount is the bill amount inflated by its tax percentage.
func (b *Bill) FinalAmount() float64 {
	return b.Amount * (1 + b.Tax/100)
}

// ContributionOf returns how much the member paid toward the bill.
func (b *Bill) ContributionOf(memberID string) float64 {
	var total float64
	for _, c := range b.Contributions {
		if c.MemberID == memberID {
			total += c.Amount
		}
	}
	return total
}

// FindSplit returns the split for the member, or nil.
func (b *Bill) FindSplit(memberID string) *Split {
	for i := range b.Splits {
		if b.Splits[i].MemberID == memberID {
			return &b.Splits[i]
		}
	}
	return nil
}

// References reports whether the member appears in any contribution or split.
func (b *Bill) References(memberID string) bool {
	for _, c := range b.Contributions {
		if c.MemberID == memberID {
			return true
		}
	}
	return b.FindSplit(memberID) != nil
}

// Contribution is how much a member actually paid toward a bill.
type Contribution struct {
	MemberID string
	Amount   float64
}

// Split is one member's computed share of a bill's final amount.
type Split struct {
	MemberID string

	// Share is tax-inclusive.
	Share float64

	// Settled is true once the member has paid their share back.
	Settled bool
}

// SplitEvent is an audit record of a split being marked or unmarked paid.
type SplitEvent struct {
	ID        string
	BillID    string
	MemberID  string
	Settled   bool
	Reason    string
	CreatedBy string
	CreatedAt int64
}
