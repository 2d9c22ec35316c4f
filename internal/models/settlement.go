package models

// Settlement represents a repayment between group members outside of a bill.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// FromID is the member who paid (debtor settling up).
	FromID string

	// ToID is the member who received payment (creditor being paid).
	ToID string

	// Amount is the payment amount.
	Amount float64

	// Note is an optional description for the settlement.
	Note string

	// CreatedAt is the Unix timestamp of the repayment.
	CreatedAt int64
}
