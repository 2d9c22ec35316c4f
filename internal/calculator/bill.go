package calculator

import "github.com/mmynk/tabsplit/internal/models"

// negligible is the smallest owed amount still shown as a debt.
const negligible = 0.005

// BillStatus is where a bill is in its settlement lifecycle.
type BillStatus string

const (
	StatusDraft            BillStatus = "draft"
	StatusActive           BillStatus = "active"
	StatusPartiallySettled BillStatus = "partially_settled"
	StatusFullySettled     BillStatus = "fully_settled"
)

// Debt is one member's outstanding position on a bill.
type Debt struct {
	MemberID    string
	Share       float64
	Contributed float64
	Owed        float64
	Settled     bool
}

// Owed is what a member still owes after their own contribution.
func Owed(share, contributed float64) float64 {
	if contributed >= share {
		return 0
	}
	return share - contributed
}

// Outstanding is the "who owes" view of a bill: every split whose share is
// not covered by the member's contribution, settled or not.
func Outstanding(bill *models.Bill) []Debt {
	var debts []Debt
	for _, s := range bill.Splits {
		contributed := bill.ContributionOf(s.MemberID)
		owed := Owed(s.Share, contributed)
		if owed < negligible {
			continue
		}
		debts = append(debts, Debt{
			MemberID:    s.MemberID,
			Share:       s.Share,
			Contributed: contributed,
			Owed:        owed,
			Settled:     s.Settled,
		})
	}
	return debts
}

// Payers is the "who paid" view of a bill.
func Payers(bill *models.Bill) []models.Contribution {
	var payers []models.Contribution
	for _, c := range bill.Contributions {
		if c.Amount > 0 {
			payers = append(payers, c)
		}
	}
	return payers
}

// OwedBy returns what the member still has to pay on the bill.
// Settled splits owe nothing.
func OwedBy(bill *models.Bill, memberID string) float64 {
	s := bill.FindSplit(memberID)
	if s == nil || s.Settled {
		return 0
	}
	owed := Owed(s.Share, bill.ContributionOf(memberID))
	if owed < negligible {
		return 0
	}
	return owed
}

// Status derives the bill's lifecycle state from its splits.
// A bill nobody owes anything on is fully settled.
func Status(bill *models.Bill) BillStatus {
	if bill.ID == "" {
		return StatusDraft
	}

	debts := Outstanding(bill)
	settled := 0
	for _, d := range debts {
		if d.Settled {
			settled++
		}
	}

	switch {
	case settled == len(debts):
		return StatusFullySettled
	case settled == 0:
		return StatusActive
	default:
		return StatusPartiallySettled
	}
}
