package calculator

import (
	"sort"

	"github.com/mmynk/tabsplit/internal/models"
)

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	MemberID   string
	NetBalance float64 // Positive = owed money, Negative = owes money
	TotalPaid  float64 // Contributions, repaid splits and settlements sent
	TotalOwed  float64 // Shares, repayments and settlements received
}

// DebtEdge represents a debt from one member to another.
type DebtEdge struct {
	From   string // Member who owes
	To     string // Member who is owed
	Amount float64
}

// CalculateGroupBalances computes balances across a group's bills and settlements.
//
// Algorithm:
//   - For each bill: contributors are credited what they paid, every split
//     member is debited their share
//   - A settled split counts as the member repaying what they owed to the
//     bill's over-contributors, in proportion to how much each overpaid
//   - For each settlement: sender's balance improves, receiver's decreases
//   - net_balance = total_paid - total_owed
//   - Debts are simplified by greedily matching largest debtor with largest creditor
func CalculateGroupBalances(bills []models.Bill, settlements []models.Settlement) ([]MemberBalance, []DebtEdge) {
	balances := make(map[string]*MemberBalance)
	get := func(id string) *MemberBalance {
		if _, exists := balances[id]; !exists {
			balances[id] = &MemberBalance{MemberID: id}
		}
		return balances[id]
	}

	for i := range bills {
		bill := &bills[i]

		for _, c := range bill.Contributions {
			get(c.MemberID).TotalPaid += c.Amount
		}
		for _, s := range bill.Splits {
			get(s.MemberID).TotalOwed += s.Share
		}

		applySettledSplits(bill, get)
	}

	for _, s := range settlements {
		get(s.FromID).TotalPaid += s.Amount
		get(s.ToID).TotalOwed += s.Amount
	}

	memberBalances := make([]MemberBalance, 0, len(balances))
	for _, bal := range balances {
		bal.NetBalance = bal.TotalPaid - bal.TotalOwed
		memberBalances = append(memberBalances, *bal)
	}
	sort.Slice(memberBalances, func(i, j int) bool {
		return memberBalances[i].MemberID < memberBalances[j].MemberID
	})

	return memberBalances, simplifyDebts(memberBalances)
}

// applySettledSplits credits members whose split is marked paid and debits
// the bill's creditors by the same amount.
func applySettledSplits(bill *models.Bill, get func(string) *MemberBalance) {
	excess := make(map[string]float64)
	var totalExcess float64
	for _, c := range bill.Contributions {
		over := c.Amount - shareOf(bill, c.MemberID)
		if over > 0 {
			excess[c.MemberID] += over
			totalExcess += over
		}
	}
	if totalExcess == 0 {
		return
	}

	for _, d := range Outstanding(bill) {
		if !d.Settled {
			continue
		}
		get(d.MemberID).TotalPaid += d.Owed
		for creditor, over := range excess {
			get(creditor).TotalOwed += d.Owed * over / totalExcess
		}
	}
}

func shareOf(bill *models.Bill, memberID string) float64 {
	if s := bill.FindSplit(memberID); s != nil {
		return s.Share
	}
	return 0
}

// simplifyDebts matches debtors with creditors to minimize transactions.
func simplifyDebts(balances []MemberBalance) []DebtEdge {
	var creditors, debtors []MemberBalance
	for _, bal := range balances {
		if bal.NetBalance > Tolerance {
			creditors = append(creditors, bal)
		} else if bal.NetBalance < -Tolerance {
			debtors = append(debtors, bal)
		}
	}

	// Largest amounts first, ties by ID so output is stable
	sort.Slice(creditors, func(i, j int) bool {
		if creditors[i].NetBalance != creditors[j].NetBalance {
			return creditors[i].NetBalance > creditors[j].NetBalance
		}
		return creditors[i].MemberID < creditors[j].MemberID
	})
	sort.Slice(debtors, func(i, j int) bool {
		if debtors[i].NetBalance != debtors[j].NetBalance {
			return debtors[i].NetBalance < debtors[j].NetBalance
		}
		return debtors[i].MemberID < debtors[j].MemberID
	})

	debtorBalance := make(map[string]float64, len(debtors))
	creditorBalance := make(map[string]float64, len(creditors))
	for _, debtor := range debtors {
		debtorBalance[debtor.MemberID] = -debtor.NetBalance
	}
	for _, creditor := range creditors {
		creditorBalance[creditor.MemberID] = creditor.NetBalance
	}

	var debtEdges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := debtors[i].MemberID
		creditor := creditors[j].MemberID

		amount := debtorBalance[debtor]
		if creditorBalance[creditor] < amount {
			amount = creditorBalance[creditor]
		}

		if amount > Tolerance { // Avoid floating point noise
			debtEdges = append(debtEdges, DebtEdge{From: debtor, To: creditor, Amount: amount})
		}

		debtorBalance[debtor] -= amount
		creditorBalance[creditor] -= amount

		if debtorBalance[debtor] < Tolerance {
			i++
		}
		if creditorBalance[creditor] < Tolerance {
			j++
		}
	}

	return debtEdges
}
