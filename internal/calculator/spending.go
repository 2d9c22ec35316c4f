package calculator

import (
	"sort"

	"github.com/mmynk/tabsplit/internal/models"
)

// MemberSpending is how much of the group's bills a member consumed.
type MemberSpending struct {
	MemberID string
	Spent    float64
	Bills    int
}

// CalculateSpending sums each member's shares across bills, highest spender first.
func CalculateSpending(bills []models.Bill) []MemberSpending {
	totals := make(map[string]*MemberSpending)
	for _, bill := range bills {
		for _, s := range bill.Splits {
			ms, ok := totals[s.MemberID]
			if !ok {
				ms = &MemberSpending{MemberID: s.MemberID}
				totals[s.MemberID] = ms
			}
			ms.Spent += s.Share
			ms.Bills++
		}
	}

	spending := make([]MemberSpending, 0, len(totals))
	for _, ms := range totals {
		spending = append(spending, *ms)
	}
	sort.Slice(spending, func(i, j int) bool {
		if spending[i].Spent != spending[j].Spent {
			return spending[i].Spent > spending[j].Spent
		}
		return spending[i].MemberID < spending[j].MemberID
	})
	return spending
}
