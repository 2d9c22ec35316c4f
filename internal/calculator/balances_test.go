package calculator

import (
	"math"
	"testing"

	"github.com/mmynk/tabsplit/internal/models"
)

func threeWayBill() models.Bill {
	return models.Bill{
		ID:            "bill-1",
		Amount:        90,
		Contributions: []models.Contribution{{MemberID: "alice", Amount: 90}},
		Splits: []models.Split{
			{MemberID: "alice", Share: 30},
			{MemberID: "bob", Share: 30},
			{MemberID: "carol", Share: 30},
		},
	}
}

func balanceOf(t *testing.T, balances []MemberBalance, id string) MemberBalance {
	t.Helper()
	for _, b := range balances {
		if b.MemberID == id {
			return b
		}
	}
	t.Fatalf("no balance for %s", id)
	return MemberBalance{}
}

func TestCalculateGroupBalances(t *testing.T) {
	tests := []struct {
		name        string
		bills       func() []models.Bill
		settlements []models.Settlement
		wantNet     map[string]float64
		wantEdges   []DebtEdge
	}{
		{
			name:    "one payer, three-way split",
			bills:   func() []models.Bill { return []models.Bill{threeWayBill()} },
			wantNet: map[string]float64{"alice": 60, "bob": -30, "carol": -30},
			wantEdges: []DebtEdge{
				{From: "bob", To: "alice", Amount: 30},
				{From: "carol", To: "alice", Amount: 30},
			},
		},
		{
			name: "settled split clears that debt",
			bills: func() []models.Bill {
				b := threeWayBill()
				b.Splits[1].Settled = true
				return []models.Bill{b}
			},
			wantNet:   map[string]float64{"alice": 30, "bob": 0, "carol": -30},
			wantEdges: []DebtEdge{{From: "carol", To: "alice", Amount: 30}},
		},
		{
			name: "settlement record clears the rest",
			bills: func() []models.Bill {
				b := threeWayBill()
				b.Splits[1].Settled = true
				return []models.Bill{b}
			},
			settlements: []models.Settlement{{FromID: "carol", ToID: "alice", Amount: 30}},
			wantNet:     map[string]float64{"alice": 0, "bob": 0, "carol": 0},
		},
		{
			name: "debts across bills are simplified",
			bills: func() []models.Bill {
				return []models.Bill{
					{
						ID:            "b1",
						Contributions: []models.Contribution{{MemberID: "alice", Amount: 20}},
						Splits:        []models.Split{{MemberID: "bob", Share: 20}},
					},
					{
						ID:            "b2",
						Contributions: []models.Contribution{{MemberID: "bob", Amount: 20}},
						Splits:        []models.Split{{MemberID: "carol", Share: 20}},
					},
				}
			},
			wantNet:   map[string]float64{"alice": 20, "bob": 0, "carol": -20},
			wantEdges: []DebtEdge{{From: "carol", To: "alice", Amount: 20}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances, edges := CalculateGroupBalances(tt.bills(), tt.settlements)

			for id, want := range tt.wantNet {
				got := balanceOf(t, balances, id)
				if math.Abs(got.NetBalance-want) > 0.01 {
					t.Errorf("%s net = %v, want %v", id, got.NetBalance, want)
				}
			}

			if len(edges) != len(tt.wantEdges) {
				t.Fatalf("edges = %+v, want %+v", edges, tt.wantEdges)
			}
			for i, want := range tt.wantEdges {
				got := edges[i]
				if got.From != want.From || got.To != want.To || math.Abs(got.Amount-want.Amount) > 0.01 {
					t.Errorf("edge %d = %+v, want %+v", i, got, want)
				}
			}
		})
	}
}

func TestCalculateGroupBalances_SortedByMember(t *testing.T) {
	balances, _ := CalculateGroupBalances([]models.Bill{threeWayBill()}, nil)
	for i := 1; i < len(balances); i++ {
		if balances[i-1].MemberID > balances[i].MemberID {
			t.Fatalf("balances not sorted: %+v", balances)
		}
	}
}

func TestCalculateSpending(t *testing.T) {
	bills := []models.Bill{
		threeWayBill(),
		{
			ID:            "b2",
			Contributions: []models.Contribution{{MemberID: "bob", Amount: 50}},
			Splits:        []models.Split{{MemberID: "bob", Share: 25}, {MemberID: "carol", Share: 25}},
		},
	}

	spending := CalculateSpending(bills)
	if len(spending) != 3 {
		t.Fatalf("expected 3 members, got %d", len(spending))
	}
	// bob and carol both spent 55; ties break by ID
	if spending[0].MemberID != "bob" || math.Abs(spending[0].Spent-55) > 0.01 || spending[0].Bills != 2 {
		t.Errorf("unexpected top spender: %+v", spending[0])
	}
	if spending[2].MemberID != "alice" || math.Abs(spending[2].Spent-30) > 0.01 {
		t.Errorf("unexpected last spender: %+v", spending[2])
	}
}
