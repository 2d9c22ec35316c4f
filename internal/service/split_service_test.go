package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/tabsplit/internal/calculator"
	"github.com/mmynk/tabsplit/pkg/api"
)

func TestCalculateSplit(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name           string
		input          api.SplitInput
		wantFinal      float64
		wantShares     map[string]float64
		wantNormalized bool
	}{
		{
			name: "equal split with tax",
			input: api.SplitInput{
				Amount:         100,
				TaxPercent:     10,
				ParticipantIDs: []string{"A", "B"},
				PayerID:        "A",
			},
			wantFinal:  110,
			wantShares: map[string]float64{"A": 55, "B": 55},
		},
		{
			name: "exact amounts matching the base",
			input: api.SplitInput{
				Amount:         100,
				TaxPercent:     10,
				ParticipantIDs: []string{"A", "B"},
				Mode:           "exact",
				ExactAmounts:   map[string]float64{"A": 30, "B": 70},
				PayerID:        "B",
			},
			wantFinal:  110,
			wantShares: map[string]float64{"A": 33, "B": 77},
		},
		{
			name: "exact amounts short of the base are normalized",
			input: api.SplitInput{
				Amount:         100,
				ParticipantIDs: []string{"A", "B"},
				Mode:           "exact",
				ExactAmounts:   map[string]float64{"A": 40, "B": 50},
				PayerID:        "A",
			},
			wantFinal:      100,
			wantShares:     map[string]float64{"A": 44.44, "B": 55.56},
			wantNormalized: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.splits.CalculateSplit(ctx, connect.NewRequest(&api.CalculateSplitRequest{SplitInput: tt.input}))
			if err != nil {
				t.Fatalf("CalculateSplit failed: %v", err)
			}

			if !approx(resp.Msg.FinalAmount, tt.wantFinal) {
				t.Errorf("final amount: expected %.2f, got %.2f", tt.wantFinal, resp.Msg.FinalAmount)
			}
			if resp.Msg.Normalized != tt.wantNormalized {
				t.Errorf("normalized: expected %v, got %v", tt.wantNormalized, resp.Msg.Normalized)
			}
			for _, s := range resp.Msg.Splits {
				if !approx(s.Share, tt.wantShares[s.MemberID]) {
					t.Errorf("%s share: expected %.2f, got %.2f", s.MemberID, tt.wantShares[s.MemberID], s.Share)
				}
			}
			if len(resp.Msg.Contributions) != 1 || !approx(resp.Msg.Contributions[0].Amount, resp.Msg.Total) {
				t.Errorf("expected payer to contribute the total, got %+v", resp.Msg.Contributions)
			}
		})
	}
}

func TestCalculateSplit_ValidationErrors(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input api.SplitInput
	}{
		{"zero amount", api.SplitInput{Amount: 0, ParticipantIDs: []string{"A"}, PayerID: "A"}},
		{"no participants", api.SplitInput{Amount: 10, PayerID: "A"}},
		{"no payer", api.SplitInput{Amount: 10, ParticipantIDs: []string{"A"}}},
		{"missing exact amount", api.SplitInput{Amount: 10, ParticipantIDs: []string{"A", "B"}, Mode: "exact", ExactAmounts: map[string]float64{"A": 10}, PayerID: "A"}},
		{"unknown mode", api.SplitInput{Amount: 10, ParticipantIDs: []string{"A"}, Mode: "shares", PayerID: "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.splits.CalculateSplit(ctx, connect.NewRequest(&api.CalculateSplitRequest{SplitInput: tt.input}))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}
}

func TestCreateBill(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, ids := env.createGroup(t, "Alice", "Bob")
	alice, bob := ids["Alice"], ids["Bob"]

	created := env.createBill(t, group.ID, api.SplitInput{
		Amount:         100,
		TaxPercent:     10,
		ParticipantIDs: []string{alice, bob},
		PayerID:        alice,
	})

	bill := created.Bill
	if bill.ID == "" {
		t.Fatal("expected bill ID")
	}
	if bill.Mode != "equal" {
		t.Errorf("mode: expected equal, got %q", bill.Mode)
	}
	if !approx(bill.FinalAmount, 110) {
		t.Errorf("final amount: expected 110, got %.2f", bill.FinalAmount)
	}
	if bill.Status != string(calculator.StatusActive) {
		t.Errorf("status: expected active, got %q", bill.Status)
	}
	if s := splitOf(t, bill, alice); s.Owed != 0 {
		t.Errorf("payer should owe nothing, got %.2f", s.Owed)
	}
	if s := splitOf(t, bill, bob); !approx(s.Owed, 55) {
		t.Errorf("Bob owed: expected 55, got %.2f", s.Owed)
	}

	got, err := env.splits.GetBill(ctx, connect.NewRequest(&api.GetBillRequest{GroupID: group.ID, BillID: bill.ID}))
	if err != nil {
		t.Fatalf("GetBill failed: %v", err)
	}
	if got.Msg.Bill.Title != "Groceries" || len(got.Msg.Bill.Splits) != 2 {
		t.Errorf("unexpected bill: %+v", got.Msg.Bill)
	}
}

func TestCreateBill_NormalizedKeepsSharesAndTotalConsistent(t *testing.T) {
	env := setupTestServer(t)

	group, ids := env.createGroup(t, "Alice", "Bob")
	alice, bob := ids["Alice"], ids["Bob"]

	created := env.createBill(t, group.ID, api.SplitInput{
		Amount:         100,
		ParticipantIDs: []string{alice, bob},
		Mode:           "exact",
		ExactAmounts:   map[string]float64{alice: 40, bob: 50},
		PayerID:        alice,
	})

	if !created.Normalized || !approx(created.AdditionalTaxPercent, 11.11) {
		t.Errorf("expected normalization with 11.11%% extra, got %v %.2f", created.Normalized, created.AdditionalTaxPercent)
	}

	bill := created.Bill
	if !approx(bill.Amount, 90) || !approx(bill.TaxPercent, 11.11) {
		t.Errorf("stored base/tax: expected 90/11.11, got %.2f/%.2f", bill.Amount, bill.TaxPercent)
	}

	var sum float64
	for _, s := range bill.Splits {
		sum += s.Share
	}
	if !approx(sum, bill.FinalAmount) || !approx(sum, 100) {
		t.Errorf("shares sum %.2f, final amount %.2f, want 100", sum, bill.FinalAmount)
	}
}

func TestCreateBill_Validation(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, ids := env.createGroup(t, "Alice", "Bob")

	tests := []struct {
		name  string
		input api.SplitInput
	}{
		{"no participants", api.SplitInput{Amount: 10, PayerID: ids["Alice"]}},
		{"participant outside group", api.SplitInput{Amount: 10, ParticipantIDs: []string{ids["Alice"], "stranger"}, PayerID: ids["Alice"]}},
		{"payer outside group", api.SplitInput{Amount: 10, ParticipantIDs: []string{ids["Alice"]}, PayerID: "stranger"}},
		{"contributor outside group", api.SplitInput{Amount: 10, ParticipantIDs: []string{ids["Alice"]}, Contributions: map[string]float64{"stranger": 10}}},
		{"negative amount", api.SplitInput{Amount: -5, ParticipantIDs: []string{ids["Alice"]}, PayerID: ids["Alice"]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.splits.CreateBill(ctx, connect.NewRequest(&api.CreateBillRequest{GroupID: group.ID, SplitInput: tt.input}))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}

	listResp, err := env.splits.ListBills(ctx, connect.NewRequest(&api.ListBillsRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("ListBills failed: %v", err)
	}
	if len(listResp.Msg.Bills) != 0 {
		t.Errorf("rejected bills must not be persisted, got %d", len(listResp.Msg.Bills))
	}
}

func TestCreateBill_MultipleContributors(t *testing.T) {
	env := setupTestServer(t)

	group, ids := env.createGroup(t, "Alice", "Bob", "Carol")
	alice, bob, carol := ids["Alice"], ids["Bob"], ids["Carol"]

	created := env.createBill(t, group.ID, api.SplitInput{
		Amount:         90,
		ParticipantIDs: []string{alice, bob, carol},
		Contributions:  map[string]float64{alice: 60, bob: 30},
	})

	bill := created.Bill
	if len(bill.Contributions) != 2 {
		t.Fatalf("contributions: expected 2, got %+v", bill.Contributions)
	}
	if s := splitOf(t, bill, bob); s.Owed != 0 {
		t.Errorf("Bob covered his share, owed %.2f", s.Owed)
	}
	if s := splitOf(t, bill, carol); !approx(s.Owed, 30) {
		t.Errorf("Carol owed: expected 30, got %.2f", s.Owed)
	}
}

func TestUpdateBill(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, ids := env.createGroup(t, "Alice", "Bob", "Carol")
	alice, bob, carol := ids["Alice"], ids["Bob"], ids["Carol"]

	created := env.createBill(t, group.ID, api.SplitInput{
		Amount:         60,
		ParticipantIDs: []string{alice, bob},
		PayerID:        alice,
	})

	resp, err := env.splits.UpdateBill(ctx, connect.NewRequest(&api.UpdateBillRequest{
		GroupID: group.ID,
		BillID:  created.Bill.ID,
		Title:   "Dinner",
		SplitInput: api.SplitInput{
			Amount:         90,
			ParticipantIDs: []string{alice, bob, carol},
			PayerID:        bob,
		},
	}))
	if err != nil {
		t.Fatalf("UpdateBill failed: %v", err)
	}

	bill := resp.Msg.Bill
	if bill.Title != "Dinner" || len(bill.Splits) != 3 || bill.CreatedAt != created.Bill.CreatedAt {
		t.Errorf("unexpected updated bill: %+v", bill)
	}
	if s := splitOf(t, bill, carol); !approx(s.Share, 30) {
		t.Errorf("Carol share: expected 30, got %.2f", s.Share)
	}

	if _, err := env.splits.MarkSplitPaid(ctx, connect.NewRequest(&api.MarkSplitPaidRequest{
		GroupID:  group.ID,
		BillID:   bill.ID,
		MemberID: carol,
	})); err != nil {
		t.Fatalf("MarkSplitPaid failed: %v", err)
	}

	_, err = env.splits.UpdateBill(ctx, connect.NewRequest(&api.UpdateBillRequest{
		GroupID: group.ID,
		BillID:  bill.ID,
		SplitInput: api.SplitInput{
			Amount:         10,
			ParticipantIDs: []string{alice},
			PayerID:        alice,
		},
	}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	_, err = env.splits.UpdateBill(ctx, connect.NewRequest(&api.UpdateBillRequest{
		GroupID:    group.ID,
		BillID:     "missing",
		SplitInput: api.SplitInput{Amount: 10, ParticipantIDs: []string{alice}, PayerID: alice},
	}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestSettlementLifecycle(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, ids := env.createGroup(t, "Alice", "Bob", "Carol")
	alice, bob, carol := ids["Alice"], ids["Bob"], ids["Carol"]

	bill := env.createBill(t, group.ID, api.SplitInput{
		Amount:         90,
		ParticipantIDs: []string{alice, bob, carol},
		PayerID:        alice,
	}).Bill

	mark := func(memberID string) *api.Bill {
		t.Helper()
		resp, err := env.splits.MarkSplitPaid(ctx, connect.NewRequest(&api.MarkSplitPaidRequest{
			GroupID:  group.ID,
			BillID:   bill.ID,
			MemberID: memberID,
		}))
		if err != nil {
			t.Fatalf("MarkSplitPaid failed: %v", err)
		}
		return resp.Msg.Bill
	}

	if got := mark(bob).Status; got != string(calculator.StatusPartiallySettled) {
		t.Errorf("after Bob pays: expected partially_settled, got %q", got)
	}

	// Marking twice records nothing new
	mark(bob)

	if got := mark(carol).Status; got != string(calculator.StatusFullySettled) {
		t.Errorf("after Carol pays: expected fully_settled, got %q", got)
	}

	_, err := env.splits.UnmarkSplitPaid(ctx, connect.NewRequest(&api.UnmarkSplitPaidRequest{
		GroupID:  group.ID,
		BillID:   bill.ID,
		MemberID: carol,
	}))
	assertCode(t, err, connect.CodeInvalidArgument)

	resp, err := env.splits.UnmarkSplitPaid(ctx, connect.NewRequest(&api.UnmarkSplitPaidRequest{
		GroupID:  group.ID,
		BillID:   bill.ID,
		MemberID: carol,
		Reason:   "transfer bounced",
	}))
	if err != nil {
		t.Fatalf("UnmarkSplitPaid failed: %v", err)
	}
	if resp.Msg.Bill.Status != string(calculator.StatusPartiallySettled) {
		t.Errorf("after unmark: expected partially_settled, got %q", resp.Msg.Bill.Status)
	}

	_, err = env.splits.UnmarkSplitPaid(ctx, connect.NewRequest(&api.UnmarkSplitPaidRequest{
		GroupID:  group.ID,
		BillID:   bill.ID,
		MemberID: carol,
		Reason:   "again",
	}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	_, err = env.splits.MarkSplitPaid(ctx, connect.NewRequest(&api.MarkSplitPaidRequest{
		GroupID:  group.ID,
		BillID:   bill.ID,
		MemberID: "stranger",
	}))
	assertCode(t, err, connect.CodeNotFound)

	events, err := env.splits.ListSplitEvents(ctx, connect.NewRequest(&api.ListSplitEventsRequest{GroupID: group.ID, BillID: bill.ID}))
	if err != nil {
		t.Fatalf("ListSplitEvents failed: %v", err)
	}
	if len(events.Msg.Events) != 3 {
		t.Fatalf("events: expected 3, got %+v", events.Msg.Events)
	}
	last := events.Msg.Events[2]
	if last.MemberID != carol || last.Settled || last.Reason != "transfer bounced" || last.CreatedBy == "" {
		t.Errorf("unexpected unmark event: %+v", last)
	}
}

func TestDeleteBill(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, ids := env.createGroup(t, "Alice", "Bob")
	bill := env.createBill(t, group.ID, api.SplitInput{
		Amount:         20,
		ParticipantIDs: []string{ids["Alice"], ids["Bob"]},
		PayerID:        ids["Alice"],
	}).Bill

	if _, err := env.reminders.ScheduleReminder(ctx, connect.NewRequest(&api.ScheduleReminderRequest{
		GroupID:  group.ID,
		BillID:   bill.ID,
		MemberID: ids["Bob"],
		Hour:     9,
	})); err != nil {
		t.Fatalf("ScheduleReminder failed: %v", err)
	}

	if _, err := env.splits.DeleteBill(ctx, connect.NewRequest(&api.DeleteBillRequest{GroupID: group.ID, BillID: bill.ID})); err != nil {
		t.Fatalf("DeleteBill failed: %v", err)
	}

	_, err := env.splits.GetBill(ctx, connect.NewRequest(&api.GetBillRequest{GroupID: group.ID, BillID: bill.ID}))
	assertCode(t, err, connect.CodeNotFound)

	reminders, _ := env.scheduler.List(ctx)
	if len(reminders) != 0 {
		t.Errorf("expected reminders of a deleted bill to be cancelled, got %+v", reminders)
	}

	// Bob has no history left and can now be deleted
	if _, err := env.groups.DeleteMember(ctx, connect.NewRequest(&api.DeleteMemberRequest{GroupID: group.ID, MemberID: ids["Bob"]})); err != nil {
		t.Errorf("DeleteMember after bill deletion failed: %v", err)
	}
}
