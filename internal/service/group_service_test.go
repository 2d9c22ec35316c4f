package service

import (
	"context"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/tabsplit/pkg/api"
)

func TestCreateGroup(t *testing.T) {
	env := setupTestServer(t)

	resp, err := env.groups.CreateGroup(context.Background(), connect.NewRequest(&api.CreateGroupRequest{
		Name:    "  Ski Trip ",
		Note:    "February",
		Members: []api.NewMember{{Name: "Alice"}, {Name: "Bob", Contact: "bob@example.com"}},
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	group := resp.Msg.Group
	if group.ID == "" {
		t.Error("expected non-empty group ID")
	}
	if group.Name != "Ski Trip" {
		t.Errorf("name: expected 'Ski Trip', got %q", group.Name)
	}
	if group.Currency != "USD" {
		t.Errorf("currency: expected default USD, got %q", group.Currency)
	}
	if len(group.Members) != 2 || group.Members[1].Contact != "bob@example.com" {
		t.Errorf("unexpected members: %+v", group.Members)
	}
	if group.CreatedAt == 0 {
		t.Error("expected non-zero CreatedAt")
	}
}

func TestCreateGroup_Validation(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *api.CreateGroupRequest
	}{
		{"empty name", &api.CreateGroupRequest{Name: " "}},
		{"unknown currency", &api.CreateGroupRequest{Name: "Trip", Currency: "dollars"}},
		{"blank member", &api.CreateGroupRequest{Name: "Trip", Members: []api.NewMember{{Name: ""}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.groups.CreateGroup(ctx, connect.NewRequest(tt.req))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}
}

func TestGetAndListGroups(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, ids := env.createGroup(t, "Alice", "Bob")
	env.createBill(t, group.ID, api.SplitInput{
		Amount:         20,
		ParticipantIDs: []string{ids["Alice"], ids["Bob"]},
		PayerID:        ids["Alice"],
	})

	getResp, err := env.groups.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if getResp.Msg.Group.Name != "Roommates" {
		t.Errorf("name: expected Roommates, got %q", getResp.Msg.Group.Name)
	}
	if len(getResp.Msg.Bills) != 1 {
		t.Errorf("bills: expected 1, got %d", len(getResp.Msg.Bills))
	}

	env.createGroup(t, "Carol")
	listResp, err := env.groups.ListGroups(ctx, connect.NewRequest(&api.ListGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(listResp.Msg.Groups) != 2 {
		t.Errorf("groups: expected 2, got %d", len(listResp.Msg.Groups))
	}

	_, err = env.groups.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: "missing"}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestGroupOwnership(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, _ := env.createGroup(t, "Alice")

	env.login(t, "mallory@example.com")

	_, err := env.groups.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodePermissionDenied)

	_, err = env.groups.DeleteGroup(ctx, connect.NewRequest(&api.DeleteGroupRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodePermissionDenied)

	listResp, err := env.groups.ListGroups(ctx, connect.NewRequest(&api.ListGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(listResp.Msg.Groups) != 0 {
		t.Errorf("expected no groups for another user, got %d", len(listResp.Msg.Groups))
	}
}

func TestUpdateGroup(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, _ := env.createGroup(t, "Alice")

	name := "Flatmates"
	track := true
	eur := "eur"
	resp, err := env.groups.UpdateGroup(ctx, connect.NewRequest(&api.UpdateGroupRequest{
		GroupID:       group.ID,
		Name:          &name,
		Currency:      &eur,
		TrackSpending: &track,
	}))
	if err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}

	updated := resp.Msg.Group
	if updated.Name != "Flatmates" || updated.Currency != "EUR" || !updated.TrackSpending {
		t.Errorf("unexpected group after update: %+v", updated)
	}
	if len(updated.Members) != 1 {
		t.Errorf("members should be untouched, got %d", len(updated.Members))
	}

	empty := ""
	_, err = env.groups.UpdateGroup(ctx, connect.NewRequest(&api.UpdateGroupRequest{GroupID: group.ID, Name: &empty}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestDeleteGroup(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, _ := env.createGroup(t, "Alice")

	if _, err := env.groups.DeleteGroup(ctx, connect.NewRequest(&api.DeleteGroupRequest{GroupID: group.ID})); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	_, err := env.groups.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestMembers(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, ids := env.createGroup(t, "Alice", "Bob")

	addResp, err := env.groups.AddMembers(ctx, connect.NewRequest(&api.AddMembersRequest{
		GroupID: group.ID,
		Members: []api.NewMember{{Name: "Carol"}, {Name: "Dave"}},
	}))
	if err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}
	if len(addResp.Msg.Members) != 2 || addResp.Msg.Members[0].ID == "" {
		t.Fatalf("unexpected added members: %+v", addResp.Msg.Members)
	}
	carol := addResp.Msg.Members[0].ID
	dave := addResp.Msg.Members[1].ID

	env.createBill(t, group.ID, api.SplitInput{
		Amount:         30,
		ParticipantIDs: []string{ids["Alice"], ids["Bob"], carol},
		PayerID:        ids["Alice"],
	})

	t.Run("member with history cannot be deleted", func(t *testing.T) {
		_, err := env.groups.DeleteMember(ctx, connect.NewRequest(&api.DeleteMemberRequest{GroupID: group.ID, MemberID: carol}))
		assertCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("member without history can be deleted", func(t *testing.T) {
		if _, err := env.groups.DeleteMember(ctx, connect.NewRequest(&api.DeleteMemberRequest{GroupID: group.ID, MemberID: dave})); err != nil {
			t.Fatalf("DeleteMember failed: %v", err)
		}
	})

	t.Run("archived member is hidden from new bills", func(t *testing.T) {
		resp, err := env.groups.ArchiveMember(ctx, connect.NewRequest(&api.ArchiveMemberRequest{
			GroupID:  group.ID,
			MemberID: carol,
			Archived: true,
		}))
		if err != nil {
			t.Fatalf("ArchiveMember failed: %v", err)
		}
		if len(resp.Msg.Group.Members) != 3 {
			t.Errorf("members: expected 3 after deleting Dave, got %d", len(resp.Msg.Group.Members))
		}

		_, err = env.splits.CreateBill(ctx, connect.NewRequest(&api.CreateBillRequest{
			GroupID: group.ID,
			SplitInput: api.SplitInput{
				Amount:         10,
				ParticipantIDs: []string{ids["Alice"], carol},
				PayerID:        ids["Alice"],
			},
		}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("unknown member", func(t *testing.T) {
		_, err := env.groups.ArchiveMember(ctx, connect.NewRequest(&api.ArchiveMemberRequest{GroupID: group.ID, MemberID: "missing", Archived: true}))
		assertCode(t, err, connect.CodeNotFound)
	})
}

func TestGetGroupBalances(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, ids := env.createGroup(t, "Alice", "Bob", "Carol")
	alice, bob, carol := ids["Alice"], ids["Bob"], ids["Carol"]

	env.createBill(t, group.ID, api.SplitInput{
		Amount:         90,
		ParticipantIDs: []string{alice, bob, carol},
		PayerID:        alice,
	})

	balances := func() *api.GetGroupBalancesResponse {
		resp, err := env.groups.GetGroupBalances(ctx, connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: group.ID}))
		if err != nil {
			t.Fatalf("GetGroupBalances failed: %v", err)
		}
		return resp.Msg
	}
	net := func(resp *api.GetGroupBalancesResponse, memberID string) float64 {
		for _, b := range resp.Balances {
			if b.MemberID == memberID {
				return b.NetBalance
			}
		}
		return 0
	}

	resp := balances()
	if !approx(net(resp, alice), 60) || !approx(net(resp, bob), -30) || !approx(net(resp, carol), -30) {
		t.Errorf("unexpected balances: %+v", resp.Balances)
	}
	if len(resp.Debts) != 2 {
		t.Fatalf("debts: expected 2, got %+v", resp.Debts)
	}
	for _, d := range resp.Debts {
		if d.ToID != alice || !approx(d.Amount, 30) {
			t.Errorf("unexpected debt: %+v", d)
		}
		if !strings.HasSuffix(d.Display, "30.00") {
			t.Errorf("display: expected formatted 30.00, got %q", d.Display)
		}
	}
	for _, b := range resp.Balances {
		if b.Name == "" {
			t.Errorf("expected member name in balance %+v", b)
		}
	}

	if _, err := env.groups.RecordSettlement(ctx, connect.NewRequest(&api.RecordSettlementRequest{
		GroupID: group.ID,
		FromID:  bob,
		ToID:    alice,
		Amount:  30,
	})); err != nil {
		t.Fatalf("RecordSettlement failed: %v", err)
	}

	resp = balances()
	if !approx(net(resp, bob), 0) || !approx(net(resp, alice), 30) {
		t.Errorf("unexpected balances after settlement: %+v", resp.Balances)
	}
	if len(resp.Debts) != 1 || resp.Debts[0].FromID != carol {
		t.Errorf("expected only Carol to owe, got %+v", resp.Debts)
	}
}

func TestGetGroupBalances_DisplayCurrency(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, ids := env.createGroup(t, "Alice", "Bob")
	env.createBill(t, group.ID, api.SplitInput{
		Amount:         60,
		ParticipantIDs: []string{ids["Alice"], ids["Bob"]},
		PayerID:        ids["Alice"],
	})

	resp, err := env.groups.GetGroupBalances(ctx, connect.NewRequest(&api.GetGroupBalancesRequest{
		GroupID:         group.ID,
		DisplayCurrency: "EUR",
	}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	if len(resp.Msg.Debts) != 1 {
		t.Fatalf("debts: expected 1, got %d", len(resp.Msg.Debts))
	}
	debt := resp.Msg.Debts[0]
	if !approx(debt.Amount, 30) {
		t.Errorf("raw amount should stay in USD, got %v", debt.Amount)
	}
	if !strings.HasSuffix(debt.Display, "15.00") {
		t.Errorf("display: expected 15.00 EUR, got %q", debt.Display)
	}

	_, err = env.groups.GetGroupBalances(ctx, connect.NewRequest(&api.GetGroupBalancesRequest{
		GroupID:         group.ID,
		DisplayCurrency: "JPY",
	}))
	assertCode(t, err, connect.CodeFailedPrecondition)
}

func TestGetGroupSpending(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, ids := env.createGroup(t, "Alice", "Bob")
	env.createBill(t, group.ID, api.SplitInput{
		Amount:         100,
		TaxPercent:     10,
		ParticipantIDs: []string{ids["Alice"], ids["Bob"]},
		PayerID:        ids["Alice"],
	})

	_, err := env.groups.GetGroupSpending(ctx, connect.NewRequest(&api.GetGroupSpendingRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	track := true
	if _, err := env.groups.UpdateGroup(ctx, connect.NewRequest(&api.UpdateGroupRequest{GroupID: group.ID, TrackSpending: &track})); err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}

	resp, err := env.groups.GetGroupSpending(ctx, connect.NewRequest(&api.GetGroupSpendingRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroupSpending failed: %v", err)
	}
	if !approx(resp.Msg.Total, 110) {
		t.Errorf("total: expected 110, got %v", resp.Msg.Total)
	}
	for _, ms := range resp.Msg.Spending {
		if !approx(ms.Spent, 55) || ms.Bills != 1 {
			t.Errorf("unexpected spending: %+v", ms)
		}
	}
}

func TestSettlements(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	group, ids := env.createGroup(t, "Alice", "Bob")

	tests := []struct {
		name string
		req  *api.RecordSettlementRequest
	}{
		{"zero amount", &api.RecordSettlementRequest{GroupID: group.ID, FromID: ids["Bob"], ToID: ids["Alice"]}},
		{"same member", &api.RecordSettlementRequest{GroupID: group.ID, FromID: ids["Bob"], ToID: ids["Bob"], Amount: 5}},
		{"unknown member", &api.RecordSettlementRequest{GroupID: group.ID, FromID: "stranger", ToID: ids["Alice"], Amount: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.groups.RecordSettlement(ctx, connect.NewRequest(tt.req))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}

	created, err := env.groups.RecordSettlement(ctx, connect.NewRequest(&api.RecordSettlementRequest{
		GroupID: group.ID,
		FromID:  ids["Bob"],
		ToID:    ids["Alice"],
		Amount:  12.5,
		Note:    "cash",
	}))
	if err != nil {
		t.Fatalf("RecordSettlement failed: %v", err)
	}

	listResp, err := env.groups.ListSettlements(ctx, connect.NewRequest(&api.ListSettlementsRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(listResp.Msg.Settlements) != 1 || listResp.Msg.Settlements[0].Note != "cash" {
		t.Fatalf("unexpected settlements: %+v", listResp.Msg.Settlements)
	}

	if _, err := env.groups.DeleteSettlement(ctx, connect.NewRequest(&api.DeleteSettlementRequest{
		GroupID:      group.ID,
		SettlementID: created.Msg.Settlement.ID,
	})); err != nil {
		t.Fatalf("DeleteSettlement failed: %v", err)
	}

	_, err = env.groups.DeleteSettlement(ctx, connect.NewRequest(&api.DeleteSettlementRequest{
		GroupID:      group.ID,
		SettlementID: created.Msg.Settlement.ID,
	}))
	assertCode(t, err, connect.CodeNotFound)
}
