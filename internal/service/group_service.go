package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/tabsplit/internal/calculator"
	"github.com/mmynk/tabsplit/internal/middleware"
	"github.com/mmynk/tabsplit/internal/models"
	"github.com/mmynk/tabsplit/internal/reminder"
	"github.com/mmynk/tabsplit/internal/storage"
	"github.com/mmynk/tabsplit/pkg/api"
	"github.com/mmynk/tabsplit/pkg/api/apiconnect"
	"github.com/mmynk/tabsplit/pkg/currency"
)

const defaultCurrency = "USD"

var _ apiconnect.GroupServiceHandler = (*GroupService)(nil)

// GroupService manages groups, their members and settlements.
type GroupService struct {
	store     storage.Store
	scheduler reminder.Scheduler
	rates     currency.Rates
	logger    *slog.Logger
}

// NewGroupService creates a new GroupService with the given storage backend,
// the scheduler holding the group's reminders and exchange rates for display
// conversion.
func NewGroupService(store storage.Store, scheduler reminder.Scheduler, rates currency.Rates, logger *slog.Logger) *GroupService {
	return &GroupService{store: store, scheduler: scheduler, rates: rates, logger: logger}
}

// CreateGroup creates a group owned by the caller.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.GroupResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, invalidArgument("group name is required")
	}
	code, err := normalizeCurrency(req.Msg.Currency)
	if err != nil {
		return nil, err
	}
	members, err := newMembers(req.Msg.Members)
	if err != nil {
		return nil, err
	}

	group := &models.Group{
		OwnerID:       userID,
		Name:          name,
		Note:          req.Msg.Note,
		Currency:      code,
		TrackSpending: req.Msg.TrackSpending,
		Members:       members,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Group created", "group_id", group.ID, "members", len(group.Members))
	return connect.NewResponse(&api.GroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup returns a group with its bills and settlements.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	group, err := ownedGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	bills := make([]api.Bill, len(group.Bills))
	for i := range group.Bills {
		bills[i] = *toAPIBill(&group.Bills[i])
	}
	settlements := make([]api.Settlement, len(group.Settlements))
	for i := range group.Settlements {
		settlements[i] = toAPISettlement(&group.Settlements[i])
	}

	return connect.NewResponse(&api.GetGroupResponse{
		Group:       toAPIGroup(group),
		Bills:       bills,
		Settlements: settlements,
	}), nil
}

// ListGroups returns the caller's groups.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}

	groups, err := s.store.ListGroups(ctx, userID)
	if err != nil {
		s.logger.Error("ListGroups failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]api.Group, len(groups))
	for i, g := range groups {
		out[i] = *toAPIGroup(g)
	}
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// UpdateGroup applies the set fields and returns the updated group.
func (s *GroupService) UpdateGroup(ctx context.Context, req *connect.Request[api.UpdateGroupRequest]) (*connect.Response[api.GroupResponse], error) {
	if _, err := ownedGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, err
	}

	patch := models.GroupPatch{
		Note:          req.Msg.Note,
		TrackSpending: req.Msg.TrackSpending,
	}
	if req.Msg.Name != nil {
		name := strings.TrimSpace(*req.Msg.Name)
		if name == "" {
			return nil, invalidArgument("group name cannot be empty")
		}
		patch.Name = &name
	}
	if req.Msg.Currency != nil {
		code, err := normalizeCurrency(*req.Msg.Currency)
		if err != nil {
			return nil, err
		}
		patch.Currency = &code
	}

	if err := s.store.UpdateGroup(ctx, req.Msg.GroupID, patch); err != nil {
		s.logger.Error("UpdateGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	s.logger.Info("Group updated", "group_id", group.ID)
	return connect.NewResponse(&api.GroupResponse{Group: toAPIGroup(group)}), nil
}

// DeleteGroup removes a group with all its bills, settlements and reminders.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[emptypb.Empty], error) {
	if _, err := ownedGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, err
	}

	if err := s.store.DeleteGroup(ctx, req.Msg.GroupID); err != nil {
		s.logger.Error("DeleteGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	cancelGroupReminders(ctx, s.scheduler, s.logger, req.Msg.GroupID)

	s.logger.Info("Group deleted", "group_id", req.Msg.GroupID)
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// AddMembers appends members to a group.
func (s *GroupService) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error) {
	if _, err := ownedGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, err
	}
	if len(req.Msg.Members) == 0 {
		return nil, invalidArgument("at least one member is required")
	}
	members, err := newMembers(req.Msg.Members)
	if err != nil {
		return nil, err
	}

	added, err := s.store.AddMembers(ctx, req.Msg.GroupID, members)
	if err != nil {
		s.logger.Error("AddMembers failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]api.Member, len(added))
	for i, m := range added {
		out[i] = toAPIMember(m)
	}
	s.logger.Info("Members added", "group_id", req.Msg.GroupID, "count", len(added))
	return connect.NewResponse(&api.AddMembersResponse{Members: out}), nil
}

// ArchiveMember hides a member from new bills while keeping their history.
func (s *GroupService) ArchiveMember(ctx context.Context, req *connect.Request[api.ArchiveMemberRequest]) (*connect.Response[api.GroupResponse], error) {
	if _, err := ownedGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, err
	}

	if err := s.store.ArchiveMember(ctx, req.Msg.GroupID, req.Msg.MemberID, req.Msg.Archived); err != nil {
		return nil, toConnectError(err)
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	s.logger.Info("Member archive flag changed", "group_id", group.ID, "member_id", req.Msg.MemberID, "archived", req.Msg.Archived)
	return connect.NewResponse(&api.GroupResponse{Group: toAPIGroup(group)}), nil
}

// DeleteMember removes a member that no bill or settlement references.
func (s *GroupService) DeleteMember(ctx context.Context, req *connect.Request[api.DeleteMemberRequest]) (*connect.Response[emptypb.Empty], error) {
	if _, err := ownedGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, err
	}

	if err := s.store.DeleteMember(ctx, req.Msg.GroupID, req.Msg.MemberID); err != nil {
		if errors.Is(err, storage.ErrMemberInUse) {
			s.logger.Warn("DeleteMember blocked by history", "group_id", req.Msg.GroupID, "member_id", req.Msg.MemberID)
		}
		return nil, toConnectError(err)
	}

	s.logger.Info("Member deleted", "group_id", req.Msg.GroupID, "member_id", req.Msg.MemberID)
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// GetGroupBalances returns net balances and the simplified debts of a group.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	group, err := ownedGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	balances, debts := calculator.CalculateGroupBalances(group.Bills, group.Settlements)

	display, err := s.displayFormatter(ctx, group, req.Msg.DisplayCurrency)
	if err != nil {
		return nil, err
	}

	resp := &api.GetGroupBalancesResponse{
		Balances: make([]api.MemberBalance, len(balances)),
		Debts:    make([]api.DebtEdge, len(debts)),
	}
	for i, b := range balances {
		resp.Balances[i] = api.MemberBalance{
			MemberID:   b.MemberID,
			Name:       memberName(group, b.MemberID),
			NetBalance: b.NetBalance,
			TotalPaid:  b.TotalPaid,
			TotalOwed:  b.TotalOwed,
			Display:    display(b.NetBalance),
		}
	}
	for i, d := range debts {
		resp.Debts[i] = api.DebtEdge{
			FromID:  d.From,
			ToID:    d.To,
			Amount:  d.Amount,
			Display: display(d.Amount),
		}
	}

	s.logger.Debug("Calculated balances", "group_id", group.ID, "members", len(balances), "debts", len(debts))
	return connect.NewResponse(resp), nil
}

// GetGroupSpending returns what each member consumed, for groups tracking spending.
func (s *GroupService) GetGroupSpending(ctx context.Context, req *connect.Request[api.GetGroupSpendingRequest]) (*connect.Response[api.GetGroupSpendingResponse], error) {
	group, err := ownedGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.TrackSpending {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("spending tracking is disabled for this group"))
	}

	spending := calculator.CalculateSpending(group.Bills)
	resp := &api.GetGroupSpendingResponse{Spending: make([]api.MemberSpending, len(spending))}
	for i, ms := range spending {
		resp.Spending[i] = api.MemberSpending{
			MemberID: ms.MemberID,
			Name:     memberName(group, ms.MemberID),
			Spent:    ms.Spent,
			Bills:    ms.Bills,
		}
		resp.Total += ms.Spent
	}
	return connect.NewResponse(resp), nil
}

// RecordSettlement records a repayment between two members.
func (s *GroupService) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.SettlementResponse], error) {
	group, err := ownedGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	msg := req.Msg
	if math.IsNaN(msg.Amount) || math.IsInf(msg.Amount, 0) || msg.Amount <= 0 {
		return nil, toConnectError(calculator.ErrInvalidAmount)
	}
	if msg.FromID == msg.ToID {
		return nil, invalidArgument("a member cannot settle with themselves")
	}
	for _, id := range []string{msg.FromID, msg.ToID} {
		if group.FindMember(id) == nil {
			return nil, invalidArgument("unknown member %q", id)
		}
	}

	settlement := &models.Settlement{
		GroupID: group.ID,
		FromID:  msg.FromID,
		ToID:    msg.ToID,
		Amount:  msg.Amount,
		Note:    msg.Note,
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		s.logger.Error("RecordSettlement failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Settlement recorded",
		"group_id", group.ID,
		"settlement_id", settlement.ID,
		"from", settlement.FromID,
		"to", settlement.ToID,
		"amount", settlement.Amount,
	)
	out := toAPISettlement(settlement)
	return connect.NewResponse(&api.SettlementResponse{Settlement: &out}), nil
}

// ListSettlements returns a group's settlements, newest first.
func (s *GroupService) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	if _, err := ownedGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, err
	}

	settlements, err := s.store.ListSettlements(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]api.Settlement, len(settlements))
	for i := range settlements {
		out[i] = toAPISettlement(&settlements[i])
	}
	return connect.NewResponse(&api.ListSettlementsResponse{Settlements: out}), nil
}

// DeleteSettlement removes a settlement.
func (s *GroupService) DeleteSettlement(ctx context.Context, req *connect.Request[api.DeleteSettlementRequest]) (*connect.Response[emptypb.Empty], error) {
	if _, err := ownedGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, err
	}

	if err := s.store.DeleteSettlement(ctx, req.Msg.GroupID, req.Msg.SettlementID); err != nil {
		return nil, toConnectError(err)
	}

	s.logger.Info("Settlement deleted", "group_id", req.Msg.GroupID, "settlement_id", req.Msg.SettlementID)
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// displayFormatter formats group amounts, converted to code when it differs
// from the group currency.
func (s *GroupService) displayFormatter(ctx context.Context, group *models.Group, code string) (func(float64) string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == group.Currency {
		return func(amount float64) string { return formatAmount(amount, group) }, nil
	}
	if !currency.Valid(code) {
		return nil, invalidArgument("unknown currency %q", code)
	}

	rate, err := s.rates.Rate(ctx, group.Currency, code)
	if err != nil {
		if errors.Is(err, currency.ErrUnknownRate) {
			return nil, connect.NewError(connect.CodeFailedPrecondition, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return func(amount float64) string { return currency.Format(amount*rate, code) }, nil
}

func normalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return defaultCurrency, nil
	}
	if !currency.Valid(code) {
		return "", invalidArgument("unknown currency %q", code)
	}
	return code, nil
}

func newMembers(in []api.NewMember) ([]models.Member, error) {
	members := make([]models.Member, 0, len(in))
	for _, m := range in {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, invalidArgument("member name is required")
		}
		members = append(members, models.Member{Name: name, Contact: strings.TrimSpace(m.Contact)})
	}
	return members, nil
}
