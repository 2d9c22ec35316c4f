package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/tabsplit/internal/calculator"
	"github.com/mmynk/tabsplit/internal/metrics"
	"github.com/mmynk/tabsplit/internal/middleware"
	"github.com/mmynk/tabsplit/internal/models"
	"github.com/mmynk/tabsplit/internal/reminder"
	"github.com/mmynk/tabsplit/internal/storage"
	"github.com/mmynk/tabsplit/pkg/api"
	"github.com/mmynk/tabsplit/pkg/api/apiconnect"
)

var (
	errBillSettled = errors.New("bill has paid splits; unmark them before editing")
	errNotSettled  = errors.New("split is not marked paid")
)

var _ apiconnect.SplitServiceHandler = (*SplitService)(nil)

// SplitService computes bill splits and manages bills and their settlement.
type SplitService struct {
	store     storage.Store
	scheduler reminder.Scheduler
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewSplitService creates a new SplitService. Reminders of a member are
// cancelled through scheduler once their split is paid.
func NewSplitService(store storage.Store, scheduler reminder.Scheduler, m *metrics.Metrics, logger *slog.Logger) *SplitService {
	return &SplitService{
		store:     store,
		scheduler: scheduler,
		metrics:   m,
		logger:    logger,
	}
}

// CalculateSplit previews a split without persisting anything.
func (s *SplitService) CalculateSplit(ctx context.Context, req *connect.Request[api.CalculateSplitRequest]) (*connect.Response[api.CalculateSplitResponse], error) {
	res, err := calculator.Calculate(toCalculatorInput(req.Msg.SplitInput))
	if err != nil {
		s.logger.Debug("CalculateSplit rejected", "error", err)
		return nil, toConnectError(err)
	}

	contributed := contributionLookup(res.Contributions)
	contributions := make([]api.Contribution, len(res.Contributions))
	for i, c := range res.Contributions {
		contributions[i] = api.Contribution{MemberID: c.MemberID, Amount: c.Amount}
	}

	return connect.NewResponse(&api.CalculateSplitResponse{
		FinalAmount:          res.FinalAmount,
		EffectiveBase:        res.EffectiveBase,
		EffectiveTaxPercent:  res.EffectiveTaxPercent,
		Normalized:           res.Normalized,
		AdditionalTaxPercent: res.AdditionalTaxPercent,
		Total:                res.Total(),
		Splits:               toAPISplits(res.Splits, contributed),
		Contributions:        contributions,
	}), nil
}

// CreateBill splits a bill and persists it with its contributions and splits
// in a single write.
func (s *SplitService) CreateBill(ctx context.Context, req *connect.Request[api.CreateBillRequest]) (*connect.Response[api.BillResponse], error) {
	group, err := ownedGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	bill := &models.Bill{
		GroupID: group.ID,
		Title:   strings.TrimSpace(req.Msg.Title),
	}
	res, err := s.split(group, bill, req.Msg.SplitInput)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateBill(ctx, bill); err != nil {
		s.logger.Error("CreateBill failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}
	s.metrics.BillSplit(string(bill.Mode), res.Normalized)

	s.logger.Info("Bill created",
		"group_id", group.ID,
		"bill_id", bill.ID,
		"mode", bill.Mode,
		"final_amount", bill.FinalAmount(),
		"normalized", res.Normalized,
	)
	return connect.NewResponse(billResponse(bill, res)), nil
}

// GetBill returns one bill.
func (s *SplitService) GetBill(ctx context.Context, req *connect.Request[api.GetBillRequest]) (*connect.Response[api.BillResponse], error) {
	if _, err := ownedGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, err
	}

	bill, err := s.store.GetBill(ctx, req.Msg.GroupID, req.Msg.BillID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.BillResponse{Bill: toAPIBill(bill)}), nil
}

// UpdateBill recomputes a bill from new inputs. Bills with paid splits are
// immutable until those splits are unmarked.
func (s *SplitService) UpdateBill(ctx context.Context, req *connect.Request[api.UpdateBillRequest]) (*connect.Response[api.BillResponse], error) {
	group, err := ownedGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	bill, err := s.store.GetBill(ctx, group.ID, req.Msg.BillID)
	if err != nil {
		return nil, toConnectError(err)
	}
	for _, split := range bill.Splits {
		if split.Settled {
			return nil, connect.NewError(connect.CodeFailedPrecondition, errBillSettled)
		}
	}

	if title := strings.TrimSpace(req.Msg.Title); title != "" {
		bill.Title = title
	}
	res, err := s.split(group, bill, req.Msg.SplitInput)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateBill(ctx, bill); err != nil {
		s.logger.Error("UpdateBill failed", "bill_id", bill.ID, "error", err)
		return nil, toConnectError(err)
	}
	s.metrics.BillSplit(string(bill.Mode), res.Normalized)
	s.refreshReminders(ctx, group, bill)

	s.logger.Info("Bill updated", "group_id", group.ID, "bill_id", bill.ID, "normalized", res.Normalized)
	return connect.NewResponse(billResponse(bill, res)), nil
}

// DeleteBill removes a bill and cancels its reminders.
func (s *SplitService) DeleteBill(ctx context.Context, req *connect.Request[api.DeleteBillRequest]) (*connect.Response[emptypb.Empty], error) {
	if _, err := ownedGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, err
	}

	bill, err := s.store.GetBill(ctx, req.Msg.GroupID, req.Msg.BillID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := s.store.DeleteBill(ctx, bill.GroupID, bill.ID); err != nil {
		s.logger.Error("DeleteBill failed", "bill_id", bill.ID, "error", err)
		return nil, toConnectError(err)
	}

	for _, split := range bill.Splits {
		s.cancelReminder(ctx, bill, split.MemberID)
	}

	s.logger.Info("Bill deleted", "group_id", bill.GroupID, "bill_id", bill.ID)
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// ListBills returns a group's bills, newest first.
func (s *SplitService) ListBills(ctx context.Context, req *connect.Request[api.ListBillsRequest]) (*connect.Response[api.ListBillsResponse], error) {
	if _, err := ownedGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, err
	}

	bills, err := s.store.ListBills(ctx, req.Msg.GroupID)
	if err != nil {
		s.logger.Error("ListBills failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]api.Bill, len(bills))
	for i := range bills {
		out[i] = *toAPIBill(&bills[i])
	}
	return connect.NewResponse(&api.ListBillsResponse{Bills: out}), nil
}

// MarkSplitPaid records that a member paid back their share. Marking an
// already paid split is a no-op.
func (s *SplitService) MarkSplitPaid(ctx context.Context, req *connect.Request[api.MarkSplitPaidRequest]) (*connect.Response[api.BillResponse], error) {
	bill, split, err := s.findSplit(ctx, req.Msg.GroupID, req.Msg.BillID, req.Msg.MemberID)
	if err != nil {
		return nil, err
	}
	if split.Settled {
		return connect.NewResponse(&api.BillResponse{Bill: toAPIBill(bill)}), nil
	}

	return s.setSettled(ctx, bill, split.MemberID, true, strings.TrimSpace(req.Msg.Reason))
}

// UnmarkSplitPaid reopens a paid split. The reason is kept in the split audit log.
func (s *SplitService) UnmarkSplitPaid(ctx context.Context, req *connect.Request[api.UnmarkSplitPaidRequest]) (*connect.Response[api.BillResponse], error) {
	reason := strings.TrimSpace(req.Msg.Reason)
	if reason == "" {
		return nil, invalidArgument("a reason is required to unmark a paid split")
	}

	bill, split, err := s.findSplit(ctx, req.Msg.GroupID, req.Msg.BillID, req.Msg.MemberID)
	if err != nil {
		return nil, err
	}
	if !split.Settled {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errNotSettled)
	}

	return s.setSettled(ctx, bill, split.MemberID, false, reason)
}

// ListSplitEvents returns the paid/unpaid history of a bill, oldest first.
func (s *SplitService) ListSplitEvents(ctx context.Context, req *connect.Request[api.ListSplitEventsRequest]) (*connect.Response[api.ListSplitEventsResponse], error) {
	if _, err := ownedGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetBill(ctx, req.Msg.GroupID, req.Msg.BillID); err != nil {
		return nil, toConnectError(err)
	}

	events, err := s.store.ListSplitEvents(ctx, req.Msg.BillID)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]api.SplitEvent, len(events))
	for i, e := range events {
		out[i] = api.SplitEvent{
			ID:        e.ID,
			MemberID:  e.MemberID,
			Settled:   e.Settled,
			Reason:    e.Reason,
			CreatedBy: e.CreatedBy,
			CreatedAt: e.CreatedAt,
		}
	}
	return connect.NewResponse(&api.ListSplitEventsResponse{Events: out}), nil
}

// split validates the input against the group's members, runs the
// calculator and stores the result on bill. The bill keeps the effective
// base and tax so that its final amount equals the sum of its shares.
func (s *SplitService) split(group *models.Group, bill *models.Bill, in api.SplitInput) (*calculator.Result, error) {
	if err := checkMembers(group, in); err != nil {
		return nil, err
	}

	res, err := calculator.Calculate(toCalculatorInput(in))
	if err != nil {
		s.logger.Debug("Split rejected", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	bill.Amount = res.EffectiveBase
	bill.Tax = res.EffectiveTaxPercent
	bill.Mode = modeOf(in.Mode)
	bill.Contributions = res.Contributions
	bill.Splits = res.Splits

	if res.Normalized {
		s.logger.Info("Custom amounts normalized into tax",
			"group_id", group.ID,
			"amount", in.Amount,
			"custom_sum", res.EffectiveBase,
			"additional_tax_percent", res.AdditionalTaxPercent,
		)
	}
	return res, nil
}

func (s *SplitService) findSplit(ctx context.Context, groupID, billID, memberID string) (*models.Bill, *models.Split, error) {
	if _, err := ownedGroup(ctx, s.store, groupID); err != nil {
		return nil, nil, err
	}

	bill, err := s.store.GetBill(ctx, groupID, billID)
	if err != nil {
		return nil, nil, toConnectError(err)
	}
	split := bill.FindSplit(memberID)
	if split == nil {
		return nil, nil, connect.NewError(connect.CodeNotFound, errors.New("member has no split on this bill"))
	}
	return bill, split, nil
}

func (s *SplitService) setSettled(ctx context.Context, bill *models.Bill, memberID string, settled bool, reason string) (*connect.Response[api.BillResponse], error) {
	actor := middleware.GetUserID(ctx)
	if err := s.store.SetSplitSettled(ctx, bill.GroupID, bill.ID, memberID, settled, reason, actor); err != nil {
		s.logger.Error("SetSplitSettled failed", "bill_id", bill.ID, "member_id", memberID, "error", err)
		return nil, toConnectError(err)
	}
	s.metrics.SplitSettlementChanged(settled)

	if settled {
		s.cancelReminder(ctx, bill, memberID)
		s.logger.Info("Split marked paid", "bill_id", bill.ID, "member_id", memberID)
	} else {
		s.logger.Warn("Split unmarked paid", "bill_id", bill.ID, "member_id", memberID, "reason", reason, "user_id", actor)
	}

	updated, err := s.store.GetBill(ctx, bill.GroupID, bill.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.BillResponse{Bill: toAPIBill(updated)}), nil
}

// refreshReminders re-renders the bill's reminders with what each member owes
// now and cancels those of members who no longer owe anything.
func (s *SplitService) refreshReminders(ctx context.Context, group *models.Group, bill *models.Bill) {
	reminders, err := s.scheduler.List(ctx)
	if err != nil {
		s.logger.Warn("Failed to list reminders", "bill_id", bill.ID, "error", err)
		return
	}

	for _, r := range reminders {
		if r.GroupID != group.ID || r.BillID != bill.ID {
			continue
		}

		owed := calculator.OwedBy(bill, r.MemberID)
		if owed == 0 {
			s.cancelReminder(ctx, bill, r.MemberID)
			continue
		}

		r.Title, r.Body = reminderText(group, bill, r.MemberID, owed)
		r.Amount = owed
		if err := s.scheduler.ScheduleDaily(ctx, r); err != nil {
			s.logger.Warn("Failed to refresh reminder", "key", r.Key, "error", err)
		}
	}
}

func (s *SplitService) cancelReminder(ctx context.Context, bill *models.Bill, memberID string) {
	key := reminder.Key(bill.GroupID, bill.ID, memberID)
	if err := s.scheduler.Cancel(ctx, key); err != nil {
		s.logger.Warn("Failed to cancel reminder", "key", key, "error", err)
	}
}

// checkMembers rejects participants, payers and contributors that are not
// members of the group. Archived members cannot join new splits.
func checkMembers(group *models.Group, in api.SplitInput) error {
	for _, id := range in.ParticipantIDs {
		m := group.FindMember(id)
		if m == nil {
			return invalidArgument("participant %q is not a member of the group", id)
		}
		if m.Archived {
			return invalidArgument("participant %q is archived", m.Name)
		}
	}
	if in.PayerID != "" && group.FindMember(in.PayerID) == nil {
		return invalidArgument("payer %q is not a member of the group", in.PayerID)
	}
	for id := range in.Contributions {
		if group.FindMember(id) == nil {
			return invalidArgument("contributor %q is not a member of the group", id)
		}
	}
	return nil
}

func toCalculatorInput(in api.SplitInput) calculator.Input {
	return calculator.Input{
		BaseAmount:     in.Amount,
		TaxPercent:     in.TaxPercent,
		ParticipantIDs: in.ParticipantIDs,
		Mode:           models.SplitMode(in.Mode),
		ExactAmounts:   in.ExactAmounts,
		PayerID:        in.PayerID,
		Contributions:  in.Contributions,
	}
}

func modeOf(mode string) models.SplitMode {
	if mode == "" {
		return models.SplitModeEqual
	}
	return models.SplitMode(mode)
}

func contributionLookup(contributions []models.Contribution) func(string) float64 {
	return func(memberID string) float64 {
		var total float64
		for _, c := range contributions {
			if c.MemberID == memberID {
				total += c.Amount
			}
		}
		return total
	}
}

func billResponse(bill *models.Bill, res *calculator.Result) *api.BillResponse {
	return &api.BillResponse{
		Bill:                 toAPIBill(bill),
		Normalized:           res.Normalized,
		AdditionalTaxPercent: res.AdditionalTaxPercent,
	}
}
