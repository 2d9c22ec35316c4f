package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/tabsplit/internal/calculator"
	"github.com/mmynk/tabsplit/internal/models"
	"github.com/mmynk/tabsplit/internal/reminder"
	"github.com/mmynk/tabsplit/internal/storage"
	"github.com/mmynk/tabsplit/pkg/api"
	"github.com/mmynk/tabsplit/pkg/api/apiconnect"
)

var errNothingOwed = errors.New("member owes nothing on this bill")

var _ apiconnect.ReminderServiceHandler = (*ReminderService)(nil)

// ReminderService schedules daily payment reminders for members who still owe.
type ReminderService struct {
	store     storage.Store
	scheduler reminder.Scheduler
	logger    *slog.Logger
}

// NewReminderService creates a new ReminderService.
func NewReminderService(store storage.Store, scheduler reminder.Scheduler, logger *slog.Logger) *ReminderService {
	return &ReminderService{store: store, scheduler: scheduler, logger: logger}
}

// ScheduleReminder schedules or replaces the daily reminder for a member on a
// bill. The body quotes what the member owes right now.
func (s *ReminderService) ScheduleReminder(ctx context.Context, req *connect.Request[api.ScheduleReminderRequest]) (*connect.Response[api.ReminderResponse], error) {
	group, err := ownedGroup(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	bill, err := s.store.GetBill(ctx, group.ID, req.Msg.BillID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if bill.FindSplit(req.Msg.MemberID) == nil {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("member has no split on this bill"))
	}

	owed := calculator.OwedBy(bill, req.Msg.MemberID)
	if owed == 0 {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errNothingOwed)
	}

	title, body := reminderText(group, bill, req.Msg.MemberID, owed)
	r := models.Reminder{
		Key:      reminder.Key(group.ID, bill.ID, req.Msg.MemberID),
		Title:    title,
		Body:     body,
		Hour:     req.Msg.Hour,
		GroupID:  group.ID,
		BillID:   bill.ID,
		MemberID: req.Msg.MemberID,
		Amount:   owed,
	}
	if err := s.scheduler.ScheduleDaily(ctx, r); err != nil {
		s.logger.Warn("ScheduleReminder failed", "key", r.Key, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Reminder scheduled", "key", r.Key, "hour", r.Hour, "amount", owed)
	out := toAPIReminder(r)
	return connect.NewResponse(&api.ReminderResponse{Reminder: &out}), nil
}

// CancelReminder removes a member's reminder for a bill.
func (s *ReminderService) CancelReminder(ctx context.Context, req *connect.Request[api.CancelReminderRequest]) (*connect.Response[emptypb.Empty], error) {
	if _, err := ownedGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, err
	}

	key := reminder.Key(req.Msg.GroupID, req.Msg.BillID, req.Msg.MemberID)
	if err := s.scheduler.Cancel(ctx, key); err != nil {
		return nil, toConnectError(err)
	}

	s.logger.Info("Reminder cancelled", "key", key)
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// ListReminders returns the reminders scheduled for a group.
func (s *ReminderService) ListReminders(ctx context.Context, req *connect.Request[api.ListRemindersRequest]) (*connect.Response[api.ListRemindersResponse], error) {
	if _, err := ownedGroup(ctx, s.store, req.Msg.GroupID); err != nil {
		return nil, err
	}

	reminders, err := s.scheduler.List(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]api.Reminder, 0, len(reminders))
	for _, r := range reminders {
		if r.GroupID == req.Msg.GroupID {
			out = append(out, toAPIReminder(r))
		}
	}
	return connect.NewResponse(&api.ListRemindersResponse{Reminders: out}), nil
}
