// Package service implements the tabsplit Connect RPC services.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/tabsplit/internal/calculator"
	"github.com/mmynk/tabsplit/internal/middleware"
	"github.com/mmynk/tabsplit/internal/models"
	"github.com/mmynk/tabsplit/internal/reminder"
	"github.com/mmynk/tabsplit/internal/storage"
	"github.com/mmynk/tabsplit/pkg/api"
	"github.com/mmynk/tabsplit/pkg/currency"
)

var (
	errNotOwner     = errors.New("group belongs to another user")
	errAuthRequired = errors.New("authentication required")
)

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) error {
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return err
	case calculator.IsValidationError(err), errors.Is(err, reminder.ErrInvalidHour):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrMemberInUse):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, errNotOwner):
		return connect.NewError(connect.CodePermissionDenied, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func invalidArgument(format string, args ...any) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, args...))
}

// ownedGroup loads a group and checks that the caller owns it.
func ownedGroup(ctx context.Context, store storage.Store, groupID string) (*models.Group, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}
	if groupID == "" {
		return nil, invalidArgument("group_id is required")
	}

	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if group.OwnerID != userID {
		return nil, toConnectError(errNotOwner)
	}
	return group, nil
}

func toAPIGroup(g *models.Group) *api.Group {
	members := make([]api.Member, len(g.Members))
	for i, m := range g.Members {
		members[i] = toAPIMember(m)
	}
	return &api.Group{
		ID:            g.ID,
		Name:          g.Name,
		Note:          g.Note,
		Currency:      g.Currency,
		TrackSpending: g.TrackSpending,
		Members:       members,
		CreatedAt:     g.CreatedAt,
	}
}

func toAPIMember(m models.Member) api.Member {
	return api.Member{
		ID:       m.ID,
		Name:     m.Name,
		Contact:  m.Contact,
		Archived: m.Archived,
	}
}

func toAPIBill(b *models.Bill) *api.Bill {
	contributions := make([]api.Contribution, len(b.Contributions))
	for i, c := range b.Contributions {
		contributions[i] = api.Contribution{MemberID: c.MemberID, Amount: c.Amount}
	}
	return &api.Bill{
		ID:            b.ID,
		GroupID:       b.GroupID,
		Title:         b.Title,
		Amount:        b.Amount,
		TaxPercent:    b.Tax,
		Mode:          string(b.Mode),
		FinalAmount:   b.FinalAmount(),
		Status:        string(calculator.Status(b)),
		Contributions: contributions,
		Splits:        toAPISplits(b.Splits, b.ContributionOf),
		CreatedAt:     b.CreatedAt,
	}
}

func toAPISplits(splits []models.Split, contributionOf func(string) float64) []api.Split {
	out := make([]api.Split, len(splits))
	for i, s := range splits {
		out[i] = api.Split{
			MemberID: s.MemberID,
			Share:    s.Share,
			Settled:  s.Settled,
			Owed:     calculator.Owed(s.Share, contributionOf(s.MemberID)),
		}
	}
	return out
}

func toAPISettlement(s *models.Settlement) api.Settlement {
	return api.Settlement{
		ID:        s.ID,
		FromID:    s.FromID,
		ToID:      s.ToID,
		Amount:    s.Amount,
		Note:      s.Note,
		CreatedAt: s.CreatedAt,
	}
}

func toAPIReminder(r models.Reminder) api.Reminder {
	return api.Reminder{
		Key:       r.Key,
		Title:     r.Title,
		Body:      r.Body,
		Hour:      r.Hour,
		GroupID:   r.GroupID,
		BillID:    r.BillID,
		MemberID:  r.MemberID,
		Amount:    r.Amount,
		LastFired: r.LastFired,
	}
}

func memberName(g *models.Group, memberID string) string {
	if m := g.FindMember(memberID); m != nil {
		return m.Name
	}
	return memberID
}

// reminderText renders the reminder for a member owing owed on bill.
func reminderText(g *models.Group, bill *models.Bill, memberID string, owed float64) (title, body string) {
	return reminder.Compose(g.Name, bill.Title, memberName(g, memberID), owed, g.Currency)
}

// cancelGroupReminders removes every reminder of the group.
func cancelGroupReminders(ctx context.Context, scheduler reminder.Scheduler, logger *slog.Logger, groupID string) {
	reminders, err := scheduler.List(ctx)
	if err != nil {
		logger.Warn("Failed to list reminders", "group_id", groupID, "error", err)
		return
	}
	for _, r := range reminders {
		if r.GroupID != groupID {
			continue
		}
		if err := scheduler.Cancel(ctx, r.Key); err != nil {
			logger.Warn("Failed to cancel reminder", "key", r.Key, "error", err)
		}
	}
}

func formatAmount(amount float64, g *models.Group) string {
	return currency.Format(amount, g.Currency)
}
