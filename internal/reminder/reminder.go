// Package reminder schedules and dispatches daily payment reminders.
//
// The service layer computes how much a member owes and schedules a reminder
// through a Scheduler. A Dispatcher periodically hands due reminders to a
// Publisher, which delivers them (AMQP for push/email workers, or the log).
package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/tabsplit/internal/models"
	"github.com/mmynk/tabsplit/pkg/currency"
)

// ErrInvalidHour is returned for hours outside 0-23.
var ErrInvalidHour = errors.New("hour must be between 0 and 23")

// Scheduler stores daily reminders.
type Scheduler interface {
	// ScheduleDaily creates or replaces the reminder with r.Key.
	ScheduleDaily(ctx context.Context, r models.Reminder) error

	// Cancel removes a reminder. Cancelling an unknown key is not an error.
	Cancel(ctx context.Context, key string) error

	// List returns all reminders ordered by key.
	List(ctx context.Context) ([]models.Reminder, error)

	// MarkFired records the Unix time a reminder was last dispatched.
	MarkFired(ctx context.Context, key string, at int64) error
}

// Publisher delivers a due reminder.
type Publisher interface {
	Publish(ctx context.Context, r models.Reminder) error
}

// Key builds the reminder key for one member on one bill.
func Key(groupID, billID, memberID string) string {
	return strings.Join([]string{groupID, billID, memberID}, ":")
}

// Compose renders the title and body of a payment reminder.
func Compose(groupName, billTitle, memberName string, owed float64, currencyCode string) (title, body string) {
	title = fmt.Sprintf("%s: %s", groupName, billTitle)
	body = fmt.Sprintf("%s, you still owe %s for %s.", memberName, currency.Format(owed, currencyCode), billTitle)
	return title, body
}

func validate(r models.Reminder) error {
	if r.Key == "" {
		return errors.New("reminder key required")
	}
	if r.Hour < 0 || r.Hour > 23 {
		return ErrInvalidHour
	}
	return nil
}
