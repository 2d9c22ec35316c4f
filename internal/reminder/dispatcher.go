package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/tabsplit/internal/models"
)

// Dispatcher fires each reminder at most once a day, at or after its hour.
type Dispatcher struct {
	scheduler Scheduler
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger

	// now is swapped in tests.
	now func() time.Time

	// onFired is called after each successful publish.
	onFired func()
}

// NewDispatcher creates a dispatcher polling the scheduler every interval.
func NewDispatcher(scheduler Scheduler, publisher Publisher, interval time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		scheduler: scheduler,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		onFired:   func() {},
	}
}

// OnFired registers a callback run after every published reminder.
func (d *Dispatcher) OnFired(fn func()) {
	d.onFired = fn
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("Reminder dispatcher started", "interval", d.interval)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Reminder dispatcher stopped")
			return nil
		case <-ticker.C:
			if _, err := d.DispatchDue(ctx); err != nil {
				d.logger.Error("Reminder dispatch failed", "error", err)
			}
		}
	}
}

// DispatchDue publishes every due reminder and returns how many were sent.
// A failed publish is logged and retried on the next tick.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	now := d.now()

	reminders, err := d.scheduler.List(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range reminders {
		if !due(r, now) {
			continue
		}

		if err := d.publisher.Publish(ctx, r); err != nil {
			d.logger.Warn("Failed to publish reminder", "key", r.Key, "error", err)
			continue
		}
		if err := d.scheduler.MarkFired(ctx, r.Key, now.Unix()); err != nil {
			return sent, err
		}

		sent++
		d.onFired()
		d.logger.Debug("Reminder published", "key", r.Key, "member_id", r.MemberID, "amount", r.Amount)
	}

	return sent, nil
}

// due reports whether r should fire at now: its hour has come today and it
// has not fired yet today.
func due(r models.Reminder, now time.Time) bool {
	if now.Hour() < r.Hour {
		return false
	}
	if r.LastFired == 0 {
		return true
	}
	last := time.Unix(r.LastFired, 0).In(now.Location())
	ly, lm, ld := last.Date()
	ny, nm, nd := now.Date()
	return ly != ny || lm != nm || ld != nd
}
