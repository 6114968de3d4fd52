// Package scheduler runs the recurring reminder pass.
//
// Every tick it reads the tracking state, decides per creator whether a
// lapse reminder is due, and hands intents to the delivery collaborator.
// Delivery is fire-and-forget: the reminder is marked as issued whether
// or not the send succeeded, so a failed send waits for the threshold to
// elapse again instead of retrying on the next tick.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/domain"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/metrics"
)

// State is a creator's position in the reminder lifecycle.
type State int

const (
	// StateNeverPosted means the creator has no credited post yet. Only
	// lapses are tracked; onboarding silence never triggers a reminder.
	StateNeverPosted State = iota
	// StateSilent means the last post is fresher than the threshold.
	StateSilent
	// StateDue means the threshold is crossed and no recent reminder
	// stands in the way.
	StateDue
	// StateReminded means a reminder went out recently; further ticks
	// are suppressed until the threshold elapses again.
	StateReminded
)

func (s State) String() string {
	switch s {
	case StateNeverPosted:
		return "never_posted"
	case StateSilent:
		return "silent"
	case StateDue:
		return "due"
	case StateReminded:
		return "reminded"
	default:
		return "unknown"
	}
}

// Evaluate classifies a creator record for reminder purposes and returns
// the days since the last post. Malformed stored dates count as absent
// so one corrupted record cannot block the pass.
func Evaluate(rec *domain.CreatorRecord, today domain.Date, thresholdDays int) (State, int) {
	if rec.LastPosted.IsZero() {
		return StateNeverPosted, 0
	}

	daysSincePost, err := domain.DaysBetween(rec.LastPosted, today)
	if err != nil {
		return StateNeverPosted, 0
	}

	if daysSincePost < thresholdDays {
		return StateSilent, daysSincePost
	}

	if !rec.LastReminded.IsZero() {
		daysSinceReminder, err := domain.DaysBetween(rec.LastReminded, today)
		if err == nil && daysSinceReminder < thresholdDays {
			return StateReminded, daysSincePost
		}
	}

	return StateDue, daysSincePost
}

// ReminderMarker is the slice of the ledger the scheduler needs: the
// serialized write path for last_reminded.
type ReminderMarker interface {
	MarkReminded(ctx context.Context, key domain.CreatorKey, day domain.Date) error
}

type Scheduler struct {
	store     domain.Store
	marker    ReminderMarker
	sender    domain.ReminderSender
	clock     clockwork.Clock
	threshold int
	interval  time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func New(store domain.Store, marker ReminderMarker, sender domain.ReminderSender, clock clockwork.Clock, thresholdDays int, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:     store,
		marker:    marker,
		sender:    sender,
		clock:     clock,
		threshold: thresholdDays,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the tick loop.
func (s *Scheduler) Start() {
	ticker := s.clock.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.Chan():
				s.Tick(context.Background())
			case <-s.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
	slog.Info("Reminder scheduler started", "interval", s.interval.String(), "threshold_days", s.threshold)
}

// Stop halts the tick loop. A tick already in flight finishes.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Tick evaluates every tracked creator once. Exported so tests and
// operational tooling can force a pass.
func (s *Scheduler) Tick(ctx context.Context) {
	start := s.clock.Now()
	defer func() {
		metrics.SchedulerTickDuration.Observe(s.clock.Since(start).Seconds())
	}()

	snap, err := s.store.Load(ctx)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("scheduler_load").Inc()
		slog.Error("Reminder pass skipped, state load failed", "error", err)
		return
	}

	today := domain.DateOf(s.clock.Now())

	for _, rec := range snap.Creators {
		state, daysSincePost := Evaluate(rec, today, s.threshold)
		switch state {
		case StateDue:
			s.remind(ctx, rec, today, daysSincePost)
		case StateReminded:
			metrics.RemindersSuppressedTotal.WithLabelValues("recent_reminder").Inc()
		case StateSilent, StateNeverPosted:
			// nothing to do
		}
	}
}

func (s *Scheduler) remind(ctx context.Context, rec *domain.CreatorRecord, today domain.Date, daysSincePost int) {
	intent := domain.ReminderIntent{
		ID:            uuid.New(),
		Key:           rec.Key(),
		CreatorName:   rec.Name,
		ChannelID:     rec.ChannelID,
		WorkspaceName: rec.WorkspaceName,
		LastPosted:    rec.LastPosted,
		DaysSincePost: daysSincePost,
	}

	result := s.sender.SendReminder(ctx, intent)
	metrics.RemindersSentTotal.Inc()
	if result.Delivered {
		slog.Info("Reminder sent", "intent_id", intent.ID.String(), "creator_id", rec.CreatorID, "guild_id", rec.WorkspaceID, "days_since_post", daysSincePost)
	} else {
		metrics.ReminderDeliveryFailuresTotal.Inc()
		slog.Warn("Reminder delivery failed", "intent_id", intent.ID.String(), "creator_id", rec.CreatorID, "guild_id", rec.WorkspaceID, "reason", result.Reason)
	}

	// Marked even when delivery failed: an unreachable creator gets the
	// next attempt after the threshold elapses again, not every tick.
	if err := s.marker.MarkReminded(ctx, rec.Key(), today); err != nil {
		slog.Error("Failed to mark reminder", "creator_id", rec.CreatorID, "guild_id", rec.WorkspaceID, "error", err)
	}
}
