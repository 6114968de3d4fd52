// Package ledger implements the posting ledger: the single serialized
// write path over the tracking state.
//
// All mutation (crediting posts, marking reminders, channel
// registration) runs on one actor goroutine, so a reminder tick and an
// inbound event racing for the same creator cannot lose updates. Every
// mutation is a load-apply-save over the snapshot store; a failed save
// aborts the operation with nothing committed.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/domain"
	"github.com/nickfine05/TikTok-Post-Tracker/internal/metrics"
)

// --- Command types ---

type ledgerCmd interface{ ledgerCmd() }

type recordReply struct {
	result domain.RecordResult
	err    error
}

type cmdRecordEvent struct {
	ctx         context.Context
	reg         domain.ChannelRegistration
	channelName string
	timestamp   time.Time
	replyCh     chan recordReply
}

func (cmdRecordEvent) ledgerCmd() {}

type cmdMarkReminded struct {
	ctx     context.Context
	key     domain.CreatorKey
	day     domain.Date
	replyCh chan error
}

func (cmdMarkReminded) ledgerCmd() {}

type registerReply struct {
	existing *domain.ChannelRegistration
	err      error
}

type cmdRegisterChannel struct {
	ctx     context.Context
	reg     domain.ChannelRegistration
	replyCh chan registerReply
}

func (cmdRegisterChannel) ledgerCmd() {}

type unregisterReply struct {
	removed *domain.ChannelRegistration
	err     error
}

type cmdUnregisterChannel struct {
	ctx       context.Context
	channelID string
	replyCh   chan unregisterReply
}

func (cmdUnregisterChannel) ledgerCmd() {}

type cmdStop struct {
	doneCh chan struct{}
}

func (cmdStop) ledgerCmd() {}

// --- Ledger ---

type Ledger struct {
	cmdCh chan ledgerCmd
	store domain.Store
}

func New(store domain.Store) *Ledger {
	return &Ledger{
		cmdCh: make(chan ledgerCmd, 64),
		store: store,
	}
}

// Start begins the actor goroutine. Must be called before any operation.
func (l *Ledger) Start() {
	go l.run()
}

func (l *Ledger) run() {
	for cmd := range l.cmdCh {
		switch c := cmd.(type) {
		case cmdRecordEvent:
			result, err := l.handleRecord(c)
			c.replyCh <- recordReply{result: result, err: err}

		case cmdMarkReminded:
			c.replyCh <- l.handleMarkReminded(c)

		case cmdRegisterChannel:
			existing, err := l.handleRegister(c)
			c.replyCh <- registerReply{existing: existing, err: err}

		case cmdUnregisterChannel:
			removed, err := l.handleUnregister(c)
			c.replyCh <- unregisterReply{removed: removed, err: err}

		case cmdStop:
			close(c.doneCh)
			return
		}
	}
}

func (l *Ledger) handleRecord(c cmdRecordEvent) (domain.RecordResult, error) {
	snap, err := l.store.Load(c.ctx)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("record_load").Inc()
		return domain.RecordResult{}, fmt.Errorf("load state: %w", err)
	}

	// The event's own timestamp decides the calendar date, not arrival
	// time. An out-of-order event can retroactively fill a streak gap.
	today := domain.DateOf(c.timestamp)
	key := c.reg.Key()

	rec := snap.Creator(key)
	if rec == nil {
		rec = &domain.CreatorRecord{
			Name:          c.reg.CreatorName,
			WorkspaceID:   c.reg.WorkspaceID,
			WorkspaceName: c.reg.WorkspaceName,
			CreatorID:     c.reg.CreatorID,
			ChannelID:     c.reg.ChannelID,
			Joined:        today,
		}
		snap.Creators[key.String()] = rec
	}

	log := snap.EnsureLog(key)

	if _, dup := log[today]; dup {
		metrics.DuplicatePostsTotal.Inc()
		return domain.RecordResult{
			Accepted:    false,
			CreatorName: rec.Name,
			Streak:      rec.CurrentStreak,
			BestStreak:  rec.BestStreak,
			TotalPosts:  rec.TotalPosts,
			WeekCount:   log.CountWindow(today, 7),
			MonthCount:  log.CountWindow(today, 30),
		}, nil
	}

	log[today] = domain.PostEntry{
		Timestamp: c.timestamp.UTC(),
		Channel:   c.channelName,
		Workspace: c.reg.WorkspaceName,
	}
	rec.TotalPosts++
	rec.Name = c.reg.CreatorName

	if !rec.LastPosted.IsZero() {
		if _, perr := domain.ParseDate(string(rec.LastPosted)); perr != nil {
			slog.Warn("Corrupted last_posted, treating as absent", "creator_key", key.String(), "value", string(rec.LastPosted))
			rec.LastPosted = ""
		}
	}
	if today > rec.LastPosted {
		rec.LastPosted = today
	}

	// Streak is strictly a function of log contiguity: recompute the run
	// ending at the latest credited date instead of trusting the stored
	// counter.
	rec.CurrentStreak = log.StreakEndingAt(rec.LastPosted)
	if rec.CurrentStreak > rec.BestStreak {
		rec.BestStreak = rec.CurrentStreak
	}

	if err := l.store.Save(c.ctx, snap); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("record_save").Inc()
		return domain.RecordResult{}, fmt.Errorf("save state: %w", err)
	}

	metrics.PostsCreditedTotal.Inc()
	return domain.RecordResult{
		Accepted:    true,
		CreatorName: rec.Name,
		Streak:      rec.CurrentStreak,
		BestStreak:  rec.BestStreak,
		TotalPosts:  rec.TotalPosts,
		WeekCount:   log.CountWindow(today, 7),
		MonthCount:  log.CountWindow(today, 30),
	}, nil
}

func (l *Ledger) handleMarkReminded(c cmdMarkReminded) error {
	snap, err := l.store.Load(c.ctx)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("remind_load").Inc()
		return fmt.Errorf("load state: %w", err)
	}

	rec := snap.Creator(c.key)
	if rec == nil {
		return domain.ErrCreatorNotFound
	}
	rec.LastReminded = c.day

	if err := l.store.Save(c.ctx, snap); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("remind_save").Inc()
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (l *Ledger) handleRegister(c cmdRegisterChannel) (*domain.ChannelRegistration, error) {
	snap, err := l.store.Load(c.ctx)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("register_load").Inc()
		return nil, fmt.Errorf("load state: %w", err)
	}

	if existing, ok := snap.Channels[c.reg.ChannelID]; ok {
		return existing, domain.ErrChannelAlreadyRegistered
	}

	reg := c.reg
	snap.Channels[reg.ChannelID] = &reg

	key := reg.Key()
	if snap.Creator(key) == nil {
		snap.Creators[key.String()] = &domain.CreatorRecord{
			Name:          reg.CreatorName,
			WorkspaceID:   reg.WorkspaceID,
			WorkspaceName: reg.WorkspaceName,
			CreatorID:     reg.CreatorID,
			ChannelID:     reg.ChannelID,
			Joined:        reg.RegisteredAt,
		}
	}

	if err := l.store.Save(c.ctx, snap); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("register_save").Inc()
		return nil, fmt.Errorf("save state: %w", err)
	}
	slog.Info("Channel registered", "channel_id", reg.ChannelID, "guild_id", reg.WorkspaceID, "creator_id", reg.CreatorID)
	return nil, nil
}

func (l *Ledger) handleUnregister(c cmdUnregisterChannel) (*domain.ChannelRegistration, error) {
	snap, err := l.store.Load(c.ctx)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("unregister_load").Inc()
		return nil, fmt.Errorf("load state: %w", err)
	}

	removed, ok := snap.Channels[c.channelID]
	if !ok {
		return nil, domain.ErrChannelNotRegistered
	}
	delete(snap.Channels, c.channelID)

	if err := l.store.Save(c.ctx, snap); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("unregister_save").Inc()
		return nil, fmt.Errorf("save state: %w", err)
	}
	slog.Info("Channel unregistered", "channel_id", c.channelID, "guild_id", removed.WorkspaceID)
	return removed, nil
}

// --- Public API ---

// RecordEvent credits a qualifying event for the channel's creator at the
// event timestamp's UTC date. At most one credit per date per creator;
// repeat calls on the same date return Accepted=false and change nothing.
func (l *Ledger) RecordEvent(ctx context.Context, reg domain.ChannelRegistration, channelName string, timestamp time.Time) (domain.RecordResult, error) {
	replyCh := make(chan recordReply, 1)
	l.cmdCh <- cmdRecordEvent{ctx: ctx, reg: reg, channelName: channelName, timestamp: timestamp, replyCh: replyCh}
	reply := <-replyCh
	return reply.result, reply.err
}

// MarkReminded records that a reminder was issued on day. Shares the
// serialized write path so a reminder tick cannot race a credit.
func (l *Ledger) MarkReminded(ctx context.Context, key domain.CreatorKey, day domain.Date) error {
	replyCh := make(chan error, 1)
	l.cmdCh <- cmdMarkReminded{ctx: ctx, key: key, day: day, replyCh: replyCh}
	return <-replyCh
}

// RegisterChannel binds a channel to a creator. On conflict it returns
// the current registration together with ErrChannelAlreadyRegistered.
func (l *Ledger) RegisterChannel(ctx context.Context, reg domain.ChannelRegistration) (*domain.ChannelRegistration, error) {
	replyCh := make(chan registerReply, 1)
	l.cmdCh <- cmdRegisterChannel{ctx: ctx, reg: reg, replyCh: replyCh}
	reply := <-replyCh
	return reply.existing, reply.err
}

// UnregisterChannel removes a channel registration and returns it.
// Creator records and post logs are kept; only the binding goes away.
func (l *Ledger) UnregisterChannel(ctx context.Context, channelID string) (*domain.ChannelRegistration, error) {
	replyCh := make(chan unregisterReply, 1)
	l.cmdCh <- cmdUnregisterChannel{ctx: ctx, channelID: channelID, replyCh: replyCh}
	reply := <-replyCh
	return reply.removed, reply.err
}

// Stop shuts the actor down after in-flight commands drain.
func (l *Ledger) Stop() {
	doneCh := make(chan struct{})
	l.cmdCh <- cmdStop{doneCh: doneCh}
	<-doneCh
}
