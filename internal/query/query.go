// Package query implements the read-only reporting path over the
// tracking state: trailing-window counts, per-creator stats, workspace
// dashboards and weekly reports. Pure reads, safe to call concurrently
// with the ledger's writes.
package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/jonboulle/clockwork"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/domain"
)

// Status summarizes how fresh a creator's posting is, mirroring the
// dashboard badges: posted today, one day behind, lapsed, never posted.
type Status string

const (
	StatusFresh   Status = "fresh"
	StatusWarning Status = "warning"
	StatusLapsed  Status = "lapsed"
	StatusNever   Status = "never"
)

// CreatorStats is a creator record with its trailing window counts.
type CreatorStats struct {
	Name          string      `json:"name"`
	CreatorID     string      `json:"creator_id"`
	WorkspaceID   string      `json:"guild_id"`
	WorkspaceName string      `json:"guild_name"`
	Joined        domain.Date `json:"joined"`
	TotalPosts    int         `json:"total_posts"`
	CurrentStreak int         `json:"current_streak"`
	BestStreak    int         `json:"best_streak"`
	LastPosted    domain.Date `json:"last_posted,omitempty"`
	WeekCount     int         `json:"week_count"`
	MonthCount    int         `json:"month_count"`
}

// DashboardRow is one creator line of the workspace dashboard.
type DashboardRow struct {
	Name          string      `json:"name"`
	CreatorID     string      `json:"creator_id"`
	Status        Status      `json:"status"`
	CurrentStreak int         `json:"current_streak"`
	WeekCount     int         `json:"week_count"`
	LastPosted    domain.Date `json:"last_posted,omitempty"`
}

// CreatorWeek pairs a creator name with a 7-day post count.
type CreatorWeek struct {
	Name      string `json:"name"`
	WeekCount int    `json:"week_count"`
}

// WeeklyReport aggregates one workspace's trailing 7 days.
type WeeklyReport struct {
	TotalPosts       int           `json:"total_posts"`
	TrackedCreators  int           `json:"tracked_creators"`
	ActiveCreators   int           `json:"active_creators"`
	PerfectWeek      []string      `json:"perfect_week"`
	NeedsImprovement []CreatorWeek `json:"needs_improvement"`
}

// ChannelStatus is one tracked channel with its creator's recency.
type ChannelStatus struct {
	ChannelID   string      `json:"channel_id"`
	CreatorID   string      `json:"creator_id"`
	CreatorName string      `json:"creator_name"`
	LastPosted  domain.Date `json:"last_posted,omitempty"`
}

const (
	perfectWeekPosts     = 7
	improvementThreshold = 3
)

type Queries struct {
	store domain.Store
	clock clockwork.Clock
}

func New(store domain.Store, clock clockwork.Clock) *Queries {
	return &Queries{store: store, clock: clock}
}

func (q *Queries) today() domain.Date {
	return domain.DateOf(q.clock.Now())
}

// WindowCount returns the number of credited dates for key within the
// trailing days-long window ending today.
func (q *Queries) WindowCount(ctx context.Context, key domain.CreatorKey, days int) (int, error) {
	snap, err := q.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load state: %w", err)
	}
	return snap.Log(key).CountWindow(q.today(), days), nil
}

// CreatorStats returns stats for one creator in one workspace.
func (q *Queries) CreatorStats(ctx context.Context, workspaceID, creatorID string) (*CreatorStats, error) {
	snap, err := q.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	key := domain.CreatorKey{WorkspaceID: workspaceID, CreatorID: creatorID}
	rec := snap.Creator(key)
	if rec == nil {
		return nil, domain.ErrCreatorNotFound
	}

	log := snap.Log(key)
	today := q.today()
	return &CreatorStats{
		Name:          rec.Name,
		CreatorID:     rec.CreatorID,
		WorkspaceID:   rec.WorkspaceID,
		WorkspaceName: rec.WorkspaceName,
		Joined:        rec.Joined,
		TotalPosts:    rec.TotalPosts,
		CurrentStreak: rec.CurrentStreak,
		BestStreak:    rec.BestStreak,
		LastPosted:    rec.LastPosted,
		WeekCount:     log.CountWindow(today, 7),
		MonthCount:    log.CountWindow(today, 30),
	}, nil
}

// Dashboard returns one row per tracked creator in the workspace,
// most recently posted first.
func (q *Queries) Dashboard(ctx context.Context, workspaceID string) ([]DashboardRow, error) {
	snap, err := q.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	today := q.today()
	var rows []DashboardRow
	for _, rec := range snap.Creators {
		if rec.WorkspaceID != workspaceID {
			continue
		}
		rows = append(rows, DashboardRow{
			Name:          rec.Name,
			CreatorID:     rec.CreatorID,
			Status:        statusOf(rec.LastPosted, today),
			CurrentStreak: rec.CurrentStreak,
			WeekCount:     snap.Log(rec.Key()).CountWindow(today, 7),
			LastPosted:    rec.LastPosted,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LastPosted != rows[j].LastPosted {
			return rows[i].LastPosted > rows[j].LastPosted
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, nil
}

// WeeklyReport aggregates the workspace's trailing 7 days.
func (q *Queries) WeeklyReport(ctx context.Context, workspaceID string) (*WeeklyReport, error) {
	snap, err := q.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	today := q.today()
	report := &WeeklyReport{}
	for _, rec := range snap.Creators {
		if rec.WorkspaceID != workspaceID {
			continue
		}
		report.TrackedCreators++

		week := snap.Log(rec.Key()).CountWindow(today, 7)
		report.TotalPosts += week
		if week > 0 {
			report.ActiveCreators++
		}
		if week >= perfectWeekPosts {
			report.PerfectWeek = append(report.PerfectWeek, rec.Name)
		} else if week < improvementThreshold {
			report.NeedsImprovement = append(report.NeedsImprovement, CreatorWeek{Name: rec.Name, WeekCount: week})
		}
	}

	sort.Strings(report.PerfectWeek)
	sort.Slice(report.NeedsImprovement, func(i, j int) bool {
		return report.NeedsImprovement[i].Name < report.NeedsImprovement[j].Name
	})
	return report, nil
}

// ListChannels returns the workspace's tracked channels with each
// creator's last posted date.
func (q *Queries) ListChannels(ctx context.Context, workspaceID string) ([]ChannelStatus, error) {
	snap, err := q.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	var channels []ChannelStatus
	for id, reg := range snap.Channels {
		if reg.WorkspaceID != workspaceID {
			continue
		}
		status := ChannelStatus{
			ChannelID:   id,
			CreatorID:   reg.CreatorID,
			CreatorName: reg.CreatorName,
		}
		if rec := snap.Creator(reg.Key()); rec != nil {
			status.LastPosted = rec.LastPosted
		}
		channels = append(channels, status)
	}

	sort.Slice(channels, func(i, j int) bool {
		return channels[i].ChannelID < channels[j].ChannelID
	})
	return channels, nil
}

func statusOf(lastPosted, today domain.Date) Status {
	if lastPosted.IsZero() {
		return StatusNever
	}
	days, err := domain.DaysBetween(lastPosted, today)
	if err != nil {
		return StatusNever
	}
	switch {
	case days <= 0:
		return StatusFresh
	case days <= 1:
		return StatusWarning
	default:
		return StatusLapsed
	}
}
