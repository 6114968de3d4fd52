package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// --- Model types ---

// CreatorKey is the composite identity of a tracked creator. Identical
// creator ids in different workspaces are distinct entities; nothing is
// shared across workspaces.
type CreatorKey struct {
	WorkspaceID string
	CreatorID   string
}

// String renders the key in the form used by the persisted snapshot maps.
func (k CreatorKey) String() string {
	return k.WorkspaceID + "_" + k.CreatorID
}

// ChannelRegistration binds a channel to exactly one creator. Created and
// removed only by explicit commands; never auto-expires.
type ChannelRegistration struct {
	ChannelID     string `json:"-"`
	CreatorID     string `json:"creator_id"`
	CreatorName   string `json:"creator_name"`
	WorkspaceID   string `json:"guild_id"`
	WorkspaceName string `json:"guild_name"`
	RegisteredBy  string `json:"setup_by"`
	RegisteredAt  Date   `json:"setup_date"`
}

// Key returns the composite key of the registered creator.
func (r ChannelRegistration) Key() CreatorKey {
	return CreatorKey{WorkspaceID: r.WorkspaceID, CreatorID: r.CreatorID}
}

// CreatorRecord holds per-creator counters for one workspace.
// Invariant maintained by the ledger: CurrentStreak <= BestStreak.
type CreatorRecord struct {
	Name          string `json:"name"`
	WorkspaceID   string `json:"guild_id"`
	WorkspaceName string `json:"guild_name"`
	CreatorID     string `json:"creator_id"`
	ChannelID     string `json:"channel_id"`
	Joined        Date   `json:"joined"`
	TotalPosts    int    `json:"total_posts"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
	LastPosted    Date   `json:"last_posted,omitempty"`
	LastReminded  Date   `json:"last_reminded,omitempty"`
}

// Key returns the composite key of the record.
func (r CreatorRecord) Key() CreatorKey {
	return CreatorKey{WorkspaceID: r.WorkspaceID, CreatorID: r.CreatorID}
}

// PostEntry is one credited post, kept for audit and reporting.
type PostEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Workspace string    `json:"guild"`
}

// PostLog maps credited calendar dates to their entries. At most one
// entry per date; entries are append-only.
type PostLog map[Date]PostEntry

// Latest returns the most recent credited date, or the zero Date for an
// empty log.
func (l PostLog) Latest() Date {
	var latest Date
	for d := range l {
		if d > latest {
			latest = d
		}
	}
	return latest
}

// StreakEndingAt returns the length of the maximal run of consecutive
// credited dates ending at day. Zero when day itself is not credited.
func (l PostLog) StreakEndingAt(day Date) int {
	n := 0
	for d := day; !d.IsZero(); d = d.Prev() {
		if _, ok := l[d]; !ok {
			break
		}
		n++
	}
	return n
}

// CountWindow returns the number of credited dates within the trailing
// window [today-days+1, today]. Malformed stored dates are skipped.
func (l PostLog) CountWindow(today Date, days int) int {
	count := 0
	for d := range l {
		n, err := DaysBetween(d, today)
		if err != nil {
			continue
		}
		if n >= 0 && n < days {
			count++
		}
	}
	return count
}

// Snapshot is the complete persisted state: channel registrations keyed
// by channel id, creator records and post logs keyed by CreatorKey
// string form. A single snapshot with no versioning; consumers tolerate
// absent optional fields.
type Snapshot struct {
	Channels map[string]*ChannelRegistration `json:"tracked_channels"`
	Creators map[string]*CreatorRecord       `json:"creators"`
	Posts    map[string]PostLog              `json:"posts"`
}

// NewSnapshot returns an empty snapshot with all maps initialized.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Channels: make(map[string]*ChannelRegistration),
		Creators: make(map[string]*CreatorRecord),
		Posts:    make(map[string]PostLog),
	}
}

// Normalize repairs a freshly deserialized snapshot: nil maps become
// empty and every registration regains the channel id it is keyed by.
func (s *Snapshot) Normalize() {
	if s.Channels == nil {
		s.Channels = make(map[string]*ChannelRegistration)
	}
	if s.Creators == nil {
		s.Creators = make(map[string]*CreatorRecord)
	}
	if s.Posts == nil {
		s.Posts = make(map[string]PostLog)
	}
	for id, reg := range s.Channels {
		reg.ChannelID = id
	}
}

// Creator returns the record for key, or nil.
func (s *Snapshot) Creator(key CreatorKey) *CreatorRecord {
	return s.Creators[key.String()]
}

// Log returns the post log for key; may be nil.
func (s *Snapshot) Log(key CreatorKey) PostLog {
	return s.Posts[key.String()]
}

// EnsureLog returns the post log for key, creating it when absent.
func (s *Snapshot) EnsureLog(key CreatorKey) PostLog {
	l, ok := s.Posts[key.String()]
	if !ok {
		l = make(PostLog)
		s.Posts[key.String()] = l
	}
	return l
}

// --- Shared value types ---

// RecordResult is the outcome of crediting an inbound event. Accepted is
// false for same-day duplicates; the counters then reflect the already
// credited state so callers can still acknowledge.
type RecordResult struct {
	Accepted    bool
	CreatorName string
	Streak      int
	BestStreak  int
	TotalPosts  int
	WeekCount   int
	MonthCount  int
}

// ReminderIntent describes one reminder the scheduler decided to send.
type ReminderIntent struct {
	ID            uuid.UUID
	Key           CreatorKey
	CreatorName   string
	ChannelID     string
	WorkspaceName string
	LastPosted    Date
	DaysSincePost int
}

// DeliveryResult is the explicit outcome of a best-effort send. Failure
// is observable but never propagated as an error; the next scheduled
// tick is the only retry.
type DeliveryResult struct {
	Delivered bool
	Reason    error
}

// --- Interfaces ---

// Store is the persistence backend: an authoritative snapshot loaded and
// saved whole. Implementations may cache internally as long as they
// preserve read-after-write consistency for the same process.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// ReminderSender delivers reminder intents to creators.
type ReminderSender interface {
	SendReminder(ctx context.Context, intent ReminderIntent) DeliveryResult
}
