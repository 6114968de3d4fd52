package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/domain"
)

// --- Mocks ---

// memStore keeps the snapshot serialized, like the real backends do, so
// mutations on a loaded snapshot never leak into stored state unless
// Save succeeds.
type memStore struct {
	mu      sync.Mutex
	data    []byte
	loadErr error
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.data == nil {
		return domain.NewSnapshot(), nil
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(m.data, &snap); err != nil {
		return nil, err
	}
	snap.Normalize()
	return &snap, nil
}

func (m *memStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

func (m *memStore) setSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

func (m *memStore) snapshot(t *testing.T) *domain.Snapshot {
	t.Helper()
	snap, err := m.Load(context.Background())
	require.NoError(t, err)
	return snap
}

// --- Helpers ---

func newTestLedger(t *testing.T) (*Ledger, *memStore) {
	t.Helper()
	store := newMemStore()
	l := New(store)
	l.Start()
	t.Cleanup(l.Stop)
	return l, store
}

func testRegistration() domain.ChannelRegistration {
	return domain.ChannelRegistration{
		ChannelID:     "chan-1",
		CreatorID:     "creator-1",
		CreatorName:   "ava",
		WorkspaceID:   "guild-1",
		WorkspaceName: "Guild One",
		RegisteredBy:  "admin-1",
		RegisteredAt:  "2024-01-01",
	}
}

// noon returns a timestamp in the middle of the given UTC date.
func noon(day string) time.Time {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return t.Add(12 * time.Hour)
}

func record(t *testing.T, l *Ledger, reg domain.ChannelRegistration, day string) domain.RecordResult {
	t.Helper()
	res, err := l.RecordEvent(context.Background(), reg, "daily-posts", noon(day))
	require.NoError(t, err)
	return res
}

// --- Tests ---

func TestRecordEventFirstPost(t *testing.T) {
	l, store := newTestLedger(t)
	reg := testRegistration()

	res := record(t, l, reg, "2024-01-10")

	assert.True(t, res.Accepted)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, 1, res.BestStreak)
	assert.Equal(t, 1, res.TotalPosts)
	assert.Equal(t, 1, res.WeekCount)
	assert.Equal(t, 1, res.MonthCount)

	snap := store.snapshot(t)
	rec := snap.Creator(reg.Key())
	require.NotNil(t, rec)
	assert.Equal(t, domain.Date("2024-01-10"), rec.Joined)
	assert.Equal(t, domain.Date("2024-01-10"), rec.LastPosted)

	entry, ok := snap.Log(reg.Key())["2024-01-10"]
	require.True(t, ok)
	assert.Equal(t, "daily-posts", entry.Channel)
	assert.Equal(t, "Guild One", entry.Workspace)
}

func TestRecordEventSameDayDuplicate(t *testing.T) {
	l, store := newTestLedger(t)
	reg := testRegistration()

	first, err := l.RecordEvent(context.Background(), reg, "daily-posts", noon("2024-01-10"))
	require.NoError(t, err)
	require.True(t, first.Accepted)

	// Same date, later in the day.
	second, err := l.RecordEvent(context.Background(), reg, "daily-posts", noon("2024-01-10").Add(5*time.Hour))
	require.NoError(t, err)

	assert.False(t, second.Accepted)
	assert.Equal(t, first.Streak, second.Streak)
	assert.Equal(t, first.TotalPosts, second.TotalPosts)

	snap := store.snapshot(t)
	assert.Equal(t, 1, snap.Creator(reg.Key()).TotalPosts)
	assert.Len(t, snap.Log(reg.Key()), 1)
}

func TestStreakGapResets(t *testing.T) {
	l, _ := newTestLedger(t)
	reg := testRegistration()

	record(t, l, reg, "2024-01-01")
	record(t, l, reg, "2024-01-02")
	res := record(t, l, reg, "2024-01-03")
	assert.Equal(t, 3, res.Streak)
	assert.Equal(t, 3, res.BestStreak)

	// Day 4 skipped: any gap resets the streak to 1, no grace period.
	res = record(t, l, reg, "2024-01-05")
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, 3, res.BestStreak)

	dup, err := l.RecordEvent(context.Background(), reg, "daily-posts", noon("2024-01-05"))
	require.NoError(t, err)
	assert.False(t, dup.Accepted)
	assert.Equal(t, 1, dup.Streak)
	assert.Equal(t, 3, dup.BestStreak)
}

func TestStreakEqualsMaximalRunEndingAtLastPosted(t *testing.T) {
	l, store := newTestLedger(t)
	reg := testRegistration()

	days := []string{
		"2024-01-01", "2024-01-03", "2024-01-04", "2024-01-05",
		"2024-01-09", "2024-01-10",
	}
	for _, d := range days {
		record(t, l, reg, d)
	}

	snap := store.snapshot(t)
	rec := snap.Creator(reg.Key())
	assert.Equal(t, domain.Date("2024-01-10"), rec.LastPosted)
	assert.Equal(t, 2, rec.CurrentStreak)
	assert.Equal(t, 3, rec.BestStreak)
	assert.Equal(t, snap.Log(reg.Key()).StreakEndingAt(rec.LastPosted), rec.CurrentStreak)
}

func TestOutOfOrderEventBackfillsGap(t *testing.T) {
	l, store := newTestLedger(t)
	reg := testRegistration()

	record(t, l, reg, "2024-01-01")
	res := record(t, l, reg, "2024-01-03")
	assert.Equal(t, 1, res.Streak)

	// A late event for Jan 2 fills the gap; the streak jumps to 3 and
	// last_posted stays at the most recent credited date.
	res = record(t, l, reg, "2024-01-02")
	assert.Equal(t, 3, res.Streak)
	assert.Equal(t, 3, res.BestStreak)

	rec := store.snapshot(t).Creator(reg.Key())
	assert.Equal(t, domain.Date("2024-01-03"), rec.LastPosted)
	assert.Equal(t, 3, rec.CurrentStreak)
}

func TestBestStreakNeverDecreases(t *testing.T) {
	l, store := newTestLedger(t)
	reg := testRegistration()

	days := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-08", "2024-01-12"}
	best := 0
	for _, d := range days {
		res := record(t, l, reg, d)
		assert.GreaterOrEqual(t, res.BestStreak, best)
		assert.GreaterOrEqual(t, res.BestStreak, res.Streak)
		best = res.BestStreak
	}

	rec := store.snapshot(t).Creator(reg.Key())
	assert.Equal(t, 4, rec.BestStreak)
	assert.Equal(t, 1, rec.CurrentStreak)
}

func TestWorkspaceIsolation(t *testing.T) {
	l, store := newTestLedger(t)

	regA := testRegistration()
	regB := testRegistration()
	regB.ChannelID = "chan-2"
	regB.WorkspaceID = "guild-2"
	regB.WorkspaceName = "Guild Two"

	record(t, l, regA, "2024-01-01")
	record(t, l, regA, "2024-01-02")
	record(t, l, regB, "2024-01-02")

	snap := store.snapshot(t)
	recA := snap.Creator(regA.Key())
	recB := snap.Creator(regB.Key())

	assert.Equal(t, 2, recA.TotalPosts)
	assert.Equal(t, 2, recA.CurrentStreak)
	assert.Equal(t, 1, recB.TotalPosts)
	assert.Equal(t, 1, recB.CurrentStreak)
	assert.Len(t, snap.Log(regB.Key()), 1)
}

func TestNameRefreshedOnCredit(t *testing.T) {
	l, store := newTestLedger(t)
	reg := testRegistration()

	record(t, l, reg, "2024-01-01")
	reg.CreatorName = "ava-renamed"
	record(t, l, reg, "2024-01-02")

	assert.Equal(t, "ava-renamed", store.snapshot(t).Creator(reg.Key()).Name)
}

func TestWindowCountsInResult(t *testing.T) {
	l, _ := newTestLedger(t)
	reg := testRegistration()

	// Three posts in the last week, one older post still inside 30 days.
	record(t, l, reg, "2023-12-20")
	record(t, l, reg, "2024-01-08")
	record(t, l, reg, "2024-01-09")
	res := record(t, l, reg, "2024-01-10")

	assert.Equal(t, 3, res.WeekCount)
	assert.Equal(t, 4, res.MonthCount)
}

func TestSaveFailureCommitsNothing(t *testing.T) {
	l, store := newTestLedger(t)
	reg := testRegistration()

	record(t, l, reg, "2024-01-01")

	store.setSaveErr(errors.New("disk full"))
	_, err := l.RecordEvent(context.Background(), reg, "daily-posts", noon("2024-01-02"))
	require.Error(t, err)

	store.setSaveErr(nil)
	snap := store.snapshot(t)
	assert.Equal(t, 1, snap.Creator(reg.Key()).TotalPosts)

	// The failed day can be credited again once the store recovers.
	res := record(t, l, reg, "2024-01-02")
	assert.True(t, res.Accepted)
	assert.Equal(t, 2, res.Streak)
}

func TestLoadFailurePropagates(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("corrupt file")
	l := New(store)
	l.Start()
	t.Cleanup(l.Stop)

	_, err := l.RecordEvent(context.Background(), testRegistration(), "daily-posts", noon("2024-01-01"))
	assert.Error(t, err)
}

func TestCorruptedLastPostedTreatedAsAbsent(t *testing.T) {
	l, store := newTestLedger(t)
	reg := testRegistration()

	record(t, l, reg, "2024-01-01")

	// Corrupt the stored field the way a bad migration might.
	snap := store.snapshot(t)
	snap.Creator(reg.Key()).LastPosted = "yesterday-ish"
	require.NoError(t, store.Save(context.Background(), snap))

	res := record(t, l, reg, "2024-01-02")
	assert.True(t, res.Accepted)
	assert.Equal(t, domain.Date("2024-01-02"), store.snapshot(t).Creator(reg.Key()).LastPosted)
	assert.Equal(t, 2, res.Streak)
}

func TestMarkReminded(t *testing.T) {
	l, store := newTestLedger(t)
	reg := testRegistration()

	record(t, l, reg, "2024-01-01")
	require.NoError(t, l.MarkReminded(context.Background(), reg.Key(), "2024-01-04"))

	assert.Equal(t, domain.Date("2024-01-04"), store.snapshot(t).Creator(reg.Key()).LastReminded)
}

func TestMarkRemindedUnknownCreator(t *testing.T) {
	l, _ := newTestLedger(t)

	err := l.MarkReminded(context.Background(), domain.CreatorKey{WorkspaceID: "g", CreatorID: "c"}, "2024-01-04")
	assert.ErrorIs(t, err, domain.ErrCreatorNotFound)
}

func TestRegisterChannel(t *testing.T) {
	l, store := newTestLedger(t)
	reg := testRegistration()

	existing, err := l.RegisterChannel(context.Background(), reg)
	require.NoError(t, err)
	assert.Nil(t, existing)

	snap := store.snapshot(t)
	require.Contains(t, snap.Channels, reg.ChannelID)
	rec := snap.Creator(reg.Key())
	require.NotNil(t, rec)
	assert.Equal(t, reg.RegisteredAt, rec.Joined)
	assert.Zero(t, rec.TotalPosts)
}

func TestRegisterChannelConflict(t *testing.T) {
	l, _ := newTestLedger(t)
	reg := testRegistration()

	_, err := l.RegisterChannel(context.Background(), reg)
	require.NoError(t, err)

	other := reg
	other.CreatorID = "creator-2"
	other.CreatorName = "ben"

	existing, err := l.RegisterChannel(context.Background(), other)
	assert.ErrorIs(t, err, domain.ErrChannelAlreadyRegistered)
	require.NotNil(t, existing)
	assert.Equal(t, "ava", existing.CreatorName)
}

func TestUnregisterKeepsCreatorState(t *testing.T) {
	l, store := newTestLedger(t)
	reg := testRegistration()

	_, err := l.RegisterChannel(context.Background(), reg)
	require.NoError(t, err)
	record(t, l, reg, "2024-01-01")

	removed, err := l.UnregisterChannel(context.Background(), reg.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, "ava", removed.CreatorName)

	snap := store.snapshot(t)
	assert.NotContains(t, snap.Channels, reg.ChannelID)
	assert.NotNil(t, snap.Creator(reg.Key()))
	assert.Len(t, snap.Log(reg.Key()), 1)
}

func TestUnregisterUnknownChannel(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.UnregisterChannel(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrChannelNotRegistered)
}
