package redis

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/domain"
)

var (
	testRedisURL   string
	redisContainer testcontainers.Container
)

func TestMain(m *testing.M) {
	flag.Parse()

	// Skip container setup if running in short mode
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	redisContainer, err = tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}
	testRedisURL = "redis://" + endpoint

	code := m.Run()

	if err := redisContainer.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate redis container: %v\n", err)
	}
	os.Exit(code)
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, testRedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.FlushDB(ctx).Err())
	return NewStore(client)
}

func sampleSnapshot() *domain.Snapshot {
	snap := domain.NewSnapshot()
	key := domain.CreatorKey{WorkspaceID: "guild-1", CreatorID: "creator-1"}
	snap.Channels["chan-1"] = &domain.ChannelRegistration{
		ChannelID:     "chan-1",
		CreatorID:     "creator-1",
		CreatorName:   "ava",
		WorkspaceID:   "guild-1",
		WorkspaceName: "Guild One",
		RegisteredBy:  "admin-1",
		RegisteredAt:  "2024-01-01",
	}
	snap.Creators[key.String()] = &domain.CreatorRecord{
		Name:          "ava",
		WorkspaceID:   "guild-1",
		WorkspaceName: "Guild One",
		CreatorID:     "creator-1",
		ChannelID:     "chan-1",
		Joined:        "2024-01-01",
		TotalPosts:    2,
		CurrentStreak: 2,
		BestStreak:    2,
		LastPosted:    "2024-01-03",
	}
	log := snap.EnsureLog(key)
	log["2024-01-02"] = domain.PostEntry{Timestamp: time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC), Channel: "daily-posts", Workspace: "Guild One"}
	log["2024-01-03"] = domain.PostEntry{Timestamp: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), Channel: "daily-posts", Workspace: "Guild One"}
	return snap
}

func TestLoadEmptyDatabase(t *testing.T) {
	store := setupTestStore(t)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Channels)
	assert.Empty(t, snap.Creators)
	assert.Empty(t, snap.Posts)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot()))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	reg := loaded.Channels["chan-1"]
	require.NotNil(t, reg)
	assert.Equal(t, "chan-1", reg.ChannelID)
	assert.Equal(t, "ava", reg.CreatorName)

	key := domain.CreatorKey{WorkspaceID: "guild-1", CreatorID: "creator-1"}
	rec := loaded.Creator(key)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.CurrentStreak)
	assert.Equal(t, domain.Date("2024-01-03"), rec.LastPosted)
	assert.True(t, rec.LastReminded.IsZero())

	log := loaded.Log(key)
	require.Len(t, log, 2)
	assert.Equal(t, "daily-posts", log["2024-01-02"].Channel)
}

func TestSaveRemovesDeletedChannels(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	snap := sampleSnapshot()
	require.NoError(t, store.Save(ctx, snap))

	delete(snap.Channels, "chan-1")
	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Channels)
	// Creator state survives an unregistration.
	assert.NotNil(t, loaded.Creator(domain.CreatorKey{WorkspaceID: "guild-1", CreatorID: "creator-1"}))
}

func TestLoadToleratesCorruptedPostEntry(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot()))
	require.NoError(t, store.rdb.HSet(ctx, postsKey("guild-1_creator-1"), "2024-01-04", "{broken").Err())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	log := loaded.Log(domain.CreatorKey{WorkspaceID: "guild-1", CreatorID: "creator-1"})
	require.Len(t, log, 3)
	// The date still counts toward streaks even with the detail lost.
	_, ok := log["2024-01-04"]
	assert.True(t, ok)
}

func TestNewClientBadURL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	_, err := NewClient(context.Background(), "not-a-url")
	assert.Error(t, err)
}
