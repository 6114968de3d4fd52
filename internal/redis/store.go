// Package redis implements the Redis-backed snapshot store.
//
// State lives in three key families: one hash for channel
// registrations, one for creator records, and one hash per creator for
// the post log. Load rebuilds the full snapshot; Save rewrites it in a
// single pipeline.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	json "github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/nickfine05/TikTok-Post-Tracker/internal/domain"
)

const (
	channelsKey    = "tracker:channels"
	creatorsKey    = "tracker:creators"
	postsKeyPrefix = "tracker:posts:"
)

func postsKey(creatorKey string) string {
	return postsKeyPrefix + creatorKey
}

type Store struct {
	rdb *goredis.Client
}

func NewStore(rdb *goredis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := domain.NewSnapshot()

	channels, err := s.rdb.HGetAll(ctx, channelsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load channels: %w", err)
	}
	for id, raw := range channels {
		var reg domain.ChannelRegistration
		if err := json.Unmarshal([]byte(raw), &reg); err != nil {
			return nil, fmt.Errorf("decode channel %s: %w", id, err)
		}
		snap.Channels[id] = &reg
	}

	creators, err := s.rdb.HGetAll(ctx, creatorsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load creators: %w", err)
	}
	for key, raw := range creators {
		var rec domain.CreatorRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode creator %s: %w", key, err)
		}
		snap.Creators[key] = &rec
	}

	for key := range snap.Creators {
		entries, err := s.rdb.HGetAll(ctx, postsKey(key)).Result()
		if err != nil {
			return nil, fmt.Errorf("load posts for %s: %w", key, err)
		}
		if len(entries) == 0 {
			continue
		}
		log := make(domain.PostLog, len(entries))
		for date, raw := range entries {
			var entry domain.PostEntry
			if err := json.Unmarshal([]byte(raw), &entry); err != nil {
				// One bad entry loses its audit detail, not the date.
				slog.Warn("Corrupted post entry, keeping date only", "creator_key", key, "date", date, "error", err)
				entry = domain.PostEntry{}
			}
			log[domain.Date(date)] = entry
		}
		snap.Posts[key] = log
	}

	snap.Normalize()
	return snap, nil
}

func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	channelFields := make(map[string]any, len(snap.Channels))
	for id, reg := range snap.Channels {
		raw, err := json.Marshal(reg)
		if err != nil {
			return fmt.Errorf("encode channel %s: %w", id, err)
		}
		channelFields[id] = string(raw)
	}

	creatorFields := make(map[string]any, len(snap.Creators))
	for key, rec := range snap.Creators {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode creator %s: %w", key, err)
		}
		creatorFields[key] = string(raw)
	}

	postFields := make(map[string]map[string]any, len(snap.Posts))
	for key, log := range snap.Posts {
		fields := make(map[string]any, len(log))
		for date, entry := range log {
			raw, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("encode post %s/%s: %w", key, date, err)
			}
			fields[string(date)] = string(raw)
		}
		postFields[key] = fields
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, channelsKey, creatorsKey)
	if len(channelFields) > 0 {
		pipe.HSet(ctx, channelsKey, channelFields)
	}
	if len(creatorFields) > 0 {
		pipe.HSet(ctx, creatorsKey, creatorFields)
	}
	for key, fields := range postFields {
		pipe.Del(ctx, postsKey(key))
		if len(fields) > 0 {
			pipe.HSet(ctx, postsKey(key), fields)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
