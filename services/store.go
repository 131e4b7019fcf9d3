package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"waitline-system/models"
)

// Fixed key names for the locally persisted waitline state. The day's
// entry list and the current-guest entry survive restarts so the
// dashboard stays usable when the venue backend is down.
const (
	entriesKeyPrefix = "waitline:entries:"
	currentKey       = "waitline:current"
	handoffKey       = "waitline:handoff"
)

// Persistence is the port for the locally persisted waitline state:
// load-at-start, save-on-change. Loads never fail; unreadable state is
// absence of data.
type Persistence interface {
	SaveEntries(ctx context.Context, date string, entries []models.QueueEntry) error
	LoadEntries(ctx context.Context, date string) []models.QueueEntry
	SaveCurrent(ctx context.Context, entry *models.QueueEntry) error
	LoadCurrent(ctx context.Context) *models.QueueEntry
	ClearCurrent(ctx context.Context) error
	SaveHandoff(ctx context.Context, handoff *models.ReservationHandoff) error
	LoadHandoff(ctx context.Context) *models.ReservationHandoff
	ClearHandoff(ctx context.Context) error
}

// Store persists the waitline snapshot in Redis under fixed key names,
// everything serialized as JSON with instants in RFC3339. Parse
// failures are logged and read as absence of data.
type Store struct {
	Redis *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{Redis: redisClient}
}

func entriesKey(date string) string {
	return entriesKeyPrefix + date
}

func (s *Store) SaveEntries(ctx context.Context, date string, entries []models.QueueEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("saveEntries: json.Marshal: %w", err)
	}
	if err := s.Redis.Set(ctx, entriesKey(date), data, 0).Err(); err != nil {
		return fmt.Errorf("saveEntries: %w", err)
	}
	return nil
}

func (s *Store) LoadEntries(ctx context.Context, date string) []models.QueueEntry {
	data, err := s.Redis.Get(ctx, entriesKey(date)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		slog.Warn("store: load entries", "date", date, "err", err)
		return nil
	}

	var entries []models.QueueEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		slog.Warn("store: corrupt entries snapshot, ignoring", "date", date, "err", err)
		return nil
	}
	return entries
}

func (s *Store) SaveCurrent(ctx context.Context, entry *models.QueueEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("saveCurrent: json.Marshal: %w", err)
	}
	if err := s.Redis.Set(ctx, currentKey, data, 0).Err(); err != nil {
		return fmt.Errorf("saveCurrent: %w", err)
	}
	return nil
}

func (s *Store) LoadCurrent(ctx context.Context) *models.QueueEntry {
	data, err := s.Redis.Get(ctx, currentKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		slog.Warn("store: load current entry", "err", err)
		return nil
	}

	var entry models.QueueEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		slog.Warn("store: corrupt current entry, ignoring", "err", err)
		return nil
	}
	return &entry
}

func (s *Store) ClearCurrent(ctx context.Context) error {
	return s.Redis.Del(ctx, currentKey).Err()
}

func (s *Store) SaveHandoff(ctx context.Context, handoff *models.ReservationHandoff) error {
	data, err := json.Marshal(handoff)
	if err != nil {
		return fmt.Errorf("saveHandoff: json.Marshal: %w", err)
	}
	if err := s.Redis.Set(ctx, handoffKey, data, 0).Err(); err != nil {
		return fmt.Errorf("saveHandoff: %w", err)
	}
	return nil
}

func (s *Store) LoadHandoff(ctx context.Context) *models.ReservationHandoff {
	data, err := s.Redis.Get(ctx, handoffKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		slog.Warn("store: load handoff", "err", err)
		return nil
	}

	var handoff models.ReservationHandoff
	if err := json.Unmarshal([]byte(data), &handoff); err != nil {
		slog.Warn("store: corrupt handoff, ignoring", "err", err)
		return nil
	}
	return &handoff
}

func (s *Store) ClearHandoff(ctx context.Context) error {
	return s.Redis.Del(ctx, handoffKey).Err()
}
