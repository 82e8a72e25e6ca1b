package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, id model.RoomID, data []byte) error {
	return s.client.Set(ctx, roomKey(id), data, s.cfg.RoomTTL).Err()
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	// Tear down the timer alongside the snapshot
	pipe := s.client.Pipeline()
	pipe.Del(ctx, roomKey(id))
	pipe.Del(ctx, timerKey(id))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ScanRooms(ctx context.Context) (map[model.RoomID][]byte, error) {
	keys, err := s.scanKeys(ctx, roomKeyPrefix)
	if err != nil {
		return nil, err
	}

	result := make(map[model.RoomID][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}
	// A key may expire between SCAN and GET; that surfaces as redis.Nil
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		result[roomIDFromKey(keys[i], roomKeyPrefix)] = data
	}
	return result, nil
}

// Timer operations

// SaveTimer stores the expiry as unix milliseconds
func (s *Storage) SaveTimer(ctx context.Context, id model.RoomID, expiry time.Time) error {
	value := strconv.FormatInt(expiry.UnixMilli(), 10)
	return s.client.Set(ctx, timerKey(id), value, s.cfg.RoomTTL).Err()
}

func (s *Storage) DeleteTimer(ctx context.Context, id model.RoomID) error {
	return s.client.Del(ctx, timerKey(id)).Err()
}

// ScanTimers returns every stored expiry. Entries that do not parse as unix milliseconds are skipped.
func (s *Storage) ScanTimers(ctx context.Context) (map[model.RoomID]time.Time, error) {
	keys, err := s.scanKeys(ctx, timerKeyPrefix)
	if err != nil {
		return nil, err
	}

	result := make(map[model.RoomID]time.Time, len(keys))
	for _, key := range keys {
		value, err := s.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		result[roomIDFromKey(key, timerKeyPrefix)] = time.UnixMilli(ms)
	}
	return result, nil
}

func (s *Storage) scanKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", s.cfg.ScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
