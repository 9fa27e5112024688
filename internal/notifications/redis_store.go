package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skillswap/internal/models"

	"github.com/redis/go-redis/v9"
)

// FeedTTL is how long an idle feed survives in Redis.
const FeedTTL = 7 * 24 * time.Hour

// RedisStore keeps each feed as a hash of id -> JSON plus a sorted set of ids
// scored by creation time.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore returns a Store backed by rdb.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: FeedTTL}
}

func feedKey(userID uint) string  { return fmt.Sprintf("notif:%d", userID) }
func indexKey(userID uint) string { return fmt.Sprintf("notif:%d:index", userID) }

func (s *RedisStore) Add(ctx context.Context, n *models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	fk, ik := feedKey(n.UserID), indexKey(n.UserID)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, fk, n.ID, data)
	pipe.ZAdd(ctx, ik, redis.Z{Score: float64(n.CreatedAt.UnixNano()), Member: n.ID})
	pipe.Expire(ctx, fk, s.ttl)
	pipe.Expire(ctx, ik, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return s.trim(ctx, n.UserID)
}

// trim evicts the oldest entries beyond MaxPerUser.
func (s *RedisStore) trim(ctx context.Context, userID uint) error {
	ik := indexKey(userID)
	count, err := s.rdb.ZCard(ctx, ik).Result()
	if err != nil {
		return fmt.Errorf("count notifications: %w", err)
	}
	if count <= MaxPerUser {
		return nil
	}
	stale, err := s.rdb.ZRange(ctx, ik, 0, count-MaxPerUser-1).Result()
	if err != nil {
		return fmt.Errorf("load stale notifications: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}
	members := make([]interface{}, len(stale))
	for i, id := range stale {
		members[i] = id
	}
	pipe := s.rdb.TxPipeline()
	pipe.ZRem(ctx, ik, members...)
	pipe.HDel(ctx, feedKey(userID), stale...)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) List(ctx context.Context, userID uint) ([]models.Notification, error) {
	ids, err := s.rdb.ZRevRange(ctx, indexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]models.Notification, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	raw, err := s.rdb.HMGet(ctx, feedKey(userID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}
	for _, v := range raw {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var n models.Notification
		if err := json.Unmarshal([]byte(str), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *RedisStore) MarkRead(ctx context.Context, userID uint, id string) error {
	str, err := s.rdb.HGet(ctx, feedKey(userID), id).Result()
	if errors.Is(err, redis.Nil) {
		return models.NewNotFoundError("Notification", id)
	}
	if err != nil {
		return fmt.Errorf("load notification: %w", err)
	}
	var n models.Notification
	if err := json.Unmarshal([]byte(str), &n); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	if n.IsRead {
		return nil
	}
	n.IsRead = true
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return s.rdb.HSet(ctx, feedKey(userID), id, data).Err()
}

func (s *RedisStore) MarkAllRead(ctx context.Context, userID uint) error {
	feed, err := s.List(ctx, userID)
	if err != nil {
		return err
	}
	values := make([]interface{}, 0, len(feed)*2)
	for _, n := range feed {
		if n.IsRead {
			continue
		}
		n.IsRead = true
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		values = append(values, n.ID, data)
	}
	if len(values) == 0 {
		return nil
	}
	return s.rdb.HSet(ctx, feedKey(userID), values...).Err()
}
