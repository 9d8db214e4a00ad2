package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// key layout:
//
//	list: pq:queue:{tier}          -> [QueueEntry JSON, ...] oldest first
//	kv  : pq:queued:{userID}       -> entry JSON, TTL guards leftovers
type redisRepo struct {
	rdb  *redis.Client
	tier string
	ttl  time.Duration
}

func NewRedisRepo(rdb *redis.Client, tier string, ttlSeconds int) Repo {
	return &redisRepo{rdb: rdb, tier: tier, ttl: time.Duration(ttlSeconds) * time.Second}
}

func (r *redisRepo) queueKey() string {
	return fmt.Sprintf("pq:queue:%s", r.tier)
}

func playerKey(userID string) string {
	return fmt.Sprintf("pq:queued:%s", userID)
}

func (r *redisRepo) Enqueue(ctx context.Context, entry QueueEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	// SetNX doubles as the duplicate check
	ok, err := r.rdb.SetNX(ctx, playerKey(entry.UserID), data, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s already queued", entry.UserID)
	}
	return r.rdb.RPush(ctx, r.queueKey(), data).Err()
}

func (r *redisRepo) Pop(ctx context.Context) (QueueEntry, bool, error) {
	for {
		data, err := r.rdb.LPop(ctx, r.queueKey()).Result()
		if err == redis.Nil {
			return QueueEntry{}, false, nil
		}
		if err != nil {
			return QueueEntry{}, false, err
		}
		var entry QueueEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return QueueEntry{}, false, err
		}
		// a missing marker means the entry was cancelled; skip it
		n, err := r.rdb.Del(ctx, playerKey(entry.UserID)).Result()
		if err != nil {
			return QueueEntry{}, false, err
		}
		if n == 0 {
			continue
		}
		return entry, true, nil
	}
}

func (r *redisRepo) Remove(ctx context.Context, userID string) error {
	// drop the marker; Pop discards orphaned list entries lazily
	data, err := r.rdb.GetDel(ctx, playerKey(userID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	return r.rdb.LRem(ctx, r.queueKey(), 1, data).Err()
}

func (r *redisRepo) Len(ctx context.Context) (int64, error) {
	return r.rdb.LLen(ctx, r.queueKey()).Result()
}
