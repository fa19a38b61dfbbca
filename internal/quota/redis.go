package quota

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"jobalert-engine/internal/clock"
	"jobalert-engine/internal/domain"
)

const (
	redisKeyPrefix = "jobalert:quota:"
	redisOpTimeout = 5 * time.Second

	// Entries carry a TTL instead of relying on ClearAll, so a ledger written
	// yesterday ages out even if the process was down for the sweep.
	redisEntryTTL = 48 * time.Hour
)

// RedisTracker backs the ledger with Redis sets keyed (subscriber, date),
// so quota state survives process restarts. Check-then-mutate sequences are
// serialized client-side; the engine is the only writer of these keys.
type RedisTracker struct {
	rdb *redis.Client
	clk clock.Clock
	log *zap.Logger

	mu sync.Mutex
}

// NewRedisTracker connects to redisURL and verifies connectivity.
func NewRedisTracker(ctx context.Context, redisURL string, clk clock.Clock, log *zap.Logger) (*RedisTracker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("quota: invalid redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("quota: redis ping failed: %w", err)
	}

	return &RedisTracker{rdb: rdb, clk: clk, log: log}, nil
}

func (t *RedisTracker) Close() error { return t.rdb.Close() }

func (t *RedisTracker) key(alert *domain.AlertSubscription) string {
	return redisKeyPrefix + dayKey(alert, t.clk.Today())
}

func (t *RedisTracker) SentToday(alert *domain.AlertSubscription) map[int64]bool {
	ctx, cancel := opCtx()
	defer cancel()

	members, err := t.rdb.SMembers(ctx, t.key(alert)).Result()
	if err != nil {
		t.log.Warn("quota read failed, treating as empty", zap.Error(err))
		return map[int64]bool{}
	}
	out := make(map[int64]bool, len(members))
	for _, m := range members {
		if id, err := strconv.ParseInt(m, 10, 64); err == nil {
			out[id] = true
		}
	}
	return out
}

func (t *RedisTracker) MarkSent(alert *domain.AlertSubscription, jobIDs []int64) {
	if len(jobIDs) == 0 {
		return
	}
	ctx, cancel := opCtx()
	defer cancel()

	key := t.key(alert)
	members := make([]interface{}, 0, len(jobIDs))
	for _, id := range jobIDs {
		members = append(members, strconv.FormatInt(id, 10))
	}
	pipe := t.rdb.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, redisEntryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		t.log.Warn("quota mark failed", zap.String("key", key), zap.Error(err))
	}
}

func (t *RedisTracker) TryReserve(alert *domain.AlertSubscription, jobID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	sent := t.SentToday(alert)
	if len(sent) >= DailyCap || sent[jobID] {
		return false
	}
	t.MarkSent(alert, []int64{jobID})
	return true
}

func (t *RedisTracker) Release(alert *domain.AlertSubscription, jobID int64) {
	ctx, cancel := opCtx()
	defer cancel()

	if err := t.rdb.SRem(ctx, t.key(alert), strconv.FormatInt(jobID, 10)).Err(); err != nil {
		t.log.Warn("quota release failed", zap.Int64("job_id", jobID), zap.Error(err))
	}
}

func (t *RedisTracker) TrySupersede(alert *domain.AlertSubscription, newJobID int64, newScore float64, sentScores map[int64]float64) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sent := t.SentToday(alert)
	if len(sent) < DailyCap || sent[newJobID] {
		return 0, false
	}
	victim, min, found := lowestScored(sent, sentScores)
	if !found || newScore <= min {
		return 0, false
	}

	ctx, cancel := opCtx()
	defer cancel()
	key := t.key(alert)
	pipe := t.rdb.TxPipeline()
	pipe.SRem(ctx, key, strconv.FormatInt(victim, 10))
	pipe.SAdd(ctx, key, strconv.FormatInt(newJobID, 10))
	pipe.Expire(ctx, key, redisEntryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		t.log.Warn("quota supersede failed", zap.String("key", key), zap.Error(err))
		return 0, false
	}
	return victim, true
}

func (t *RedisTracker) ClearAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	iter := t.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		t.log.Warn("quota scan failed during clear", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := t.rdb.Del(ctx, keys...).Err(); err != nil {
		t.log.Warn("quota clear failed", zap.Error(err))
	}
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}
