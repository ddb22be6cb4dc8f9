package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStats counts decisions in Redis hashes: a running total, one bucket
// per minute and one counter per route.
type RedisStats struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStats builds a RedisStats. Minute buckets expire after ttl.
func NewRedisStats(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStats {
	if prefix == "" {
		prefix = "booking:ratelimit"
	}
	return &RedisStats{rdb: rdb, prefix: strings.Trim(prefix, ":"), ttl: ttl}
}

// Record implements StatsRecorder.
func (s *RedisStats) Record(ctx context.Context, ev StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}

	if route := strings.TrimSpace(ev.Method + " " + ev.Path); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Totals returns the running allowed and denied counts.
func (s *RedisStats) Totals(ctx context.Context) (allowed, denied int64, err error) {
	values, err := s.rdb.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return 0, 0, err
	}
	return parseCount(values["allowed"]), parseCount(values["denied"]), nil
}

func parseCount(value string) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
