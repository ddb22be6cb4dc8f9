//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(ctx context.Context, t *testing.T) *redis.Client {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestRedisStatsCountsDecisions(t *testing.T) {
	ctx := context.Background()
	rdb := startRedis(ctx, t)
	stats := NewRedisStats(rdb, "test:rl:", time.Hour)

	at := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)
	require.NoError(t, stats.Record(ctx, StatsEvent{Key: "ip:1", Allowed: true, Method: "POST", Path: "/v1/enrollments", At: at}))
	require.NoError(t, stats.Record(ctx, StatsEvent{Key: "ip:1", Allowed: true, Method: "POST", Path: "/v1/enrollments", At: at}))
	require.NoError(t, stats.Record(ctx, StatsEvent{Key: "ip:1", Allowed: false, Method: "POST", Path: "/v1/enrollments", At: at}))

	allowed, denied, err := stats.Totals(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), allowed)
	require.Equal(t, int64(1), denied)

	minute, err := rdb.HGetAll(ctx, "test:rl:minute:202604020830").Result()
	require.NoError(t, err)
	require.Equal(t, "2", minute["allowed"])

	ttl, err := rdb.TTL(ctx, "test:rl:minute:202604020830").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	route, err := rdb.HGet(ctx, "test:rl:route", "POST /v1/enrollments:denied").Result()
	require.NoError(t, err)
	require.Equal(t, "1", route)
}
