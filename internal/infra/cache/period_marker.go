package cache

import (
	"context"
	"fmt"
	"time"

	"compliance_reminders/internal/domain/reminder"

	"github.com/redis/go-redis/v9"
)

// MarkerTTL outlives the longest period (a month) with some margin.
const MarkerTTL = 35 * 24 * time.Hour

// RedisPeriodMarkers remembers which module periods were already sent.
type RedisPeriodMarkers struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisPeriodMarkers(rdb redis.Cmdable) *RedisPeriodMarkers {
	return &RedisPeriodMarkers{rdb: rdb, ttl: MarkerTTL}
}

// NewRedisClient opens a client and checks it with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func markerKey(module reminder.ModuleKey, periodKey string) string {
	return fmt.Sprintf("reminders:sent:%s:%s", module, periodKey)
}

func (m *RedisPeriodMarkers) IsMarked(ctx context.Context, module reminder.ModuleKey, periodKey string) (bool, error) {
	n, err := m.rdb.Exists(ctx, markerKey(module, periodKey)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read period marker: %w", err)
	}
	return n > 0, nil
}

func (m *RedisPeriodMarkers) Mark(ctx context.Context, module reminder.ModuleKey, periodKey string) error {
	if err := m.rdb.Set(ctx, markerKey(module, periodKey), time.Now().UTC().Format(time.RFC3339), m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write period marker: %w", err)
	}
	return nil
}
