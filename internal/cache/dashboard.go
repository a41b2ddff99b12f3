package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"rollcall/internal/attendance"
)

// Dashboard caches the department-wide dashboard payload per date in Redis.
// The worker refreshes entries when attendance changes; the TTL bounds
// staleness if no event arrives.
type Dashboard struct {
	client *redis.Client
	ttl    time.Duration
}

// ErrMiss signals the date has no cached entry.
var ErrMiss = errors.New("dashboard cache miss")

// NewDashboard creates the cache.
func NewDashboard(client *redis.Client, ttl time.Duration) *Dashboard {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Dashboard{client: client, ttl: ttl}
}

func key(date string) string { return "rollcall:dashboard:" + date }

// Get returns the cached dashboard for a wire date, or ErrMiss.
func (d *Dashboard) Get(ctx context.Context, date string) ([]attendance.DashboardClass, error) {
	if d == nil || d.client == nil {
		return nil, ErrMiss
	}
	payload, err := d.client.Get(ctx, key(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var classes []attendance.DashboardClass
	if err := json.Unmarshal(payload, &classes); err != nil {
		return nil, ErrMiss
	}
	return classes, nil
}

// Set stores a freshly computed dashboard.
func (d *Dashboard) Set(ctx context.Context, date string, classes []attendance.DashboardClass) error {
	if d == nil || d.client == nil {
		return nil
	}
	payload, err := json.Marshal(classes)
	if err != nil {
		return err
	}
	return d.client.Set(ctx, key(date), payload, d.ttl).Err()
}

// Invalidate drops the cached entry for a date.
func (d *Dashboard) Invalidate(ctx context.Context, date string) error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Del(ctx, key(date)).Err()
}
