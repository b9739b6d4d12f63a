package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"custodia/internal/platform/redis"
	"custodia/internal/timewindow"
	id "custodia/pkg/domain"
)

// Cache is a read-through cache over the schedule lookups on the event
// submission hot path. Misses are silent; the store remains the source of
// truth.
type Cache interface {
	GetCategory(ctx context.Context, date time.Time) (timewindow.Category, bool)
	SetCategory(ctx context.Context, date time.Time, category timewindow.Category)
	GetDayStatus(ctx context.Context, centerID id.CenterID, date time.Time) (*DayStatus, bool)
	SetDayStatus(ctx context.Context, centerID id.CenterID, date time.Time, status *DayStatus)
	InvalidateDate(ctx context.Context, date time.Time)
}

// NopCache disables caching. Used when Redis is not configured and in unit
// tests.
type NopCache struct{}

func (NopCache) GetCategory(context.Context, time.Time) (timewindow.Category, bool) { return "", false }
func (NopCache) SetCategory(context.Context, time.Time, timewindow.Category)        {}
func (NopCache) GetDayStatus(context.Context, id.CenterID, time.Time) (*DayStatus, bool) {
	return nil, false
}
func (NopCache) SetDayStatus(context.Context, id.CenterID, time.Time, *DayStatus) {}
func (NopCache) InvalidateDate(context.Context, time.Time)                        {}

// RedisCache caches schedule lookups with a bounded TTL. Cache errors are
// swallowed: a broken cache degrades to direct store reads, never to failed
// requests.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func categoryKey(date time.Time) string {
	return "schedule:category:" + date.Format(time.DateOnly)
}

func dayStatusKey(centerID id.CenterID, date time.Time) string {
	return fmt.Sprintf("schedule:daystatus:%s:%s", centerID, date.Format(time.DateOnly))
}

func (c *RedisCache) GetCategory(ctx context.Context, date time.Time) (timewindow.Category, bool) {
	val, err := c.client.Get(ctx, categoryKey(date)).Result()
	if err != nil {
		return "", false
	}
	category, err := timewindow.ParseCategory(val)
	if err != nil {
		return "", false
	}
	return category, true
}

func (c *RedisCache) SetCategory(ctx context.Context, date time.Time, category timewindow.Category) {
	_ = c.client.Set(ctx, categoryKey(date), string(category), c.ttl).Err()
}

func (c *RedisCache) GetDayStatus(ctx context.Context, centerID id.CenterID, date time.Time) (*DayStatus, bool) {
	raw, err := c.client.Get(ctx, dayStatusKey(centerID, date)).Bytes()
	if err != nil {
		return nil, false
	}
	var status DayStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, false
	}
	return &status, true
}

func (c *RedisCache) SetDayStatus(ctx context.Context, centerID id.CenterID, date time.Time, status *DayStatus) {
	raw, err := json.Marshal(status)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, dayStatusKey(centerID, date), raw, c.ttl).Err()
}

// InvalidateDate drops the category key for a date after a schedule write.
// Day-status keys age out on their own TTL.
func (c *RedisCache) InvalidateDate(ctx context.Context, date time.Time) {
	_ = c.client.Del(ctx, categoryKey(date)).Err()
}
