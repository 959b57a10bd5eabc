package cache

import (
	"brandwatch/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// MonitorCache holds the active monitor list per brand for the scoring path
type MonitorCache interface {
	// GetActive returns found=false on a miss
	GetActive(ctx context.Context, brandID string) (monitors []*model.Monitor, found bool, err error)
	SetActive(ctx context.Context, brandID string, monitors []*model.Monitor) error
	Invalidate(ctx context.Context, brandID string) error
}

type monitorCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMonitorCache creates a new monitor cache
func NewMonitorCache(client *redis.Client, ttl time.Duration) MonitorCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &monitorCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *monitorCache) key(brandID string) string {
	if brandID == "" {
		brandID = "*"
	}
	return fmt.Sprintf("monitors:%s:active", brandID)
}

func (c *monitorCache) GetActive(ctx context.Context, brandID string) ([]*model.Monitor, bool, error) {
	data, err := c.client.Get(ctx, c.key(brandID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var monitors []*model.Monitor
	if err := json.Unmarshal([]byte(data), &monitors); err != nil {
		return nil, false, err
	}
	return monitors, true, nil
}

func (c *monitorCache) SetActive(ctx context.Context, brandID string, monitors []*model.Monitor) error {
	if monitors == nil {
		monitors = []*model.Monitor{}
	}
	data, err := json.Marshal(monitors)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(brandID), data, c.ttl).Err()
}

func (c *monitorCache) Invalidate(ctx context.Context, brandID string) error {
	// the all-brands list contains this brand's monitors too
	return c.client.Del(ctx, c.key(brandID), c.key("")).Err()
}
