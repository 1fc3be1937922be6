package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"retailpos/backend/internal/domain"
)

type RedisDiscountRuleCache struct {
	client *redis.Client
}

func NewRedisDiscountRuleCache(addr string, password string, db int) *RedisDiscountRuleCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisDiscountRuleCache{client: client}
}

func (c *RedisDiscountRuleCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisDiscountRuleCache) Close() error {
	return c.client.Close()
}

func (c *RedisDiscountRuleCache) Get(ctx context.Context, key string) ([]domain.DiscountRule, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rules []domain.DiscountRule
	if err := json.Unmarshal([]byte(val), &rules); err != nil {
		return nil, false, err
	}
	return rules, true, nil
}

func (c *RedisDiscountRuleCache) Set(ctx context.Context, key string, rules []domain.DiscountRule, ttl time.Duration) error {
	if rules == nil {
		return nil
	}
	payload, err := json.Marshal(rules)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
