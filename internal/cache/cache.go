package cache

import (
	"context"
	"time"

	"retailpos/backend/internal/domain"
)

type DiscountRuleCache interface {
	Get(ctx context.Context, key string) ([]domain.DiscountRule, bool, error)
	Set(ctx context.Context, key string, rules []domain.DiscountRule, ttl time.Duration) error
}

type NoopDiscountRuleCache struct{}

func (NoopDiscountRuleCache) Get(_ context.Context, _ string) ([]domain.DiscountRule, bool, error) {
	return nil, false, nil
}

func (NoopDiscountRuleCache) Set(_ context.Context, _ string, _ []domain.DiscountRule, _ time.Duration) error {
	return nil
}
