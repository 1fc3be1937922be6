package pricing

import (
	"context"
	"log"
	"time"

	"retailpos/backend/internal/cache"
	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/store"
)

const rulesCacheKey = "discount-rules:all"

// RuleSource yields the discount rules applicable at a point in time.
type RuleSource interface {
	ActiveRules(ctx context.Context, asOf time.Time) ([]domain.DiscountRule, error)
}

// StoreRuleSource reads rules from the repository through an optional
// cache. The cache holds the full rule set; applicability filtering
// happens per call so a cached entry stays valid across its TTL even as
// rules cross their activeFrom boundary.
type StoreRuleSource struct {
	repo  store.Repository
	cache cache.DiscountRuleCache
	ttl   time.Duration
}

func NewRuleSource(repo store.Repository, c cache.DiscountRuleCache, ttl time.Duration) *StoreRuleSource {
	if c == nil {
		c = cache.NoopDiscountRuleCache{}
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StoreRuleSource{repo: repo, cache: c, ttl: ttl}
}

func (s *StoreRuleSource) ActiveRules(ctx context.Context, asOf time.Time) ([]domain.DiscountRule, error) {
	cached, ok, err := s.cache.Get(ctx, rulesCacheKey)
	if err != nil {
		log.Printf("[pricing] WARN: rule cache read failed: %v", err)
	}
	if ok {
		return filterApplicable(cached, asOf), nil
	}

	rules, err := s.repo.ListDiscountRules(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, rulesCacheKey, rules, s.ttl); err != nil {
		log.Printf("[pricing] WARN: rule cache write failed: %v", err)
	}
	return filterApplicable(rules, asOf), nil
}

func filterApplicable(rules []domain.DiscountRule, asOf time.Time) []domain.DiscountRule {
	out := make([]domain.DiscountRule, 0, len(rules))
	for _, r := range rules {
		if r.ApplicableAt(asOf) {
			out = append(out, r)
		}
	}
	return out
}
