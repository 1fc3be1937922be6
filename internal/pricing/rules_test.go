package pricing

import (
	"context"
	"testing"
	"time"

	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/store/memory"
)

type fakeRuleCache struct {
	entries map[string][]domain.DiscountRule
	hits    int
	misses  int
}

func newFakeRuleCache() *fakeRuleCache {
	return &fakeRuleCache{entries: make(map[string][]domain.DiscountRule)}
}

func (c *fakeRuleCache) Get(_ context.Context, key string) ([]domain.DiscountRule, bool, error) {
	rules, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return rules, ok, nil
}

func (c *fakeRuleCache) Set(_ context.Context, key string, rules []domain.DiscountRule, _ time.Duration) error {
	c.entries[key] = rules
	return nil
}

func TestActiveRulesPopulatesCacheOnMiss(t *testing.T) {
	repo := memory.NewSeeded()
	fc := newFakeRuleCache()
	source := NewRuleSource(repo, fc, time.Minute)
	ctx := context.Background()

	if _, err := source.ActiveRules(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if fc.misses != 1 || len(fc.entries) != 1 {
		t.Fatalf("expected one miss and a populated cache, got %+v", fc)
	}

	if _, err := source.ActiveRules(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if fc.hits != 1 {
		t.Fatalf("expected a cache hit, got %d", fc.hits)
	}
}

func TestActiveRulesFiltersCachedSetPerCall(t *testing.T) {
	repo := memory.NewSeeded()
	source := NewRuleSource(repo, newFakeRuleCache(), time.Minute)
	ctx := context.Background()
	now := time.Now().UTC()

	hasRule := func(rules []domain.DiscountRule, name string) bool {
		for _, r := range rules {
			if r.Name == name {
				return true
			}
		}
		return false
	}

	// HOLIDAY20 starts a month out, so it must stay filtered today even
	// once the full set sits in the cache.
	current, err := source.ActiveRules(ctx, now)
	if err != nil {
		t.Fatalf("active rules: %v", err)
	}
	if hasRule(current, "HOLIDAY20") {
		t.Fatal("future rule leaked into the current set")
	}
	if !hasRule(current, "ESPRESSO10") {
		t.Fatal("expected ESPRESSO10 in the current set")
	}

	future, err := source.ActiveRules(ctx, now.Add(60*24*time.Hour))
	if err != nil {
		t.Fatalf("active rules in the future: %v", err)
	}
	if !hasRule(future, "HOLIDAY20") {
		t.Fatal("expected HOLIDAY20 once its start date has passed")
	}
}
