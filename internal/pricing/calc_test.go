package pricing

import (
	"errors"
	"testing"

	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/store"
)

func pctPtr(v float64) *float64 { return &v }
func fixedPtr(v int64) *int64   { return &v }

func TestRuleValuePercentage(t *testing.T) {
	rule := domain.DiscountRule{Name: "TEN", Percentage: pctPtr(10)}

	got, err := RuleValue(rule, 10000)
	if err != nil {
		t.Fatalf("rule value: %v", err)
	}
	if got != 1000 {
		t.Fatalf("expected 1000, got %d", got)
	}
}

func TestRuleValueFixedCappedAtBase(t *testing.T) {
	rule := domain.DiscountRule{Name: "BIGFIXED", FixedAmountCents: fixedPtr(5000)}

	got, err := RuleValue(rule, 2000)
	if err != nil {
		t.Fatalf("rule value: %v", err)
	}
	if got != 2000 {
		t.Fatalf("expected discount capped at base 2000, got %d", got)
	}
}

func TestRuleValueNeverNegative(t *testing.T) {
	rule := domain.DiscountRule{Name: "TEN", Percentage: pctPtr(10)}

	got, err := RuleValue(rule, -500)
	if err != nil {
		t.Fatalf("rule value: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0 for negative base, got %d", got)
	}
}

func TestRuleValueRejectsNoValueField(t *testing.T) {
	_, err := RuleValue(domain.DiscountRule{Name: "EMPTY"}, 1000)
	if !errors.Is(err, store.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRuleValueRejectsBothValueFields(t *testing.T) {
	rule := domain.DiscountRule{Name: "BOTH", Percentage: pctPtr(10), FixedAmountCents: fixedPtr(100)}
	_, err := RuleValue(rule, 1000)
	if !errors.Is(err, store.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRuleValueRejectsNegativePercentage(t *testing.T) {
	rule := domain.DiscountRule{Name: "NEG", Percentage: pctPtr(-5)}
	_, err := RuleValue(rule, 1000)
	if !errors.Is(err, store.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRuleValueStaysWithinBase(t *testing.T) {
	bases := []int64{0, 1, 99, 10000, 123456789}
	rules := []domain.DiscountRule{
		{Name: "P0", Percentage: pctPtr(0)},
		{Name: "P50", Percentage: pctPtr(50)},
		{Name: "P100", Percentage: pctPtr(100)},
		{Name: "F1", FixedAmountCents: fixedPtr(1)},
		{Name: "F1M", FixedAmountCents: fixedPtr(100000000)},
	}
	for _, base := range bases {
		for _, rule := range rules {
			got, err := RuleValue(rule, base)
			if err != nil {
				t.Fatalf("rule %s base %d: %v", rule.Name, base, err)
			}
			if got < 0 || got > base {
				t.Fatalf("rule %s base %d: value %d out of range", rule.Name, base, got)
			}
		}
	}
}

func TestValidateRuleScopeTargetMismatch(t *testing.T) {
	cases := []domain.DiscountRule{
		{Name: "no-target", Scope: domain.ScopeItem, Percentage: pctPtr(10)},
		{Name: "wrong-target", Scope: domain.ScopeItem, TargetCategoryID: "cat-1", Percentage: pctPtr(10)},
		{Name: "two-targets", Scope: domain.ScopeCategory, TargetItemID: "itm-1", TargetCategoryID: "cat-1", Percentage: pctPtr(10)},
		{Name: "bad-scope", Scope: "SEASONAL", TargetItemID: "itm-1", Percentage: pctPtr(10)},
		{Name: "no-value", Scope: domain.ScopeLoyaltyTier, LoyaltyTier: domain.TierGold},
	}
	for _, rule := range cases {
		if err := ValidateRule(rule); !errors.Is(err, store.ErrConfiguration) {
			t.Fatalf("rule %s: expected configuration error, got %v", rule.Name, err)
		}
	}
}

func TestValidateRuleAcceptsWellFormedRules(t *testing.T) {
	cases := []domain.DiscountRule{
		{Name: "item", Scope: domain.ScopeItem, TargetItemID: "itm-1", Percentage: pctPtr(10)},
		{Name: "category", Scope: domain.ScopeCategory, TargetCategoryID: "cat-1", FixedAmountCents: fixedPtr(500)},
		{Name: "tier", Scope: domain.ScopeLoyaltyTier, LoyaltyTier: domain.TierGold, Percentage: pctPtr(5)},
	}
	for _, rule := range cases {
		if err := ValidateRule(rule); err != nil {
			t.Fatalf("rule %s: unexpected error %v", rule.Name, err)
		}
	}
}
