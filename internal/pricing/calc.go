package pricing

import (
	"fmt"
	"math"

	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/store"
)

// RuleValue computes the cents value of rule against baseCents. Percentage
// rules round half away from zero; fixed rules are capped at the base so a
// discount never exceeds the amount it discounts. The result is always
// within [0, baseCents].
func RuleValue(rule domain.DiscountRule, baseCents int64) (int64, error) {
	if baseCents < 0 {
		baseCents = 0
	}

	hasPct := rule.Percentage != nil
	hasFixed := rule.FixedAmountCents != nil
	if hasPct == hasFixed {
		return 0, fmt.Errorf("%w: rule %q must set exactly one of percentage or fixed amount", store.ErrConfiguration, rule.Name)
	}

	var amount int64
	if hasPct {
		pct := *rule.Percentage
		if pct < 0 {
			return 0, fmt.Errorf("%w: rule %q has a negative percentage", store.ErrConfiguration, rule.Name)
		}
		amount = int64(math.Round(float64(baseCents) * pct / 100))
	} else {
		fixed := *rule.FixedAmountCents
		if fixed < 0 {
			return 0, fmt.Errorf("%w: rule %q has a negative fixed amount", store.ErrConfiguration, rule.Name)
		}
		amount = fixed
	}

	if amount > baseCents {
		amount = baseCents
	}
	if amount < 0 {
		amount = 0
	}
	return amount, nil
}

// ValidateRule checks the scope-target invariant: exactly one target field
// set, matching the declared scope. The value invariant is checked by
// RuleValue; both must hold for a rule to be usable.
func ValidateRule(rule domain.DiscountRule) error {
	targets := 0
	if rule.TargetItemID != "" {
		targets++
	}
	if rule.TargetCategoryID != "" {
		targets++
	}
	if rule.LoyaltyTier != "" {
		targets++
	}
	if targets != 1 {
		return fmt.Errorf("%w: rule %q must set exactly one target, got %d", store.ErrConfiguration, rule.Name, targets)
	}

	switch rule.Scope {
	case domain.ScopeItem:
		if rule.TargetItemID == "" {
			return fmt.Errorf("%w: rule %q has scope ITEM but no target item", store.ErrConfiguration, rule.Name)
		}
	case domain.ScopeCategory:
		if rule.TargetCategoryID == "" {
			return fmt.Errorf("%w: rule %q has scope CATEGORY but no target category", store.ErrConfiguration, rule.Name)
		}
	case domain.ScopeLoyaltyTier:
		if rule.LoyaltyTier == "" {
			return fmt.Errorf("%w: rule %q has scope LOYALTY_TIER but no tier", store.ErrConfiguration, rule.Name)
		}
	default:
		return fmt.Errorf("%w: rule %q has unknown scope %q", store.ErrConfiguration, rule.Name, rule.Scope)
	}

	if (rule.Percentage != nil) == (rule.FixedAmountCents != nil) {
		return fmt.Errorf("%w: rule %q must set exactly one of percentage or fixed amount", store.ErrConfiguration, rule.Name)
	}
	return nil
}
