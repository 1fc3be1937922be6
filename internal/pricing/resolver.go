package pricing

import (
	"log"

	"retailpos/backend/internal/domain"
)

// ResolveLineDiscount picks the single best item-or-category discount for
// one line. Item-scoped and category-scoped rules compete: the category
// discount wins only when its value strictly exceeds the best item value,
// so ties keep the item discount. A line never carries both. Misconfigured
// rules are skipped with a warning rather than failing the whole pricing
// call. Returns nil when no rule produces a positive value.
func ResolveLineDiscount(item domain.CatalogItem, baseCents int64, rules []domain.DiscountRule) *domain.LineDiscount {
	var bestItem, bestCategory *domain.LineDiscount

	for _, rule := range rules {
		var kind string
		switch rule.Scope {
		case domain.ScopeItem:
			if rule.TargetItemID != item.ID {
				continue
			}
			kind = domain.DiscountKindItem
		case domain.ScopeCategory:
			if rule.TargetCategoryID != item.CategoryID {
				continue
			}
			kind = domain.DiscountKindCategory
		default:
			continue
		}

		if err := ValidateRule(rule); err != nil {
			log.Printf("[pricing] WARN: skipping unusable rule %q: %v", rule.Name, err)
			continue
		}
		value, err := RuleValue(rule, baseCents)
		if err != nil {
			log.Printf("[pricing] WARN: skipping unusable rule %q: %v", rule.Name, err)
			continue
		}
		if value < 1 {
			continue
		}

		candidate := &domain.LineDiscount{Kind: kind, Name: rule.Name, AmountCents: value}
		if kind == domain.DiscountKindItem {
			if bestItem == nil || value > bestItem.AmountCents {
				bestItem = candidate
			}
		} else {
			if bestCategory == nil || value > bestCategory.AmountCents {
				bestCategory = candidate
			}
		}
	}

	if bestCategory != nil && (bestItem == nil || bestCategory.AmountCents > bestItem.AmountCents) {
		return bestCategory
	}
	return bestItem
}

// ResolveLoyaltyDiscount picks the best loyalty-tier discount for a
// customer against the pre-discount order subtotal. Only percentage rules
// compete; fixed-amount loyalty rules are not compared on this axis and
// never win. NOT_LOYALTY customers get nothing.
func ResolveLoyaltyDiscount(customer domain.Customer, subtotalCents int64, rules []domain.DiscountRule) *domain.LineDiscount {
	if customer.LoyaltyTier == "" || customer.LoyaltyTier == domain.TierNotLoyalty {
		return nil
	}

	var best *domain.DiscountRule
	for i := range rules {
		rule := &rules[i]
		if rule.Scope != domain.ScopeLoyaltyTier || rule.LoyaltyTier != customer.LoyaltyTier {
			continue
		}
		if rule.Percentage == nil {
			continue
		}
		if err := ValidateRule(*rule); err != nil {
			log.Printf("[pricing] WARN: skipping unusable rule %q: %v", rule.Name, err)
			continue
		}
		if best == nil || *rule.Percentage > *best.Percentage {
			best = rule
		}
	}
	if best == nil {
		return nil
	}

	value, err := RuleValue(*best, subtotalCents)
	if err != nil {
		log.Printf("[pricing] WARN: skipping unusable rule %q: %v", best.Name, err)
		return nil
	}
	if value < 1 {
		return nil
	}
	return &domain.LineDiscount{Kind: domain.DiscountKindLoyalty, Name: best.Name, AmountCents: value}
}
