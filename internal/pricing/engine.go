package pricing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/events"
	"retailpos/backend/internal/payment"
	"retailpos/backend/internal/store"
	"retailpos/backend/internal/xid"
)

const paymentCurrency = "usd"

// Engine prices orders against the discount catalog and commits accepted
// prices as durable orders. Pricing is pure read; Commit mutates and is
// idempotent per order token.
type Engine struct {
	repo      store.Repository
	rules     RuleSource
	payments  payment.Processor
	publisher events.Publisher
	now       func() time.Time
}

func NewEngine(repo store.Repository, rules RuleSource, payments payment.Processor, publisher events.Publisher) *Engine {
	if rules == nil {
		rules = NewRuleSource(repo, nil, 0)
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Engine{
		repo:      repo,
		rules:     rules,
		payments:  payments,
		publisher: publisher,
		now:       time.Now,
	}
}

// Price resolves discounts for the requested lines. Lines naming an item
// absent from the catalog are dropped from the result without error. The
// final total is reported as computed, even if negative; callers decide
// whether a negative total is acceptable.
func (e *Engine) Price(ctx context.Context, req domain.CalculateRequest, customerID string) (*domain.PricedOrder, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one order line is required", store.ErrValidation)
	}
	for _, it := range req.Items {
		if strings.TrimSpace(it.Name) == "" || it.Quantity < 1 {
			return nil, fmt.Errorf("%w: every line needs a name and a positive quantity", store.ErrValidation)
		}
	}

	var customer *domain.Customer
	if customerID != "" {
		c, err := e.repo.GetCustomerByID(ctx, customerID)
		if err != nil {
			return nil, err
		}
		customer = c
	}

	asOf := e.now().UTC()
	rules, err := e.rules.ActiveRules(ctx, asOf)
	if err != nil {
		return nil, err
	}

	priced := &domain.PricedOrder{Lines: make([]domain.OrderLine, 0, len(req.Items))}
	for _, it := range req.Items {
		item, err := e.repo.GetCatalogItemByName(ctx, it.Name)
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("[pricing] WARN: skipping unknown item %q", it.Name)
			continue
		}
		if err != nil {
			return nil, err
		}

		base := item.PriceCents * int64(it.Quantity)
		discount := ResolveLineDiscount(*item, base, rules)

		line := domain.OrderLine{
			ItemID:         item.ID,
			ItemName:       item.Name,
			Quantity:       it.Quantity,
			UnitPriceCents: item.PriceCents,
			Discount:       discount,
			LineTotalCents: base,
		}
		priced.SubtotalCents += base
		if discount != nil {
			line.LineTotalCents -= discount.AmountCents
			priced.LineDiscountCents += discount.AmountCents
		}
		priced.Lines = append(priced.Lines, line)
	}

	priced.TotalCents = priced.SubtotalCents - priced.LineDiscountCents
	if customer != nil {
		priced.LoyaltyDiscount = ResolveLoyaltyDiscount(*customer, priced.SubtotalCents, rules)
		if priced.LoyaltyDiscount != nil {
			priced.TotalCents -= priced.LoyaltyDiscount.AmountCents
		}

		settings, err := e.repo.GetLoyaltySettings(ctx)
		if err != nil {
			return nil, err
		}
		earned := int64(math.Round(float64(priced.TotalCents) * settings.PointsRate))
		if earned < 0 {
			earned = 0
		}
		priced.LoyaltyPointsEarned = earned
	}

	return priced, nil
}

// Commit persists a previously priced order. The client-supplied order
// token is the idempotency key: resubmitting the same token returns the
// original order id without crediting points or charging again. Payment
// failure is reported in the response, never by unwinding the committed
// order.
func (e *Engine) Commit(ctx context.Context, req domain.ApplyRequest, customerID string) (*domain.ApplyResponse, error) {
	token := strings.TrimSpace(req.OrderToken)
	if token == "" {
		return nil, fmt.Errorf("%w: orderToken is required", store.ErrValidation)
	}
	if len(req.Order.Lines) == 0 {
		return nil, fmt.Errorf("%w: the order has no lines", store.ErrValidation)
	}
	if customerID != "" {
		if _, err := e.repo.GetCustomerByID(ctx, customerID); err != nil {
			return nil, err
		}
	}

	if existing, err := e.repo.FindOrderByToken(ctx, token); err == nil {
		return &domain.ApplyResponse{Order: req.Order, OrderID: existing.ID, Duplicate: true}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	usages, err := e.usageRecords(ctx, req.Order, customerID)
	if err != nil {
		return nil, err
	}

	order := domain.Order{
		ID:            xid.New("ord"),
		OrderToken:    token,
		CustomerID:    customerID,
		SubtotalCents: req.Order.SubtotalCents,
		DiscountCents: req.Order.LineDiscountCents,
		TotalCents:    req.Order.TotalCents,
		PointsEarned:  req.Order.LoyaltyPointsEarned,
		Lines:         req.Order.Lines,
		CreatedAt:     e.now().UTC(),
	}
	if req.Order.LoyaltyDiscount != nil {
		order.DiscountCents += req.Order.LoyaltyDiscount.AmountCents
	}

	committed, err := e.repo.CommitOrder(ctx, order, usages)
	if err != nil {
		return nil, err
	}
	if committed.ID != order.ID {
		// Lost the race to a concurrent submit with the same token.
		return &domain.ApplyResponse{Order: req.Order, OrderID: committed.ID, Duplicate: true}, nil
	}

	e.publisher.Publish(events.EventOrderCommitted, committed.ID, events.OrderCommittedPayload{
		OrderID:      committed.ID,
		OrderToken:   token,
		CustomerID:   customerID,
		TotalCents:   committed.TotalCents,
		PointsEarned: committed.PointsEarned,
	})

	resp := &domain.ApplyResponse{Order: req.Order, OrderID: committed.ID}
	if e.payments != nil && req.PaymentMethodToken != "" && committed.TotalCents > 0 {
		intent, err := e.payments.CreateIntent(ctx, committed.TotalCents, paymentCurrency, req.PaymentMethodToken)
		if err != nil {
			log.Printf("[pricing] WARN: payment failed for order %s: %v", committed.ID, err)
			resp.PaymentStatus = "FAILED"
		} else {
			resp.PaymentStatus = strings.ToUpper(intent.Status)
			resp.PaymentRef = intent.TransactionID
		}
	}
	return resp, nil
}

// usageRecords maps each applied discount back to its rule by name. A name
// that no longer resolves is skipped with a warning so a deleted rule does
// not block checkout.
func (e *Engine) usageRecords(ctx context.Context, order domain.PricedOrder, customerID string) ([]domain.DiscountUsage, error) {
	discounts := make([]domain.LineDiscount, 0, len(order.Lines)+1)
	for _, line := range order.Lines {
		if line.Discount != nil && line.Discount.AmountCents > 0 {
			discounts = append(discounts, *line.Discount)
		}
	}
	if order.LoyaltyDiscount != nil && order.LoyaltyDiscount.AmountCents > 0 {
		discounts = append(discounts, *order.LoyaltyDiscount)
	}

	usages := make([]domain.DiscountUsage, 0, len(discounts))
	for _, d := range discounts {
		rule, err := e.repo.GetDiscountRuleByName(ctx, d.Name)
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("[pricing] WARN: discount %q no longer resolves to a rule, usage not recorded", d.Name)
			continue
		}
		if err != nil {
			return nil, err
		}
		usages = append(usages, domain.DiscountUsage{
			RuleID:      rule.ID,
			RuleName:    rule.Name,
			CustomerID:  customerID,
			Kind:        d.Kind,
			AmountCents: d.AmountCents,
		})
	}
	return usages, nil
}
