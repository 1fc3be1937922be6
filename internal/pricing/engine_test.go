package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/payment"
	"retailpos/backend/internal/store"
	"retailpos/backend/internal/store/memory"
)

func newTestEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded()
	return NewEngine(repo, nil, nil, nil), repo
}

func TestPriceRejectsEmptyOrMalformedLines(t *testing.T) {
	engine, _ := newTestEngine(t)

	cases := []domain.CalculateRequest{
		{},
		{Items: []domain.OrderItemRequest{{Name: "", Quantity: 1}}},
		{Items: []domain.OrderItemRequest{{Name: "Ceramic Mug", Quantity: 0}}},
	}
	for i, req := range cases {
		if _, err := engine.Price(context.Background(), req, ""); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestPriceSkipsUnknownItems(t *testing.T) {
	engine, _ := newTestEngine(t)

	priced, err := engine.Price(context.Background(), domain.CalculateRequest{
		Items: []domain.OrderItemRequest{
			{Name: "Ceramic Mug", Quantity: 1},
			{Name: "Nonexistent Widget", Quantity: 3},
		},
	}, "")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if len(priced.Lines) != 1 {
		t.Fatalf("expected 1 line after skipping the unknown item, got %d", len(priced.Lines))
	}
	if priced.Lines[0].ItemName != "Ceramic Mug" {
		t.Fatalf("unexpected line %+v", priced.Lines[0])
	}
}

func TestPriceGoldCustomerEspressoOrder(t *testing.T) {
	engine, _ := newTestEngine(t)

	priced, err := engine.Price(context.Background(), domain.CalculateRequest{
		Items: []domain.OrderItemRequest{{Name: "Espresso Machine", Quantity: 2}},
	}, "cust-gold-01")
	if err != nil {
		t.Fatalf("price: %v", err)
	}

	if priced.SubtotalCents != 20000 {
		t.Fatalf("expected subtotal 20000, got %d", priced.SubtotalCents)
	}
	// ESPRESSO10 yields 2000 on the 20000 base and beats the fixed 1500
	// category rule.
	if priced.LineDiscountCents != 2000 {
		t.Fatalf("expected line discount 2000, got %d", priced.LineDiscountCents)
	}
	line := priced.Lines[0]
	if line.Discount == nil || line.Discount.Name != "ESPRESSO10" || line.Discount.Kind != domain.DiscountKindItem {
		t.Fatalf("unexpected line discount %+v", line.Discount)
	}
	if line.LineTotalCents != 18000 {
		t.Fatalf("expected line total 18000, got %d", line.LineTotalCents)
	}
	if priced.LoyaltyDiscount == nil || priced.LoyaltyDiscount.Name != "GOLD5" || priced.LoyaltyDiscount.AmountCents != 1000 {
		t.Fatalf("unexpected loyalty discount %+v", priced.LoyaltyDiscount)
	}
	if priced.TotalCents != 17000 {
		t.Fatalf("expected total 17000, got %d", priced.TotalCents)
	}
	if priced.LoyaltyPointsEarned != 170 {
		t.Fatalf("expected 170 points, got %d", priced.LoyaltyPointsEarned)
	}
}

func TestPriceWalkInEarnsNoPoints(t *testing.T) {
	engine, _ := newTestEngine(t)

	priced, err := engine.Price(context.Background(), domain.CalculateRequest{
		Items: []domain.OrderItemRequest{{Name: "Ceramic Mug", Quantity: 2}},
	}, "")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if priced.LoyaltyDiscount != nil {
		t.Fatalf("expected no loyalty discount, got %+v", priced.LoyaltyDiscount)
	}
	if priced.LoyaltyPointsEarned != 0 {
		t.Fatalf("expected 0 points, got %d", priced.LoyaltyPointsEarned)
	}
}

func TestPriceReportsNegativeTotal(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	// A 100% item discount plus the loyalty discount on the pre-discount
	// subtotal pushes the total below zero. The engine reports it as
	// computed; whether to accept it is the caller's call.
	free := 100.0
	if err := repo.UpsertDiscountRule(ctx, domain.DiscountRule{
		ID:           "rule-mug-free",
		Name:         "MUGFREE",
		Scope:        domain.ScopeItem,
		TargetItemID: "itm-mug-01",
		Percentage:   &free,
		ActiveFrom:   time.Now().UTC().Add(-time.Hour),
		Active:       true,
	}); err != nil {
		t.Fatalf("upsert rule: %v", err)
	}

	priced, err := engine.Price(ctx, domain.CalculateRequest{
		Items: []domain.OrderItemRequest{{Name: "Ceramic Mug", Quantity: 1}},
	}, "cust-gold-01")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if priced.LineDiscountCents != 1500 {
		t.Fatalf("expected full line discount of 1500, got %d", priced.LineDiscountCents)
	}
	if priced.LoyaltyDiscount == nil || priced.LoyaltyDiscount.AmountCents != 75 {
		t.Fatalf("unexpected loyalty discount %+v", priced.LoyaltyDiscount)
	}
	if priced.TotalCents != -75 {
		t.Fatalf("expected total reported as -75, got %d", priced.TotalCents)
	}
	if priced.LoyaltyPointsEarned != 0 {
		t.Fatalf("negative totals must not earn points, got %d", priced.LoyaltyPointsEarned)
	}
}

func TestPriceUnknownCustomer(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Price(context.Background(), domain.CalculateRequest{
		Items: []domain.OrderItemRequest{{Name: "Ceramic Mug", Quantity: 1}},
	}, "cust-missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPriceIgnoresNotYetActiveRules(t *testing.T) {
	engine, _ := newTestEngine(t)

	// For a single espresso machine the 10% item rule yields 1000, so the
	// fixed 1500 category rule wins. HOLIDAY20 would yield 2000 and take
	// over, but it only starts a month out.
	priced, err := engine.Price(context.Background(), domain.CalculateRequest{
		Items: []domain.OrderItemRequest{{Name: "Espresso Machine", Quantity: 1}},
	}, "")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	d := priced.Lines[0].Discount
	if d == nil || d.Name != "APPLIANCE15" || d.AmountCents != 1500 {
		t.Fatalf("expected APPLIANCE15 for 1500, got %+v", d)
	}
}

func TestCommitRequiresToken(t *testing.T) {
	engine, _ := newTestEngine(t)

	priced, err := engine.Price(context.Background(), domain.CalculateRequest{
		Items: []domain.OrderItemRequest{{Name: "Ceramic Mug", Quantity: 1}},
	}, "")
	if err != nil {
		t.Fatalf("price: %v", err)
	}

	_, err = engine.Commit(context.Background(), domain.ApplyRequest{Order: *priced}, "")
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCommitIsIdempotentPerToken(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	priced, err := engine.Price(ctx, domain.CalculateRequest{
		Items: []domain.OrderItemRequest{{Name: "Espresso Machine", Quantity: 2}},
	}, "cust-gold-01")
	if err != nil {
		t.Fatalf("price: %v", err)
	}

	req := domain.ApplyRequest{Order: *priced, OrderToken: "tok-espresso-1"}
	first, err := engine.Commit(ctx, req, "cust-gold-01")
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if first.Duplicate {
		t.Fatal("first commit flagged duplicate")
	}
	if first.OrderID == "" {
		t.Fatal("first commit has no order id")
	}

	second, err := engine.Commit(ctx, req, "cust-gold-01")
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if !second.Duplicate {
		t.Fatal("second commit not flagged duplicate")
	}
	if second.OrderID != first.OrderID {
		t.Fatalf("duplicate returned a different order id: %s vs %s", second.OrderID, first.OrderID)
	}

	customer, err := repo.GetCustomerByID(ctx, "cust-gold-01")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if customer.Points != 500+170 {
		t.Fatalf("expected points credited exactly once (670), got %d", customer.Points)
	}
}

func TestCommitRecordsDiscountUsage(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	priced, err := engine.Price(ctx, domain.CalculateRequest{
		Items: []domain.OrderItemRequest{{Name: "Espresso Machine", Quantity: 2}},
	}, "cust-gold-01")
	if err != nil {
		t.Fatalf("price: %v", err)
	}

	resp, err := engine.Commit(ctx, domain.ApplyRequest{Order: *priced, OrderToken: "tok-usage-1"}, "cust-gold-01")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	usages, err := repo.ListDiscountUsage(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("list usage: %v", err)
	}
	if len(usages) != 2 {
		t.Fatalf("expected 2 usage rows (item and loyalty), got %d", len(usages))
	}
	byName := map[string]domain.DiscountUsage{}
	for _, u := range usages {
		byName[u.RuleName] = u
	}
	if u, ok := byName["ESPRESSO10"]; !ok || u.AmountCents != 2000 || u.Kind != domain.DiscountKindItem {
		t.Fatalf("unexpected ESPRESSO10 usage %+v", byName["ESPRESSO10"])
	}
	if u, ok := byName["GOLD5"]; !ok || u.AmountCents != 1000 || u.Kind != domain.DiscountKindLoyalty {
		t.Fatalf("unexpected GOLD5 usage %+v", byName["GOLD5"])
	}
}

func TestCommitReportsPaymentOutcome(t *testing.T) {
	repo := memory.NewSeeded()
	engine := NewEngine(repo, nil, payment.Simulated{}, nil)
	ctx := context.Background()

	priced, err := engine.Price(ctx, domain.CalculateRequest{
		Items: []domain.OrderItemRequest{{Name: "Ceramic Mug", Quantity: 2}},
	}, "")
	if err != nil {
		t.Fatalf("price: %v", err)
	}

	resp, err := engine.Commit(ctx, domain.ApplyRequest{
		Order:              *priced,
		OrderToken:         "tok-pay-1",
		PaymentMethodToken: "pm-card-visa",
	}, "")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if resp.PaymentStatus != "SUCCEEDED" {
		t.Fatalf("expected SUCCEEDED, got %q", resp.PaymentStatus)
	}
	if resp.PaymentRef == "" {
		t.Fatal("expected a payment reference")
	}
}
