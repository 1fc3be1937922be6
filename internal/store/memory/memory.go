package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/store"
	"retailpos/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	rulesByID       map[string]domain.DiscountRule
	customersByID   map[string]domain.Customer
	itemsByID       map[string]domain.CatalogItem
	itemIDByName    map[string]string
	ordersByID      map[string]*domain.Order
	ordersByToken   map[string]*domain.Order
	usagesByOrder   map[string][]domain.DiscountUsage
	invoicesByNum   map[string]*domain.Invoice
	requestsByID    map[string]*domain.ReturnRequest
	refundAudit     []domain.RefundAuditRecord
	cardRefunds     []domain.CardRefundRecord
	loyalty         domain.LoyaltySettings
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	past := now.Add(-90 * 24 * time.Hour)

	items := []domain.CatalogItem{
		{ID: "itm-espresso-01", Name: "Espresso Machine", CategoryID: "cat-appliance", PriceCents: 10000, StockQty: 40},
		{ID: "itm-frenchpress-01", Name: "French Press", CategoryID: "cat-appliance", PriceCents: 4500, StockQty: 60},
		{ID: "itm-mug-01", Name: "Ceramic Mug", CategoryID: "cat-kitchen", PriceCents: 1500, StockQty: 200},
		{ID: "itm-knife-01", Name: "Chef Knife", CategoryID: "cat-kitchen", PriceCents: 8200, StockQty: 35},
		{ID: "itm-lamp-01", Name: "Desk Lamp", CategoryID: "cat-home", PriceCents: 5600, StockQty: 80},
		{ID: "itm-blanket-01", Name: "Throw Blanket", CategoryID: "cat-home", PriceCents: 6800, StockQty: 50},
	}

	pct := func(v float64) *float64 { return &v }
	fixed := func(v int64) *int64 { return &v }

	rules := []domain.DiscountRule{
		{ID: "rule-espresso10", Name: "ESPRESSO10", Scope: domain.ScopeItem, TargetItemID: "itm-espresso-01", Percentage: pct(10), DurationLabel: "all season", ActiveFrom: past, Active: true},
		{ID: "rule-appliance15", Name: "APPLIANCE15", Scope: domain.ScopeCategory, TargetCategoryID: "cat-appliance", FixedAmountCents: fixed(1500), DurationLabel: "all season", ActiveFrom: past, Active: true},
		{ID: "rule-kitchen5", Name: "KITCHEN5", Scope: domain.ScopeCategory, TargetCategoryID: "cat-kitchen", Percentage: pct(5), ActiveFrom: past, Active: true},
		{ID: "rule-gold5", Name: "GOLD5", Scope: domain.ScopeLoyaltyTier, LoyaltyTier: domain.TierGold, Percentage: pct(5), ActiveFrom: past, Active: true},
		{ID: "rule-silver3", Name: "SILVER3", Scope: domain.ScopeLoyaltyTier, LoyaltyTier: domain.TierSilver, Percentage: pct(3), ActiveFrom: past, Active: true},
		{ID: "rule-goldwelcome", Name: "GOLDWELCOME", Scope: domain.ScopeLoyaltyTier, LoyaltyTier: domain.TierGold, FixedAmountCents: fixed(500), ActiveFrom: past, Active: true},
		{ID: "rule-holiday20", Name: "HOLIDAY20", Scope: domain.ScopeItem, TargetItemID: "itm-espresso-01", Percentage: pct(20), DurationLabel: "holiday week", ActiveFrom: now.Add(30 * 24 * time.Hour), Active: true},
	}

	customers := []domain.Customer{
		{ID: "cust-gold-01", Name: "Rina Wijaya", LoyaltyTier: domain.TierGold, Points: 500},
		{ID: "cust-silver-01", Name: "Teguh Santoso", LoyaltyTier: domain.TierSilver, Points: 120},
		{ID: "cust-bronze-01", Name: "Maya Putri", LoyaltyTier: domain.TierBronze, Points: 40},
		{ID: "cust-walkin-01", Name: "Walk-in", LoyaltyTier: domain.TierNotLoyalty, Points: 0},
	}

	invoices := []*domain.Invoice{
		{
			Number:           "INV-1001",
			CustomerID:       "cust-gold-01",
			IssuedAt:         now.Add(-30 * 24 * time.Hour),
			TotalAmountCents: 21000,
			LoyaltyPoints:    210,
			Version:          1,
			Items: []domain.InvoiceItem{
				{ID: "invi-1001-1", ItemID: "itm-espresso-01", ItemName: "Espresso Machine", UnitPriceCents: 5000, Quantity: 3},
				{ID: "invi-1001-2", ItemID: "itm-mug-01", ItemName: "Ceramic Mug", UnitPriceCents: 1500, Quantity: 4},
			},
		},
		{
			Number:           "INV-1002",
			CustomerID:       "cust-silver-01",
			IssuedAt:         now.Add(-14 * 24 * time.Hour),
			TotalAmountCents: 16400,
			LoyaltyPoints:    164,
			Version:          1,
			Items: []domain.InvoiceItem{
				{ID: "invi-1002-1", ItemID: "itm-knife-01", ItemName: "Chef Knife", UnitPriceCents: 8200, Quantity: 2},
			},
		},
		{
			Number:           "INV-1003",
			IssuedAt:         now.Add(-7 * 24 * time.Hour),
			TotalAmountCents: 5600,
			LoyaltyPoints:    0,
			Version:          1,
			Items: []domain.InvoiceItem{
				{ID: "invi-1003-1", ItemID: "itm-lamp-01", ItemName: "Desk Lamp", UnitPriceCents: 5600, Quantity: 1},
			},
		},
	}

	itemMap := make(map[string]domain.CatalogItem, len(items))
	nameIdx := make(map[string]string, len(items))
	for _, it := range items {
		itemMap[it.ID] = it
		nameIdx[strings.ToLower(it.Name)] = it.ID
	}
	ruleMap := make(map[string]domain.DiscountRule, len(rules))
	for _, r := range rules {
		ruleMap[r.ID] = r
	}
	custMap := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		custMap[c.ID] = c
	}
	invMap := make(map[string]*domain.Invoice, len(invoices))
	for _, inv := range invoices {
		invMap[inv.Number] = inv
	}

	return &Store{
		rulesByID:     ruleMap,
		customersByID: custMap,
		itemsByID:     itemMap,
		itemIDByName:  nameIdx,
		ordersByID:    make(map[string]*domain.Order),
		ordersByToken: make(map[string]*domain.Order),
		usagesByOrder: make(map[string][]domain.DiscountUsage),
		invoicesByNum: invMap,
		requestsByID:  make(map[string]*domain.ReturnRequest),
		refundAudit:   make([]domain.RefundAuditRecord, 0, 128),
		cardRefunds:   make([]domain.CardRefundRecord, 0, 16),
		loyalty: domain.LoyaltySettings{
			PointsRate:                   0.01,
			ImmediateRefundCentsPerPoint: 1000,
			GatedRefundCentsPerPoint:     10000,
		},
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListDiscountRules(_ context.Context) ([]domain.DiscountRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]domain.DiscountRule, 0, len(s.rulesByID))
	for _, r := range s.rulesByID {
		rules = append(rules, cloneRule(r))
	}
	slices.SortFunc(rules, func(a, b domain.DiscountRule) int {
		return strings.Compare(a.Name, b.Name)
	})
	return rules, nil
}

func (s *Store) ListActiveDiscountRules(_ context.Context, asOf time.Time) ([]domain.DiscountRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]domain.DiscountRule, 0, len(s.rulesByID))
	for _, r := range s.rulesByID {
		if !r.ApplicableAt(asOf) {
			continue
		}
		rules = append(rules, cloneRule(r))
	}
	slices.SortFunc(rules, func(a, b domain.DiscountRule) int {
		return strings.Compare(a.Name, b.Name)
	})
	return rules, nil
}

func (s *Store) GetDiscountRuleByName(_ context.Context, name string) (*domain.DiscountRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rulesByID {
		if strings.EqualFold(r.Name, name) {
			copyRule := cloneRule(r)
			return &copyRule, nil
		}
	}
	return nil, store.ErrNotFound
}

// UpsertDiscountRule replaces or inserts a rule. It exists for dev seeding
// and tests; the HTTP surface exposes rules read-only.
func (s *Store) UpsertDiscountRule(_ context.Context, rule domain.DiscountRule) error {
	if rule.ID == "" || rule.Name == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rulesByID[rule.ID] = cloneRule(rule)
	return nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyCustomer := c
	return &copyCustomer, nil
}

func (s *Store) GetCatalogItemByName(_ context.Context, name string) (*domain.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.itemIDByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, store.ErrNotFound
	}
	item := s.itemsByID[id]
	copyItem := item
	return &copyItem, nil
}

func (s *Store) GetCatalogItemByID(_ context.Context, id string) (*domain.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.itemsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) FindOrderByToken(_ context.Context, token string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.ordersByToken[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (s *Store) CommitOrder(_ context.Context, order domain.Order, usages []domain.DiscountUsage) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.OrderToken == "" || len(order.Lines) == 0 {
		return nil, store.ErrValidation
	}
	if existing, ok := s.ordersByToken[order.OrderToken]; ok {
		return cloneOrder(existing), nil
	}

	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	stored := cloneOrder(&order)
	s.ordersByID[order.ID] = stored
	s.ordersByToken[order.OrderToken] = stored

	now := time.Now().UTC()
	for i := range usages {
		if usages[i].ID == "" {
			usages[i].ID = xid.New("dusg")
		}
		usages[i].OrderID = order.ID
		if usages[i].CreatedAt.IsZero() {
			usages[i].CreatedAt = now
		}
	}
	s.usagesByOrder[order.ID] = append([]domain.DiscountUsage{}, usages...)

	if order.CustomerID != "" {
		if c, ok := s.customersByID[order.CustomerID]; ok {
			c.Points += order.PointsEarned
			s.customersByID[order.CustomerID] = c
		}
	}

	return cloneOrder(stored), nil
}

// ListDiscountUsage returns the usage rows recorded for a committed order.
func (s *Store) ListDiscountUsage(_ context.Context, orderID string) ([]domain.DiscountUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usages := s.usagesByOrder[orderID]
	result := make([]domain.DiscountUsage, len(usages))
	copy(result, usages)
	return result, nil
}

func (s *Store) GetInvoice(_ context.Context, number string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoicesByNum[number]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneInvoice(inv), nil
}

func (s *Store) CreateReturnRequest(_ context.Context, req domain.ReturnRequest) (*domain.ReturnRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.InvoiceNumber == "" || len(req.Lines) == 0 {
		return nil, store.ErrValidation
	}
	if _, ok := s.invoicesByNum[req.InvoiceNumber]; !ok {
		return nil, store.ErrNotFound
	}
	if req.ID == "" {
		req.ID = xid.New("rreq")
	}
	if req.Status == "" {
		req.Status = domain.ReturnStatusPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	s.requestsByID[req.ID] = cloneReturnRequest(&req)
	return cloneReturnRequest(&req), nil
}

func (s *Store) GetReturnRequestByID(_ context.Context, id string) (*domain.ReturnRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requestsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneReturnRequest(req), nil
}

func (s *Store) ListReturnRequests(_ context.Context, status string, limit int) ([]domain.ReturnRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	result := make([]domain.ReturnRequest, 0, len(s.requestsByID))
	for _, req := range s.requestsByID {
		if status != "" && req.Status != status {
			continue
		}
		result = append(result, *cloneReturnRequest(req))
	}
	slices.SortFunc(result, func(a, b domain.ReturnRequest) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) TransitionReturnRequest(_ context.Context, id string, from string, to string, reviewedAt time.Time) (*domain.ReturnRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requestsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if req.Status != from {
		return nil, store.ErrStateConflict
	}
	req.Status = to
	if !reviewedAt.IsZero() {
		t := reviewedAt
		req.ReviewedAt = &t
	}
	return cloneReturnRequest(req), nil
}

// SettleReturn applies a fully resolved settlement in one critical section:
// stock restoration, invoice balance and quantity reduction, loyalty point
// deduction, audit rows, and (for gated settlements) the request transition
// to PROCESSED. Validation runs before any mutation so a failed settlement
// leaves every record untouched.
func (s *Store) SettleReturn(_ context.Context, settlement domain.ReturnSettlement) (*domain.SettlementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settlement.InvoiceNumber == "" || len(settlement.Lines) == 0 {
		return nil, store.ErrValidation
	}
	inv, ok := s.invoicesByNum[settlement.InvoiceNumber]
	if !ok {
		return nil, store.ErrNotFound
	}
	if inv.Version != settlement.InvoiceVersion {
		return nil, store.ErrVersionConflict
	}

	var req *domain.ReturnRequest
	if settlement.RequestID != "" {
		req, ok = s.requestsByID[settlement.RequestID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if req.Status != domain.ReturnStatusApproved {
			return nil, store.ErrStateConflict
		}
	}

	itemIdx := make(map[string]int, len(inv.Items))
	for i, it := range inv.Items {
		itemIdx[it.ID] = i
	}
	requested := make(map[string]int, len(settlement.Lines))
	for _, line := range settlement.Lines {
		idx, ok := itemIdx[line.InvoiceItemID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if line.Quantity < 1 {
			return nil, store.ErrValidation
		}
		// Sum across lines: two lines naming the same invoice item must not
		// return more than remains between them.
		requested[line.InvoiceItemID] += line.Quantity
		if requested[line.InvoiceItemID] > inv.Items[idx].Quantity {
			return nil, store.ErrValidation
		}
		if _, ok := s.itemsByID[line.ItemID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	now := time.Now().UTC()
	audits := make([]domain.RefundAuditRecord, 0, len(settlement.Lines))
	for _, line := range settlement.Lines {
		idx := itemIdx[line.InvoiceItemID]
		inv.Items[idx].Quantity -= line.Quantity

		item := s.itemsByID[line.ItemID]
		item.StockQty += line.Quantity
		s.itemsByID[line.ItemID] = item

		audits = append(audits, domain.RefundAuditRecord{
			ID:                xid.New("raud"),
			InvoiceNumber:     settlement.InvoiceNumber,
			InvoiceItemID:     line.InvoiceItemID,
			ItemID:            line.ItemID,
			Quantity:          line.Quantity,
			Reason:            line.Reason,
			RefundMethod:      settlement.RefundMethod,
			ReplacementItemID: line.ReplacementItemID,
			CreatedAt:         now,
		})
	}
	s.refundAudit = append(s.refundAudit, audits...)

	inv.TotalAmountCents -= settlement.TotalRefundCents
	if inv.TotalAmountCents < 0 {
		inv.TotalAmountCents = 0
	}
	deducted := settlement.PointsToDeduct
	if deducted > inv.LoyaltyPoints {
		deducted = inv.LoyaltyPoints
	}
	inv.LoyaltyPoints -= deducted
	inv.Version++

	if settlement.CustomerID != "" {
		if c, ok := s.customersByID[settlement.CustomerID]; ok {
			c.Points -= deducted
			if c.Points < 0 {
				c.Points = 0
			}
			s.customersByID[settlement.CustomerID] = c
		}
	}

	var cardRefund *domain.CardRefundRecord
	if settlement.CardRefund != nil {
		record := *settlement.CardRefund
		if record.ID == "" {
			record.ID = xid.New("cref")
		}
		record.InvoiceNumber = settlement.InvoiceNumber
		record.AmountCents = settlement.TotalRefundCents
		record.Status = domain.CardRefundStatusSuccess
		record.CreatedAt = now
		s.cardRefunds = append(s.cardRefunds, record)
		copyRecord := record
		cardRefund = &copyRecord
	}

	if req != nil {
		req.Status = domain.ReturnStatusProcessed
	}

	return &domain.SettlementResult{
		InvoiceNumber:       settlement.InvoiceNumber,
		RequestID:           settlement.RequestID,
		TotalRefundCents:    settlement.TotalRefundCents,
		InvoiceBalanceCents: inv.TotalAmountCents,
		PointsDeducted:      deducted,
		AuditRecords:        audits,
		CardRefund:          cardRefund,
	}, nil
}

// ListRefundAudit returns ledger rows newest first.
func (s *Store) ListRefundAudit(_ context.Context, invoiceNumber string) ([]domain.RefundAuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.RefundAuditRecord, 0, len(s.refundAudit))
	for _, rec := range s.refundAudit {
		if invoiceNumber != "" && rec.InvoiceNumber != invoiceNumber {
			continue
		}
		result = append(result, rec)
	}
	slices.SortFunc(result, func(a, b domain.RefundAuditRecord) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(a.ID, b.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) PurgeRefundAudit(_ context.Context, invoiceNumber string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if invoiceNumber == "" {
		purged := len(s.refundAudit)
		s.refundAudit = s.refundAudit[:0]
		return purged, nil
	}

	kept := s.refundAudit[:0]
	purged := 0
	for _, rec := range s.refundAudit {
		if rec.InvoiceNumber == invoiceNumber {
			purged++
			continue
		}
		kept = append(kept, rec)
	}
	s.refundAudit = kept
	return purged, nil
}

func (s *Store) ListCardRefunds(_ context.Context, invoiceNumber string) ([]domain.CardRefundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CardRefundRecord, 0, len(s.cardRefunds))
	for _, rec := range s.cardRefunds {
		if invoiceNumber != "" && rec.InvoiceNumber != invoiceNumber {
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

func (s *Store) GetLoyaltySettings(_ context.Context) (domain.LoyaltySettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loyalty, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrStateConflict
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	if password == "" {
		return store.ErrValidation
	}
	u.Password = password
	s.usersByUsername[username] = u
	return nil
}

func cloneRule(r domain.DiscountRule) domain.DiscountRule {
	out := r
	if r.FixedAmountCents != nil {
		v := *r.FixedAmountCents
		out.FixedAmountCents = &v
	}
	if r.Percentage != nil {
		v := *r.Percentage
		out.Percentage = &v
	}
	return out
}

func cloneOrder(o *domain.Order) *domain.Order {
	out := *o
	out.Lines = make([]domain.OrderLine, len(o.Lines))
	copy(out.Lines, o.Lines)
	for i := range out.Lines {
		if d := o.Lines[i].Discount; d != nil {
			copyDiscount := *d
			out.Lines[i].Discount = &copyDiscount
		}
	}
	return &out
}

func cloneInvoice(inv *domain.Invoice) *domain.Invoice {
	out := *inv
	out.Items = make([]domain.InvoiceItem, len(inv.Items))
	copy(out.Items, inv.Items)
	return &out
}

func cloneReturnRequest(req *domain.ReturnRequest) *domain.ReturnRequest {
	out := *req
	out.Lines = make([]domain.ReturnLine, len(req.Lines))
	copy(out.Lines, req.Lines)
	if req.ReviewedAt != nil {
		t := *req.ReviewedAt
		out.ReviewedAt = &t
	}
	return &out
}
