package domain

import "time"

const (
	ScopeItem        = "ITEM"
	ScopeCategory    = "CATEGORY"
	ScopeLoyaltyTier = "LOYALTY_TIER"
)

const (
	TierGold       = "GOLD"
	TierSilver     = "SILVER"
	TierBronze     = "BRONZE"
	TierNotLoyalty = "NOT_LOYALTY"
)

const (
	DiscountKindItem     = "ITEM"
	DiscountKindCategory = "CATEGORY"
	DiscountKindLoyalty  = "LOYALTY"
)

const (
	ReturnStatusPending   = "PENDING"
	ReturnStatusApproved  = "APPROVED"
	ReturnStatusRejected  = "REJECTED"
	ReturnStatusProcessed = "PROCESSED"
)

const (
	RefundMethodCash        = "CASH"
	RefundMethodCard        = "CARD"
	RefundMethodStoreCredit = "STORE_CREDIT"
)

const CardRefundStatusSuccess = "SUCCESS"

// DiscountRule is a long-lived pricing rule scoped to an item, a category,
// or a loyalty tier. Exactly one target field and exactly one value field
// (FixedAmountCents or Percentage) must be set; rules violating that are
// unusable, never silently miscomputed.
type DiscountRule struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Scope            string    `json:"scope"`
	TargetItemID     string    `json:"target_item_id,omitempty"`
	TargetCategoryID string    `json:"target_category_id,omitempty"`
	LoyaltyTier      string    `json:"loyalty_tier,omitempty"`
	FixedAmountCents *int64    `json:"fixed_amount_cents,omitempty"`
	Percentage       *float64  `json:"percentage,omitempty"`
	DurationLabel    string    `json:"duration_label,omitempty"`
	ActiveFrom       time.Time `json:"active_from"`
	Active           bool      `json:"active"`
}

// ApplicableAt reports whether the rule may be used at time t.
func (r DiscountRule) ApplicableAt(t time.Time) bool {
	return r.Active && !r.ActiveFrom.After(t)
}

type Customer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LoyaltyTier string `json:"loyalty_tier"`
	Points      int64  `json:"points"`
}

type CatalogItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"category_id"`
	PriceCents int64  `json:"price_cents"`
	StockQty   int    `json:"stock_qty"`
}

// LineDiscount is a resolved discount variant: the kind tag says which
// resolver produced it, and only the resolved value travels with it.
type LineDiscount struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	AmountCents int64  `json:"amountCents"`
}

type OrderLine struct {
	ItemID         string        `json:"itemId"`
	ItemName       string        `json:"itemName"`
	Quantity       int           `json:"quantity"`
	UnitPriceCents int64         `json:"unitPriceCents"`
	Discount       *LineDiscount `json:"discount,omitempty"`
	LineTotalCents int64         `json:"lineTotalCents"`
}

// PricedOrder is the ephemeral result of a pricing call. Only its committed
// projection (Order plus DiscountUsage rows) persists.
type PricedOrder struct {
	Lines               []OrderLine   `json:"lines"`
	SubtotalCents       int64         `json:"subtotalCents"`
	LineDiscountCents   int64         `json:"lineDiscountCents"`
	LoyaltyDiscount     *LineDiscount `json:"loyaltyDiscount,omitempty"`
	LoyaltyPointsEarned int64         `json:"loyaltyPointsEarned"`
	TotalCents          int64         `json:"totalCents"`
}

type Order struct {
	ID            string      `json:"id"`
	OrderToken    string      `json:"order_token"`
	CustomerID    string      `json:"customer_id,omitempty"`
	SubtotalCents int64       `json:"subtotal_cents"`
	DiscountCents int64       `json:"discount_cents"`
	TotalCents    int64       `json:"total_cents"`
	PointsEarned  int64       `json:"points_earned"`
	Lines         []OrderLine `json:"lines"`
	CreatedAt     time.Time   `json:"created_at"`
}

// DiscountUsage records one discount actually applied on a committed order.
type DiscountUsage struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	RuleID      string    `json:"rule_id"`
	RuleName    string    `json:"rule_name"`
	CustomerID  string    `json:"customer_id,omitempty"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

type InvoiceItem struct {
	ID             string `json:"id"`
	ItemID         string `json:"item_id"`
	ItemName       string `json:"item_name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

// Invoice carries the remaining balance of a past sale. TotalAmountCents and
// LoyaltyPoints only ever decrease, via settlement. Version guards against
// two settlements shadowing each other's subtraction.
type Invoice struct {
	Number           string        `json:"number"`
	CustomerID       string        `json:"customer_id,omitempty"`
	IssuedAt         time.Time     `json:"issued_at"`
	TotalAmountCents int64         `json:"total_amount_cents"`
	LoyaltyPoints    int64         `json:"loyalty_points"`
	Version          int64         `json:"version"`
	Items            []InvoiceItem `json:"items"`
}

type ReturnLine struct {
	InvoiceItemID string `json:"itemId"`
	Quantity      int    `json:"quantity"`
	Reason        string `json:"reason"`
}

type ReturnRequest struct {
	ID                     string       `json:"id"`
	InvoiceNumber          string       `json:"invoiceNumber"`
	Lines                  []ReturnLine `json:"items"`
	RefundMethod           string       `json:"refundMethod"`
	TotalRefundAmountCents int64        `json:"totalRefundAmountCents"`
	Status                 string       `json:"status"`
	CreatedAt              time.Time    `json:"createdAt"`
	ReviewedAt             *time.Time   `json:"reviewedAt,omitempty"`
}

// RefundAuditRecord is one append-only ledger row per settled return line.
// ReplacementItemID is set only for exchanges and always equals ItemID
// (cross-item exchange is not supported).
type RefundAuditRecord struct {
	ID                string    `json:"id"`
	InvoiceNumber     string    `json:"invoice_number"`
	InvoiceItemID     string    `json:"invoice_item_id"`
	ItemID            string    `json:"item_id"`
	Quantity          int       `json:"quantity"`
	Reason            string    `json:"reason"`
	RefundMethod      string    `json:"refund_method"`
	ReplacementItemID string    `json:"replacement_item_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// CardRefundRecord is the simulated refund instrument written by the
// card-refund path. Status is always SUCCESS; no gateway is called.
type CardRefundRecord struct {
	ID            string    `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	AccountHolder string    `json:"account_holder"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	AmountCents   int64     `json:"amount_cents"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// LoyaltySettings is the single global loyalty configuration: one shared
// earn rate, and two historically divergent refund deduction rates kept
// separately configurable on purpose.
type LoyaltySettings struct {
	PointsRate                   float64 `json:"points_rate"`
	ImmediateRefundCentsPerPoint int64   `json:"immediate_refund_cents_per_point"`
	GatedRefundCentsPerPoint     int64   `json:"gated_refund_cents_per_point"`
}

// SettlementLine is a fully resolved return line ready to be applied:
// invoice item and catalog item located, refund computed from the unit
// price at time of original sale.
type SettlementLine struct {
	InvoiceItemID     string
	ItemID            string
	Quantity          int
	UnitPriceCents    int64
	RefundCents       int64
	Reason            string
	ReplacementItemID string
}

// ReturnSettlement is the atomic unit handed to the store: every line plus
// the invoice/points mutations must apply together or not at all.
type ReturnSettlement struct {
	InvoiceNumber    string
	InvoiceVersion   int64
	CustomerID       string
	Lines            []SettlementLine
	TotalRefundCents int64
	RefundMethod     string
	PointsToDeduct   int64
	RequestID        string
	CardRefund       *CardRefundRecord
}

type SettlementResult struct {
	InvoiceNumber       string              `json:"invoiceNumber"`
	RequestID           string              `json:"requestId,omitempty"`
	TotalRefundCents    int64               `json:"totalRefundCents"`
	InvoiceBalanceCents int64               `json:"invoiceBalanceCents"`
	PointsDeducted      int64               `json:"pointsDeducted"`
	AuditRecords        []RefundAuditRecord `json:"auditRecords"`
	CardRefund          *CardRefundRecord   `json:"cardRefund,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type OrderItemRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type CalculateRequest struct {
	Items []OrderItemRequest `json:"items"`
}

type ApplyRequest struct {
	Order              PricedOrder `json:"order"`
	OrderToken         string      `json:"orderToken"`
	PaymentMethodToken string      `json:"paymentMethodToken,omitempty"`
}

type ApplyResponse struct {
	Order         PricedOrder `json:"order"`
	OrderID       string      `json:"orderId"`
	Duplicate     bool        `json:"duplicate"`
	PaymentStatus string      `json:"paymentStatus,omitempty"`
	PaymentRef    string      `json:"paymentRef,omitempty"`
}

type ImmediateReturnRequest struct {
	InvoiceNumber string       `json:"invoiceNumber"`
	Items         []ReturnLine `json:"items"`
	RefundMethod  string       `json:"refundMethod"`
}

type ExchangeRequest struct {
	InvoiceNumber string       `json:"invoiceNumber"`
	ReturnedItems []ReturnLine `json:"returnedItems"`
}

type CardRefundRequest struct {
	InvoiceNumber string       `json:"invoiceNumber"`
	Items         []ReturnLine `json:"items"`
	AccountHolder string       `json:"accountHolder"`
	BankName      string       `json:"bankName"`
	AccountNumber string       `json:"accountNumber"`
}

type InitiateRefundRequest struct {
	InvoiceNumber string       `json:"invoiceNumber"`
	Items         []ReturnLine `json:"items"`
	RefundMethod  string       `json:"refundMethod"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type PurgeRequest struct {
	Secret        string `json:"secret"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
}
